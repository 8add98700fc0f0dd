// Package main runs the Folio maintenance CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/folio/internal/cmd/folioctl"
	"github.com/louisbranch/folio/internal/platform/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := folioctl.Execute(ctx); err != nil {
		stop()
		config.Exitf("folioctl: %v", err)
	}
}
