// Package config loads service configuration from the process environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Prefix is the environment prefix shared by every Folio setting.
const Prefix = "FOLIO_"

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseEnvWithLookup loads configuration from a custom environment map.
// Keys in environ are full variable names, including any prefix.
func ParseEnvWithLookup(target any, environ map[string]string) error {
	if environ == nil {
		environ = map[string]string{}
	}
	trimmed := make(map[string]string, len(environ))
	for key, value := range environ {
		trimmed[key] = strings.TrimSpace(value)
	}
	if err := env.ParseWithOptions(target, env.Options{Environment: trimmed}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
