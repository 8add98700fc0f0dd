package grpc

import (
	"context"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestHealthServerReportsServingWhileRunning(t *testing.T) {
	server, err := NewHealthServer("127.0.0.1:0", nil, "folio.site")
	if err != nil {
		t.Fatalf("NewHealthServer() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()

	conn := dialHealthServer(t, server.Addr())
	defer conn.Close()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if err := WaitForHealth(waitCtx, conn, "folio.site", nil); err != nil {
		t.Fatalf("wait for health: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancellation")
	}
}

func TestWaitForHealthRespectsContext(t *testing.T) {
	server, err := NewHealthServer("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewHealthServer() error = %v", err)
	}
	// Never served: the listener accepts nothing useful.
	defer server.listener.Close()

	conn := dialHealthServer(t, server.Addr())
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := WaitForHealth(ctx, conn, "", nil); err == nil {
		t.Fatal("expected context error, got nil")
	}
}

func TestNewHealthServerRequiresAddress(t *testing.T) {
	if _, err := NewHealthServer("  ", nil); err == nil {
		t.Fatal("expected address error")
	}
}

func TestWaitForHealthRequiresConnection(t *testing.T) {
	if err := WaitForHealth(context.Background(), nil, "", nil); err == nil {
		t.Fatal("expected connection error")
	}
}

func dialHealthServer(t *testing.T, addr string) *gogrpc.ClientConn {
	t.Helper()
	conn, err := gogrpc.NewClient(addr, gogrpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial health server: %v", err)
	}
	return conn
}
