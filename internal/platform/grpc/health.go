// Package grpc hosts the gRPC health endpoint Folio exposes for
// orchestrators, plus a client helper to wait on it.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer serves the standard gRPC health service on its own listener.
type HealthServer struct {
	listener net.Listener
	server   *gogrpc.Server
	health   *health.Server
	logger   *zap.Logger
}

// NewHealthServer listens on addr and registers the health service.
// Services listed in names are reported alongside the empty overall name.
func NewHealthServer(addr string, logger *zap.Logger, names ...string) (*HealthServer, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("health address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on health addr %s: %w", addr, err)
	}
	server := gogrpc.NewServer(gogrpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	for _, name := range names {
		healthServer.SetServingStatus(name, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	return &HealthServer{listener: listener, server: server, health: healthServer, logger: logger}, nil
}

// Addr returns the bound listener address.
func (s *HealthServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// SetServing flips every registered service to SERVING or NOT_SERVING.
func (s *HealthServer) SetServing(serving bool) {
	if s == nil || s.health == nil {
		return
	}
	if serving {
		s.health.Resume()
		return
	}
	s.health.Shutdown()
}

// Serve blocks until ctx ends or the listener fails.
func (s *HealthServer) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("health server is nil")
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.server.Serve(s.listener)
	}()
	s.SetServing(true)
	s.logger.Info("grpc health listening", zap.String("addr", s.Addr()))

	select {
	case <-ctx.Done():
		s.SetServing(false)
		s.server.GracefulStop()
		<-serveErr
		return nil
	case err := <-serveErr:
		if err == nil || errors.Is(err, gogrpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve grpc health: %w", err)
	}
}

// WaitForHealth blocks until the gRPC health check reports SERVING or the context ends.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string, logger *zap.Logger) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	healthClient := grpc_health_v1.NewHealthClient(conn)
	backoff := 200 * time.Millisecond
	for {
		callCtx, cancel := context.WithTimeout(ctx, time.Second)
		response, err := healthClient.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err == nil && response.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING {
			logger.Debug("grpc health is serving", zap.String("service", service))
			return nil
		}
		if err != nil {
			logger.Debug("waiting for grpc health", zap.Error(err))
		} else {
			logger.Debug("waiting for grpc health", zap.String("status", response.GetStatus().String()))
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for gRPC health: %w", ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < time.Second {
			backoff = min(backoff*2, time.Second)
		}
	}
}
