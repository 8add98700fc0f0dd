package site

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	platformgrpc "github.com/louisbranch/folio/internal/platform/grpc"
	"github.com/louisbranch/folio/internal/platform/timeouts"
	"github.com/louisbranch/folio/internal/services/site/app"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/modules"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/platform/observability"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HealthServiceName is reported by the gRPC health endpoint.
const HealthServiceName = "folio.site"

// Server hosts the site HTTP surface and its background workers.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	runtime    *Runtime
	health     *platformgrpc.HealthServer
	themeFile  string
	logger     *zap.Logger
}

// NewHandler builds the root handler from the default module groups.
func NewHandler(rt *Runtime, cfg Config, logger *zap.Logger) (http.Handler, error) {
	if rt == nil {
		return nil, errors.New("runtime is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	principal := app.NewPrincipal(rt.Services.Accounts, rt.Services.SiteConfig, logger.Named("principal"))
	deps := principal.Dependencies(module.Dependencies{
		RequestPolicy: cfg.RequestPolicy,
		Logger:        logger,
	})
	h, err := app.Composer{}.Compose(app.ComposeInput{
		Dependencies:  deps,
		PublicModules: modules.Public(rt.Services),
		MemberModules: modules.Member(rt.Services),
		AdminModules:  modules.Admin(rt.Services),
	})
	if err != nil {
		return nil, err
	}
	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET "+routepath.Health, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})
	rootMux.Handle("/", h)
	return httpx.Chain(rootMux,
		httpx.RecoverPanic(logger),
		httpx.RequestID(),
		observability.Trace(),
		app.WithRequestState(),
		app.PersistLanguage(),
		observability.RequestLogger(logger.Named("http")),
	), nil
}

// NewServer validates config and constructs a site server over rt.
func NewServer(_ context.Context, rt *Runtime, cfg Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, err := NewHandler(rt, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("compose site handler: %w", err)
	}
	var health *platformgrpc.HealthServer
	if addr := strings.TrimSpace(cfg.HealthGRPCAddr); addr != "" {
		health, err = platformgrpc.NewHealthServer(addr, logger.Named("health"), HealthServiceName)
		if err != nil {
			return nil, err
		}
	}
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		runtime:   rt,
		health:    health,
		themeFile: strings.TrimSpace(cfg.ThemeFile),
		logger:    logger,
	}, nil
}

// Run serves HTTP and runs the background workers until ctx ends or one
// of them fails.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return errors.New("site server is nil")
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.ListenAndServe(ctx) })
	if s.health != nil {
		g.Go(func() error { return s.health.Serve(ctx) })
	}
	g.Go(func() error { return s.runtime.Sweeper.Run(ctx) })
	g.Go(func() error { return s.runtime.Queue.Run(ctx) })
	if s.themeFile != "" {
		g.Go(func() error { return s.runtime.Services.SiteConfig.Watch(ctx, s.themeFile) })
	}
	return g.Wait()
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("site server is nil")
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()
	s.logger.Info("site listening", zap.String("addr", s.httpAddr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown site http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve site http: %w", err)
	}
}

// Close closes open server resources.
func (s *Server) Close() {
	if s == nil || s.httpServer == nil {
		return
	}
	_ = s.httpServer.Close()
}
