// Package site parses site command flags and launches the site runtime.
package site

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/folio/internal/platform/cmd"
	"github.com/louisbranch/folio/internal/platform/logging"
	"github.com/louisbranch/folio/internal/platform/otel"
	siteserver "github.com/louisbranch/folio/internal/services/site"
	"github.com/louisbranch/folio/internal/services/site/platform/requestmeta"
	"go.uber.org/zap"
)

// Config holds site command configuration.
type Config struct {
	HTTPAddr            string        `env:"FOLIO_HTTP_ADDR" envDefault:"localhost:8080"`
	DBPath              string        `env:"FOLIO_DB_PATH" envDefault:"data/folio.db"`
	UploadDir           string        `env:"FOLIO_UPLOAD_DIR" envDefault:"data/uploads"`
	PublicBaseURL       string        `env:"FOLIO_PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	UploadMaxBytes      int64         `env:"FOLIO_UPLOAD_MAX_BYTES" envDefault:"10485760"`
	SessionTTL          time.Duration `env:"FOLIO_SESSION_TTL" envDefault:"720h"`
	PreviewSecret       string        `env:"FOLIO_PREVIEW_SECRET"`
	IndexNowKey         string        `env:"FOLIO_INDEXNOW_KEY"`
	IndexNowEndpoint    string        `env:"FOLIO_INDEXNOW_ENDPOINT" envDefault:"https://api.indexnow.org/indexnow"`
	OrphanSweepInterval time.Duration `env:"FOLIO_ORPHAN_SWEEP_INTERVAL" envDefault:"0s"`
	OrphanGrace         time.Duration `env:"FOLIO_ORPHAN_GRACE" envDefault:"24h"`
	ThemeFile           string        `env:"FOLIO_THEME_FILE"`
	HealthGRPCAddr      string        `env:"FOLIO_HEALTH_GRPC_ADDR"`
	TrustForwardedProto bool          `env:"FOLIO_TRUST_FORWARDED_PROTO"`
	TrustForwardedFor   bool          `env:"FOLIO_TRUST_FORWARDED_FOR"`

	Logging   logging.Config
	Telemetry otel.Config
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "Directory holding uploaded files")
	fs.StringVar(&cfg.PublicBaseURL, "base-url", cfg.PublicBaseURL, "Public base URL used in sitemaps and IndexNow")
	fs.StringVar(&cfg.ThemeFile, "theme-file", cfg.ThemeFile, "Theme and menu YAML watched for changes")
	fs.StringVar(&cfg.HealthGRPCAddr, "health-addr", cfg.HealthGRPCAddr, "gRPC health listen address")
	fs.DurationVar(&cfg.OrphanSweepInterval, "orphan-sweep-interval", cfg.OrphanSweepInterval, "Orphan sweep interval (0 disables)")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level")

	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ServerConfig maps command configuration onto the site runtime.
func (cfg Config) ServerConfig() siteserver.Config {
	return siteserver.Config{
		HTTPAddr:            cfg.HTTPAddr,
		DBPath:              cfg.DBPath,
		UploadDir:           cfg.UploadDir,
		PublicBaseURL:       cfg.PublicBaseURL,
		UploadMaxBytes:      cfg.UploadMaxBytes,
		SessionTTL:          cfg.SessionTTL,
		PreviewSecret:       cfg.PreviewSecret,
		IndexNowKey:         cfg.IndexNowKey,
		IndexNowEndpoint:    cfg.IndexNowEndpoint,
		OrphanSweepInterval: cfg.OrphanSweepInterval,
		OrphanGrace:         cfg.OrphanGrace,
		ThemeFile:           cfg.ThemeFile,
		HealthGRPCAddr:      cfg.HealthGRPCAddr,
		RequestPolicy: requestmeta.Policy{
			TrustForwardedProto: cfg.TrustForwardedProto,
			TrustForwardedFor:   cfg.TrustForwardedFor,
		},
	}
}

// Run starts the site runtime.
func Run(ctx context.Context, cfg Config) error {
	options := entrypoint.RunOptions{Logging: cfg.Logging, Telemetry: cfg.Telemetry}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSite, options, func(ctx context.Context, logger *zap.Logger) error {
		serverCfg := cfg.ServerConfig()
		rt, err := siteserver.OpenRuntime(ctx, serverCfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		server, err := siteserver.NewServer(ctx, rt, serverCfg, logger)
		if err != nil {
			return err
		}
		defer server.Close()
		logger.Info("site starting",
			zap.String("addr", serverCfg.HTTPAddr),
			zap.String("base_url", serverCfg.PublicBaseURL),
			zap.Bool("indexnow", rt.Services.IndexNow != nil),
			zap.Bool("preview_links", serverCfg.PreviewSecret != ""),
		)
		return server.Run(ctx)
	})
}
