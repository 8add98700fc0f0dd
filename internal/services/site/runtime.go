// Package site hosts the Folio browser-facing service: storage, domain
// services, module composition and background workers.
package site

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/folio/internal/services/site/domain/accounts"
	"github.com/louisbranch/folio/internal/services/site/domain/catalog"
	"github.com/louisbranch/folio/internal/services/site/domain/community"
	"github.com/louisbranch/folio/internal/services/site/domain/content"
	"github.com/louisbranch/folio/internal/services/site/domain/orphans"
	"github.com/louisbranch/folio/internal/services/site/domain/seo"
	"github.com/louisbranch/folio/internal/services/site/domain/siteconfig"
	"github.com/louisbranch/folio/internal/services/site/domain/uploads"
	"github.com/louisbranch/folio/internal/services/site/modules"
	"github.com/louisbranch/folio/internal/services/site/platform/requestmeta"
	"github.com/louisbranch/folio/internal/services/site/storage/sqlite"
	"go.uber.org/zap"
)

// Config defines startup inputs for the site service.
type Config struct {
	HTTPAddr            string
	DBPath              string
	UploadDir           string
	PublicBaseURL       string
	UploadMaxBytes      int64
	SessionTTL          time.Duration
	PreviewSecret       string
	IndexNowKey         string
	IndexNowEndpoint    string
	OrphanSweepInterval time.Duration
	OrphanGrace         time.Duration
	ThemeFile           string
	HealthGRPCAddr      string
	RequestPolicy       requestmeta.Policy
}

// Runtime is an opened store with every domain service wired over it.
// The site server and the maintenance CLI share it.
type Runtime struct {
	Store    *sqlite.Store
	Services modules.Services
	// Queue batches changed URLs for IndexNow. It is inert when IndexNow
	// is not configured.
	Queue   *seo.Queue
	Sweeper *orphans.Sweeper
	logger  *zap.Logger
}

// OpenRuntime opens the database, applies migrations and builds services.
func OpenRuntime(ctx context.Context, cfg Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dbPath := strings.TrimSpace(cfg.DBPath)
	if dbPath == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	site, err := seo.NewSite(cfg.PublicBaseURL)
	if err != nil {
		return nil, err
	}
	store, err := sqlite.OpenContext(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open site store: %w", err)
	}

	indexNow, err := seo.NewIndexNow(site, cfg.IndexNowKey,
		seo.WithEndpoint(cfg.IndexNowEndpoint),
		seo.WithSubmissionLog(store),
		seo.WithIndexNowLogger(logger.Named("indexnow")),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	var submitter seo.Submitter
	if indexNow != nil {
		submitter = indexNow
	}
	queue := seo.NewQueue(site, submitter, logger.Named("indexnow"))

	files := uploads.NewService(store, cfg.UploadDir,
		uploads.WithMaxBytes(cfg.UploadMaxBytes),
		uploads.WithLogger(logger.Named("uploads")),
	)
	orphanService := orphans.NewService(store, files,
		orphans.WithGrace(cfg.OrphanGrace),
		orphans.WithLogger(logger.Named("orphans")),
	)
	accountService := accounts.NewService(store,
		accounts.WithSessionTTL(cfg.SessionTTL),
		accounts.WithLogger(logger.Named("accounts")),
	)
	services := modules.Services{
		Accounts:    accountService,
		Catalog:     catalog.NewService(store, catalog.WithPublisher(queue), catalog.WithLogger(logger.Named("catalog"))),
		Content:     content.NewService(store, content.WithPublisher(queue), content.WithPreviewSigner(content.NewPreviewSigner(cfg.PreviewSecret)), content.WithLogger(logger.Named("content"))),
		Community:   community.NewService(store, community.WithPublisher(queue), community.WithLogger(logger.Named("community"))),
		SiteConfig:  siteconfig.NewService(store, siteconfig.WithLogger(logger.Named("siteconfig"))),
		Uploads:     files,
		Orphans:     orphanService,
		Site:        site,
		Sitemap:     seo.NewSitemap(site, store),
		Submissions: store,
		IndexNow:    indexNow,
	}
	return &Runtime{
		Store:    store,
		Services: services,
		Queue:    queue,
		Sweeper:  orphans.NewSweeper(orphanService, accountService, cfg.OrphanSweepInterval, logger.Named("sweeper")),
		logger:   logger,
	}, nil
}

// Close releases the store.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	return rt.Store.Close()
}
