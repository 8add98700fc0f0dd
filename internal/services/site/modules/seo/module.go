// Package seo serves the crawler documents: sitemap, robots and the
// IndexNow verification key.
package seo

import (
	"bytes"
	"context"
	"io"
	"net/http"

	domainseo "github.com/louisbranch/folio/internal/services/site/domain/seo"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/platform/modulehandler"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"go.uber.org/zap"
)

// SitemapSource lists the public URLs.
type SitemapSource interface {
	URLs(ctx context.Context) ([]domainseo.URL, error)
}

// KeyFile serves the IndexNow verification key.
type KeyFile interface {
	KeyPath() string
	KeyHandler() http.Handler
}

// Module provides the root-level crawler paths.
type Module struct {
	sitemap SitemapSource
	site    domainseo.Site
	key     KeyFile
}

// New returns a seo module. key may be nil when IndexNow is disabled.
func New(sitemap SitemapSource, site domainseo.Site, key KeyFile) Module {
	return Module{sitemap: sitemap, site: site, key: key}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "seo" }

// Mount wires the crawler documents.
func (m Module) Mount(deps module.Dependencies) (module.Mount, error) {
	h := handlers{Base: modulehandler.NewBase(deps), sitemap: m.sitemap, site: m.site}
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+routepath.Sitemap, h.handleSitemap)
	mux.HandleFunc(http.MethodGet+" "+routepath.Robots, h.handleRobots)
	paths := []string{routepath.Sitemap, routepath.Robots}
	if m.key != nil {
		mux.Handle(http.MethodGet+" "+m.key.KeyPath(), m.key.KeyHandler())
		paths = append(paths, m.key.KeyPath())
	}
	return module.Mount{Paths: paths, Handler: mux}, nil
}

type handlers struct {
	modulehandler.Base
	sitemap SitemapSource
	site    domainseo.Site
}

func (h handlers) handleSitemap(w http.ResponseWriter, r *http.Request) {
	urls, err := h.sitemap.URLs(r.Context())
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := domainseo.WriteSitemap(&buf, urls); err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.Logger().Debug("sitemap served", zap.Int("urls", len(urls)))
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = buf.WriteTo(w)
}

func (h handlers) handleRobots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = io.WriteString(w, domainseo.Robots(h.site))
}
