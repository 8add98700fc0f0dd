// Package pages serves published content entries and signed draft previews.
package pages

import (
	"context"
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/domain/content"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

// Service is the content surface the public pages need.
type Service interface {
	ListPublished(ctx context.Context, page listing.Page) (storage.EntryPage, error)
	GetPublished(ctx context.Context, entrySlug string) (content.Rendered, error)
	ResolvePreview(ctx context.Context, token string) (content.Rendered, error)
}

// Module provides the /pages/ routes.
type Module struct {
	service Service
}

// New returns a pages module.
func New(service Service) Module {
	return Module{service: service}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "pages" }

// Mount wires content route handlers.
func (m Module) Mount(deps module.Dependencies) (module.Mount, error) {
	mux := http.NewServeMux()
	h := newHandlers(m.service, deps)
	mux.HandleFunc(http.MethodGet+" "+routepath.PagesPrefix+"{$}", h.handleIndex)
	mux.HandleFunc(http.MethodGet+" "+routepath.PagesPrefix+"{slug}", h.handleEntry)
	mux.HandleFunc(routepath.PagesPrefix, h.WriteNotFound)
	return module.Mount{Prefix: routepath.PagesPrefix, Handler: mux}, nil
}

// PreviewModule serves draft previews behind signed tokens.
type PreviewModule struct {
	service Service
}

// NewPreview returns a preview module.
func NewPreview(service Service) PreviewModule {
	return PreviewModule{service: service}
}

// ID returns a stable module identifier.
func (PreviewModule) ID() string { return "preview" }

// Mount wires the preview handler.
func (m PreviewModule) Mount(deps module.Dependencies) (module.Mount, error) {
	mux := http.NewServeMux()
	h := newHandlers(m.service, deps)
	mux.HandleFunc(http.MethodGet+" "+routepath.PreviewPrefix+"{token}", h.handlePreview)
	mux.HandleFunc(routepath.PreviewPrefix, h.WriteNotFound)
	return module.Mount{Prefix: routepath.PreviewPrefix, Handler: mux}, nil
}
