// Package home serves the landing page and the site-wide not-found page.
package home

import (
	"context"
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

// EntrySource lists published content.
type EntrySource interface {
	ListPublished(ctx context.Context, page listing.Page) (storage.EntryPage, error)
}

// ProductSource lists published products.
type ProductSource interface {
	ListPublished(ctx context.Context, categorySlug string, orderBy string, page listing.Page) (storage.ProductPage, error)
}

// BoardSource lists community boards.
type BoardSource interface {
	ListBoards(ctx context.Context, includeHidden bool) ([]storage.Board, error)
}

// Module serves "/" and owns unmatched paths.
type Module struct {
	entries  EntrySource
	products ProductSource
	boards   BoardSource
}

// New returns a home module.
func New(entries EntrySource, products ProductSource, boards BoardSource) Module {
	return Module{entries: entries, products: products, boards: boards}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "home" }

// Mount wires home route handlers.
func (m Module) Mount(deps module.Dependencies) (module.Mount, error) {
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(m, deps))
	return module.Mount{Prefix: routepath.Root, Handler: mux}, nil
}
