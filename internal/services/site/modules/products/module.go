// Package products serves the public catalog.
package products

import (
	"context"
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

// Service is the catalog surface the public pages need.
type Service interface {
	ListCategories(ctx context.Context) ([]storage.Category, error)
	ListPublished(ctx context.Context, categorySlug string, orderBy string, page listing.Page) (storage.ProductPage, error)
	GetPublished(ctx context.Context, productSlug string) (storage.Product, error)
}

// Module provides the /products/ routes.
type Module struct {
	service Service
}

// New returns a products module.
func New(service Service) Module {
	return Module{service: service}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "products" }

// Mount wires catalog route handlers.
func (m Module) Mount(deps module.Dependencies) (module.Mount, error) {
	mux := http.NewServeMux()
	h := newHandlers(m.service, deps)
	mux.HandleFunc(http.MethodGet+" "+routepath.ProductsPrefix+"{$}", h.handleIndex)
	mux.HandleFunc(http.MethodGet+" "+routepath.ProductsPrefix+"{slug}", h.handleProduct)
	mux.HandleFunc(routepath.ProductsPrefix, h.WriteNotFound)
	return module.Mount{Prefix: routepath.ProductsPrefix, Handler: mux}, nil
}
