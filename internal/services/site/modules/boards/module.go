// Package boards serves the public community boards and posts.
package boards

import (
	"context"
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/domain/community"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

// Service is the community surface the public pages need.
type Service interface {
	ListBoards(ctx context.Context, includeHidden bool) ([]storage.Board, error)
	ListPosts(ctx context.Context, boardSlug string, orderBy string, page listing.Page, viewer community.Actor) (storage.Board, storage.PostPage, error)
	GetPost(ctx context.Context, boardSlug string, postID string, viewer community.Actor) (community.PostView, error)
}

// Module provides the /boards/ routes.
type Module struct {
	service Service
}

// New returns a boards module.
func New(service Service) Module {
	return Module{service: service}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "boards" }

// Mount wires community route handlers.
func (m Module) Mount(deps module.Dependencies) (module.Mount, error) {
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(m.service, deps))
	return module.Mount{Prefix: routepath.BoardsPrefix, Handler: mux}, nil
}
