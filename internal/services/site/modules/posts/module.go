// Package posts serves the member write, comment and reaction routes.
package posts

import (
	"context"
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/domain/community"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

// Service is the community surface member pages need.
type Service interface {
	ListBoards(ctx context.Context, includeHidden bool) ([]storage.Board, error)
	LivePost(ctx context.Context, postID string) (storage.Post, error)
	GetPostForEdit(ctx context.Context, postID string, actor community.Actor) (storage.Post, error)
	CreatePost(ctx context.Context, actor community.Actor, in community.PostInput) (storage.Post, error)
	UpdatePost(ctx context.Context, actor community.Actor, postID string, in community.PostInput) (storage.Post, error)
	DeletePost(ctx context.Context, actor community.Actor, postID string) (storage.Post, error)
	AddComment(ctx context.Context, actor community.Actor, postID string, parentID string, body string) (storage.Comment, error)
	DeleteComment(ctx context.Context, actor community.Actor, commentID string) (storage.Post, error)
	ToggleLike(ctx context.Context, actor community.Actor, postID string) (community.Toggle, error)
	ToggleScrap(ctx context.Context, actor community.Actor, postID string) (community.Toggle, error)
}

// Module provides the /app/posts/ routes.
type Module struct {
	service Service
}

// New returns a posts module.
func New(service Service) Module {
	return Module{service: service}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "posts" }

// Mount wires member post handlers.
func (m Module) Mount(deps module.Dependencies) (module.Mount, error) {
	mux := http.NewServeMux()
	h := newHandlers(m.service, deps)
	prefix := routepath.AppPostsPrefix
	mux.HandleFunc(http.MethodGet+" "+routepath.AppPostNew, h.handleNew)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{$}", h.handleCreate)
	mux.HandleFunc(http.MethodGet+" "+prefix+"{post}/edit", h.handleEdit)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{post}", h.handleUpdate)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{post}/delete", h.handleDelete)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{post}/comments", h.handleComment)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{post}/comments/{comment}/delete", h.handleCommentDelete)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{post}/like", h.handleLike)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{post}/scrap", h.handleScrap)
	mux.HandleFunc(prefix, h.WriteNotFound)
	return module.Mount{Prefix: prefix, Handler: mux}, nil
}
