package admin

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/folio/internal/services/site/domain/community"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/platform/forms"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/templates"
)

// BoardService is the community moderation surface.
type BoardService interface {
	PostLister
	ListBoards(ctx context.Context, includeHidden bool) ([]storage.Board, error)
	GetBoard(ctx context.Context, boardID string) (storage.Board, error)
	SaveBoard(ctx context.Context, in community.BoardInput) (storage.Board, error)
	DeleteBoard(ctx context.Context, boardID string) error
	SetPinned(ctx context.Context, postID string, pinned bool) (storage.Post, error)
}

// Boards serves /admin/boards/.
type Boards struct {
	service BoardService
}

// NewBoards returns the board admin module.
func NewBoards(service BoardService) Boards {
	return Boards{service: service}
}

// ID returns a stable module identifier.
func (Boards) ID() string { return "admin-boards" }

// Mount wires board and moderation handlers.
func (m Boards) Mount(deps module.Dependencies) (module.Mount, error) {
	h := boardsHandlers{base: newBase(deps), service: m.service}
	prefix := routepath.AdminBoardsPrefix
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+prefix+"{$}", h.handleList)
	mux.HandleFunc(http.MethodGet+" "+prefix+"new", h.handleNew)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{$}", h.handleSave)
	mux.HandleFunc(http.MethodGet+" "+prefix+"{id}", h.handleEdit)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{id}", h.handleSave)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{id}/delete", h.handleDelete)
	mux.HandleFunc(http.MethodPost+" "+prefix+"posts/{post}/pin", h.pin(true))
	mux.HandleFunc(http.MethodPost+" "+prefix+"posts/{post}/unpin", h.pin(false))
	mux.HandleFunc(prefix, h.WriteNotFound)
	return module.Mount{Prefix: prefix, Handler: mux}, nil
}

type boardsHandlers struct {
	base
	service BoardService
}

func (h boardsHandlers) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	boards, err := h.service.ListBoards(ctx, true)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	page := listing.NewPage(httpx.PageParam(r), pageSize, pageSize)
	posts, err := h.service.ListAllPosts(ctx, page)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.page(w, r, "admin.boards.title", http.StatusOK, func(loc templates.Localizer) templ.Component {
		return templates.BoardsAdmin(loc, templates.BoardsAdminView{
			Boards: boards,
			Posts:  posts.Posts,
			Pager:  page.Paginate(posts.Total),
		})
	})
}

func (h boardsHandlers) render(w http.ResponseWriter, r *http.Request, status int, view templates.BoardFormView) {
	h.page(w, r, "admin.boards.board", status, func(loc templates.Localizer) templ.Component {
		return templates.BoardForm(loc, view)
	})
}

func (h boardsHandlers) handleNew(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, templates.BoardFormView{
		Action: routepath.AdminBoardsPrefix,
		Input:  community.BoardInput{WriteRole: storage.RoleMember},
	})
}

func (h boardsHandlers) handleEdit(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBoard(r.Context(), r.PathValue("id"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, templates.BoardFormView{
		Action: routepath.AdminItem(routepath.AdminBoardsPrefix, b.ID, ""),
		Input: community.BoardInput{
			ID:          b.ID,
			Slug:        b.Slug,
			Name:        b.Name,
			Description: b.Description,
			WriteRole:   b.WriteRole,
			SortOrder:   b.SortOrder,
			Hidden:      b.Hidden,
		},
	})
}

func (h boardsHandlers) handleSave(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	in := community.BoardInput{
		ID:          r.PathValue("id"),
		Slug:        forms.Value(r, "slug"),
		Name:        forms.Value(r, "name"),
		Description: forms.Value(r, "description"),
		WriteRole:   forms.Value(r, "write_role"),
		SortOrder:   forms.Int(r, "sort_order"),
		Hidden:      forms.Bool(r, "hidden"),
	}
	_, err := h.service.SaveBoard(r.Context(), in)
	if h.formFailed(w, r, err, func(status int, message string) {
		action := routepath.AdminBoardsPrefix
		if in.ID != "" {
			action = routepath.AdminItem(routepath.AdminBoardsPrefix, in.ID, "")
		}
		h.render(w, r, status, templates.BoardFormView{Action: action, Input: in, Error: message})
	}) {
		return
	}
	h.done(w, r, nil, routepath.AdminBoardsPrefix, "notice.saved")
}

func (h boardsHandlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteBoard(r.Context(), r.PathValue("id"))
	h.done(w, r, err, routepath.AdminBoardsPrefix, "notice.deleted")
}

func (h boardsHandlers) pin(pinned bool) http.HandlerFunc {
	notice := "notice.post.unpinned"
	if pinned {
		notice = "notice.post.pinned"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := h.service.SetPinned(r.Context(), r.PathValue("post"), pinned)
		h.done(w, r, err, returnTo(r, routepath.AdminBoardsPrefix), notice)
	}
}
