package boards

import (
	"net/http"
	"strings"

	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/module"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/platform/modulehandler"
	"github.com/louisbranch/folio/internal/services/site/richtext"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/templates"
)

const pageSize = 20

type handlers struct {
	modulehandler.Base
	service Service
}

func newHandlers(service Service, deps module.Dependencies) handlers {
	return handlers{Base: modulehandler.NewBase(deps), service: service}
}

func (h handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	boards, err := h.service.ListBoards(r.Context(), false)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	loc, _ := h.PageLocalizer(w, r)
	h.WritePage(w, r, templates.T(loc, "site.boards.title"), http.StatusOK, templates.BoardList(loc, boards))
}

func (h handlers) handleBoard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := h.RequestActor(r)
	order := strings.TrimSpace(r.URL.Query().Get("order"))
	page := listing.NewPage(httpx.PageParam(r), pageSize, pageSize)
	board, posts, err := h.service.ListPosts(ctx, r.PathValue("board"), order, page, actor)
	if apperrors.IsKind(err, apperrors.KindInvalidInput) {
		order = ""
		board, posts, err = h.service.ListPosts(ctx, r.PathValue("board"), order, page, actor)
	}
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	canWrite := actor.UserID != "" && (board.WriteRole != storage.RoleAdmin || actor.IsAdmin())
	loc, _ := h.PageLocalizer(w, r)
	h.WritePageWithDescription(w, r, board.Name, board.Description, http.StatusOK, templates.BoardPosts(loc, templates.BoardView{
		Board:    board,
		Posts:    posts.Posts,
		Order:    order,
		Pager:    page.Paginate(posts.Total),
		CanWrite: canWrite,
	}))
}

func (h handlers) handlePost(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetPost(r.Context(), r.PathValue("board"), r.PathValue("post"), h.RequestActor(r))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	description := ""
	if doc, err := richtext.Parse(view.Post.Body); err == nil {
		description = richtext.PlainText(doc, 160)
	}
	loc, _ := h.PageLocalizer(w, r)
	h.WritePageWithDescription(w, r, view.Post.Title, description, http.StatusOK, templates.PostDetail(loc, h.ResolveRequestViewer(r), view))
}
