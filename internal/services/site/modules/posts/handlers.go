package posts

import (
	"net/http"
	"strings"

	"github.com/louisbranch/folio/internal/services/site/domain/community"
	"github.com/louisbranch/folio/internal/services/site/module"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/platform/flash"
	"github.com/louisbranch/folio/internal/services/site/platform/forms"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/platform/modulehandler"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/templates"
	"go.uber.org/zap"
)

type handlers struct {
	modulehandler.Base
	service Service
}

func newHandlers(service Service, deps module.Dependencies) handlers {
	return handlers{Base: modulehandler.NewBase(deps), service: service}
}

// writableBoards lists the boards actor may post on.
func (h handlers) writableBoards(r *http.Request, actor community.Actor) ([]storage.Board, error) {
	boards, err := h.service.ListBoards(r.Context(), actor.IsAdmin())
	if err != nil {
		return nil, err
	}
	out := boards[:0]
	for _, b := range boards {
		if b.WriteRole == storage.RoleAdmin && !actor.IsAdmin() {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (h handlers) renderForm(w http.ResponseWriter, r *http.Request, status int, view templates.PostFormView) {
	loc, _ := h.PageLocalizer(w, r)
	title := templates.T(loc, "member.post.new_title")
	if view.Edit {
		title = templates.T(loc, "member.post.edit_title")
	}
	h.WritePage(w, r, title, status, templates.PostForm(loc, view))
}

func (h handlers) handleNew(w http.ResponseWriter, r *http.Request) {
	actor := h.RequestActor(r)
	boards, err := h.writableBoards(r, actor)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	selected := ""
	slugValue := strings.TrimSpace(r.URL.Query().Get("board"))
	for _, b := range boards {
		if b.Slug == slugValue {
			selected = b.ID
		}
	}
	h.renderForm(w, r, http.StatusOK, templates.PostFormView{
		Action: routepath.AppPostsPrefix,
		Boards: boards,
		Board:  selected,
	})
}

func (h handlers) postInput(w http.ResponseWriter, r *http.Request) (community.PostInput, error) {
	if err := forms.Parse(w, r); err != nil {
		return community.PostInput{}, apperrors.E(apperrors.KindInvalidInput, "parse post form")
	}
	body, err := forms.EditorDocument(r.FormValue("body"))
	if err != nil {
		return community.PostInput{}, err
	}
	return community.PostInput{
		BoardID: forms.Value(r, "board_id"),
		Title:   forms.Value(r, "title"),
		Body:    body,
	}, nil
}

func (h handlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor := h.RequestActor(r)
	in, err := h.postInput(w, r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	post, err := h.service.CreatePost(r.Context(), actor, in)
	if err != nil {
		if !modulehandler.IsFormError(err) {
			h.WriteError(w, r, err)
			return
		}
		boards, listErr := h.writableBoards(r, actor)
		if listErr != nil {
			h.WriteError(w, r, listErr)
			return
		}
		loc, _ := h.PageLocalizer(w, r)
		h.renderForm(w, r, modulehandler.FormStatus(err), templates.PostFormView{
			Action: routepath.AppPostsPrefix,
			Boards: boards,
			Board:  in.BoardID,
			Title:  in.Title,
			Body:   in.Body,
			Error:  h.ErrorMessage(loc, err),
		})
		return
	}
	h.Logger().Info("post created", zap.String("post_id", post.ID), zap.String("board", post.BoardSlug))
	h.Redirect(w, r, routepath.Post(post.BoardSlug, post.ID), flash.Success("notice.post.created"))
}

func (h handlers) handleEdit(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetPostForEdit(r.Context(), r.PathValue("post"), h.RequestActor(r))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.renderForm(w, r, http.StatusOK, templates.PostFormView{
		Action: routepath.AppPost(post.ID),
		Board:  post.BoardID,
		Title:  post.Title,
		Body:   post.Body,
		Edit:   true,
	})
}

func (h handlers) handleUpdate(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("post")
	in, err := h.postInput(w, r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	post, err := h.service.UpdatePost(r.Context(), h.RequestActor(r), postID, in)
	if err != nil {
		if !modulehandler.IsFormError(err) {
			h.WriteError(w, r, err)
			return
		}
		loc, _ := h.PageLocalizer(w, r)
		h.renderForm(w, r, modulehandler.FormStatus(err), templates.PostFormView{
			Action: routepath.AppPost(postID),
			Board:  in.BoardID,
			Title:  in.Title,
			Body:   in.Body,
			Edit:   true,
			Error:  h.ErrorMessage(loc, err),
		})
		return
	}
	h.Redirect(w, r, routepath.Post(post.BoardSlug, post.ID), flash.Success("notice.post.updated"))
}

func (h handlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.DeletePost(r.Context(), h.RequestActor(r), r.PathValue("post"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.Redirect(w, r, routepath.Board(post.BoardSlug), flash.Success("notice.post.deleted"))
}

func (h handlers) handleComment(w http.ResponseWriter, r *http.Request) {
	if err := forms.Parse(w, r); err != nil {
		h.WriteError(w, r, apperrors.E(apperrors.KindInvalidInput, "parse comment form"))
		return
	}
	ctx := r.Context()
	post, err := h.service.LivePost(ctx, r.PathValue("post"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	target := routepath.Post(post.BoardSlug, post.ID)
	comment, err := h.service.AddComment(ctx, h.RequestActor(r), post.ID, forms.Value(r, "parent_id"), r.FormValue("body"))
	if err != nil {
		if !modulehandler.IsFormError(err) {
			h.WriteError(w, r, err)
			return
		}
		h.Redirect(w, r, target+"#comments", flash.Failure(apperrors.LocalizationKey(err)))
		return
	}
	h.Redirect(w, r, target+"#comment-"+comment.ID, flash.Success("notice.comment.created"))
}

func (h handlers) handleCommentDelete(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.DeleteComment(r.Context(), h.RequestActor(r), r.PathValue("comment"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if post.ID != r.PathValue("post") {
		h.WriteNotFound(w, r)
		return
	}
	h.Redirect(w, r, routepath.Post(post.BoardSlug, post.ID)+"#comments", flash.Success("notice.comment.deleted"))
}

func (h handlers) handleLike(w http.ResponseWriter, r *http.Request) {
	toggle, err := h.service.ToggleLike(r.Context(), h.RequestActor(r), r.PathValue("post"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.IsHTMXRequest(r) {
		loc, _ := h.PageLocalizer(w, r)
		h.WriteFragment(w, r, templates.LikeButton(loc, toggle.Post.ID, toggle.Active, toggle.Count))
		return
	}
	httpx.WriteRedirect(w, r, routepath.Post(toggle.Post.BoardSlug, toggle.Post.ID))
}

func (h handlers) handleScrap(w http.ResponseWriter, r *http.Request) {
	toggle, err := h.service.ToggleScrap(r.Context(), h.RequestActor(r), r.PathValue("post"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.IsHTMXRequest(r) {
		loc, _ := h.PageLocalizer(w, r)
		h.WriteFragment(w, r, templates.ScrapButton(loc, toggle.Post.ID, toggle.Active))
		return
	}
	notice := flash.Success("notice.scrap.removed")
	if toggle.Active {
		notice = flash.Success("notice.scrap.added")
	}
	h.Redirect(w, r, routepath.Post(toggle.Post.BoardSlug, toggle.Post.ID), notice)
}
