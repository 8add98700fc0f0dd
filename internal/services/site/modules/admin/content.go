package admin

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/folio/internal/services/site/domain/content"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/platform/forms"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/templates"
)

// ContentService is the content editing surface.
type ContentService interface {
	EntryLister
	Get(ctx context.Context, entryID string) (storage.Entry, error)
	Save(ctx context.Context, in content.EntryInput) (storage.Entry, error)
	Publish(ctx context.Context, entryID string) (storage.Entry, error)
	Unpublish(ctx context.Context, entryID string) (storage.Entry, error)
	Delete(ctx context.Context, entryID string) error
	PreviewURL(ctx context.Context, entryID string) (string, error)
}

// Content serves /admin/content/.
type Content struct {
	service ContentService
}

// NewContent returns the content admin module.
func NewContent(service ContentService) Content {
	return Content{service: service}
}

// ID returns a stable module identifier.
func (Content) ID() string { return "admin-content" }

// Mount wires entry handlers.
func (m Content) Mount(deps module.Dependencies) (module.Mount, error) {
	h := contentHandlers{base: newBase(deps), service: m.service}
	prefix := routepath.AdminContentPrefix
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+prefix+"{$}", h.handleList)
	mux.HandleFunc(http.MethodGet+" "+prefix+"new", h.handleNew)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{$}", h.handleSave)
	mux.HandleFunc(http.MethodGet+" "+prefix+"{id}", h.handleEdit)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{id}", h.handleSave)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{id}/publish", h.status(m.service.Publish, "notice."+storage.StatusPublished))
	mux.HandleFunc(http.MethodPost+" "+prefix+"{id}/unpublish", h.status(m.service.Unpublish, "notice."+storage.StatusDraft))
	mux.HandleFunc(http.MethodPost+" "+prefix+"{id}/preview", h.handlePreview)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{id}/delete", h.handleDelete)
	mux.HandleFunc(prefix, h.WriteNotFound)
	return module.Mount{Prefix: prefix, Handler: mux}, nil
}

type contentHandlers struct {
	base
	service ContentService
}

func (h contentHandlers) handleList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != storage.StatusDraft && status != storage.StatusPublished {
		status = ""
	}
	page := listing.NewPage(httpx.PageParam(r), pageSize, pageSize)
	entries, err := h.service.ListAll(r.Context(), status, page)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.page(w, r, "admin.content.title", http.StatusOK, func(loc templates.Localizer) templ.Component {
		return templates.Entries(loc, templates.EntriesView{
			Entries: entries.Entries,
			Status:  status,
			Pager:   page.Paginate(entries.Total),
		})
	})
}

func (h contentHandlers) render(w http.ResponseWriter, r *http.Request, status int, view templates.EntryFormView) {
	h.page(w, r, "admin.content.entry", status, func(loc templates.Localizer) templ.Component {
		return templates.EntryForm(loc, view)
	})
}

func (h contentHandlers) handleNew(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, templates.EntryFormView{
		Action: routepath.AdminContentPrefix,
		Input:  content.EntryInput{Format: storage.FormatMarkdown},
	})
}

func (h contentHandlers) handleEdit(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	view := templates.EntryFormView{
		Action: routepath.AdminItem(routepath.AdminContentPrefix, e.ID, ""),
		Input: content.EntryInput{
			ID:        e.ID,
			Slug:      e.Slug,
			Title:     e.Title,
			Format:    e.Format,
			Body:      e.Body,
			Excerpt:   e.Excerpt,
			CoverPath: e.CoverPath,
			AuthorID:  e.AuthorID,
		},
	}
	if e.Status == storage.StatusPublished {
		view.PublicURL = routepath.Page(e.Slug)
	}
	h.render(w, r, http.StatusOK, view)
}

func (h contentHandlers) handleSave(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	in := content.EntryInput{
		ID:        r.PathValue("id"),
		Slug:      forms.Value(r, "slug"),
		Title:     forms.Value(r, "title"),
		Format:    forms.Value(r, "format"),
		Body:      r.FormValue("body"),
		Excerpt:   forms.Value(r, "excerpt"),
		CoverPath: forms.Value(r, "cover_path"),
		AuthorID:  h.RequestUserID(r),
	}
	if in.Format == storage.FormatRichText {
		body, err := forms.EditorDocument(in.Body)
		if err != nil {
			h.WriteError(w, r, err)
			return
		}
		in.Body = body
	}
	entry, err := h.service.Save(r.Context(), in)
	if h.formFailed(w, r, err, func(status int, message string) {
		action := routepath.AdminContentPrefix
		if in.ID != "" {
			action = routepath.AdminItem(routepath.AdminContentPrefix, in.ID, "")
		}
		h.render(w, r, status, templates.EntryFormView{Action: action, Input: in, Error: message})
	}) {
		return
	}
	h.done(w, r, nil, routepath.AdminItem(routepath.AdminContentPrefix, entry.ID, ""), "notice.saved")
}

func (h contentHandlers) status(apply func(ctx context.Context, entryID string) (storage.Entry, error), noticeKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := apply(r.Context(), r.PathValue("id"))
		h.done(w, r, err, returnTo(r, routepath.AdminContentPrefix), noticeKey)
	}
}

func (h contentHandlers) handlePreview(w http.ResponseWriter, r *http.Request) {
	target, err := h.service.PreviewURL(r.Context(), r.PathValue("id"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	httpx.WriteRedirect(w, r, target)
}

func (h contentHandlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), r.PathValue("id"))
	h.done(w, r, err, routepath.AdminContentPrefix, "notice.deleted")
}
