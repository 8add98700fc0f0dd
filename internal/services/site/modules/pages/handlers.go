package pages

import (
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/platform/modulehandler"
	"github.com/louisbranch/folio/internal/services/site/templates"
)

const pageSize = 10

type handlers struct {
	modulehandler.Base
	service Service
}

func newHandlers(service Service, deps module.Dependencies) handlers {
	return handlers{Base: modulehandler.NewBase(deps), service: service}
}

func (h handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := listing.NewPage(httpx.PageParam(r), pageSize, pageSize)
	entries, err := h.service.ListPublished(r.Context(), page)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	loc, _ := h.PageLocalizer(w, r)
	h.WritePage(w, r, templates.T(loc, "site.pages.title"), http.StatusOK, templates.EntryList(loc, templates.EntryListView{
		Entries: entries.Entries,
		Pager:   page.Paginate(entries.Total),
	}))
}

func (h handlers) handleEntry(w http.ResponseWriter, r *http.Request) {
	rendered, err := h.service.GetPublished(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	loc, _ := h.PageLocalizer(w, r)
	h.WritePageWithDescription(w, r, rendered.Entry.Title, rendered.Entry.Excerpt, http.StatusOK, templates.EntryDetail(loc, templates.EntryView{
		Entry: rendered.Entry,
		HTML:  rendered.HTML,
	}))
}

func (h handlers) handlePreview(w http.ResponseWriter, r *http.Request) {
	rendered, err := h.service.ResolvePreview(r.Context(), r.PathValue("token"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Robots-Tag", "noindex, nofollow")
	loc, _ := h.PageLocalizer(w, r)
	h.WritePage(w, r, rendered.Entry.Title, http.StatusOK, templates.EntryDetail(loc, templates.EntryView{
		Entry:   rendered.Entry,
		HTML:    rendered.HTML,
		Preview: true,
	}))
}
