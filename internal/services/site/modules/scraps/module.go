// Package scraps serves the member's saved posts.
package scraps

import (
	"context"
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/domain/community"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/platform/modulehandler"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/templates"
)

const pageSize = 20

// Service lists saved posts.
type Service interface {
	ListScraps(ctx context.Context, actor community.Actor, page listing.Page) (community.ScrapPage, error)
}

// Module provides the /app/scraps/ route.
type Module struct {
	service Service
}

// New returns a scraps module.
func New(service Service) Module {
	return Module{service: service}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "scraps" }

// Mount wires the scrap list handler.
func (m Module) Mount(deps module.Dependencies) (module.Mount, error) {
	h := handlers{Base: modulehandler.NewBase(deps), service: m.service}
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+routepath.AppScrapsPrefix+"{$}", h.handleIndex)
	mux.HandleFunc(routepath.AppScrapsPrefix, h.WriteNotFound)
	return module.Mount{Prefix: routepath.AppScrapsPrefix, Handler: mux}, nil
}

type handlers struct {
	modulehandler.Base
	service Service
}

func (h handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := listing.NewPage(httpx.PageParam(r), pageSize, pageSize)
	scraps, err := h.service.ListScraps(r.Context(), h.RequestActor(r), page)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	loc, _ := h.PageLocalizer(w, r)
	h.WritePage(w, r, templates.T(loc, "member.scraps.title"), http.StatusOK, templates.Scraps(loc, templates.ScrapsView{
		Scraps: scraps.Scraps,
		Pager:  page.Paginate(scraps.Total),
	}))
}
