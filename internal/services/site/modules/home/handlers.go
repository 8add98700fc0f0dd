package home

import (
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/platform/modulehandler"
	"github.com/louisbranch/folio/internal/services/site/templates"
	"golang.org/x/sync/errgroup"
)

const (
	recentEntries  = 3
	recentProducts = 6
)

type handlers struct {
	modulehandler.Base
	m Module
}

func newHandlers(m Module, deps module.Dependencies) handlers {
	return handlers{Base: modulehandler.NewBase(deps), m: m}
}

func (h handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := templates.HomeView{Tagline: h.ResolveRequestChrome(r).Tagline}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := h.m.entries.ListPublished(gctx, listing.NewPage(1, recentEntries, recentEntries))
		view.Entries = page.Entries
		return err
	})
	g.Go(func() error {
		page, err := h.m.products.ListPublished(gctx, "", "", listing.NewPage(1, recentProducts, recentProducts))
		view.Products = page.Products
		return err
	})
	g.Go(func() error {
		boards, err := h.m.boards.ListBoards(gctx, false)
		view.Boards = boards
		return err
	})
	if err := g.Wait(); err != nil {
		h.WriteError(w, r, err)
		return
	}
	loc, _ := h.PageLocalizer(w, r)
	h.WritePage(w, r, templates.T(loc, "site.nav.home"), http.StatusOK, templates.Home(loc, view))
}
