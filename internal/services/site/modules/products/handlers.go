package products

import (
	"net/http"
	"strings"

	"github.com/louisbranch/folio/internal/services/site/domain/content"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/module"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/platform/modulehandler"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/templates"
)

const pageSize = 12

type handlers struct {
	modulehandler.Base
	service Service
}

func newHandlers(service Service, deps module.Dependencies) handlers {
	return handlers{Base: modulehandler.NewBase(deps), service: service}
}

func (h handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	category := strings.TrimSpace(query.Get("category"))
	order := strings.TrimSpace(query.Get("order"))
	page := listing.NewPage(httpx.PageParam(r), pageSize, pageSize)

	categories, err := h.service.ListCategories(ctx)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	products, err := h.service.ListPublished(ctx, category, order, page)
	if apperrors.IsKind(err, apperrors.KindInvalidInput) {
		order = ""
		products, err = h.service.ListPublished(ctx, category, order, page)
	}
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	loc, _ := h.PageLocalizer(w, r)
	h.WritePage(w, r, templates.T(loc, "site.products.title"), http.StatusOK, templates.ProductList(loc, templates.ProductListView{
		Categories: categories,
		Category:   category,
		Order:      order,
		Products:   products.Products,
		Pager:      page.Paginate(products.Total),
	}))
}

func (h handlers) handleProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetPublished(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	view := templates.ProductView{Product: product}
	if product.Description != "" {
		if view.DescriptionHTML, err = content.RenderBody(storage.FormatRichText, product.Description); err != nil {
			h.WriteError(w, r, err)
			return
		}
	}
	loc, _ := h.PageLocalizer(w, r)
	h.WritePageWithDescription(w, r, product.Name, product.Summary, http.StatusOK, templates.ProductDetail(loc, view))
}
