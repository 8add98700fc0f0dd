package admin

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/folio/internal/services/site/domain/catalog"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/platform/forms"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/templates"
)

// CatalogService is the catalog editing surface.
type CatalogService interface {
	ProductLister
	ListCategories(ctx context.Context) ([]storage.Category, error)
	GetCategory(ctx context.Context, categoryID string) (storage.Category, error)
	SaveCategory(ctx context.Context, in catalog.CategoryInput) (storage.Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error
	GetProduct(ctx context.Context, productID string) (storage.Product, error)
	SaveProduct(ctx context.Context, in catalog.ProductInput) (storage.Product, error)
	SetStatus(ctx context.Context, productID string, status string) error
	DeleteProduct(ctx context.Context, productID string) error
}

// Catalog serves /admin/catalog/.
type Catalog struct {
	service CatalogService
}

// NewCatalog returns the catalog admin module.
func NewCatalog(service CatalogService) Catalog {
	return Catalog{service: service}
}

// ID returns a stable module identifier.
func (Catalog) ID() string { return "admin-catalog" }

// Mount wires category and product handlers.
func (m Catalog) Mount(deps module.Dependencies) (module.Mount, error) {
	h := catalogHandlers{base: newBase(deps), service: m.service}
	categories := routepath.AdminCategoriesPrefix
	products := routepath.AdminProductsPrefix
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+routepath.AdminCatalogPrefix+"{$}", h.handleList)
	mux.HandleFunc(http.MethodGet+" "+categories+"new", h.handleCategoryNew)
	mux.HandleFunc(http.MethodPost+" "+categories+"{$}", h.handleCategorySave)
	mux.HandleFunc(http.MethodGet+" "+categories+"{id}", h.handleCategoryEdit)
	mux.HandleFunc(http.MethodPost+" "+categories+"{id}", h.handleCategorySave)
	mux.HandleFunc(http.MethodPost+" "+categories+"{id}/delete", h.handleCategoryDelete)
	mux.HandleFunc(http.MethodGet+" "+products+"new", h.handleProductNew)
	mux.HandleFunc(http.MethodPost+" "+products+"{$}", h.handleProductSave)
	mux.HandleFunc(http.MethodGet+" "+products+"{id}", h.handleProductEdit)
	mux.HandleFunc(http.MethodPost+" "+products+"{id}", h.handleProductSave)
	mux.HandleFunc(http.MethodPost+" "+products+"{id}/publish", h.productStatus(storage.StatusPublished))
	mux.HandleFunc(http.MethodPost+" "+products+"{id}/unpublish", h.productStatus(storage.StatusDraft))
	mux.HandleFunc(http.MethodPost+" "+products+"{id}/delete", h.handleProductDelete)
	mux.HandleFunc(routepath.AdminCatalogPrefix, h.WriteNotFound)
	return module.Mount{Prefix: routepath.AdminCatalogPrefix, Handler: mux}, nil
}

type catalogHandlers struct {
	base
	service CatalogService
}

func (h catalogHandlers) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	categories, err := h.service.ListCategories(ctx)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	page := listing.NewPage(httpx.PageParam(r), pageSize, pageSize)
	products, err := h.service.ListAll(ctx, "", page)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.page(w, r, "admin.catalog.title", http.StatusOK, func(loc templates.Localizer) templ.Component {
		return templates.Catalog(loc, templates.CatalogView{
			Categories: categories,
			Products:   products.Products,
			Pager:      page.Paginate(products.Total),
		})
	})
}

func (h catalogHandlers) renderCategory(w http.ResponseWriter, r *http.Request, status int, view templates.CategoryFormView) {
	h.page(w, r, "admin.catalog.category", status, func(loc templates.Localizer) templ.Component {
		return templates.CategoryForm(loc, view)
	})
}

func (h catalogHandlers) handleCategoryNew(w http.ResponseWriter, r *http.Request) {
	h.renderCategory(w, r, http.StatusOK, templates.CategoryFormView{Action: routepath.AdminCategoriesPrefix})
}

func (h catalogHandlers) handleCategoryEdit(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.renderCategory(w, r, http.StatusOK, templates.CategoryFormView{
		Action: routepath.AdminItem(routepath.AdminCategoriesPrefix, c.ID, ""),
		Input: catalog.CategoryInput{
			ID:          c.ID,
			Slug:        c.Slug,
			Name:        c.Name,
			Description: c.Description,
			SortOrder:   c.SortOrder,
		},
	})
}

func (h catalogHandlers) handleCategorySave(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	in := catalog.CategoryInput{
		ID:          r.PathValue("id"),
		Slug:        forms.Value(r, "slug"),
		Name:        forms.Value(r, "name"),
		Description: forms.Value(r, "description"),
		SortOrder:   forms.Int(r, "sort_order"),
	}
	_, err := h.service.SaveCategory(r.Context(), in)
	if h.formFailed(w, r, err, func(status int, message string) {
		action := routepath.AdminCategoriesPrefix
		if in.ID != "" {
			action = routepath.AdminItem(routepath.AdminCategoriesPrefix, in.ID, "")
		}
		h.renderCategory(w, r, status, templates.CategoryFormView{Action: action, Input: in, Error: message})
	}) {
		return
	}
	h.done(w, r, nil, routepath.AdminCatalogPrefix, "notice.saved")
}

func (h catalogHandlers) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteCategory(r.Context(), r.PathValue("id"))
	h.done(w, r, err, routepath.AdminCatalogPrefix, "notice.deleted")
}

func (h catalogHandlers) renderProduct(w http.ResponseWriter, r *http.Request, status int, view templates.ProductFormView) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	view.Categories = categories
	h.page(w, r, "admin.catalog.product", status, func(loc templates.Localizer) templ.Component {
		return templates.ProductForm(loc, view)
	})
}

func (h catalogHandlers) handleProductNew(w http.ResponseWriter, r *http.Request) {
	h.renderProduct(w, r, http.StatusOK, templates.ProductFormView{
		Action: routepath.AdminProductsPrefix,
		Input:  catalog.ProductInput{Currency: catalog.DefaultCurrency, Status: storage.StatusDraft},
	})
}

func (h catalogHandlers) handleProductEdit(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.renderProduct(w, r, http.StatusOK, templates.ProductFormView{
		Action:    routepath.AdminItem(routepath.AdminProductsPrefix, p.ID, ""),
		PublicURL: routepath.Product(p.Slug),
		Input: catalog.ProductInput{
			ID:            p.ID,
			Slug:          p.Slug,
			CategoryID:    p.CategoryID,
			Name:          p.Name,
			Summary:       p.Summary,
			Description:   p.Description,
			PriceCents:    p.PriceCents,
			Currency:      p.Currency,
			ThumbnailPath: p.ThumbnailPath,
			Images:        p.Images,
			Status:        p.Status,
			SortOrder:     p.SortOrder,
		},
	})
}

func (h catalogHandlers) handleProductSave(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	description, err := forms.EditorDocument(r.FormValue("description"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	in := catalog.ProductInput{
		ID:            r.PathValue("id"),
		Slug:          forms.Value(r, "slug"),
		CategoryID:    forms.Value(r, "category_id"),
		Name:          forms.Value(r, "name"),
		Summary:       forms.Value(r, "summary"),
		Description:   description,
		PriceCents:    forms.Int64(r, "price_cents"),
		Currency:      forms.Value(r, "currency"),
		ThumbnailPath: forms.Value(r, "thumbnail_path"),
		Images:        forms.Lines(r, "images"),
		Status:        forms.Value(r, "status"),
		SortOrder:     forms.Int(r, "sort_order"),
	}
	product, err := h.service.SaveProduct(r.Context(), in)
	if h.formFailed(w, r, err, func(status int, message string) {
		action := routepath.AdminProductsPrefix
		if in.ID != "" {
			action = routepath.AdminItem(routepath.AdminProductsPrefix, in.ID, "")
		}
		h.renderProduct(w, r, status, templates.ProductFormView{Action: action, Input: in, Error: message})
	}) {
		return
	}
	h.done(w, r, nil, routepath.AdminItem(routepath.AdminProductsPrefix, product.ID, ""), "notice.saved")
}

func (h catalogHandlers) productStatus(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h.service.SetStatus(r.Context(), r.PathValue("id"), status)
		h.done(w, r, err, returnTo(r, routepath.AdminCatalogPrefix), "notice."+status)
	}
}

func (h catalogHandlers) handleProductDelete(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteProduct(r.Context(), r.PathValue("id"))
	h.done(w, r, err, routepath.AdminCatalogPrefix, "notice.deleted")
}
