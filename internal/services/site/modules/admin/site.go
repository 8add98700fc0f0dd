package admin

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/folio/internal/services/site/domain/siteconfig"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/platform/forms"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/templates"
)

// SiteService is the theme and menu editing surface.
type SiteService interface {
	LoadTheme(ctx context.Context) (siteconfig.Theme, error)
	SaveTheme(ctx context.Context, theme siteconfig.Theme) (siteconfig.Theme, error)
	ListMenu(ctx context.Context, location string, visibleOnly bool) ([]siteconfig.MenuNode, error)
	GetMenuItem(ctx context.Context, itemID string) (storage.MenuItem, error)
	SaveMenuItem(ctx context.Context, in siteconfig.MenuItemInput) (storage.MenuItem, error)
	DeleteMenuItem(ctx context.Context, itemID string) error
	ReorderMenu(ctx context.Context, itemIDs []string) error
}

// Site serves /admin/site/.
type Site struct {
	service SiteService
}

// NewSite returns the site settings module.
func NewSite(service SiteService) Site {
	return Site{service: service}
}

// ID returns a stable module identifier.
func (Site) ID() string { return "admin-site" }

// Mount wires theme and menu handlers.
func (m Site) Mount(deps module.Dependencies) (module.Mount, error) {
	h := siteHandlers{base: newBase(deps), service: m.service}
	menus := routepath.AdminMenusPrefix
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+routepath.AdminSitePrefix+"{$}", h.handleSite)
	mux.HandleFunc(http.MethodPost+" "+routepath.AdminTheme, h.handleTheme)
	mux.HandleFunc(http.MethodGet+" "+menus+"new", h.handleMenuNew)
	mux.HandleFunc(http.MethodPost+" "+menus+"{$}", h.handleMenuSave)
	mux.HandleFunc(http.MethodPost+" "+menus+"reorder", h.handleReorder)
	mux.HandleFunc(http.MethodGet+" "+menus+"{id}", h.handleMenuEdit)
	mux.HandleFunc(http.MethodPost+" "+menus+"{id}", h.handleMenuSave)
	mux.HandleFunc(http.MethodPost+" "+menus+"{id}/delete", h.handleMenuDelete)
	mux.HandleFunc(routepath.AdminSitePrefix, h.WriteNotFound)
	return module.Mount{Prefix: routepath.AdminSitePrefix, Handler: mux}, nil
}

type siteHandlers struct {
	base
	service SiteService
}

func (h siteHandlers) renderSite(w http.ResponseWriter, r *http.Request, status int, theme *siteconfig.Theme, themeErr string) {
	ctx := r.Context()
	view := templates.SiteView{ThemeError: themeErr}
	if theme != nil {
		view.Theme = *theme
	} else {
		loaded, err := h.service.LoadTheme(ctx)
		if err != nil {
			h.WriteError(w, r, err)
			return
		}
		view.Theme = loaded
	}
	var err error
	if view.Header, err = h.service.ListMenu(ctx, storage.MenuHeader, false); err != nil {
		h.WriteError(w, r, err)
		return
	}
	if view.Footer, err = h.service.ListMenu(ctx, storage.MenuFooter, false); err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.page(w, r, "admin.site.title", status, func(loc templates.Localizer) templ.Component {
		return templates.Site(loc, view)
	})
}

func (h siteHandlers) handleSite(w http.ResponseWriter, r *http.Request) {
	h.renderSite(w, r, http.StatusOK, nil, "")
}

func (h siteHandlers) handleTheme(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	theme := siteconfig.Theme{
		SiteName:      forms.Value(r, "site_name"),
		Tagline:       forms.Value(r, "tagline"),
		PrimaryColor:  forms.Value(r, "primary_color"),
		AccentColor:   forms.Value(r, "accent_color"),
		LogoPath:      forms.Value(r, "logo_path"),
		FooterText:    forms.Value(r, "footer_text"),
		DefaultLocale: forms.Value(r, "default_locale"),
	}
	_, err := h.service.SaveTheme(r.Context(), theme)
	if h.formFailed(w, r, err, func(status int, message string) {
		h.renderSite(w, r, status, &theme, message)
	}) {
		return
	}
	h.done(w, r, nil, routepath.AdminSitePrefix, "notice.saved")
}

// parents lists the top-level items of location that can hold children.
func (h siteHandlers) parents(ctx context.Context, location string) ([]storage.MenuItem, error) {
	nodes, err := h.service.ListMenu(ctx, location, false)
	if err != nil {
		return nil, err
	}
	out := make([]storage.MenuItem, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Item)
	}
	return out, nil
}

func (h siteHandlers) renderMenuItem(w http.ResponseWriter, r *http.Request, status int, view templates.MenuItemFormView) {
	parents, err := h.parents(r.Context(), view.Input.Location)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	view.Parents = parents
	h.page(w, r, "admin.site.menu_item", status, func(loc templates.Localizer) templ.Component {
		return templates.MenuItemForm(loc, view)
	})
}

func (h siteHandlers) handleMenuNew(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location != storage.MenuFooter {
		location = storage.MenuHeader
	}
	h.renderMenuItem(w, r, http.StatusOK, templates.MenuItemFormView{
		Action: routepath.AdminMenusPrefix,
		Input:  siteconfig.MenuItemInput{Location: location, Visible: true},
	})
}

func (h siteHandlers) handleMenuEdit(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetMenuItem(r.Context(), r.PathValue("id"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.renderMenuItem(w, r, http.StatusOK, templates.MenuItemFormView{
		Action: routepath.AdminItem(routepath.AdminMenusPrefix, item.ID, ""),
		Input: siteconfig.MenuItemInput{
			ID:        item.ID,
			Location:  item.Location,
			Label:     item.Label,
			URL:       item.URL,
			ParentID:  item.ParentID,
			SortOrder: item.SortOrder,
			Visible:   item.Visible,
		},
	})
}

func (h siteHandlers) handleMenuSave(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	in := siteconfig.MenuItemInput{
		ID:        r.PathValue("id"),
		Location:  forms.Value(r, "location"),
		Label:     forms.Value(r, "label"),
		URL:       forms.Value(r, "url"),
		ParentID:  forms.Value(r, "parent_id"),
		SortOrder: forms.Int(r, "sort_order"),
		Visible:   forms.Bool(r, "visible"),
	}
	_, err := h.service.SaveMenuItem(r.Context(), in)
	if h.formFailed(w, r, err, func(status int, message string) {
		action := routepath.AdminMenusPrefix
		if in.ID != "" {
			action = routepath.AdminItem(routepath.AdminMenusPrefix, in.ID, "")
		}
		h.renderMenuItem(w, r, status, templates.MenuItemFormView{Action: action, Input: in, Error: message})
	}) {
		return
	}
	h.done(w, r, nil, routepath.AdminSitePrefix, "notice.saved")
}

func (h siteHandlers) handleMenuDelete(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteMenuItem(r.Context(), r.PathValue("id"))
	h.done(w, r, err, routepath.AdminSitePrefix, "notice.deleted")
}

func (h siteHandlers) handleReorder(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	err := h.service.ReorderMenu(r.Context(), r.Form["ids"])
	h.done(w, r, err, routepath.AdminSitePrefix, "notice.saved")
}
