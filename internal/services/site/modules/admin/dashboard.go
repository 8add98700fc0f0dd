package admin

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/domain/orphans"
	"github.com/louisbranch/folio/internal/services/site/domain/uploads"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/templates"
	"golang.org/x/sync/errgroup"
)

// UserLister pages users by status.
type UserLister interface {
	ListUsers(ctx context.Context, status string, page int, perPage int) (storage.UserPage, error)
}

// ProductLister pages every product.
type ProductLister interface {
	ListAll(ctx context.Context, status string, page listing.Page) (storage.ProductPage, error)
}

// EntryLister pages every content entry.
type EntryLister interface {
	ListAll(ctx context.Context, status string, page listing.Page) (storage.EntryPage, error)
}

// PostLister pages every live post.
type PostLister interface {
	ListAllPosts(ctx context.Context, page listing.Page) (storage.PostPage, error)
}

// UploadLister pages stored uploads.
type UploadLister interface {
	List(ctx context.Context, page listing.Page) (uploads.ListPage, error)
}

// ScanReader returns the last saved orphan scan.
type ScanReader interface {
	LastScan(ctx context.Context) (orphans.Report, bool, error)
}

// DashboardSources feeds the dashboard counters.
type DashboardSources struct {
	Users           UserLister
	Products        ProductLister
	Entries         EntryLister
	Posts           PostLister
	Uploads         UploadLister
	Scans           ScanReader
	IndexNowEnabled bool
}

// Dashboard serves /admin/.
type Dashboard struct {
	sources DashboardSources
}

// NewDashboard returns the dashboard module.
func NewDashboard(sources DashboardSources) Dashboard {
	return Dashboard{sources: sources}
}

// ID returns a stable module identifier.
func (Dashboard) ID() string { return "admin" }

// Mount wires the dashboard.
func (m Dashboard) Mount(deps module.Dependencies) (module.Mount, error) {
	b := newBase(deps)
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+routepath.AdminPrefix+"{$}", func(w http.ResponseWriter, r *http.Request) {
		m.handleDashboard(b, w, r)
	})
	mux.HandleFunc(routepath.AdminPrefix, b.WriteNotFound)
	return module.Mount{Prefix: routepath.AdminPrefix, Handler: mux}, nil
}

func (m Dashboard) handleDashboard(b base, w http.ResponseWriter, r *http.Request) {
	one := listing.NewPage(1, 1, 1)
	src := m.sources
	var view templates.DashboardView
	view.IndexNowEnabled = src.IndexNowEnabled
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		page, err := src.Users.ListUsers(ctx, storage.UserStatusPending, 1, 1)
		view.PendingUsers = page.Total
		return err
	})
	g.Go(func() error {
		page, err := src.Users.ListUsers(ctx, "", 1, 1)
		view.Users = page.Total
		return err
	})
	g.Go(func() error {
		page, err := src.Products.ListAll(ctx, "", one)
		view.Products = page.Total
		return err
	})
	g.Go(func() error {
		page, err := src.Entries.ListAll(ctx, "", one)
		view.Entries = page.Total
		return err
	})
	g.Go(func() error {
		page, err := src.Posts.ListAllPosts(ctx, one)
		view.Posts = page.Total
		return err
	})
	g.Go(func() error {
		page, err := src.Uploads.List(ctx, one)
		view.Uploads = page.Total
		return err
	})
	g.Go(func() error {
		report, ok, err := src.Scans.LastScan(ctx)
		if ok {
			view.LastScan = &report
		}
		return err
	})
	if err := g.Wait(); err != nil {
		b.WriteError(w, r, err)
		return
	}
	b.page(w, r, "admin.dashboard.title", http.StatusOK, func(loc templates.Localizer) templ.Component {
		return templates.Dashboard(loc, view)
	})
}
