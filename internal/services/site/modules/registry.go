// Package modules lists the site feature modules by route group.
package modules

import (
	"github.com/louisbranch/folio/internal/services/site/domain/accounts"
	"github.com/louisbranch/folio/internal/services/site/domain/catalog"
	"github.com/louisbranch/folio/internal/services/site/domain/community"
	"github.com/louisbranch/folio/internal/services/site/domain/content"
	"github.com/louisbranch/folio/internal/services/site/domain/orphans"
	domainseo "github.com/louisbranch/folio/internal/services/site/domain/seo"
	"github.com/louisbranch/folio/internal/services/site/domain/siteconfig"
	domainuploads "github.com/louisbranch/folio/internal/services/site/domain/uploads"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/modules/account"
	"github.com/louisbranch/folio/internal/services/site/modules/admin"
	"github.com/louisbranch/folio/internal/services/site/modules/assets"
	"github.com/louisbranch/folio/internal/services/site/modules/auth"
	"github.com/louisbranch/folio/internal/services/site/modules/boards"
	"github.com/louisbranch/folio/internal/services/site/modules/home"
	"github.com/louisbranch/folio/internal/services/site/modules/pages"
	"github.com/louisbranch/folio/internal/services/site/modules/posts"
	"github.com/louisbranch/folio/internal/services/site/modules/products"
	"github.com/louisbranch/folio/internal/services/site/modules/scraps"
	"github.com/louisbranch/folio/internal/services/site/modules/seo"
	"github.com/louisbranch/folio/internal/services/site/modules/uploads"
)

// Services are the domain services the modules are built over.
type Services struct {
	Accounts    *accounts.Service
	Catalog     *catalog.Service
	Content     *content.Service
	Community   *community.Service
	SiteConfig  *siteconfig.Service
	Uploads     *domainuploads.Service
	Orphans     *orphans.Service
	Site        domainseo.Site
	Sitemap     *domainseo.Sitemap
	Submissions admin.SubmissionLog
	// IndexNow is nil when no key is configured.
	IndexNow *domainseo.IndexNow
}

// Public returns modules anyone may reach.
func Public(s Services) []module.Module {
	var key seo.KeyFile
	if s.IndexNow != nil {
		key = s.IndexNow
	}
	return []module.Module{
		home.New(s.Content, s.Catalog, s.Community),
		pages.New(s.Content),
		pages.NewPreview(s.Content),
		products.New(s.Catalog),
		boards.New(s.Community),
		auth.New(s.Accounts),
		seo.New(s.Sitemap, s.Site, key),
		assets.NewStatic(),
		assets.NewUploads(s.Uploads.Handler()),
	}
}

// Member returns modules under /app/ for signed-in users.
func Member(s Services) []module.Module {
	return []module.Module{
		posts.New(s.Community),
		scraps.New(s.Community),
		account.New(s.Accounts),
		uploads.New(s.Uploads),
	}
}

// Admin returns modules under /admin/.
func Admin(s Services) []module.Module {
	indexNow := admin.IndexNowSources{Log: s.Submissions, Sitemap: s.Sitemap}
	if s.IndexNow != nil {
		indexNow.Submitter = s.IndexNow
	}
	return []module.Module{
		admin.NewDashboard(admin.DashboardSources{
			Users:           s.Accounts,
			Products:        s.Catalog,
			Entries:         s.Content,
			Posts:           s.Community,
			Uploads:         s.Uploads,
			Scans:           s.Orphans,
			IndexNowEnabled: s.IndexNow != nil,
		}),
		admin.NewUsers(s.Accounts),
		admin.NewCatalog(s.Catalog),
		admin.NewContent(s.Content),
		admin.NewBoards(s.Community),
		admin.NewSite(s.SiteConfig),
		admin.NewUploads(s.Uploads),
		admin.NewOrphans(s.Orphans),
		admin.NewIndexNow(indexNow),
	}
}
