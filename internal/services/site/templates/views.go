package templates

import (
	"github.com/louisbranch/folio/internal/services/site/domain/catalog"
	"github.com/louisbranch/folio/internal/services/site/domain/community"
	"github.com/louisbranch/folio/internal/services/site/domain/content"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/domain/orphans"
	"github.com/louisbranch/folio/internal/services/site/domain/siteconfig"
	"github.com/louisbranch/folio/internal/services/site/domain/uploads"
	"github.com/louisbranch/folio/internal/services/site/module"
	sitei18n "github.com/louisbranch/folio/internal/services/site/platform/i18n"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

// Page is the shared layout context for a full page render.
type Page struct {
	Title       string
	Description string
	Lang        string
	CurrentPath string
	Loc         Localizer
	Viewer      module.Viewer
	Chrome      module.Chrome
	Notice      *Notice
	Languages   []sitei18n.LanguageOption
	Admin       bool
}

// HomeView is the landing page content.
type HomeView struct {
	Tagline  string
	Entries  []storage.Entry
	Products []storage.Product
	Boards   []storage.Board
}

// EntryListView is one page of published entries.
type EntryListView struct {
	Entries []storage.Entry
	Pager   listing.Pager
}

// EntryView is a rendered content page.
type EntryView struct {
	Entry   storage.Entry
	HTML    string
	Preview bool
}

// ProductListView is one page of the catalog.
type ProductListView struct {
	Categories []storage.Category
	Category   string
	Order      string
	Products   []storage.Product
	Pager      listing.Pager
}

// ProductView is a product detail page.
type ProductView struct {
	Product         storage.Product
	DescriptionHTML string
}

// BoardView is one page of a board.
type BoardView struct {
	Board    storage.Board
	Posts    []storage.Post
	Order    string
	Pager    listing.Pager
	CanWrite bool
}

// LoginView is the sign-in form state.
type LoginView struct {
	Identifier string
	Next       string
	Error      string
}

// SignupView is the registration form state.
type SignupView struct {
	Email       string
	Username    string
	DisplayName string
	Error       string
}

// PostFormView is the write/edit form state.
type PostFormView struct {
	Action string
	Boards []storage.Board
	Board  string
	Title  string
	Body   string
	Edit   bool
	Error  string
}

// ScrapsView is one page of saved posts.
type ScrapsView struct {
	Scraps []storage.ScrappedPost
	Pager  listing.Pager
}

// AccountView is the account page state.
type AccountView struct {
	Viewer module.Viewer
	Email  string
	Error  string
}

// DashboardView summarises site state for admins.
type DashboardView struct {
	PendingUsers    int
	Users           int
	Products        int
	Entries         int
	Posts           int
	Uploads         int
	LastScan        *orphans.Report
	IndexNowEnabled bool
}

// UsersView is one page of the user admin list.
type UsersView struct {
	Users    []storage.User
	Status   string
	Pager    listing.Pager
	ViewerID string
}

// CatalogView lists categories and one page of products.
type CatalogView struct {
	Categories []storage.Category
	Products   []storage.Product
	Pager      listing.Pager
}

// CategoryFormView is the category editor state.
type CategoryFormView struct {
	Action string
	Input  catalog.CategoryInput
	Error  string
}

// ProductFormView is the product editor state.
type ProductFormView struct {
	Action     string
	Input      catalog.ProductInput
	Categories []storage.Category
	PublicURL  string
	Error      string
}

// EntriesView is one page of the content admin list.
type EntriesView struct {
	Entries []storage.Entry
	Status  string
	Pager   listing.Pager
}

// EntryFormView is the content editor state.
type EntryFormView struct {
	Action    string
	Input     content.EntryInput
	PublicURL string
	Error     string
}

// BoardsAdminView lists boards and recent posts for moderation.
type BoardsAdminView struct {
	Boards []storage.Board
	Posts  []storage.Post
	Pager  listing.Pager
}

// BoardFormView is the board editor state.
type BoardFormView struct {
	Action string
	Input  community.BoardInput
	Error  string
}

// SiteView is the theme form and menu trees.
type SiteView struct {
	Theme      siteconfig.Theme
	ThemeError string
	Header     []siteconfig.MenuNode
	Footer     []siteconfig.MenuNode
}

// MenuItemFormView is the menu item editor state.
type MenuItemFormView struct {
	Action  string
	Input   siteconfig.MenuItemInput
	Parents []storage.MenuItem
	Error   string
}

// UploadsView is one page of stored uploads.
type UploadsView struct {
	Page  uploads.ListPage
	Pager listing.Pager
}

// OrphansView is the last scan and the actions on it.
type OrphansView struct {
	Report *orphans.Report
	Grace  string
}

// IndexNowView is the submission log.
type IndexNowView struct {
	Enabled     bool
	Submissions []storage.Submission
}
