// Package module defines the feature contract used by site composition.
package module

import (
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/platform/requestmeta"
	"go.uber.org/zap"
)

// Viewer is the signed-in state shown in page chrome.
type Viewer struct {
	UserID      string
	Username    string
	DisplayName string
	Role        string
	SignedIn    bool
	IsAdmin     bool
}

// MenuLink is one rendered navigation link.
type MenuLink struct {
	Label    string
	URL      string
	Children []MenuLink
}

// Chrome carries the theme and menus every page renders around its body.
type Chrome struct {
	SiteName     string
	Tagline      string
	PrimaryColor string
	AccentColor  string
	LogoURL      string
	FooterText   string
	Header       []MenuLink
	Footer       []MenuLink
}

// ResolveViewer resolves chrome viewer state for a request.
type ResolveViewer func(*http.Request) Viewer

// ResolveUserID resolves the authenticated user id for a request.
type ResolveUserID func(*http.Request) string

// ResolveLanguage returns the effective request language.
type ResolveLanguage func(*http.Request) string

// ResolveChrome returns the theme and menus for a request.
type ResolveChrome func(*http.Request) Chrome

// Dependencies carries request-scoped resolvers shared by every module.
type Dependencies struct {
	ResolveViewer   ResolveViewer
	ResolveUserID   ResolveUserID
	ResolveLanguage ResolveLanguage
	ResolveChrome   ResolveChrome
	RequestPolicy   requestmeta.Policy
	Logger          *zap.Logger
}

// Mount describes a module route mount. Prefix must end with "/"; Paths
// are exact routes the module also owns.
type Mount struct {
	Prefix  string
	Paths   []string
	Handler http.Handler
}

// Module declares the minimum contract required by site composition.
type Module interface {
	ID() string
	Mount(deps Dependencies) (Mount, error)
}
