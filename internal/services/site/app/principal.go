package app

import (
	"context"
	"net/http"
	"strings"
	"sync"

	platformi18n "github.com/louisbranch/folio/internal/platform/i18n"
	"github.com/louisbranch/folio/internal/services/site/domain/siteconfig"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	sitei18n "github.com/louisbranch/folio/internal/services/site/platform/i18n"
	"github.com/louisbranch/folio/internal/services/site/platform/sessioncookie"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"go.uber.org/zap"
)

// SessionResolver maps a session token to its approved user.
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (storage.User, error)
}

// ChromeSource returns the cached theme and menus.
type ChromeSource interface {
	Snapshot(ctx context.Context) (siteconfig.Snapshot, error)
}

type requestState struct {
	userOnce     sync.Once
	user         storage.User
	chromeOnce   sync.Once
	chrome       module.Chrome
	locale       string
	languageOnce sync.Once
	language     string
}

type requestStateKey struct{}

// WithRequestState gives each request its own resolver cache so the
// session and theme are looked up once however many modules ask.
func WithRequestState() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), requestStateKey{}, &requestState{})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestStateFrom(r *http.Request) *requestState {
	if r == nil {
		return nil
	}
	state, _ := r.Context().Value(requestStateKey{}).(*requestState)
	return state
}

// Principal resolves the viewer, chrome and language of a request.
type Principal struct {
	sessions SessionResolver
	chrome   ChromeSource
	logger   *zap.Logger
}

// NewPrincipal builds request resolvers over sessions and site config.
func NewPrincipal(sessions SessionResolver, chrome ChromeSource, logger *zap.Logger) Principal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Principal{sessions: sessions, chrome: chrome, logger: logger}
}

// Dependencies returns module dependencies backed by p.
func (p Principal) Dependencies(base module.Dependencies) module.Dependencies {
	base.ResolveViewer = p.ResolveViewer
	base.ResolveUserID = p.ResolveUserID
	base.ResolveLanguage = p.ResolveLanguage
	base.ResolveChrome = p.ResolveChrome
	return base
}

func (p Principal) userUncached(r *http.Request) storage.User {
	if p.sessions == nil {
		return storage.User{}
	}
	token, ok := sessioncookie.Read(r)
	if !ok {
		return storage.User{}
	}
	user, err := p.sessions.ResolveSession(r.Context(), token)
	if err != nil {
		return storage.User{}
	}
	return user
}

func (p Principal) user(r *http.Request) storage.User {
	if state := requestStateFrom(r); state != nil {
		state.userOnce.Do(func() { state.user = p.userUncached(r) })
		return state.user
	}
	return p.userUncached(r)
}

// ResolveUserID returns the signed-in user id, or "".
func (p Principal) ResolveUserID(r *http.Request) string {
	return p.user(r).ID
}

// ResolveViewer returns the chrome viewer state.
func (p Principal) ResolveViewer(r *http.Request) module.Viewer {
	u := p.user(r)
	if u.ID == "" {
		return module.Viewer{}
	}
	name := strings.TrimSpace(u.DisplayName)
	if name == "" {
		name = u.Username
	}
	return module.Viewer{
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: name,
		Role:        u.Role,
		SignedIn:    true,
		IsAdmin:     u.Role == storage.RoleAdmin,
	}
}

func (p Principal) chromeUncached(r *http.Request) (module.Chrome, string) {
	if p.chrome == nil {
		return module.Chrome{}, ""
	}
	snap, err := p.chrome.Snapshot(r.Context())
	if err != nil {
		p.logger.Warn("load site chrome", zap.Error(err))
	}
	theme := snap.Theme
	return module.Chrome{
		SiteName:     theme.SiteName,
		Tagline:      theme.Tagline,
		PrimaryColor: theme.PrimaryColor,
		AccentColor:  theme.AccentColor,
		LogoURL:      theme.LogoPath,
		FooterText:   theme.FooterText,
		Header:       menuLinks(snap.Header),
		Footer:       menuLinks(snap.Footer),
	}, theme.DefaultLocale
}

func (p Principal) chromeAndLocale(r *http.Request) (module.Chrome, string) {
	if state := requestStateFrom(r); state != nil {
		state.chromeOnce.Do(func() { state.chrome, state.locale = p.chromeUncached(r) })
		return state.chrome, state.locale
	}
	return p.chromeUncached(r)
}

// ResolveChrome returns the theme and visible menus.
func (p Principal) ResolveChrome(r *http.Request) module.Chrome {
	chrome, _ := p.chromeAndLocale(r)
	return chrome
}

// ResolveLanguage returns the request language. An explicit choice or
// Accept-Language wins; otherwise the theme's default locale applies.
func (p Principal) ResolveLanguage(r *http.Request) string {
	if state := requestStateFrom(r); state != nil {
		state.languageOnce.Do(func() { state.language = p.languageUncached(r) })
		return state.language
	}
	return p.languageUncached(r)
}

func (p Principal) languageUncached(r *http.Request) string {
	if hasLanguagePreference(r) {
		tag, _ := sitei18n.ResolveTag(r)
		return tag.String()
	}
	if _, locale := p.chromeAndLocale(r); locale != "" {
		if tag, ok := platformi18n.ParseTag(locale); ok {
			return tag.String()
		}
	}
	return platformi18n.DefaultTag().String()
}

func hasLanguagePreference(r *http.Request) bool {
	if _, ok := platformi18n.ParseTag(r.URL.Query().Get(sitei18n.LangParam)); ok {
		return true
	}
	if cookie, err := r.Cookie(sitei18n.CookieName); err == nil {
		if _, ok := platformi18n.ParseTag(cookie.Value); ok {
			return true
		}
	}
	return strings.TrimSpace(r.Header.Get("Accept-Language")) != ""
}

// PersistLanguage stores an explicit ?lang= choice as a cookie.
func PersistLanguage() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tag, ok := platformi18n.ParseTag(r.URL.Query().Get(sitei18n.LangParam)); ok {
				sitei18n.SetLanguageCookie(w, tag)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func menuLinks(nodes []siteconfig.MenuNode) []module.MenuLink {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]module.MenuLink, 0, len(nodes))
	for _, node := range nodes {
		link := module.MenuLink{Label: node.Item.Label, URL: node.Item.URL}
		for _, child := range node.Children {
			link.Children = append(link.Children, module.MenuLink{Label: child.Label, URL: child.URL})
		}
		out = append(out, link)
	}
	return out
}
