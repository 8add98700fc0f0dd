package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/folio/internal/services/site/domain/accounts"
	"github.com/louisbranch/folio/internal/services/site/domain/siteconfig"
	"github.com/louisbranch/folio/internal/services/site/module"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/platform/sessioncookie"
	"github.com/louisbranch/folio/internal/services/site/sitetest"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

type countingSessions struct {
	calls atomic.Int32
	user  storage.User
}

func (s *countingSessions) ResolveSession(_ context.Context, sessionID string) (storage.User, error) {
	s.calls.Add(1)
	if sessionID != "s1" {
		return storage.User{}, apperrors.E(apperrors.KindUnauthorized, "session is not valid")
	}
	return s.user, nil
}

func withState(r *http.Request) *http.Request {
	var out *http.Request
	WithRequestState()(http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
		out = req
	})).ServeHTTP(httptest.NewRecorder(), r)
	return out
}

func TestPrincipalResolvesViewerOncePerRequest(t *testing.T) {
	t.Parallel()

	sessions := &countingSessions{user: storage.User{ID: "u1", Username: "alice", Role: storage.RoleAdmin}}
	p := NewPrincipal(sessions, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "s1"})
	req = withState(req)

	got := p.ResolveViewer(req)
	want := module.Viewer{UserID: "u1", Username: "alice", DisplayName: "alice", Role: storage.RoleAdmin, SignedIn: true, IsAdmin: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("viewer mismatch (-want +got):\n%s", diff)
	}
	if id := p.ResolveUserID(req); id != "u1" {
		t.Fatalf("ResolveUserID() = %q", id)
	}
	if n := sessions.calls.Load(); n != 1 {
		t.Fatalf("ResolveSession calls = %d, want 1", n)
	}
}

func TestPrincipalAnonymousOnBadSession(t *testing.T) {
	t.Parallel()

	p := NewPrincipal(&countingSessions{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "stale"})
	if v := p.ResolveViewer(req); v.SignedIn {
		t.Fatalf("viewer = %+v, want anonymous", v)
	}
}

func TestPrincipalResolvesStoredSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := sitetest.New(t)
	if _, err := env.Accounts.SignUp(ctx, accounts.SignUpInput{
		Email: "root@example.com", Username: "root", DisplayName: "Root", Password: "correct horse",
	}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	_, session, err := env.Accounts.SignIn(ctx, "root", "correct horse")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	p := NewPrincipal(env.Accounts, env.SiteConfig, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: session.ID})

	v := p.ResolveViewer(req)
	if !v.SignedIn || !v.IsAdmin || v.DisplayName != "Root" {
		t.Fatalf("viewer = %+v, want signed-in admin Root", v)
	}
}

func TestPrincipalChromeAndDefaultLocale(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := sitetest.New(t)
	if _, err := env.SiteConfig.SaveTheme(ctx, siteconfig.Theme{
		SiteName: "Tea House", PrimaryColor: "#112233", AccentColor: "#445566", DefaultLocale: "ko-KR",
	}); err != nil {
		t.Fatalf("SaveTheme() error = %v", err)
	}
	if _, err := env.SiteConfig.SaveMenuItem(ctx, siteconfig.MenuItemInput{
		Location: storage.MenuHeader, Label: "Shop", URL: "/products/", Visible: true,
	}); err != nil {
		t.Fatalf("SaveMenuItem() error = %v", err)
	}
	p := NewPrincipal(env.Accounts, env.SiteConfig, nil)

	req := withState(httptest.NewRequest(http.MethodGet, "/", nil))
	chrome := p.ResolveChrome(req)
	if chrome.SiteName != "Tea House" {
		t.Fatalf("SiteName = %q", chrome.SiteName)
	}
	if diff := cmp.Diff([]module.MenuLink{{Label: "Shop", URL: "/products/"}}, chrome.Header); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	if lang := p.ResolveLanguage(req); lang != "ko-KR" {
		t.Fatalf("ResolveLanguage() = %q, want theme default ko-KR", lang)
	}

	explicit := httptest.NewRequest(http.MethodGet, "/", nil)
	explicit.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if lang := p.ResolveLanguage(explicit); lang != "en-US" {
		t.Fatalf("ResolveLanguage() = %q, want en-US from Accept-Language", lang)
	}

	query := httptest.NewRequest(http.MethodGet, "/?lang=ko", nil)
	query.Header.Set("Accept-Language", "en-US")
	if lang := p.ResolveLanguage(query); lang != "ko-KR" {
		t.Fatalf("ResolveLanguage() = %q, want ko-KR from query", lang)
	}
}

func TestPersistLanguageSetsCookie(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	PersistLanguage()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?lang=ko-KR", nil))
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "ko-KR" {
		t.Fatalf("cookies = %+v", cookies)
	}
}
