package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/platform/sessioncookie"
)

type stubModule struct {
	id    string
	mount module.Mount
}

func (m stubModule) ID() string { return m.id }

func (m stubModule) Mount(module.Dependencies) (module.Mount, error) { return m.mount, nil }

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func prefixed(id string, prefix string) stubModule {
	return stubModule{id: id, mount: module.Mount{Prefix: prefix, Handler: noContent()}}
}

func viewerDeps(viewer module.Viewer) module.Dependencies {
	return module.Dependencies{
		ResolveViewer: func(*http.Request) module.Viewer { return viewer },
		ResolveUserID: func(*http.Request) string { return viewer.UserID },
	}
}

func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestComposeRejectsInvalidMounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input ComposeInput
	}{
		{"duplicate prefix", ComposeInput{PublicModules: []module.Module{prefixed("one", "/one/"), prefixed("two", "/one/")}}},
		{"duplicate path", ComposeInput{PublicModules: []module.Module{
			stubModule{id: "a", mount: module.Mount{Paths: []string{"/login"}, Handler: noContent()}},
			stubModule{id: "b", mount: module.Mount{Paths: []string{"/login"}, Handler: noContent()}},
		}}},
		{"nil public", ComposeInput{PublicModules: []module.Module{nil}}},
		{"nil member", ComposeInput{MemberModules: []module.Module{nil}}},
		{"public under app", ComposeInput{PublicModules: []module.Module{prefixed("scraps", "/app/scraps/")}}},
		{"public path under admin", ComposeInput{PublicModules: []module.Module{
			stubModule{id: "x", mount: module.Mount{Paths: []string{"/admin/secret"}, Handler: noContent()}},
		}}},
		{"member outside app", ComposeInput{MemberModules: []module.Module{prefixed("boards", "/boards/")}}},
		{"admin outside admin", ComposeInput{AdminModules: []module.Module{prefixed("users", "/app/users/")}}},
		{"missing handler", ComposeInput{PublicModules: []module.Module{stubModule{id: "x", mount: module.Mount{Prefix: "/x/"}}}}},
		{"missing routes", ComposeInput{PublicModules: []module.Module{stubModule{id: "x", mount: module.Mount{Handler: noContent()}}}}},
		{"prefix without slash", ComposeInput{PublicModules: []module.Module{prefixed("x", "/x")}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := (Composer{}).Compose(tc.input); err == nil {
				t.Fatal("Compose() error = nil")
			}
		})
	}
}

func TestComposeRoutesLongestPrefix(t *testing.T) {
	t.Parallel()

	home := stubModule{id: "home", mount: module.Mount{Prefix: "/", Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})}}
	h, err := (Composer{}).Compose(ComposeInput{PublicModules: []module.Module{home, prefixed("boards", "/boards/")}})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if rr := serve(t, h, httptest.NewRequest(http.MethodGet, "/boards/free", nil)); rr.Code != http.StatusNoContent {
		t.Fatalf("/boards/free status = %d", rr.Code)
	}
	if rr := serve(t, h, httptest.NewRequest(http.MethodGet, "/elsewhere", nil)); rr.Code != http.StatusTeapot {
		t.Fatalf("/elsewhere status = %d", rr.Code)
	}
}

func TestComposeMemberGroupRedirectsAnonymous(t *testing.T) {
	t.Parallel()

	h, err := (Composer{}).Compose(ComposeInput{
		Dependencies:  viewerDeps(module.Viewer{}),
		MemberModules: []module.Module{prefixed("scraps", "/app/scraps/")},
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	rr := serve(t, h, httptest.NewRequest(http.MethodGet, "/app/scraps/?page=2", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if got, want := rr.Header().Get("Location"), "/login?next=%2Fapp%2Fscraps%2F%3Fpage%3D2"; got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}

	req := httptest.NewRequest(http.MethodPost, "/app/scraps/", nil)
	req.Header.Set("HX-Request", "true")
	rr = serve(t, h, req)
	if got := rr.Header().Get("HX-Redirect"); got != "/login" {
		t.Fatalf("HX-Redirect = %q, want /login", got)
	}
}

func TestComposeMemberGroupAllowsSignedIn(t *testing.T) {
	t.Parallel()

	h, err := (Composer{}).Compose(ComposeInput{
		Dependencies:  viewerDeps(module.Viewer{UserID: "u1", SignedIn: true}),
		MemberModules: []module.Module{prefixed("scraps", "/app/scraps/")},
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if rr := serve(t, h, httptest.NewRequest(http.MethodGet, "/app/scraps/", nil)); rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestComposeAdminGroupRequiresAdminRole(t *testing.T) {
	t.Parallel()

	member := module.Viewer{UserID: "u1", SignedIn: true}
	h, err := (Composer{}).Compose(ComposeInput{
		Dependencies: viewerDeps(member),
		AdminModules: []module.Module{prefixed("admin", "/admin/")},
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if rr := serve(t, h, httptest.NewRequest(http.MethodGet, "/admin/", nil)); rr.Code != http.StatusForbidden {
		t.Fatalf("member status = %d, want %d", rr.Code, http.StatusForbidden)
	}

	admin := member
	admin.IsAdmin = true
	h, err = (Composer{}).Compose(ComposeInput{
		Dependencies: viewerDeps(admin),
		AdminModules: []module.Module{prefixed("admin", "/admin/")},
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if rr := serve(t, h, httptest.NewRequest(http.MethodGet, "/admin/", nil)); rr.Code != http.StatusNoContent {
		t.Fatalf("admin status = %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestComposeRejectsCookieMutationWithoutSameOriginProof(t *testing.T) {
	t.Parallel()

	h, err := (Composer{}).Compose(ComposeInput{
		Dependencies:  viewerDeps(module.Viewer{UserID: "u1", SignedIn: true}),
		PublicModules: []module.Module{stubModule{id: "auth", mount: module.Mount{Paths: []string{"/logout"}, Handler: noContent()}}},
		MemberModules: []module.Module{prefixed("posts", "/app/posts/")},
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	for _, path := range []string{"/app/posts/p1/like", "/logout"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "s1"})
		req.Header.Set("Origin", "https://evil.example")
		rr := serve(t, h, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("%s cross-origin status = %d, want %d", path, rr.Code, http.StatusForbidden)
		}
		if got := strings.TrimSpace(rr.Body.String()); got != http.StatusText(http.StatusForbidden) {
			t.Fatalf("%s cross-origin body = %q", path, got)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "http://example.com/app/posts/p1/like", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "s1"})
	req.Header.Set("Origin", "http://example.com")
	if rr := serve(t, h, req); rr.Code != http.StatusNoContent {
		t.Fatalf("same-origin status = %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestComposeAllowsCookielessMutation(t *testing.T) {
	t.Parallel()

	h, err := (Composer{}).Compose(ComposeInput{
		PublicModules: []module.Module{stubModule{id: "auth", mount: module.Mount{Paths: []string{"/login"}, Handler: noContent()}}},
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("identifier=a"))
	if rr := serve(t, h, req); rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
}
