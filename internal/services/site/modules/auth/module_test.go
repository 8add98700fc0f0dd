package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/louisbranch/folio/internal/services/site/platform/sessioncookie"
	"github.com/louisbranch/folio/internal/services/site/sitetest"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

func handler(t *testing.T, env *sitetest.Env, viewer storage.User) http.Handler {
	t.Helper()
	m := New(env.Accounts)
	if m.ID() != "auth" {
		t.Fatalf("ID() = %q", m.ID())
	}
	mnt, err := m.Mount(sitetest.Deps(viewer))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if mnt.Prefix != "" || len(mnt.Paths) != 4 {
		t.Fatalf("mount = %+v, want exact paths only", mnt)
	}
	return mnt.Handler
}

func post(h http.Handler, path string, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func signupForm(username string) url.Values {
	return url.Values{
		"email":        {username + "@example.com"},
		"username":     {username},
		"display_name": {strings.ToUpper(username)},
		"password":     {"correct horse battery"},
	}
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessioncookie.Name {
			return c
		}
	}
	return nil
}

func TestSignupApprovalFlow(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	h := handler(t, env, storage.User{})

	rr := post(h, "/signup", signupForm("founder"))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("first signup = %d %q, want redirect to /login", rr.Code, rr.Header().Get("Location"))
	}
	rr = post(h, "/signup", signupForm("newbie"))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/pending" {
		t.Fatalf("second signup = %d %q, want redirect to /pending", rr.Code, rr.Header().Get("Location"))
	}

	rr = post(h, "/login", url.Values{"identifier": {"newbie"}, "password": {"correct horse battery"}})
	if rr.Header().Get("Location") != "/pending" {
		t.Fatalf("pending login Location = %q, want /pending", rr.Header().Get("Location"))
	}
	if sessionCookie(rr) != nil {
		t.Fatal("pending user received a session")
	}
}

func TestSignupRerendersWithError(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	h := handler(t, env, storage.User{})
	form := signupForm("ok_name")
	form.Set("username", "No Spaces Allowed")
	rr := post(h, "/signup", form)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rr.Body.String(), "ok_name@example.com") {
		t.Fatal("form did not keep the submitted email")
	}
}

func TestLoginAndLogout(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	h := handler(t, env, storage.User{})
	post(h, "/signup", signupForm("founder"))

	rr := post(h, "/login", url.Values{"identifier": {"founder"}, "password": {"wrong password"}})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rr.Body.String(), `value="founder"`) {
		t.Fatal("login form did not keep the identifier")
	}

	rr = post(h, "/login", url.Values{"identifier": {"founder@example.com"}, "password": {"correct horse battery"}, "next": {"/app/scraps/"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/app/scraps/" {
		t.Fatalf("login = %d %q, want redirect to next", rr.Code, rr.Header().Get("Location"))
	}
	cookie := sessionCookie(rr)
	if cookie == nil {
		t.Fatal("login did not set a session cookie")
	}
	if _, err := env.Accounts.ResolveSession(t.Context(), cookie.Value); err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}

	rr = post(h, "/logout", url.Values{}, cookie)
	if rr.Header().Get("Location") != "/" {
		t.Fatalf("logout Location = %q", rr.Header().Get("Location"))
	}
	if cleared := sessionCookie(rr); cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("logout cookie = %+v, want cleared", cleared)
	}
	if _, err := env.Accounts.ResolveSession(t.Context(), cookie.Value); err == nil {
		t.Fatal("session still valid after logout")
	}
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	h := handler(t, env, storage.User{})
	post(h, "/signup", signupForm("founder"))
	rr := post(h, "/login", url.Values{"identifier": {"founder"}, "password": {"correct horse battery"}, "next": {"//evil.example"}})
	if got := rr.Header().Get("Location"); got != "/" {
		t.Fatalf("Location = %q, want /", got)
	}
}

func TestSignedInViewerSkipsLoginForm(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	member := env.User(t, "alice", storage.RoleMember)
	h := handler(t, env, member)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/" {
		t.Fatalf("login page for member = %d %q", rr.Code, rr.Header().Get("Location"))
	}
}
