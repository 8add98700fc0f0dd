package account

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/louisbranch/folio/internal/services/site/domain/accounts"
	"github.com/louisbranch/folio/internal/services/site/sitetest"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

func setup(t *testing.T) (*sitetest.Env, storage.User, http.Handler) {
	t.Helper()
	env := sitetest.New(t)
	user, err := env.Accounts.SignUp(context.Background(), accounts.SignUpInput{
		Email:       "alice@example.com",
		Username:    "alice",
		DisplayName: "Alice",
		Password:    "old password",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	mnt, err := New(env.Accounts).Mount(sitetest.Deps(user))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return env, user, mnt.Handler
}

func postPassword(h http.Handler, current string, next string) *httptest.ResponseRecorder {
	form := url.Values{"current": {current}, "next": {next}}
	req := httptest.NewRequest(http.MethodPost, "/app/account/password", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAccountShowsProfile(t *testing.T) {
	t.Parallel()

	_, _, h := setup(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/app/account/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "alice@example.com") {
		t.Fatal("account page missing email")
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	env, _, h := setup(t)
	if rr := postPassword(h, "wrong password", "new password"); rr.Code != http.StatusBadRequest {
		t.Fatalf("wrong current status = %d, want 400", rr.Code)
	}
	rr := postPassword(h, "old password", "new password")
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/app/account/" {
		t.Fatalf("change = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if _, _, err := env.Accounts.SignIn(context.Background(), "alice", "new password"); err != nil {
		t.Fatalf("SignIn(new) error = %v", err)
	}
}
