package sessioncookie

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/louisbranch/folio/internal/services/site/platform/requestmeta"
)

func TestWriteSetsHardenedCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	Write(rr, req, " tok-1 ", time.Now().Add(time.Hour), requestmeta.Policy{})

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != Name || c.Value != "tok-1" {
		t.Fatalf("cookie = %s=%q", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie flags httpOnly=%v secure=%v sameSite=%v", c.HttpOnly, c.Secure, c.SameSite)
	}
	if c.MaxAge <= 0 || c.MaxAge > 3600 {
		t.Fatalf("MaxAge = %d, want within one hour", c.MaxAge)
	}
}

func TestReadRejectsBlankValue(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := Read(req); ok {
		t.Fatal("expected no session without cookie")
	}
	req.AddCookie(&http.Cookie{Name: Name, Value: "  "})
	if _, ok := Read(req); ok {
		t.Fatal("expected blank cookie to be rejected")
	}
}

func TestClearExpiresCookie(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	Clear(rr, httptest.NewRequest(http.MethodPost, "/logout", nil), requestmeta.Policy{})
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %+v", cookies)
	}
}
