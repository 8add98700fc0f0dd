package pagerender

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/platform/flash"
	"github.com/louisbranch/folio/internal/services/site/platform/requestmeta"
)

type stubResolver struct {
	viewer module.Viewer
	chrome module.Chrome
	lang   string
}

func (s stubResolver) ResolveRequestViewer(*http.Request) module.Viewer { return s.viewer }
func (s stubResolver) ResolveRequestLanguage(*http.Request) string { return s.lang }
func (s stubResolver) ResolveRequestChrome(*http.Request) module.Chrome { return s.chrome }
func (s stubResolver) RequestPolicy() requestmeta.Policy { return requestmeta.Policy{} }

func fragment(body string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, body)
		return err
	})
}

func TestWriteModulePageRendersHTMXFragmentWithStatus(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/boards/free", nil)
	req.Header.Set("HX-Request", "true")
	rr := httptest.NewRecorder()
	err := WriteModulePage(rr, req, stubResolver{}, ModulePage{
		Title:      "Free",
		StatusCode: http.StatusAccepted,
		Fragment:   fragment(`<p id="fragment">hello</p>`),
	})
	if err != nil {
		t.Fatalf("WriteModulePage() error = %v", err)
	}
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusAccepted)
	}
	body := rr.Body.String()
	if body != `<p id="fragment">hello</p>` {
		t.Fatalf("body = %q, want fragment only", body)
	}
}

func TestWriteModulePageRendersLayoutWithChromeAndNotice(t *testing.T) {
	t.Parallel()

	writeRR := httptest.NewRecorder()
	seed := httptest.NewRequest(http.MethodPost, "/admin/catalog/", nil)
	flash.Write(writeRR, seed, flash.Success("notice.saved"), requestmeta.Policy{})

	req := httptest.NewRequest(http.MethodGet, "/admin/catalog/", nil)
	for _, c := range writeRR.Result().Cookies() {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	resolver := stubResolver{
		viewer: module.Viewer{UserID: "u1", Username: "ada", SignedIn: true, IsAdmin: true},
		chrome: module.Chrome{SiteName: "Shortcake Shop", PrimaryColor: "#112233"},
		lang:   "ko-KR",
	}
	if err := WriteModulePage(rr, req, resolver, ModulePage{Title: "Catalog", Fragment: fragment(`<p id="fragment">hello</p>`)}); err != nil {
		t.Fatalf("WriteModulePage() error = %v", err)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"<!doctype html>",
		`lang="ko-KR"`,
		"Catalog · Shortcake Shop",
		"--primary:#112233",
		`<p id="fragment">hello</p>`,
		"notice notice-success",
		`class="admin"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
	if rr.Header().Get("Set-Cookie") == "" {
		t.Fatal("expected flash cookie to be cleared")
	}
}

func TestWriteModulePageWithoutResolverUsesDefaults(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	if err := WriteModulePage(rr, req, nil, ModulePage{}); err != nil {
		t.Fatalf("WriteModulePage() error = %v", err)
	}
	if !strings.Contains(rr.Body.String(), "<title>Folio</title>") {
		t.Fatalf("body missing default title: %s", rr.Body.String())
	}
}
