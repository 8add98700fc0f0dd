package modulehandler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/louisbranch/folio/internal/services/site/module"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/platform/flash"
	"github.com/louisbranch/folio/internal/services/site/platform/requestmeta"
)

func TestNewBaseExtractsResolvers(t *testing.T) {
	t.Parallel()

	base := NewBase(module.Dependencies{
		ResolveUserID:   func(*http.Request) string { return " user-1 " },
		ResolveLanguage: func(*http.Request) string { return "ko-KR" },
		ResolveViewer:   func(*http.Request) module.Viewer { return module.Viewer{DisplayName: "Test"} },
		ResolveChrome:   func(*http.Request) module.Chrome { return module.Chrome{SiteName: "Folio Shop"} },
		RequestPolicy:   requestmeta.Policy{TrustForwardedProto: true},
	})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := base.RequestUserID(r); got != "user-1" {
		t.Fatalf("RequestUserID() = %q, want %q", got, "user-1")
	}
	if got := base.ResolveRequestLanguage(r); got != "ko-KR" {
		t.Fatalf("ResolveRequestLanguage() = %q, want %q", got, "ko-KR")
	}
	if got := base.ResolveRequestViewer(r); got.DisplayName != "Test" {
		t.Fatalf("ResolveRequestViewer() = %+v, want DisplayName=Test", got)
	}
	if got := base.ResolveRequestChrome(r); got.SiteName != "Folio Shop" {
		t.Fatalf("ResolveRequestChrome() = %+v, want SiteName=Folio Shop", got)
	}
	if !base.RequestPolicy().TrustForwardedProto {
		t.Fatal("RequestPolicy() lost TrustForwardedProto")
	}
	if base.Logger() == nil {
		t.Fatal("Logger() = nil, want no-op logger")
	}
}

func TestZeroBaseReturnsZeroValues(t *testing.T) {
	t.Parallel()

	base := NewBase(module.Dependencies{})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := base.ResolveRequestViewer(r); got != (module.Viewer{}) {
		t.Fatalf("ResolveRequestViewer() = %+v, want zero Viewer", got)
	}
	if got := base.RequestUserID(r); got != "" {
		t.Fatalf("RequestUserID() = %q, want empty", got)
	}
	if got := base.ResolveRequestLanguage(r); got != "" {
		t.Fatalf("ResolveRequestLanguage() = %q, want empty", got)
	}
}

func TestWritePageRendersLayout(t *testing.T) {
	t.Parallel()

	base := NewBase(module.Dependencies{})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pages/", nil)
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<p>pages</p>")
		return err
	})
	base.WritePage(rr, req, "Pages", http.StatusOK, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), "<p>pages</p>") || !strings.Contains(rr.Body.String(), "<title>Pages · Folio</title>") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestWriteNotFoundAndForbidden(t *testing.T) {
	t.Parallel()

	base := NewBase(module.Dependencies{})
	rr := httptest.NewRecorder()
	base.WriteNotFound(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("not found status = %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	base.WriteForbidden(rr, httptest.NewRequest(http.MethodGet, "/admin/", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("forbidden status = %d", rr.Code)
	}
}

func TestRedirectSetsFlashAndSeeOther(t *testing.T) {
	t.Parallel()

	base := NewBase(module.Dependencies{})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/catalog/products/new", nil)
	base.Redirect(rr, req, "/admin/catalog/", flash.Success("notice.saved"))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
	if got := rr.Header().Get("Location"); got != "/admin/catalog/" {
		t.Fatalf("Location = %q", got)
	}
	found := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == flash.CookieName {
			found = true
		}
	}
	if !found {
		t.Fatal("expected flash cookie")
	}
}

func TestFormErrorClassification(t *testing.T) {
	t.Parallel()

	invalid := apperrors.EK(apperrors.KindInvalidInput, "error.slug.invalid", "bad slug")
	conflict := apperrors.EK(apperrors.KindConflict, "error.slug.taken", "taken")
	if !IsFormError(invalid) || !IsFormError(conflict) {
		t.Fatal("invalid input and conflict should render inline")
	}
	if IsFormError(errors.New("boom")) || IsFormError(apperrors.E(apperrors.KindNotFound, "gone")) {
		t.Fatal("unexpected failures should not render inline")
	}
	if got := FormStatus(conflict); got != http.StatusConflict {
		t.Fatalf("FormStatus(conflict) = %d", got)
	}
}
