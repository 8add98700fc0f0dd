package weberror

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	sitei18n "github.com/louisbranch/folio/internal/services/site/platform/i18n"
	"golang.org/x/text/language"
)

func TestShouldRenderAppError(t *testing.T) {
	t.Parallel()

	tests := map[int]bool{
		http.StatusBadRequest:          false,
		http.StatusUnauthorized:        false,
		http.StatusForbidden:           true,
		http.StatusNotFound:            true,
		http.StatusConflict:            false,
		http.StatusInternalServerError: true,
		http.StatusServiceUnavailable:  true,
	}
	for status, want := range tests {
		if got := ShouldRenderAppError(status); got != want {
			t.Fatalf("ShouldRenderAppError(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestWriteModuleErrorRendersErrorPageForNotFound(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/products/missing", nil)
	rr := httptest.NewRecorder()
	WriteModuleError(rr, req, apperrors.E(apperrors.KindNotFound, "missing"), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `class="error-state"`) {
		t.Fatalf("body missing error state marker: %q", body)
	}
	if !strings.Contains(body, "<!doctype html>") {
		t.Fatalf("body missing layout: %q", body)
	}
}

func TestWriteModuleErrorRendersFragmentForHTMX(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/app/posts/p1/like", nil)
	req.Header.Set("HX-Request", "true")
	rr := httptest.NewRecorder()
	WriteModuleError(rr, req, errors.New("database is locked"), nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	body := rr.Body.String()
	if strings.Contains(body, "<!doctype html>") {
		t.Fatalf("HTMX error response rendered full layout: %q", body)
	}
	if strings.Contains(body, "database is locked") {
		t.Fatalf("body leaked internal error text: %q", body)
	}
}

func TestWriteModuleErrorWritesPlainTextForBadRequest(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/app/posts/", nil)
	rr := httptest.NewRecorder()
	WriteModuleError(rr, req, apperrors.E(apperrors.KindInvalidInput, "bad form"), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	body := rr.Body.String()
	if !strings.Contains(body, http.StatusText(http.StatusBadRequest)) {
		t.Fatalf("body = %q, want generic bad-request message", body)
	}
	if strings.Contains(body, "bad form") {
		t.Fatalf("body leaked internal error text: %q", body)
	}
}

func TestPublicMessageUsesLocalizationKey(t *testing.T) {
	t.Parallel()

	loc := sitei18n.Printer(language.MustParse("en-US"))
	err := apperrors.EK(apperrors.KindInvalidInput, "error.slug.taken", "slug taken")
	got := PublicMessage(loc, err)
	if got == "" || got == "error.slug.taken" || got == "slug taken" {
		t.Fatalf("PublicMessage() = %q, want localized copy", got)
	}
	if got := PublicMessage(loc, nil); got != "" {
		t.Fatalf("PublicMessage(nil) = %q, want empty", got)
	}
}
