package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	t.Parallel()

	called := ""
	mw := func(mark string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called += mark
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called += "h"
		w.WriteHeader(http.StatusNoContent)
	}), mw("1"), nil, mw("2"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if called != "12h" {
		t.Fatalf("call order = %q, want %q", called, "12h")
	}
}

func TestMethodNotAllowedWritesAllowHeaderAndStatus(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	MethodNotAllowed(http.MethodPost).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/app/posts/p1/like", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
	if got := rr.Header().Get("Allow"); got != http.MethodPost {
		t.Fatalf("Allow = %q, want %q", got, http.MethodPost)
	}
}

func TestRequestIDAddsHeaderWhenMissing(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.HasPrefix(seen, "folio-") {
		t.Fatalf("request id = %q, want folio- prefix", seen)
	}
	if got := rr.Header().Get(RequestIDHeader); got != seen {
		t.Fatalf("echoed request id = %q, want %q", got, seen)
	}
}

func TestRequestIDPreservesIncomingHeader(t *testing.T) {
	t.Parallel()

	h := RequestID()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got != "req-7" {
		t.Fatalf("request id = %q, want %q", got, "req-7")
	}
}

func TestRecoverPanicLogsAndReturns500(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	h := RecoverPanic(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	req := httptest.NewRequest(http.MethodGet, "/boards/free", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	entries := logs.FilterMessage("panic recovered").All()
	if len(entries) != 1 {
		t.Fatalf("panic log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/boards/free" || fields["request_id"] != "req-1" {
		t.Fatalf("unexpected log fields: %v", fields)
	}
}

func TestWriteErrorUsesTypedStatus(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WriteError(rr, apperrors.E(apperrors.KindConflict, "slug taken"))
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusConflict)
	}
	// Invariant: internal messages never reach the response body.
	if strings.Contains(rr.Body.String(), "slug taken") {
		t.Fatalf("body leaked internal message: %q", rr.Body.String())
	}
}

func TestWriteRedirect(t *testing.T) {
	t.Parallel()

	htmx := httptest.NewRequest(http.MethodPost, "/app/posts", nil)
	htmx.Header.Set("HX-Request", "true")
	rr := httptest.NewRecorder()
	WriteRedirect(rr, htmx, "/boards/free")
	if rr.Code != http.StatusOK || rr.Header().Get("HX-Redirect") != "/boards/free" {
		t.Fatalf("htmx redirect = %d %q", rr.Code, rr.Header().Get("HX-Redirect"))
	}

	post := httptest.NewRequest(http.MethodPost, "/app/posts", nil)
	rr = httptest.NewRecorder()
	WriteRedirect(rr, post, "/boards/free")
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("post redirect status = %d, want %d", rr.Code, http.StatusSeeOther)
	}

	get := httptest.NewRequest(http.MethodGet, "/app/", nil)
	rr = httptest.NewRecorder()
	WriteRedirect(rr, get, "/login")
	if rr.Code != http.StatusFound {
		t.Fatalf("get redirect status = %d, want %d", rr.Code, http.StatusFound)
	}
}

func TestPageParam(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]int{"": 1, "?page=3": 3, "?page=0": 1, "?page=x": 1} {
		req := httptest.NewRequest(http.MethodGet, "/boards/free"+raw, nil)
		if got := PageParam(req); got != want {
			t.Fatalf("PageParam(%q) = %d, want %d", raw, got, want)
		}
	}
	if got := PageParam(nil); got != 1 {
		t.Fatalf("PageParam(nil) = %d, want 1", got)
	}
}
