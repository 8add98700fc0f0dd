package site

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		HTTPAddr:      "127.0.0.1:0",
		DBPath:        filepath.Join(dir, "data", "folio.db"),
		UploadDir:     filepath.Join(dir, "uploads"),
		PublicBaseURL: "https://folio.example",
		SessionTTL:    time.Hour,
		OrphanGrace:   24 * time.Hour,
	}
}

func openRuntime(t *testing.T, cfg Config) *Runtime {
	t.Helper()
	rt, err := OpenRuntime(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("OpenRuntime() error = %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestOpenRuntimeValidatesConfig(t *testing.T) {
	t.Parallel()

	base := testConfig(t)
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing database", mutate: func(c *Config) { c.DBPath = " " }},
		{name: "relative base url", mutate: func(c *Config) { c.PublicBaseURL = "folio.example" }},
		{name: "short indexnow key", mutate: func(c *Config) { c.IndexNowKey = "abc" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			rt, err := OpenRuntime(context.Background(), cfg, nil)
			if err == nil {
				_ = rt.Close()
				t.Fatal("expected error")
			}
		})
	}
}

func TestOpenRuntimeLeavesIndexNowOffWithoutKey(t *testing.T) {
	t.Parallel()

	rt := openRuntime(t, testConfig(t))
	if rt.Services.IndexNow != nil {
		t.Fatalf("IndexNow = %v, want nil", rt.Services.IndexNow)
	}
	// An inert queue drops paths instead of holding them.
	rt.Queue.Enqueue("/pages/about")
	if err := rt.Queue.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestHandlerSmokeMatrix(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.IndexNowKey = "folio-key-1234"
	rt := openRuntime(t, cfg)
	handler, err := NewHandler(rt, cfg, nil)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	testCases := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
		wantLoc    string
	}{
		{name: "health", method: http.MethodGet, path: "/up", wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "home", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantBody: "<!doctype html>"},
		{name: "pages", method: http.MethodGet, path: "/pages/", wantStatus: http.StatusOK},
		{name: "products", method: http.MethodGet, path: "/products/", wantStatus: http.StatusOK},
		{name: "boards", method: http.MethodGet, path: "/boards/", wantStatus: http.StatusOK},
		{name: "login", method: http.MethodGet, path: "/login", wantStatus: http.StatusOK},
		{name: "robots", method: http.MethodGet, path: "/robots.txt", wantStatus: http.StatusOK, wantBody: "Sitemap: https://folio.example/sitemap.xml"},
		{name: "sitemap", method: http.MethodGet, path: "/sitemap.xml", wantStatus: http.StatusOK, wantBody: "<loc>https://folio.example/</loc>"},
		{name: "indexnow key", method: http.MethodGet, path: "/folio-key-1234.txt", wantStatus: http.StatusOK, wantBody: "folio-key-1234"},
		{name: "member area needs session", method: http.MethodGet, path: "/app/scraps/", wantStatus: http.StatusFound, wantLoc: "/login?next=%2Fapp%2Fscraps%2F"},
		{name: "admin area needs session", method: http.MethodGet, path: "/admin/", wantStatus: http.StatusFound, wantLoc: "/login?next=%2Fadmin%2F"},
		{name: "unknown page", method: http.MethodGet, path: "/pages/missing", wantStatus: http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("%s %s status = %d, want %d", tc.method, tc.path, rec.Code, tc.wantStatus)
			}
			if tc.wantBody != "" && !strings.Contains(rec.Body.String(), tc.wantBody) {
				t.Fatalf("body missing %q:\n%s", tc.wantBody, rec.Body.String())
			}
			if tc.wantLoc != "" && rec.Header().Get("Location") != tc.wantLoc {
				t.Fatalf("Location = %q, want %q", rec.Header().Get("Location"), tc.wantLoc)
			}
			if rec.Header().Get(httpx.RequestIDHeader) == "" {
				t.Fatal("expected request id header")
			}
		})
	}
}

func TestHandlerPersistsLanguageQuery(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	rt := openRuntime(t, cfg)
	handler, err := NewHandler(rt, cfg, nil)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?lang=ko-KR", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `lang="ko-KR"`) {
		t.Fatalf("expected korean document, got:\n%s", rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "folio_lang=ko-KR") {
		t.Fatalf("Set-Cookie = %q", rec.Header().Get("Set-Cookie"))
	}
}

func TestNewServerRequiresAddress(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	rt := openRuntime(t, cfg)
	cfg.HTTPAddr = ""
	if _, err := NewServer(context.Background(), rt, cfg, nil); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestServerRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.HealthGRPCAddr = "127.0.0.1:0"
	cfg.OrphanSweepInterval = time.Hour
	cfg.ThemeFile = filepath.Join(t.TempDir(), "theme.yaml")
	if err := os.WriteFile(cfg.ThemeFile, []byte("theme:\n  siteName: Watched Bakery\n"), 0o644); err != nil {
		t.Fatalf("write theme: %v", err)
	}
	rt := openRuntime(t, cfg)
	server, err := NewServer(context.Background(), rt, cfg, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := rt.Services.SiteConfig.Snapshot(context.Background())
		if err == nil && snap.Theme.SiteName == "Watched Bakery" {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("theme file was never imported")
		}
		time.Sleep(25 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHealthRouteOnlyServesGet(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	rt := openRuntime(t, cfg)
	handler, err := NewHandler(rt, cfg, nil)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/up", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST /up: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Fatalf("POST /up status = %d, want non-200", resp.StatusCode)
	}
}
