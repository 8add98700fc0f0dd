package assets

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/sitetest"
)

func serve(t *testing.T, m module.Module, method string, path string) *httptest.ResponseRecorder {
	t.Helper()
	mnt, err := m.Mount(module.Dependencies{})
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	rr := httptest.NewRecorder()
	mnt.Handler.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestStaticServesEmbeddedFiles(t *testing.T) {
	t.Parallel()

	rr := serve(t, NewStatic(), http.MethodGet, "/static/site.css")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/css") {
		t.Fatalf("Content-Type = %q", rr.Header().Get("Content-Type"))
	}
	if got := serve(t, NewStatic(), http.MethodGet, "/static/editor.js"); got.Code != http.StatusOK {
		t.Fatalf("editor.js status = %d", got.Code)
	}
	if got := serve(t, NewStatic(), http.MethodGet, "/static/missing.js"); got.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", got.Code)
	}
	if got := serve(t, NewStatic(), http.MethodPost, "/static/site.css"); got.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d", got.Code)
	}
}

func TestUploadsServesStoredFile(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	up, err := env.Uploads.Save(context.Background(), "", "pixel.png", bytes.NewReader(png))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rr := serve(t, NewUploads(env.Uploads.Handler()), http.MethodGet, up.Path)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("upload = %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if got := serve(t, NewUploads(env.Uploads.Handler()), http.MethodGet, "/uploads/../folio.db"); got.Code != http.StatusNotFound {
		t.Fatalf("traversal status = %d", got.Code)
	}
}
