package pages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/louisbranch/folio/internal/services/site/domain/content"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/sitetest"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

func serve(t *testing.T, m module.Module, path string) *httptest.ResponseRecorder {
	t.Helper()
	mnt, err := m.Mount(sitetest.Deps(storage.User{}))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	rr := httptest.NewRecorder()
	mnt.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func seedEntries(t *testing.T, env *sitetest.Env) (published storage.Entry, draft storage.Entry) {
	t.Helper()
	ctx := context.Background()
	published, err := env.Content.Save(ctx, content.EntryInput{Title: "About Us", Format: storage.FormatMarkdown, Body: "We bake **daily**."})
	if err != nil {
		t.Fatalf("save entry: %v", err)
	}
	if published, err = env.Content.Publish(ctx, published.ID); err != nil {
		t.Fatalf("publish entry: %v", err)
	}
	draft, err = env.Content.Save(ctx, content.EntryInput{Title: "Winter Menu", Format: storage.FormatMarkdown, Body: "Coming soon."})
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	return published, draft
}

func TestIndexAndEntry(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	published, draft := seedEntries(t, env)
	m := New(env.Content)

	rr := serve(t, m, "/pages/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status = %d", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, "About Us") || strings.Contains(body, "Winter Menu") {
		t.Fatalf("index should list only published entries: %s", body)
	}

	rr = serve(t, m, "/pages/"+published.Slug)
	if rr.Code != http.StatusOK {
		t.Fatalf("entry status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "<strong>daily</strong>") {
		t.Fatalf("entry body not rendered: %s", rr.Body.String())
	}

	if rr = serve(t, m, "/pages/"+draft.Slug); rr.Code != http.StatusNotFound {
		t.Fatalf("draft status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestPreviewRendersDraftWithSignedToken(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	_, draft := seedEntries(t, env)
	previewURL, err := env.Content.PreviewURL(context.Background(), draft.ID)
	if err != nil {
		t.Fatalf("PreviewURL() error = %v", err)
	}
	m := NewPreview(env.Content)
	if m.ID() != "preview" {
		t.Fatalf("ID() = %q", m.ID())
	}

	rr := serve(t, m, previewURL)
	if rr.Code != http.StatusOK {
		t.Fatalf("preview status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Winter Menu") {
		t.Fatalf("preview missing draft title")
	}
	if got := rr.Header().Get("X-Robots-Tag"); !strings.Contains(got, "noindex") {
		t.Fatalf("X-Robots-Tag = %q", got)
	}

	if rr = serve(t, m, "/preview/not-a-token"); rr.Code != http.StatusNotFound {
		t.Fatalf("bad token status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}
