package seo

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/louisbranch/folio/internal/services/site/domain/content"
	domainseo "github.com/louisbranch/folio/internal/services/site/domain/seo"
	"github.com/louisbranch/folio/internal/services/site/sitetest"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

type keyFile struct{}

func (keyFile) KeyPath() string { return "/abcdef1234.txt" }

func (keyFile) KeyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "abcdef1234")
	})
}

func mount(t *testing.T, key KeyFile) (http.Handler, *sitetest.Env) {
	t.Helper()
	env := sitetest.New(t)
	site, err := domainseo.NewSite("https://folio.example")
	if err != nil {
		t.Fatalf("NewSite() error = %v", err)
	}
	m := New(domainseo.NewSitemap(site, env.Store), site, key)
	mnt, err := m.Mount(sitetest.Deps(storage.User{}))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return mnt.Handler, env
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestSitemapListsPublishedEntries(t *testing.T) {
	t.Parallel()

	h, env := mount(t, nil)
	ctx := context.Background()
	entry, err := env.Content.Save(ctx, content.EntryInput{Slug: "about", Title: "About", Format: storage.FormatMarkdown, Body: "# About"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := env.Content.Save(ctx, content.EntryInput{Slug: "draft", Title: "Draft", Format: storage.FormatMarkdown, Body: "wip"}); err != nil {
		t.Fatalf("Save(draft) error = %v", err)
	}
	if _, err := env.Content.Publish(ctx, entry.ID); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	rr := get(h, "/sitemap.xml")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "application/xml") {
		t.Fatalf("Content-Type = %q", got)
	}
	body := rr.Body.String()
	for _, want := range []string{"<urlset", "https://folio.example/", "https://folio.example/pages/about", "<lastmod>2026-04-01</lastmod>"} {
		if !strings.Contains(body, want) {
			t.Fatalf("sitemap missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "/pages/draft") {
		t.Fatal("sitemap lists a draft entry")
	}
}

func TestRobots(t *testing.T) {
	t.Parallel()

	h, _ := mount(t, nil)
	body := get(h, "/robots.txt").Body.String()
	for _, want := range []string{"Disallow: /admin/", "Disallow: /app/", "Sitemap: https://folio.example/sitemap.xml"} {
		if !strings.Contains(body, want) {
			t.Fatalf("robots missing %q:\n%s", want, body)
		}
	}
}

func TestKeyFileMountedOnlyWhenEnabled(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	site, _ := domainseo.NewSite("https://folio.example")
	off, err := New(domainseo.NewSitemap(site, env.Store), site, nil).Mount(sitetest.Deps(storage.User{}))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if len(off.Paths) != 2 {
		t.Fatalf("paths without key = %v", off.Paths)
	}

	h, _ := mount(t, keyFile{})
	rr := get(h, "/abcdef1234.txt")
	if rr.Code != http.StatusOK || rr.Body.String() != "abcdef1234" {
		t.Fatalf("key file = %d %q", rr.Code, rr.Body.String())
	}
}
