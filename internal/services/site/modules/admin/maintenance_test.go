package admin

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/folio/internal/services/site/domain/seo"
	"github.com/louisbranch/folio/internal/services/site/sitetest"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

func TestUploadsListEmpty(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	admin := env.User(t, "root", storage.RoleAdmin)
	rr := do(mount(t, NewUploads(env.Uploads), admin, "/admin/uploads/"), http.MethodGet, "/admin/uploads/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestOrphansScanStoresReport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := sitetest.New(t)
	admin := env.User(t, "root", storage.RoleAdmin)
	h := mount(t, NewOrphans(env.Orphans), admin, "/admin/orphans/")

	before := do(h, http.MethodGet, "/admin/orphans/", nil)
	if before.Code != http.StatusOK {
		t.Fatalf("report status = %d", before.Code)
	}

	rr := do(h, http.MethodPost, "/admin/orphans/scan", url.Values{})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("scan status = %d body=%s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/admin/orphans/" {
		t.Fatalf("Location = %q", loc)
	}
	if _, ok, err := env.Orphans.LastScan(ctx); err != nil || !ok {
		t.Fatalf("LastScan() = %v, %v", ok, err)
	}
}

func TestOrphansCleanScansWhenNoReport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := sitetest.New(t)
	admin := env.User(t, "root", storage.RoleAdmin)
	h := mount(t, NewOrphans(env.Orphans), admin, "/admin/orphans/")

	rr := do(h, http.MethodPost, "/admin/orphans/clean?dry_run=1", url.Values{})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if _, ok, err := env.Orphans.LastScan(ctx); err != nil || !ok {
		t.Fatalf("LastScan() = %v, %v, want a saved scan", ok, err)
	}
}

func TestFormatGrace(t *testing.T) {
	t.Parallel()

	for in, want := range map[time.Duration]string{
		24 * time.Hour:   "24h",
		90 * time.Minute: "1h30m",
		45 * time.Second: "45s",
		10 * time.Minute: "10m",
	} {
		if got := formatGrace(in); got != want {
			t.Errorf("formatGrace(%v) = %q, want %q", in, got, want)
		}
	}
}

type recordingSubmitter struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (s *recordingSubmitter) Submit(_ context.Context, urls []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, urls...)
	return s.err
}

func indexNowSources(t *testing.T, env *sitetest.Env, submitter seo.Submitter) IndexNowSources {
	t.Helper()
	site, err := seo.NewSite("https://folio.example")
	if err != nil {
		t.Fatalf("NewSite() error = %v", err)
	}
	sources := IndexNowSources{Log: env.Store, Sitemap: seo.NewSitemap(site, env.Store)}
	if submitter != nil {
		sources.Submitter = submitter
	}
	return sources
}

func TestIndexNowSubmitAll(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	admin := env.User(t, "root", storage.RoleAdmin)
	env.Board(t, "free", "Free talk")
	sub := &recordingSubmitter{}
	h := mount(t, NewIndexNow(indexNowSources(t, env, sub)), admin, "/admin/indexnow/")

	page := do(h, http.MethodGet, "/admin/indexnow/", nil)
	if page.Code != http.StatusOK {
		t.Fatalf("log status = %d", page.Code)
	}
	if !strings.Contains(page.Body.String(), `action="/admin/indexnow/submit-all"`) {
		t.Fatal("submit-all action not offered")
	}

	rr := do(h, http.MethodPost, "/admin/indexnow/submit-all", url.Values{})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	want := "https://folio.example/boards/free"
	found := false
	for _, u := range sub.urls {
		if u == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("submitted %v, want %s among them", sub.urls, want)
	}
}

func TestIndexNowSubmitAllFailureRedirects(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	admin := env.User(t, "root", storage.RoleAdmin)
	sub := &recordingSubmitter{err: errors.New("indexnow responded 503")}
	rr := do(mount(t, NewIndexNow(indexNowSources(t, env, sub)), admin, "/admin/indexnow/"), http.MethodPost, "/admin/indexnow/submit-all", url.Values{})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
}

func TestIndexNowDisabled(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	admin := env.User(t, "root", storage.RoleAdmin)
	h := mount(t, NewIndexNow(indexNowSources(t, env, nil)), admin, "/admin/indexnow/")

	page := do(h, http.MethodGet, "/admin/indexnow/", nil)
	if page.Code != http.StatusOK {
		t.Fatalf("log status = %d", page.Code)
	}
	if strings.Contains(page.Body.String(), "submit-all") {
		t.Fatal("submit-all offered while disabled")
	}
	rr := do(h, http.MethodPost, "/admin/indexnow/submit-all", url.Values{})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}
