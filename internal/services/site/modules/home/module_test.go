package home

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/louisbranch/folio/internal/services/site/domain/catalog"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/sitetest"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

func mount(t *testing.T, env *sitetest.Env) module.Mount {
	t.Helper()
	m := New(env.Content, env.Catalog, env.Community)
	if got := m.ID(); got != "home" {
		t.Fatalf("ID() = %q, want home", got)
	}
	mnt, err := m.Mount(sitetest.Deps(storage.User{}))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return mnt
}

func TestIndexListsPublishedContent(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	ctx := context.Background()
	env.Board(t, "free", "Free Talk")
	cat, err := env.Catalog.SaveCategory(ctx, catalog.CategoryInput{Name: "Cakes"})
	if err != nil {
		t.Fatalf("save category: %v", err)
	}
	if _, err := env.Catalog.SaveProduct(ctx, catalog.ProductInput{CategoryID: cat.ID, Name: "Shortcake", PriceCents: 12000, Status: storage.StatusPublished}); err != nil {
		t.Fatalf("save product: %v", err)
	}
	if _, err := env.Catalog.SaveProduct(ctx, catalog.ProductInput{CategoryID: cat.ID, Name: "Secret Tart", PriceCents: 9000, Status: storage.StatusDraft}); err != nil {
		t.Fatalf("save draft product: %v", err)
	}

	rr := httptest.NewRecorder()
	mount(t, env).Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	for _, want := range []string{"Shortcake", "Free Talk"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q", want)
		}
	}
	if strings.Contains(body, "Secret Tart") {
		t.Fatal("home listed a draft product")
	}
}

func TestUnknownPathRendersNotFound(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	rr := httptest.NewRecorder()
	mount(t, env).Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if !strings.Contains(rr.Body.String(), `class="error-state"`) {
		t.Fatalf("body missing error state: %s", rr.Body.String())
	}
}
