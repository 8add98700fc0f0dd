package products

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/louisbranch/folio/internal/services/site/domain/catalog"
	"github.com/louisbranch/folio/internal/services/site/sitetest"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

func setup(t *testing.T) (*sitetest.Env, http.Handler) {
	t.Helper()
	env := sitetest.New(t)
	ctx := context.Background()
	cakes, err := env.Catalog.SaveCategory(ctx, catalog.CategoryInput{Name: "Cakes", Slug: "cakes"})
	if err != nil {
		t.Fatalf("save category: %v", err)
	}
	mugs, err := env.Catalog.SaveCategory(ctx, catalog.CategoryInput{Name: "Mugs", Slug: "mugs"})
	if err != nil {
		t.Fatalf("save category: %v", err)
	}
	for _, in := range []catalog.ProductInput{
		{CategoryID: cakes.ID, Slug: "shortcake", Name: "Shortcake", PriceCents: 12000, Description: sitetest.RichText, Status: storage.StatusPublished},
		{CategoryID: mugs.ID, Slug: "blue-mug", Name: "Blue Mug", PriceCents: 1500, Currency: "USD", Status: storage.StatusPublished},
		{CategoryID: cakes.ID, Slug: "draft-pie", Name: "Draft Pie", Status: storage.StatusDraft},
	} {
		if _, err := env.Catalog.SaveProduct(ctx, in); err != nil {
			t.Fatalf("save product %s: %v", in.Name, err)
		}
	}
	mnt, err := New(env.Catalog).Mount(sitetest.Deps(storage.User{}))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return env, mnt.Handler
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestIndexFiltersByCategory(t *testing.T) {
	t.Parallel()

	_, handler := setup(t)
	rr := get(handler, "/products/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Shortcake") || !strings.Contains(body, "Blue Mug") || strings.Contains(body, "Draft Pie") {
		t.Fatalf("unexpected listing: %s", body)
	}

	body = get(handler, "/products/?category=mugs").Body.String()
	if strings.Contains(body, "Shortcake") || !strings.Contains(body, "Blue Mug") {
		t.Fatalf("category filter not applied: %s", body)
	}
}

func TestIndexIgnoresUnknownOrder(t *testing.T) {
	t.Parallel()

	_, handler := setup(t)
	rr := get(handler, "/products/?order=password")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestProductDetail(t *testing.T) {
	t.Parallel()

	_, handler := setup(t)
	rr := get(handler, "/products/shortcake")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "12,000 KRW") || !strings.Contains(body, "<p>hello</p>") {
		t.Fatalf("product detail missing price or description: %s", body)
	}
	if rr = get(handler, "/products/draft-pie"); rr.Code != http.StatusNotFound {
		t.Fatalf("draft status = %d, want 404", rr.Code)
	}
}
