package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/storage/sqlite"
)

type recordingPublisher struct {
	mu    sync.Mutex
	paths []string
}

func (p *recordingPublisher) Enqueue(paths ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, paths...)
}

func newTestService(t *testing.T) (*Service, *recordingPublisher) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "folio.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	pub := &recordingPublisher{}
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	svc := NewService(store, WithPublisher(pub), WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
	return svc, pub
}

func TestSaveProductValidatesAndDerivesSlug(t *testing.T) {
	t.Parallel()
	svc, pub := newTestService(t)
	ctx := context.Background()

	category, err := svc.SaveCategory(ctx, CategoryInput{Name: "Cakes"})
	if err != nil {
		t.Fatalf("save category: %v", err)
	}
	if category.Slug != "cakes" {
		t.Fatalf("category slug = %q, want cakes", category.Slug)
	}

	invalid := []struct {
		name string
		in   ProductInput
		key  string
	}{
		{name: "negative price", in: ProductInput{CategoryID: category.ID, Name: "X", PriceCents: -1}, key: "error.catalog.invalid_price"},
		{name: "bad currency", in: ProductInput{CategoryID: category.ID, Name: "X", Currency: "won"}, key: "error.catalog.invalid_currency"},
		{name: "bad description", in: ProductInput{CategoryID: category.ID, Name: "X", Description: `{"root":{"type":"root","children":[{"type":"table"}]}}`}, key: "error.richtext.invalid"},
		{name: "bad image", in: ProductInput{CategoryID: category.ID, Name: "X", Images: []string{"javascript:x"}}, key: "error.catalog.invalid_image"},
		{name: "bad slug", in: ProductInput{CategoryID: category.ID, Name: "X", Slug: "No Spaces"}, key: "error.slug.invalid"},
	}
	for _, tc := range invalid {
		if _, err := svc.SaveProduct(ctx, tc.in); apperrors.LocalizationKey(err) != tc.key {
			t.Fatalf("%s: err = %v, want key %s", tc.name, err, tc.key)
		}
	}

	product, err := svc.SaveProduct(ctx, ProductInput{
		CategoryID: category.ID,
		Name:       "Strawberry Shortcake",
		PriceCents: 32000,
		Images:     []string{"/uploads/2026/05/a.png", " ", "/uploads/2026/05/b.png"},
	})
	if err != nil {
		t.Fatalf("save product: %v", err)
	}
	if product.Slug != "strawberry-shortcake" || product.Currency != DefaultCurrency || product.Status != storage.StatusDraft {
		t.Fatalf("product = %+v", product)
	}
	if diff := cmp.Diff([]string{"/uploads/2026/05/a.png", "/uploads/2026/05/b.png"}, product.Images); diff != "" {
		t.Fatalf("images mismatch (-want +got):\n%s", diff)
	}
	// Invariant: drafts are never announced for indexing.
	if len(pub.paths) != 0 {
		t.Fatalf("published paths = %v, want none for draft", pub.paths)
	}

	if _, err := svc.SaveProduct(ctx, ProductInput{CategoryID: category.ID, Name: "Strawberry shortcake!"}); !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("duplicate slug err = %v, want conflict", err)
	}
}

func TestPublishingAnnouncesAndListsPublishedOnly(t *testing.T) {
	t.Parallel()
	svc, pub := newTestService(t)
	ctx := context.Background()

	category, err := svc.SaveCategory(ctx, CategoryInput{Name: "Tea", Slug: "tea"})
	if err != nil {
		t.Fatalf("save category: %v", err)
	}
	for _, p := range []ProductInput{
		{CategoryID: category.ID, Name: "Green", PriceCents: 5000, Status: storage.StatusPublished},
		{CategoryID: category.ID, Name: "Black", PriceCents: 7000, Status: storage.StatusPublished},
		{CategoryID: category.ID, Name: "Secret", PriceCents: 1000},
	} {
		if _, err := svc.SaveProduct(ctx, p); err != nil {
			t.Fatalf("save %s: %v", p.Name, err)
		}
	}

	page, err := svc.ListPublished(ctx, "tea", "price desc", listing.NewPage(1, 10, 10))
	if err != nil {
		t.Fatalf("ListPublished() error = %v", err)
	}
	var names []string
	for _, p := range page.Products {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"Black", "Green"}, names); diff != "" {
		t.Fatalf("published order mismatch (-want +got):\n%s", diff)
	}
	if _, err := svc.GetPublished(ctx, "secret"); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("GetPublished(draft) err = %v, want not found", err)
	}
	if _, err := svc.ListPublished(ctx, "tea", "secret_field", listing.NewPage(1, 10, 10)); !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Fatalf("ListPublished(bad order) err = %v", err)
	}
	if _, err := svc.ListPublished(ctx, "coffee", "", listing.NewPage(1, 10, 10)); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("ListPublished(unknown category) err = %v", err)
	}
	if diff := cmp.Diff([]string{"/products/green", "/products/black"}, pub.paths); diff != "" {
		t.Fatalf("announced paths mismatch (-want +got):\n%s", diff)
	}

	secret, err := svc.GetPublishedOrDraft(ctx, "secret")
	if err != nil {
		t.Fatalf("load draft: %v", err)
	}
	if err := svc.SetStatus(ctx, secret.ID, storage.StatusPublished); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if got := pub.paths[len(pub.paths)-1]; got != "/products/secret" {
		t.Fatalf("last announced = %q", got)
	}
}

func TestRenamingPublishedProductAnnouncesOldURL(t *testing.T) {
	t.Parallel()
	svc, pub := newTestService(t)
	ctx := context.Background()

	category, err := svc.SaveCategory(ctx, CategoryInput{Name: "Tea", Slug: "tea"})
	if err != nil {
		t.Fatalf("save category: %v", err)
	}
	product, err := svc.SaveProduct(ctx, ProductInput{CategoryID: category.ID, Name: "Green", Status: storage.StatusPublished})
	if err != nil {
		t.Fatalf("save product: %v", err)
	}
	pub.paths = nil
	if _, err := svc.SaveProduct(ctx, ProductInput{ID: product.ID, CategoryID: category.ID, Name: "Green", Slug: "sencha", Status: storage.StatusPublished}); err != nil {
		t.Fatalf("rename product: %v", err)
	}
	if diff := cmp.Diff([]string{"/products/sencha", "/products/green"}, pub.paths); diff != "" {
		t.Fatalf("announced paths mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteCategoryInUseConflicts(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	category, err := svc.SaveCategory(ctx, CategoryInput{Name: "Bread"})
	if err != nil {
		t.Fatalf("save category: %v", err)
	}
	product, err := svc.SaveProduct(ctx, ProductInput{CategoryID: category.ID, Name: "Baguette"})
	if err != nil {
		t.Fatalf("save product: %v", err)
	}
	if err := svc.DeleteCategory(ctx, category.ID); apperrors.LocalizationKey(err) != "error.catalog.category_in_use" {
		t.Fatalf("DeleteCategory(in use) err = %v", err)
	}
	if err := svc.DeleteProduct(ctx, product.ID); err != nil {
		t.Fatalf("DeleteProduct() error = %v", err)
	}
	if err := svc.DeleteCategory(ctx, category.ID); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
}
