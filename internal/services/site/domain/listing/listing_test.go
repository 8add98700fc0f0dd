package listing

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

func TestParseOrder(t *testing.T) {
	t.Parallel()

	got, err := ParseOrder("price desc, name", "sort_order", "name", "price", "created_at")
	if err != nil {
		t.Fatalf("ParseOrder() error = %v", err)
	}
	want := []storage.OrderField{{Field: "price", Desc: true}, {Field: "name"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ParseOrder() mismatch (-want +got):\n%s", diff)
	}

	if got, err := ParseOrder("  ", "name"); err != nil || got != nil {
		t.Fatalf("ParseOrder(blank) = %v, %v", got, err)
	}
	if _, err := ParseOrder("password desc", "name"); !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Fatalf("ParseOrder(unknown) err = %v, want invalid input", err)
	}
	if _, err := ParseOrder("name sideways", "name"); !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Fatalf("ParseOrder(malformed) err = %v, want invalid input", err)
	}
}

func TestPagePaginate(t *testing.T) {
	t.Parallel()

	page := NewPage(0, 0, 20)
	if page.Number != 1 || page.Limit() != 20 || page.Offset() != 0 {
		t.Fatalf("NewPage defaults = %+v", page)
	}
	third := NewPage(3, 500, 20)
	if third.PerPage != 100 || third.Offset() != 200 {
		t.Fatalf("NewPage(3, 500) = %+v offset %d", third, third.Offset())
	}
	pager := NewPage(2, 10, 10).Paginate(25)
	if pager.TotalPages != 3 || !pager.HasPrev() || !pager.HasNext() {
		t.Fatalf("Paginate(25) = %+v", pager)
	}
	if NewPage(1, 10, 10).Paginate(0).HasNext() {
		t.Fatal("empty result should have no next page")
	}
}
