// Package listing parses AIP-132 order_by strings and page numbers for
// list queries.
package listing

import (
	"strings"

	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"go.einride.tech/aip/ordering"
)

type orderRequest string

func (r orderRequest) GetOrderBy() string { return string(r) }

// ParseOrder parses raw such as "price desc, name" and checks every field
// against allowed. Blank input yields nil so stores apply their default.
func ParseOrder(raw string, allowed ...string) ([]storage.OrderField, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	orderBy, err := ordering.ParseOrderBy(orderRequest(raw))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "error.listing.invalid_order", "invalid order_by", err)
	}
	if err := orderBy.ValidateForPaths(allowed...); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "error.listing.invalid_order", "unsupported order_by field", err)
	}
	out := make([]storage.OrderField, 0, len(orderBy.Fields))
	for _, field := range orderBy.Fields {
		out = append(out, storage.OrderField{Field: field.Path, Desc: field.Desc})
	}
	return out, nil
}

// Page is a resolved page window.
type Page struct {
	Number  int
	PerPage int
}

// NewPage clamps number to 1.. and perPage to 1..100, defaulting to def.
func NewPage(number int, perPage int, def int) Page {
	if perPage <= 0 {
		perPage = def
	}
	return Page{Number: max(number, 1), PerPage: min(max(perPage, 1), 100)}
}

// Limit returns the page size.
func (p Page) Limit() int { return p.PerPage }

// Offset returns the number of rows to skip.
func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

// Pager describes navigation around one page of a result set.
type Pager struct {
	Number     int
	TotalPages int
	Total      int
}

// Paginate builds navigation for total rows.
func (p Page) Paginate(total int) Pager {
	pages := 1
	if total > 0 && p.PerPage > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return Pager{Number: p.Number, TotalPages: pages, Total: total}
}

// HasPrev reports whether an earlier page exists.
func (p Pager) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a later page exists.
func (p Pager) HasNext() bool { return p.Number < p.TotalPages }
