// Package catalog manages categories and products.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/louisbranch/folio/internal/platform/id"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/domain/slug"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/richtext"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"go.uber.org/zap"
)

// DefaultCurrency applies when a product names no currency.
const DefaultCurrency = "KRW"

// OrderFields are the order_by fields public listings accept.
var OrderFields = []string{"sort_order", "name", "price", "created_at"}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Publisher is told about public URLs that changed.
type Publisher interface {
	Enqueue(paths ...string)
}

// Service owns catalog rules.
type Service struct {
	store     storage.CatalogStore
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the IndexNow publisher notified on publish.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a catalog service.
func NewService(store storage.CatalogStore, opts ...Option) *Service {
	s := &Service{store: store, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProductPath returns the public path of a product.
func ProductPath(productSlug string) string {
	return "/products/" + productSlug
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return apperrors.E(apperrors.KindUnavailable, "catalog store is not configured")
	}
	return nil
}

// ListCategories returns every category with product counts.
func (s *Service) ListCategories(ctx context.Context) ([]storage.Category, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListCategories(ctx)
}

// ListPublished pages published products, optionally within a category.
func (s *Service) ListPublished(ctx context.Context, categorySlug string, orderBy string, page listing.Page) (storage.ProductPage, error) {
	if err := s.ready(); err != nil {
		return storage.ProductPage{}, err
	}
	order, err := listing.ParseOrder(orderBy, OrderFields...)
	if err != nil {
		return storage.ProductPage{}, err
	}
	categorySlug = strings.TrimSpace(categorySlug)
	if categorySlug != "" {
		if _, err := s.store.GetCategoryBySlug(ctx, categorySlug); err != nil {
			return storage.ProductPage{}, notFound(err, "error.catalog.category_not_found")
		}
	}
	return s.store.ListProducts(ctx, storage.ProductQuery{
		CategorySlug: categorySlug,
		Status:       storage.StatusPublished,
		OrderBy:      order,
		Limit:        page.Limit(),
		Offset:       page.Offset(),
	})
}

// ListAll pages products of any status for admins.
func (s *Service) ListAll(ctx context.Context, status string, page listing.Page) (storage.ProductPage, error) {
	if err := s.ready(); err != nil {
		return storage.ProductPage{}, err
	}
	return s.store.ListProducts(ctx, storage.ProductQuery{
		Status:  strings.TrimSpace(status),
		OrderBy: []storage.OrderField{{Field: "created_at", Desc: true}},
		Limit:   page.Limit(),
		Offset:  page.Offset(),
	})
}

// GetPublished returns a published product by slug. Drafts are not found.
func (s *Service) GetPublished(ctx context.Context, productSlug string) (storage.Product, error) {
	if err := s.ready(); err != nil {
		return storage.Product{}, err
	}
	product, err := s.store.GetProductBySlug(ctx, strings.TrimSpace(productSlug))
	if err != nil {
		return storage.Product{}, notFound(err, "error.catalog.product_not_found")
	}
	if product.Status != storage.StatusPublished {
		return storage.Product{}, apperrors.EK(apperrors.KindNotFound, "error.catalog.product_not_found", "product not found")
	}
	return product, nil
}

// GetPublishedOrDraft returns a product by slug regardless of status.
func (s *Service) GetPublishedOrDraft(ctx context.Context, productSlug string) (storage.Product, error) {
	if err := s.ready(); err != nil {
		return storage.Product{}, err
	}
	product, err := s.store.GetProductBySlug(ctx, strings.TrimSpace(productSlug))
	if err != nil {
		return storage.Product{}, notFound(err, "error.catalog.product_not_found")
	}
	return product, nil
}

// GetProduct returns any product by id.
func (s *Service) GetProduct(ctx context.Context, productID string) (storage.Product, error) {
	if err := s.ready(); err != nil {
		return storage.Product{}, err
	}
	product, err := s.store.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return storage.Product{}, notFound(err, "error.catalog.product_not_found")
	}
	return product, nil
}

// GetCategory returns one category by id.
func (s *Service) GetCategory(ctx context.Context, categoryID string) (storage.Category, error) {
	if err := s.ready(); err != nil {
		return storage.Category{}, err
	}
	category, err := s.store.GetCategory(ctx, strings.TrimSpace(categoryID))
	if err != nil {
		return storage.Category{}, notFound(err, "error.catalog.category_not_found")
	}
	return category, nil
}

// CategoryInput is the category form.
type CategoryInput struct {
	ID          string
	Slug        string
	Name        string
	Description string
	SortOrder   int
}

// SaveCategory creates or updates a category.
func (s *Service) SaveCategory(ctx context.Context, in CategoryInput) (storage.Category, error) {
	if err := s.ready(); err != nil {
		return storage.Category{}, err
	}
	name := strings.TrimSpace(in.Name)
	if n := utf8.RuneCountInString(name); n < 1 || n > 80 {
		return storage.Category{}, apperrors.EK(apperrors.KindInvalidInput, "error.catalog.invalid_name", "name must be 1-80 characters")
	}
	now := s.now().UTC()
	category := storage.Category{
		ID:          strings.TrimSpace(in.ID),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		SortOrder:   in.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if category.ID == "" {
		newID, err := id.NewID()
		if err != nil {
			return storage.Category{}, err
		}
		category.ID = newID
	} else {
		existing, err := s.store.GetCategory(ctx, category.ID)
		if err != nil {
			return storage.Category{}, notFound(err, "error.catalog.category_not_found")
		}
		category.CreatedAt = existing.CreatedAt
	}
	categorySlug, ok := slug.Resolve(in.Slug, name, "category-"+category.ID[:8])
	if !ok {
		return storage.Category{}, apperrors.EK(apperrors.KindInvalidInput, "error.slug.invalid", "slug must be lowercase letters, digits and dashes")
	}
	category.Slug = categorySlug
	if err := s.store.PutCategory(ctx, category); err != nil {
		return storage.Category{}, conflict(err, "error.slug.taken")
	}
	return category, nil
}

// DeleteCategory removes an empty category.
func (s *Service) DeleteCategory(ctx context.Context, categoryID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.store.DeleteCategory(ctx, strings.TrimSpace(categoryID))
	switch {
	case errors.Is(err, storage.ErrConflict):
		return apperrors.Wrap(apperrors.KindConflict, "error.catalog.category_in_use", "category still has products", err)
	case err != nil:
		return notFound(err, "error.catalog.category_not_found")
	}
	return nil
}

// ProductInput is the product form.
type ProductInput struct {
	ID            string
	Slug          string
	CategoryID    string
	Name          string
	Summary       string
	Description   string
	PriceCents    int64
	Currency      string
	ThumbnailPath string
	Images        []string
	Status        string
	SortOrder     int
}

// SaveProduct validates and stores a product, replacing its images.
func (s *Service) SaveProduct(ctx context.Context, in ProductInput) (storage.Product, error) {
	if err := s.ready(); err != nil {
		return storage.Product{}, err
	}
	product, err := s.normalizeProduct(in)
	if err != nil {
		return storage.Product{}, err
	}
	if _, err := s.store.GetCategory(ctx, product.CategoryID); err != nil {
		return storage.Product{}, notFound(err, "error.catalog.category_not_found")
	}

	now := s.now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now
	wasPublished, oldSlug := false, ""
	if product.ID == "" {
		newID, err := id.NewID()
		if err != nil {
			return storage.Product{}, err
		}
		product.ID = newID
	} else {
		existing, err := s.store.GetProduct(ctx, product.ID)
		if err != nil {
			return storage.Product{}, notFound(err, "error.catalog.product_not_found")
		}
		product.CreatedAt = existing.CreatedAt
		wasPublished = existing.Status == storage.StatusPublished
		if wasPublished && existing.Slug != "" {
			oldSlug = existing.Slug
		}
	}
	productSlug, ok := slug.Resolve(in.Slug, product.Name, "product-"+product.ID[:8])
	if !ok {
		return storage.Product{}, apperrors.EK(apperrors.KindInvalidInput, "error.slug.invalid", "slug must be lowercase letters, digits and dashes")
	}
	product.Slug = productSlug

	if err := s.store.PutProduct(ctx, product); err != nil {
		return storage.Product{}, conflict(err, "error.slug.taken")
	}
	if product.Status == storage.StatusPublished || wasPublished {
		s.announce(product.Slug)
	}
	if oldSlug != "" && oldSlug != product.Slug {
		s.announce(oldSlug)
	}
	return product, nil
}

func (s *Service) normalizeProduct(in ProductInput) (storage.Product, error) {
	product := storage.Product{
		ID:            strings.TrimSpace(in.ID),
		CategoryID:    strings.TrimSpace(in.CategoryID),
		Name:          strings.TrimSpace(in.Name),
		Summary:       strings.TrimSpace(in.Summary),
		Description:   strings.TrimSpace(in.Description),
		PriceCents:    in.PriceCents,
		Currency:      strings.ToUpper(strings.TrimSpace(in.Currency)),
		ThumbnailPath: strings.TrimSpace(in.ThumbnailPath),
		Status:        strings.TrimSpace(in.Status),
		SortOrder:     in.SortOrder,
	}
	if n := utf8.RuneCountInString(product.Name); n < 1 || n > 120 {
		return product, apperrors.EK(apperrors.KindInvalidInput, "error.catalog.invalid_name", "name must be 1-120 characters")
	}
	if utf8.RuneCountInString(product.Summary) > 300 {
		return product, apperrors.EK(apperrors.KindInvalidInput, "error.catalog.invalid_summary", "summary must be at most 300 characters")
	}
	if product.PriceCents < 0 {
		return product, apperrors.EK(apperrors.KindInvalidInput, "error.catalog.invalid_price", "price cannot be negative")
	}
	if product.Currency == "" {
		product.Currency = DefaultCurrency
	}
	if !currencyPattern.MatchString(product.Currency) {
		return product, apperrors.EK(apperrors.KindInvalidInput, "error.catalog.invalid_currency", "currency must be a 3-letter code")
	}
	switch product.Status {
	case "":
		product.Status = storage.StatusDraft
	case storage.StatusDraft, storage.StatusPublished:
	default:
		return product, apperrors.EK(apperrors.KindInvalidInput, "error.catalog.invalid_status", "unknown status")
	}
	if product.Description != "" {
		if _, err := richtext.Parse(product.Description); err != nil {
			return product, apperrors.Wrap(apperrors.KindInvalidInput, "error.richtext.invalid", "description is not a valid document", err)
		}
	}
	if product.ThumbnailPath != "" && !richtext.AllowedImageSrc(product.ThumbnailPath) {
		return product, apperrors.EK(apperrors.KindInvalidInput, "error.catalog.invalid_image", "thumbnail must be an upload or http(s) URL")
	}
	for _, image := range in.Images {
		image = strings.TrimSpace(image)
		if image == "" {
			continue
		}
		if !richtext.AllowedImageSrc(image) {
			return product, apperrors.EK(apperrors.KindInvalidInput, "error.catalog.invalid_image", "images must be uploads or http(s) URLs")
		}
		product.Images = append(product.Images, image)
	}
	return product, nil
}

// SetStatus publishes or unpublishes a product.
func (s *Service) SetStatus(ctx context.Context, productID string, status string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if status != storage.StatusDraft && status != storage.StatusPublished {
		return apperrors.EK(apperrors.KindInvalidInput, "error.catalog.invalid_status", "unknown status")
	}
	product, err := s.store.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return notFound(err, "error.catalog.product_not_found")
	}
	if err := s.store.SetProductStatus(ctx, product.ID, status, s.now().UTC()); err != nil {
		return notFound(err, "error.catalog.product_not_found")
	}
	if status != product.Status {
		s.announce(product.Slug)
	}
	return nil
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, productID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	product, err := s.store.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return notFound(err, "error.catalog.product_not_found")
	}
	if err := s.store.DeleteProduct(ctx, product.ID); err != nil {
		return notFound(err, "error.catalog.product_not_found")
	}
	if product.Status == storage.StatusPublished {
		s.announce(product.Slug)
	}
	return nil
}

func (s *Service) announce(productSlug string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Enqueue(ProductPath(productSlug))
}

func notFound(err error, key string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.Wrap(apperrors.KindNotFound, key, "not found", err)
	}
	return err
}

func conflict(err error, key string) error {
	if errors.Is(err, storage.ErrConflict) {
		return apperrors.Wrap(apperrors.KindConflict, key, "already exists", err)
	}
	return fmt.Errorf("save: %w", err)
}
