// Package content manages authored pages and articles and their signed
// draft previews.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/louisbranch/folio/internal/platform/id"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/domain/slug"
	"github.com/louisbranch/folio/internal/services/site/markdown"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/richtext"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"go.uber.org/zap"
)

// ExcerptLength is the rune length of derived excerpts.
const ExcerptLength = 160

// Publisher is told about public URLs that changed.
type Publisher interface {
	Enqueue(paths ...string)
}

// Service owns content rules.
type Service struct {
	store     storage.ContentStore
	publisher Publisher
	previews  *PreviewSigner
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the IndexNow publisher notified on publish.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithPreviewSigner enables draft preview links.
func WithPreviewSigner(signer *PreviewSigner) Option {
	return func(s *Service) { s.previews = signer }
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

// NewService builds a content service.
func NewService(store storage.ContentStore, opts ...Option) *Service {
	s := &Service{store: store, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EntryPath returns the public path of an entry.
func EntryPath(entrySlug string) string {
	return "/pages/" + entrySlug
}

// Rendered is an entry with its body rendered to HTML.
type Rendered struct {
	Entry storage.Entry
	HTML  string
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return apperrors.E(apperrors.KindUnavailable, "content store is not configured")
	}
	return nil
}

// ListPublished pages published entries newest first.
func (s *Service) ListPublished(ctx context.Context, page listing.Page) (storage.EntryPage, error) {
	if err := s.ready(); err != nil {
		return storage.EntryPage{}, err
	}
	return s.store.ListEntries(ctx, storage.EntryQuery{Status: storage.StatusPublished, Limit: page.Limit(), Offset: page.Offset()})
}

// ListAll pages entries of any status for admins.
func (s *Service) ListAll(ctx context.Context, status string, page listing.Page) (storage.EntryPage, error) {
	if err := s.ready(); err != nil {
		return storage.EntryPage{}, err
	}
	return s.store.ListEntries(ctx, storage.EntryQuery{Status: strings.TrimSpace(status), Limit: page.Limit(), Offset: page.Offset()})
}

// Get returns any entry by id.
func (s *Service) Get(ctx context.Context, entryID string) (storage.Entry, error) {
	if err := s.ready(); err != nil {
		return storage.Entry{}, err
	}
	entry, err := s.store.GetEntry(ctx, strings.TrimSpace(entryID))
	if err != nil {
		return storage.Entry{}, notFound(err)
	}
	return entry, nil
}

// GetPublished renders a published entry by slug.
func (s *Service) GetPublished(ctx context.Context, entrySlug string) (Rendered, error) {
	if err := s.ready(); err != nil {
		return Rendered{}, err
	}
	entry, err := s.store.GetEntryBySlug(ctx, strings.TrimSpace(entrySlug))
	if err != nil {
		return Rendered{}, notFound(err)
	}
	if entry.Status != storage.StatusPublished {
		return Rendered{}, apperrors.EK(apperrors.KindNotFound, "error.content.not_found", "entry not found")
	}
	return render(entry)
}

// RenderBody converts a stored body to HTML by format.
func RenderBody(format string, body string) (string, error) {
	switch format {
	case storage.FormatMarkdown:
		return markdown.Render(body)
	case storage.FormatRichText:
		doc, err := richtext.Parse(body)
		if err != nil {
			return "", err
		}
		return richtext.RenderHTML(doc), nil
	default:
		return "", fmt.Errorf("unknown body format %q", format)
	}
}

func render(entry storage.Entry) (Rendered, error) {
	html, err := RenderBody(entry.Format, entry.Body)
	if err != nil {
		return Rendered{}, fmt.Errorf("render entry %s: %w", entry.ID, err)
	}
	return Rendered{Entry: entry, HTML: html}, nil
}

// EntryInput is the entry form.
type EntryInput struct {
	ID        string
	Slug      string
	Title     string
	Format    string
	Body      string
	Excerpt   string
	CoverPath string
	AuthorID  string
}

// Save validates and stores an entry. Status and publish date are kept.
func (s *Service) Save(ctx context.Context, in EntryInput) (storage.Entry, error) {
	if err := s.ready(); err != nil {
		return storage.Entry{}, err
	}
	entry := storage.Entry{
		ID:        strings.TrimSpace(in.ID),
		Title:     strings.TrimSpace(in.Title),
		Format:    strings.TrimSpace(in.Format),
		Body:      in.Body,
		Excerpt:   strings.TrimSpace(in.Excerpt),
		CoverPath: strings.TrimSpace(in.CoverPath),
		AuthorID:  strings.TrimSpace(in.AuthorID),
		Status:    storage.StatusDraft,
	}
	if n := utf8.RuneCountInString(entry.Title); n < 1 || n > 160 {
		return storage.Entry{}, apperrors.EK(apperrors.KindInvalidInput, "error.content.invalid_title", "title must be 1-160 characters")
	}
	if entry.CoverPath != "" && !richtext.AllowedImageSrc(entry.CoverPath) {
		return storage.Entry{}, apperrors.EK(apperrors.KindInvalidInput, "error.content.invalid_cover", "cover must be an upload or http(s) URL")
	}
	plain, err := validateBody(entry.Format, entry.Body)
	if err != nil {
		return storage.Entry{}, err
	}
	if entry.Excerpt == "" {
		entry.Excerpt = plain
	}
	entry.Excerpt = richtext.Truncate(entry.Excerpt, ExcerptLength)

	now := s.now().UTC()
	entry.CreatedAt, entry.UpdatedAt = now, now
	oldSlug := ""
	if entry.ID == "" {
		newID, err := id.NewID()
		if err != nil {
			return storage.Entry{}, err
		}
		entry.ID = newID
	} else {
		existing, err := s.store.GetEntry(ctx, entry.ID)
		if err != nil {
			return storage.Entry{}, notFound(err)
		}
		entry.CreatedAt = existing.CreatedAt
		entry.Status = existing.Status
		entry.PublishedAt = existing.PublishedAt
		if existing.Status == storage.StatusPublished {
			oldSlug = existing.Slug
		}
		if entry.AuthorID == "" {
			entry.AuthorID = existing.AuthorID
		}
	}
	entrySlug, ok := slug.Resolve(in.Slug, entry.Title, "page-"+entry.ID[:8])
	if !ok {
		return storage.Entry{}, apperrors.EK(apperrors.KindInvalidInput, "error.slug.invalid", "slug must be lowercase letters, digits and dashes")
	}
	entry.Slug = entrySlug
	if err := s.store.PutEntry(ctx, entry); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return storage.Entry{}, apperrors.Wrap(apperrors.KindConflict, "error.slug.taken", "slug already used", err)
		}
		return storage.Entry{}, fmt.Errorf("put entry: %w", err)
	}
	if entry.Status == storage.StatusPublished {
		s.announce(entry.Slug)
	}
	if oldSlug != "" && oldSlug != entry.Slug {
		s.announce(oldSlug)
	}
	return entry, nil
}

// validateBody checks a body against its format and returns its plain text.
func validateBody(format string, body string) (string, error) {
	switch format {
	case storage.FormatMarkdown:
		if len(body) > markdown.MaxBodyBytes {
			return "", apperrors.EK(apperrors.KindInvalidInput, "error.content.body_too_large", "markdown body exceeds 200 KiB")
		}
		return richtext.PlainText(richtext.FromMarkdown(body), ExcerptLength), nil
	case storage.FormatRichText:
		doc, err := richtext.Parse(body)
		if err != nil {
			return "", apperrors.Wrap(apperrors.KindInvalidInput, "error.richtext.invalid", "body is not a valid document", err)
		}
		return richtext.PlainText(doc, ExcerptLength), nil
	default:
		return "", apperrors.EK(apperrors.KindInvalidInput, "error.content.invalid_format", "format must be markdown or richtext")
	}
}

// Publish makes an entry public. The first publish date is kept on
// republish.
func (s *Service) Publish(ctx context.Context, entryID string) (storage.Entry, error) {
	return s.setStatus(ctx, entryID, storage.StatusPublished)
}

// Unpublish returns an entry to draft.
func (s *Service) Unpublish(ctx context.Context, entryID string) (storage.Entry, error) {
	return s.setStatus(ctx, entryID, storage.StatusDraft)
}

func (s *Service) setStatus(ctx context.Context, entryID string, status string) (storage.Entry, error) {
	if err := s.ready(); err != nil {
		return storage.Entry{}, err
	}
	entry, err := s.store.GetEntry(ctx, strings.TrimSpace(entryID))
	if err != nil {
		return storage.Entry{}, notFound(err)
	}
	changed := entry.Status != status
	now := s.now().UTC()
	entry.Status = status
	entry.UpdatedAt = now
	if status == storage.StatusPublished && entry.PublishedAt == nil {
		entry.PublishedAt = &now
	}
	if err := s.store.PutEntry(ctx, entry); err != nil {
		return storage.Entry{}, fmt.Errorf("put entry: %w", err)
	}
	if changed {
		s.announce(entry.Slug)
		s.logger.Info("entry status changed", zap.String("entry_id", entry.ID), zap.String("status", status))
	}
	return entry, nil
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, entryID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	entry, err := s.store.GetEntry(ctx, strings.TrimSpace(entryID))
	if err != nil {
		return notFound(err)
	}
	if err := s.store.DeleteEntry(ctx, entry.ID); err != nil {
		return notFound(err)
	}
	if entry.Status == storage.StatusPublished {
		s.announce(entry.Slug)
	}
	return nil
}

// PreviewURL mints a signed preview path for an entry.
func (s *Service) PreviewURL(ctx context.Context, entryID string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	if s.previews == nil {
		return "", apperrors.EK(apperrors.KindUnavailable, "error.content.preview_disabled", "preview links are not configured")
	}
	entry, err := s.store.GetEntry(ctx, strings.TrimSpace(entryID))
	if err != nil {
		return "", notFound(err)
	}
	token, err := s.previews.Sign(entry.ID, s.now())
	if err != nil {
		return "", err
	}
	return "/preview/" + token, nil
}

// ResolvePreview renders the entry behind a preview token. Invalid or
// expired tokens are reported as not found.
func (s *Service) ResolvePreview(ctx context.Context, token string) (Rendered, error) {
	if err := s.ready(); err != nil {
		return Rendered{}, err
	}
	missing := apperrors.EK(apperrors.KindNotFound, "error.content.not_found", "preview not found")
	if s.previews == nil {
		return Rendered{}, missing
	}
	entryID, err := s.previews.Verify(token, s.now())
	if err != nil {
		return Rendered{}, missing
	}
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return Rendered{}, missing
	}
	return render(entry)
}

func (s *Service) announce(entrySlug string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Enqueue(EntryPath(entrySlug), "/pages/")
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.Wrap(apperrors.KindNotFound, "error.content.not_found", "entry not found", err)
	}
	return err
}
