package content

import (
	"context"
	"path/filepath"
	"strings"
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

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, opts ...Option) (*Service, *recordingPublisher, *fakeClock) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "folio.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	pub := &recordingPublisher{}
	clock := &fakeClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithPublisher(pub), WithClock(clock.Now)}, opts...)
	return NewService(store, opts...), pub, clock
}

func TestSaveValidatesBodyByFormat(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   EntryInput
		key  string
	}{
		{name: "blank title", in: EntryInput{Format: storage.FormatMarkdown}, key: "error.content.invalid_title"},
		{name: "unknown format", in: EntryInput{Title: "About", Format: "html"}, key: "error.content.invalid_format"},
		{name: "bad document", in: EntryInput{Title: "About", Format: storage.FormatRichText, Body: "{"}, key: "error.richtext.invalid"},
		{name: "huge markdown", in: EntryInput{Title: "About", Format: storage.FormatMarkdown, Body: strings.Repeat("a", 200<<10+1)}, key: "error.content.body_too_large"},
		{name: "bad cover", in: EntryInput{Title: "About", Format: storage.FormatMarkdown, CoverPath: "/etc/passwd"}, key: "error.content.invalid_cover"},
	}
	for _, tc := range cases {
		if _, err := svc.Save(ctx, tc.in); apperrors.LocalizationKey(err) != tc.key {
			t.Fatalf("%s: err = %v, want key %s", tc.name, err, tc.key)
		}
	}
}

func TestSaveDerivesSlugAndExcerpt(t *testing.T) {
	t.Parallel()
	svc, pub, _ := newTestService(t)
	ctx := context.Background()

	body := "# Our Story\n\n" + strings.Repeat("word ", 60)
	entry, err := svc.Save(ctx, EntryInput{Title: "Our Story", Format: storage.FormatMarkdown, Body: body})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if entry.Slug != "our-story" {
		t.Fatalf("slug = %q, want our-story", entry.Slug)
	}
	if entry.Status != storage.StatusDraft {
		t.Fatalf("status = %q, want draft", entry.Status)
	}
	if n := len([]rune(entry.Excerpt)); n == 0 || n > ExcerptLength+1 {
		t.Fatalf("excerpt length = %d", n)
	}
	if !strings.HasPrefix(entry.Excerpt, "Our Story") {
		t.Fatalf("excerpt = %q, want plain text of body", entry.Excerpt)
	}
	if len(pub.paths) != 0 {
		t.Fatalf("drafts must not be announced: %v", pub.paths)
	}

	if _, err := svc.Save(ctx, EntryInput{Title: "Our Story", Format: storage.FormatMarkdown}); !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("duplicate slug err = %v, want conflict", err)
	}
}

func TestPublishKeepsFirstPublishDate(t *testing.T) {
	t.Parallel()
	svc, pub, clock := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Save(ctx, EntryInput{Title: "Hours", Format: storage.FormatMarkdown, Body: "Open daily."})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.GetPublished(ctx, "hours"); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("draft lookup err = %v, want not found", err)
	}

	first, err := svc.Publish(ctx, entry.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if first.PublishedAt == nil {
		t.Fatal("expected publish date")
	}
	clock.Advance(time.Hour)
	if _, err := svc.Unpublish(ctx, entry.ID); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	clock.Advance(time.Hour)
	again, err := svc.Publish(ctx, entry.ID)
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	if !again.PublishedAt.Equal(*first.PublishedAt) {
		t.Fatalf("published at = %v, want %v", again.PublishedAt, first.PublishedAt)
	}

	rendered, err := svc.GetPublished(ctx, "hours")
	if err != nil {
		t.Fatalf("get published: %v", err)
	}
	if !strings.Contains(rendered.HTML, "<p>Open daily.</p>") {
		t.Fatalf("html = %q", rendered.HTML)
	}
	want := []string{"/pages/hours", "/pages/", "/pages/hours", "/pages/", "/pages/hours", "/pages/"}
	if diff := cmp.Diff(want, pub.paths); diff != "" {
		t.Fatalf("announced paths mismatch (-want +got):\n%s", diff)
	}

	page, err := svc.ListPublished(ctx, listing.NewPage(1, 10, 10))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Entries[0].ID != entry.ID {
		t.Fatalf("published page = %+v", page)
	}
}

func TestRenamingPublishedEntryAnnouncesOldURL(t *testing.T) {
	t.Parallel()
	svc, pub, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Save(ctx, EntryInput{Title: "Hours", Format: storage.FormatMarkdown, Body: "Open daily."})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.Publish(ctx, entry.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	pub.paths = nil
	if _, err := svc.Save(ctx, EntryInput{ID: entry.ID, Slug: "opening-hours", Title: "Hours", Format: storage.FormatMarkdown, Body: "Open daily."}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	want := []string{"/pages/opening-hours", "/pages/", "/pages/hours", "/pages/"}
	if diff := cmp.Diff(want, pub.paths); diff != "" {
		t.Fatalf("announced paths mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderBodyRichText(t *testing.T) {
	t.Parallel()
	body := `{"root":{"type":"root","children":[{"type":"paragraph","children":[{"type":"text","text":"Hi <b>","format":1}]}]}}`
	html, err := RenderBody(storage.FormatRichText, body)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "<strong>Hi &lt;b&gt;</strong>") {
		t.Fatalf("html = %q", html)
	}
}

func TestPreviewLinks(t *testing.T) {
	t.Parallel()
	svc, _, clock := newTestService(t, WithPreviewSigner(NewPreviewSigner("s3cret")))
	ctx := context.Background()

	entry, err := svc.Save(ctx, EntryInput{Title: "Draft", Format: storage.FormatMarkdown, Body: "*soon*"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	url, err := svc.PreviewURL(ctx, entry.ID)
	if err != nil {
		t.Fatalf("preview url: %v", err)
	}
	token := strings.TrimPrefix(url, "/preview/")
	rendered, err := svc.ResolvePreview(ctx, token)
	if err != nil {
		t.Fatalf("resolve preview: %v", err)
	}
	if rendered.Entry.ID != entry.ID || !strings.Contains(rendered.HTML, "<em>soon</em>") {
		t.Fatalf("preview = %+v", rendered)
	}

	if _, err := svc.ResolvePreview(ctx, token+"x"); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("tampered token err = %v, want not found", err)
	}
	clock.Advance(PreviewTTL + time.Minute)
	if _, err := svc.ResolvePreview(ctx, token); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expired token err = %v, want not found", err)
	}
}

func TestPreviewDisabledWithoutSecret(t *testing.T) {
	t.Parallel()
	if NewPreviewSigner("  ") != nil {
		t.Fatal("blank secret must disable previews")
	}
	svc, _, _ := newTestService(t)
	entry, err := svc.Save(context.Background(), EntryInput{Title: "Draft", Format: storage.FormatMarkdown})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.PreviewURL(context.Background(), entry.ID); !apperrors.IsKind(err, apperrors.KindUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
}

func TestPreviewSignerRejectsOtherSecret(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	token, err := NewPreviewSigner("a").Sign("e1", now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewPreviewSigner("b").Verify(token, now); err == nil {
		t.Fatal("expected signature error")
	}
	got, err := NewPreviewSigner("a").Verify(token, now.Add(time.Hour))
	if err != nil || got != "e1" {
		t.Fatalf("verify = %q, %v", got, err)
	}
}
