package orphans

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/folio/internal/services/site/domain/uploads"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/storage/sqlite"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var scanTime = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *sqlite.Store
	files *uploads.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "folio.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	files := uploads.NewService(store, filepath.Join(t.TempDir(), "uploads"))
	svc := NewService(store, files)
	return fixture{svc: svc, store: store, files: files}
}

func (f fixture) writeFile(t *testing.T, public string, age time.Duration) {
	t.Helper()
	file, err := f.files.FilePath(public)
	if err != nil {
		t.Fatalf("file path %s: %v", public, err)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(file, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write %s: %v", public, err)
	}
	mod := scanTime.Add(-age)
	if err := os.Chtimes(file, mod, mod); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func (f fixture) seedReferences(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	at := scanTime.Add(-72 * time.Hour)
	if err := f.store.PutCategory(ctx, storage.Category{ID: "cat1", Slug: "cakes", Name: "Cakes", CreatedAt: at, UpdatedAt: at}); err != nil {
		t.Fatalf("put category: %v", err)
	}
	product := storage.Product{
		ID:            "prod1",
		Slug:          "shortcake",
		CategoryID:    "cat1",
		Name:          "Shortcake",
		Currency:      "KRW",
		Status:        storage.StatusPublished,
		ThumbnailPath: "/uploads/2026/01/thumb.png",
		Images:        []string{"/uploads/2026/01/a.png"},
		Description:   `{"root":{"type":"root","children":[{"type":"image","src":"/uploads/2026/01/desc.png"}]}}`,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	if err := f.store.PutProduct(ctx, product); err != nil {
		t.Fatalf("put product: %v", err)
	}
	entry := storage.Entry{
		ID:        "entry1",
		Slug:      "about",
		Title:     "About",
		Format:    storage.FormatMarkdown,
		Body:      "![](/uploads/2026/01/md.png)\n\n<p><img src=\"https://folio.example/uploads/2026/01/html.png\"></p>\n",
		Status:    storage.StatusDraft,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := f.store.PutEntry(ctx, entry); err != nil {
		t.Fatalf("put entry: %v", err)
	}
	if err := f.store.PutSetting(ctx, storage.Setting{Key: "theme", Value: `{"siteName":"Folio","logoPath":"/uploads/2026/01/logo.png"}`, UpdatedAt: at}); err != nil {
		t.Fatalf("put theme: %v", err)
	}
}

func TestCollectReferencesCoversEverySource(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seedReferences(t)

	refs, err := f.svc.CollectReferences(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, p := range []string{
		"/uploads/2026/01/thumb.png",
		"/uploads/2026/01/a.png",
		"/uploads/2026/01/desc.png",
		"/uploads/2026/01/md.png",
		"/uploads/2026/01/html.png",
		"/uploads/2026/01/logo.png",
	} {
		if _, ok := refs[p]; !ok {
			t.Fatalf("missing reference %s in %v", p, refs)
		}
	}
}

func TestScanAndClean(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seedReferences(t)
	ctx := context.Background()

	old := 48 * time.Hour
	f.writeFile(t, "/uploads/2026/01/a.png", old)
	f.writeFile(t, "/uploads/2026/01/logo.png", old)
	f.writeFile(t, "/uploads/2026/01/stale.png", old)
	f.writeFile(t, "/uploads/2025/12/lonely.png", old)
	f.writeFile(t, "/uploads/2026/02/fresh.png", time.Hour)
	for _, p := range []string{"/uploads/2026/01/stale.png", "/uploads/2026/01/gone.png"} {
		if err := f.store.PutUpload(ctx, storage.Upload{ID: filepath.Base(p), Path: p, ContentType: "image/png", CreatedAt: scanTime}); err != nil {
			t.Fatalf("put upload %s: %v", p, err)
		}
	}

	report, err := f.svc.Scan(ctx, scanTime)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var orphanPaths []string
	for _, o := range report.Orphans {
		orphanPaths = append(orphanPaths, o.Path)
	}
	if diff := cmp.Diff([]string{"/uploads/2025/12/lonely.png", "/uploads/2026/01/stale.png"}, orphanPaths); diff != "" {
		t.Fatalf("orphans mismatch (-want +got):\n%s", diff)
	}
	if report.Files != 5 || report.Referenced != 2 || report.Recent != 1 || report.OrphanBytes != 20 {
		t.Fatalf("report = %+v", report)
	}
	if diff := cmp.Diff([]string{"/uploads/2026/01/gone.png"}, report.MissingRows); diff != "" {
		t.Fatalf("missing rows mismatch (-want +got):\n%s", diff)
	}

	last, ok, err := f.svc.LastScan(ctx)
	if err != nil || !ok || len(last.Orphans) != 2 || !last.ScannedAt.Equal(scanTime) {
		t.Fatalf("last scan = %+v, %v, %v", last, ok, err)
	}

	dry, err := f.svc.Clean(ctx, report, true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if dry.DeletedFiles != 2 || dry.DeletedRows != 2 || !dry.DryRun {
		t.Fatalf("dry run = %+v", dry)
	}
	if file, _ := f.files.FilePath("/uploads/2026/01/stale.png"); !exists(file) {
		t.Fatal("dry run removed a file")
	}

	result, err := f.svc.Clean(ctx, report, false)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if result.DeletedFiles != 2 || result.DeletedRows != 2 || result.FreedBytes != 20 || result.PrunedDirs != 2 {
		t.Fatalf("clean = %+v", result)
	}
	for _, p := range []string{"/uploads/2026/01/stale.png", "/uploads/2025/12/lonely.png"} {
		if file, _ := f.files.FilePath(p); exists(file) {
			t.Fatalf("%s still exists", p)
		}
	}
	if file, _ := f.files.FilePath("/uploads/2026/01/a.png"); !exists(file) {
		t.Fatal("referenced file removed")
	}
	rows, err := f.store.ListUploads(ctx, 0, 0)
	if err != nil || rows.Total != 0 {
		t.Fatalf("upload rows = %+v, %v", rows, err)
	}
}

func TestCleanSkipsFilesReferencedSinceScan(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.writeFile(t, "/uploads/2026/01/logo.png", 48*time.Hour)

	report, err := f.svc.Scan(ctx, scanTime)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(report.Orphans) != 1 {
		t.Fatalf("orphans = %+v", report.Orphans)
	}
	f.seedReferences(t)
	result, err := f.svc.Clean(ctx, report, false)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if result.DeletedFiles != 0 || len(result.Skipped) != 1 {
		t.Fatalf("clean = %+v", result)
	}
}

func TestScanWithoutUploadDir(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	report, err := f.svc.Scan(context.Background(), scanTime)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if report.Files != 0 || len(report.Orphans) != 0 {
		t.Fatalf("report = %+v", report)
	}
}

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) PurgeExpiredSessions(context.Context, time.Time) (int64, error) {
	p.calls.Add(1)
	return 1, nil
}

func TestSweeperRunsUntilCancelled(t *testing.T) {
	t.Parallel()
	purger := &countingPurger{}
	sweeper := NewSweeper(nil, purger, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for purger.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if purger.calls.Load() < 2 {
		t.Fatalf("purge calls = %d, want >= 2", purger.calls.Load())
	}
}

func TestSweepUsesItsClockForGrace(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.writeFile(t, "/uploads/2026/01/old.png", 48*time.Hour)
	f.writeFile(t, "/uploads/2026/01/new.png", time.Hour)

	sweeper := NewSweeper(f.svc, nil, time.Hour, nil)
	sweeper.now = func() time.Time { return scanTime }
	sweeper.Sweep(context.Background())

	if file, _ := f.files.FilePath("/uploads/2026/01/old.png"); exists(file) {
		t.Fatal("old orphan survived the sweep")
	}
	if file, _ := f.files.FilePath("/uploads/2026/01/new.png"); !exists(file) {
		t.Fatal("file inside the grace period was removed")
	}
}

func TestDisabledSweeperBlocksUntilCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewSweeper(nil, nil, 0, nil).Run(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func exists(file string) bool {
	_, err := os.Stat(file)
	return err == nil
}
