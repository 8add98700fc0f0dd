// Package orphans finds upload files that no stored document references
// and removes them.
package orphans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/louisbranch/folio/internal/services/site/markdown"
	"github.com/louisbranch/folio/internal/services/site/richtext"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DefaultGrace keeps freshly uploaded files that are not yet saved into a
// document.
const DefaultGrace = 24 * time.Hour

// LastScanKey is the settings key of the most recent scan report.
const LastScanKey = "orphans.last_scan"

const uploadPrefix = "/uploads/"

// Store is the persistence the scanner reads and prunes.
type Store interface {
	storage.ReferenceStore
	ListUploads(ctx context.Context, limit int, offset int) (storage.UploadPage, error)
	DeleteUploadsByPath(ctx context.Context, paths []string) (int64, error)
	GetSetting(ctx context.Context, key string) (storage.Setting, error)
	PutSetting(ctx context.Context, setting storage.Setting) error
}

// Files maps between public upload paths and files on disk.
type Files interface {
	Dir() string
	FilePath(publicPath string) (string, error)
	PublicPath(file string) (string, bool)
}

// Service scans and cleans the upload directory.
type Service struct {
	store  Store
	files  Files
	grace  time.Duration
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithGrace sets how old an unreferenced file must be to count as orphan.
func WithGrace(grace time.Duration) Option {
	return func(s *Service) {
		if grace >= 0 {
			s.grace = grace
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService builds an orphan scanner.
func NewService(store Store, files Files, opts ...Option) *Service {
	s := &Service{store: store, files: files, grace: DefaultGrace, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Grace returns how old an unreferenced file must be to be removed.
func (s *Service) Grace() time.Duration { return s.grace }

// File is one orphaned upload file.
type File struct {
	Path      string    `json:"path"`
	SizeBytes int64     `json:"sizeBytes"`
	ModTime   time.Time `json:"modTime"`
}

// Size is the humanised file size.
func (f File) Size() string { return humanize.Bytes(uint64(f.SizeBytes)) }

// Report is the result of one scan.
type Report struct {
	ScannedAt   time.Time `json:"scannedAt"`
	Files       int       `json:"files"`
	Referenced  int       `json:"referenced"`
	Recent      int       `json:"recent"`
	Orphans     []File    `json:"orphans"`
	OrphanBytes int64     `json:"orphanBytes"`
	MissingRows []string  `json:"missingRows"`
}

// OrphanSize is the humanised total orphan size.
func (r Report) OrphanSize() string { return humanize.Bytes(uint64(r.OrphanBytes)) }

// Clean is the result of removing a report's orphans.
type Clean struct {
	DryRun       bool
	DeletedFiles int
	DeletedRows  int64
	FreedBytes   int64
	PrunedDirs   int
	Skipped      []string
}

// FreedSize is the humanised number of bytes freed.
func (c Clean) FreedSize() string { return humanize.Bytes(uint64(c.FreedBytes)) }

// CollectReferences returns every upload path stored documents point at.
func (s *Service) CollectReferences(ctx context.Context) (map[string]struct{}, error) {
	sources, err := s.store.ListReferenceSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reference sources: %w", err)
	}
	refs := map[string]struct{}{}
	add := func(raw string) {
		if p, ok := uploadPath(raw); ok {
			refs[p] = struct{}{}
		}
	}
	for _, source := range sources {
		for _, p := range source.Paths {
			add(p)
		}
		switch source.Kind {
		case storage.ReferenceSetting:
			if source.ID == "theme" {
				add(gjson.Get(source.Body, "logoPath").String())
			}
			continue
		}
		switch source.Format {
		case storage.FormatMarkdown:
			for _, p := range markdown.ImageSources(source.Body) {
				add(p)
			}
		case storage.FormatRichText:
			for _, p := range richtext.ImageSources(source.Body) {
				add(p)
			}
		}
	}
	return refs, nil
}

// uploadPath normalises a reference to a public upload path. Absolute URLs
// count when their path is under /uploads/ so a document linking to the
// site by full URL still protects the file.
func uploadPath(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	p := parsed.Path
	if !strings.HasPrefix(p, uploadPrefix) {
		return "", false
	}
	return p, true
}

// Scan walks the upload directory and reports unreferenced files older
// than the grace period at now plus upload rows whose file is gone. The
// report is stored as the last scan.
func (s *Service) Scan(ctx context.Context, now time.Time) (Report, error) {
	now = now.UTC()
	refs, err := s.CollectReferences(ctx)
	if err != nil {
		return Report{}, err
	}
	report := Report{ScannedAt: now}
	root := s.files.Dir()
	err = filepath.WalkDir(root, func(file string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) && file == root {
				return fs.SkipAll
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && file != root {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		public, ok := s.files.PublicPath(file)
		if !ok {
			return nil
		}
		report.Files++
		if _, ok := refs[public]; ok {
			report.Referenced++
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if now.Sub(info.ModTime()) < s.grace {
			report.Recent++
			return nil
		}
		report.Orphans = append(report.Orphans, File{Path: public, SizeBytes: info.Size(), ModTime: info.ModTime().UTC()})
		report.OrphanBytes += info.Size()
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("walk uploads: %w", err)
	}

	rows, err := s.store.ListUploads(ctx, 0, 0)
	if err != nil {
		return Report{}, fmt.Errorf("list uploads: %w", err)
	}
	for _, row := range rows.Uploads {
		file, err := s.files.FilePath(row.Path)
		if err != nil {
			report.MissingRows = append(report.MissingRows, row.Path)
			continue
		}
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			report.MissingRows = append(report.MissingRows, row.Path)
		}
	}
	sort.Strings(report.MissingRows)

	if err := s.saveReport(ctx, report); err != nil {
		return Report{}, err
	}
	s.logger.Info("orphan scan finished",
		zap.Int("files", report.Files),
		zap.Int("orphans", len(report.Orphans)),
		zap.Int("missing_rows", len(report.MissingRows)),
		zap.String("orphan_size", report.OrphanSize()),
	)
	return report, nil
}

func (s *Service) saveReport(ctx context.Context, report Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal scan report: %w", err)
	}
	if err := s.store.PutSetting(ctx, storage.Setting{Key: LastScanKey, Value: string(raw), UpdatedAt: report.ScannedAt}); err != nil {
		return fmt.Errorf("store scan report: %w", err)
	}
	return nil
}

// LastScan returns the stored report of the most recent scan.
func (s *Service) LastScan(ctx context.Context) (Report, bool, error) {
	setting, err := s.store.GetSetting(ctx, LastScanKey)
	if errors.Is(err, storage.ErrNotFound) {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, err
	}
	var report Report
	if err := json.Unmarshal([]byte(setting.Value), &report); err != nil {
		return Report{}, false, fmt.Errorf("decode scan report: %w", err)
	}
	return report, true, nil
}

// Clean removes the report's orphan files and their upload rows plus the
// rows of missing files, then prunes empty directories. References are
// collected again first so a file used since the scan is kept. A dry run
// only counts.
func (s *Service) Clean(ctx context.Context, report Report, dryRun bool) (Clean, error) {
	refs, err := s.CollectReferences(ctx)
	if err != nil {
		return Clean{}, err
	}
	result := Clean{DryRun: dryRun}
	var rowPaths []string
	for _, orphan := range report.Orphans {
		if _, ok := refs[orphan.Path]; ok {
			result.Skipped = append(result.Skipped, orphan.Path)
			continue
		}
		file, err := s.files.FilePath(orphan.Path)
		if err != nil {
			result.Skipped = append(result.Skipped, orphan.Path)
			continue
		}
		info, err := os.Stat(file)
		if err != nil {
			result.Skipped = append(result.Skipped, orphan.Path)
			continue
		}
		if !dryRun {
			if err := os.Remove(file); err != nil {
				return result, fmt.Errorf("remove %s: %w", orphan.Path, err)
			}
		}
		result.DeletedFiles++
		result.FreedBytes += info.Size()
		rowPaths = append(rowPaths, orphan.Path)
	}
	rowPaths = append(rowPaths, report.MissingRows...)

	if dryRun {
		result.DeletedRows, err = s.countRows(ctx, rowPaths)
		return result, err
	}
	if len(rowPaths) > 0 {
		deleted, err := s.store.DeleteUploadsByPath(ctx, rowPaths)
		if err != nil {
			return result, fmt.Errorf("delete upload rows: %w", err)
		}
		result.DeletedRows = deleted
	}
	pruned, err := pruneEmptyDirs(s.files.Dir())
	if err != nil {
		return result, err
	}
	result.PrunedDirs = pruned
	s.logger.Info("orphan clean finished",
		zap.Int("deleted_files", result.DeletedFiles),
		zap.Int64("deleted_rows", result.DeletedRows),
		zap.String("freed", result.FreedSize()),
		zap.Int("pruned_dirs", result.PrunedDirs),
	)
	return result, nil
}

// pruneEmptyDirs removes empty directories below root, deepest first.
// countRows counts the upload rows a clean of paths would delete.
func (s *Service) countRows(ctx context.Context, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	want := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		want[p] = struct{}{}
	}
	rows, err := s.store.ListUploads(ctx, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("list uploads: %w", err)
	}
	var n int64
	for _, row := range rows.Uploads {
		if _, ok := want[row.Path]; ok {
			n++
		}
	}
	return n, nil
}

func pruneEmptyDirs(root string) (int, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() && file != root {
			dirs = append(dirs, file)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk uploads: %w", err)
	}
	pruned := 0
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dirs[i]); err == nil {
			pruned++
		}
	}
	return pruned, nil
}
