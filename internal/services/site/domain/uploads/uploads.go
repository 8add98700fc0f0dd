// Package uploads stores editor image uploads on disk and serves them back.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/louisbranch/folio/internal/platform/id"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"go.uber.org/zap"
)

// PublicPrefix is the URL prefix upload files are served under.
const PublicPrefix = "/uploads/"

// DefaultMaxBytes caps an upload when no limit is configured.
const DefaultMaxBytes = 10 << 20

const sniffLen = 512

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Service stores and lists uploads.
type Service struct {
	store    storage.UploadStore
	dir      string
	maxBytes int64
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMaxBytes caps upload size.
func WithMaxBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
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

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds an upload service rooted at dir.
func NewService(store storage.UploadStore, dir string, opts ...Option) *Service {
	s := &Service{
		store:    store,
		dir:      filepath.Clean(dir),
		maxBytes: DefaultMaxBytes,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the upload root directory.
func (s *Service) Dir() string { return s.dir }

// MaxBytes returns the upload size cap.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

func (s *Service) ready() error {
	if s == nil || s.store == nil || s.dir == "" || s.dir == "." {
		return apperrors.E(apperrors.KindUnavailable, "uploads are not configured")
	}
	return nil
}

// Save sniffs, size-checks and stores one image. The returned upload's
// Path is its public URL.
func (s *Service) Save(ctx context.Context, uploaderID string, filename string, r io.Reader) (storage.Upload, error) {
	if err := s.ready(); err != nil {
		return storage.Upload{}, err
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return storage.Upload{}, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return storage.Upload{}, apperrors.EK(apperrors.KindInvalidInput, "error.uploads.empty", "upload is empty")
	}
	contentType := http.DetectContentType(head)
	ext, ok := extensions[contentType]
	if !ok {
		return storage.Upload{}, apperrors.EK(apperrors.KindInvalidInput, "error.uploads.unsupported_type", "only jpeg, png, gif and webp images are accepted")
	}

	uploadID, err := id.NewID()
	if err != nil {
		return storage.Upload{}, err
	}
	now := s.now().UTC()
	rel := path.Join(now.Format("2006"), now.Format("01"), uploadID+ext)
	target := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return storage.Upload{}, fmt.Errorf("create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return storage.Upload{}, fmt.Errorf("create upload file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	body := io.MultiReader(bytes.NewReader(head), r)
	written, err := io.Copy(tmp, io.LimitReader(body, s.maxBytes+1))
	closeErr := tmp.Close()
	if err != nil {
		return storage.Upload{}, fmt.Errorf("write upload: %w", err)
	}
	if closeErr != nil {
		return storage.Upload{}, fmt.Errorf("close upload: %w", closeErr)
	}
	if written > s.maxBytes {
		return storage.Upload{}, apperrors.EK(apperrors.KindInvalidInput, "error.uploads.too_large",
			fmt.Sprintf("upload exceeds %s", humanize.IBytes(uint64(s.maxBytes))))
	}
	if err := os.Rename(tmpName, target); err != nil {
		return storage.Upload{}, fmt.Errorf("store upload: %w", err)
	}

	upload := storage.Upload{
		ID:           uploadID,
		Path:         PublicPrefix + rel,
		OriginalName: cleanName(filename),
		ContentType:  contentType,
		SizeBytes:    written,
		UploaderID:   strings.TrimSpace(uploaderID),
		CreatedAt:    now,
	}
	if err := s.store.PutUpload(ctx, upload); err != nil {
		_ = os.Remove(target)
		return storage.Upload{}, fmt.Errorf("record upload: %w", err)
	}
	s.logger.Info("upload stored",
		zap.String("path", upload.Path),
		zap.String("content_type", contentType),
		zap.Int64("size_bytes", written),
	)
	return upload, nil
}

func cleanName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	if len(name) > 200 {
		name = name[:200]
	}
	return name
}

// FilePath maps a public upload path to its file on disk. Paths that
// escape the upload root are rejected.
func (s *Service) FilePath(publicPath string) (string, error) {
	rel, ok := strings.CutPrefix(publicPath, PublicPrefix)
	if !ok || rel == "" || strings.Contains(rel, "\\") {
		return "", apperrors.EK(apperrors.KindNotFound, "error.uploads.not_found", "upload not found")
	}
	for _, part := range strings.Split(rel, "/") {
		if part == ".." || part == "." || part == "" || strings.HasPrefix(part, ".") {
			return "", apperrors.EK(apperrors.KindNotFound, "error.uploads.not_found", "upload not found")
		}
	}
	return filepath.Join(s.dir, filepath.FromSlash(rel)), nil
}

// PublicPath maps a file under the upload root to its public URL.
func (s *Service) PublicPath(file string) (string, bool) {
	rel, err := filepath.Rel(s.dir, file)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return PublicPrefix + filepath.ToSlash(rel), true
}

// Handler serves stored files. Mount it at PublicPrefix.
func (s *Service) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		file, err := s.FilePath(r.URL.Path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		f, err := os.Open(file)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// Listed is an upload with its human-readable size.
type Listed struct {
	storage.Upload
	Size string
}

// ListPage is one page of uploads for the admin listing.
type ListPage struct {
	Uploads   []Listed
	Total     int
	PageBytes string
}

// List pages uploads newest first.
func (s *Service) List(ctx context.Context, page listing.Page) (ListPage, error) {
	if err := s.ready(); err != nil {
		return ListPage{}, err
	}
	result, err := s.store.ListUploads(ctx, page.Limit(), page.Offset())
	if err != nil {
		return ListPage{}, err
	}
	out := ListPage{Total: result.Total}
	var total uint64
	for _, u := range result.Uploads {
		out.Uploads = append(out.Uploads, Listed{Upload: u, Size: humanize.Bytes(uint64(u.SizeBytes))})
		total += uint64(u.SizeBytes)
	}
	out.PageBytes = humanize.Bytes(total)
	return out, nil
}
