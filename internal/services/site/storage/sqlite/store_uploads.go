package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/folio/internal/services/site/storage"
)

// PutUpload records a stored upload file.
func (s *Store) PutUpload(ctx context.Context, upload storage.Upload) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO uploads (id, path, original_name, content_type, size_bytes, uploader_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		upload.ID,
		upload.Path,
		upload.OriginalName,
		upload.ContentType,
		upload.SizeBytes,
		upload.UploaderID,
		toMillis(upload.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put upload: %w", translateError(err))
	}
	return nil
}

func scanUpload(row rowScanner) (storage.Upload, error) {
	var u storage.Upload
	var createdAt int64
	if err := row.Scan(&u.ID, &u.Path, &u.OriginalName, &u.ContentType, &u.SizeBytes, &u.UploaderID, &createdAt); err != nil {
		return storage.Upload{}, err
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

// GetUploadByPath returns the upload stored at a public path.
func (s *Store) GetUploadByPath(ctx context.Context, path string) (storage.Upload, error) {
	if err := s.ready(); err != nil {
		return storage.Upload{}, err
	}
	u, err := scanUpload(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, path, original_name, content_type, size_bytes, uploader_id, created_at FROM uploads WHERE path = ?`,
		strings.TrimSpace(path),
	))
	if err != nil {
		return storage.Upload{}, fmt.Errorf("get upload: %w", translateError(err))
	}
	return u, nil
}

// ListUploads returns uploads newest first.
func (s *Store) ListUploads(ctx context.Context, limit int, offset int) (storage.UploadPage, error) {
	if err := s.ready(); err != nil {
		return storage.UploadPage{}, err
	}
	var page storage.UploadPage
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM uploads`).Scan(&page.Total); err != nil {
		return storage.UploadPage{}, fmt.Errorf("count uploads: %w", err)
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, path, original_name, content_type, size_bytes, uploader_id, created_at
FROM uploads
ORDER BY created_at DESC, id ASC
LIMIT ? OFFSET ?`, limitArg(limit), offsetArg(offset))
	if err != nil {
		return storage.UploadPage{}, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return storage.UploadPage{}, fmt.Errorf("scan upload: %w", err)
		}
		page.Uploads = append(page.Uploads, u)
	}
	if err := rows.Err(); err != nil {
		return storage.UploadPage{}, fmt.Errorf("iterate uploads: %w", err)
	}
	return page, nil
}

// DeleteUploadsByPath removes upload rows for the given public paths.
func (s *Store) DeleteUploadsByPath(ctx context.Context, paths []string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var deleted int64
	for _, path := range paths {
		result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM uploads WHERE path = ?`, strings.TrimSpace(path))
		if err != nil {
			return deleted, fmt.Errorf("delete upload: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return deleted, err
		}
		deleted += affected
	}
	return deleted, nil
}

// ListReferenceSources returns every stored document that can reference
// upload files: products, entries, posts and settings documents.
func (s *Store) ListReferenceSources(ctx context.Context) ([]storage.ReferenceSource, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var out []storage.ReferenceSource

	products, err := s.ListProducts(ctx, storage.ProductQuery{})
	if err != nil {
		return nil, err
	}
	for _, p := range products.Products {
		paths := append([]string{}, p.Images...)
		if p.ThumbnailPath != "" {
			paths = append(paths, p.ThumbnailPath)
		}
		out = append(out, storage.ReferenceSource{
			Kind:   storage.ReferenceProduct,
			ID:     p.ID,
			Format: storage.FormatRichText,
			Body:   p.Description,
			Paths:  paths,
		})
	}

	entries, err := s.ListEntries(ctx, storage.EntryQuery{})
	if err != nil {
		return nil, err
	}
	for _, e := range entries.Entries {
		source := storage.ReferenceSource{
			Kind:   storage.ReferenceEntry,
			ID:     e.ID,
			Format: e.Format,
			Body:   e.Body,
		}
		if e.CoverPath != "" {
			source.Paths = []string{e.CoverPath}
		}
		out = append(out, source)
	}

	// Soft-deleted posts keep their files until the post row is purged.
	posts, err := s.ListPosts(ctx, storage.PostQuery{IncludeDeleted: true})
	if err != nil {
		return nil, err
	}
	for _, p := range posts.Posts {
		out = append(out, storage.ReferenceSource{
			Kind:   storage.ReferencePost,
			ID:     p.ID,
			Format: storage.FormatRichText,
			Body:   p.Body,
		})
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out = append(out, storage.ReferenceSource{
			Kind:   storage.ReferenceSetting,
			ID:     key,
			Format: "json",
			Body:   value,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}

// PutSubmission appends one IndexNow submission log row.
func (s *Store) PutSubmission(ctx context.Context, submission storage.Submission) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO indexnow_submissions (id, host, url_count, status_code, attempts, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		submission.ID,
		submission.Host,
		submission.URLCount,
		submission.StatusCode,
		submission.Attempts,
		submission.Error,
		toMillis(submission.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put submission: %w", translateError(err))
	}
	return nil
}

// ListSubmissions returns the most recent submissions first.
func (s *Store) ListSubmissions(ctx context.Context, limit int) ([]storage.Submission, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, host, url_count, status_code, attempts, error, created_at
FROM indexnow_submissions
ORDER BY created_at DESC, id ASC
LIMIT ?`, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()
	var out []storage.Submission
	for rows.Next() {
		var sub storage.Submission
		var createdAt int64
		if err := rows.Scan(&sub.ID, &sub.Host, &sub.URLCount, &sub.StatusCode, &sub.Attempts, &sub.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.CreatedAt = fromMillis(createdAt)
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}
