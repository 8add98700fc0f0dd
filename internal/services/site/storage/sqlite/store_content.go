package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/louisbranch/folio/internal/services/site/storage"
)

const entryColumns = `id, slug, title, format, body, excerpt, cover_path, status, published_at, author_id, created_at, updated_at`

func scanEntry(row rowScanner) (storage.Entry, error) {
	var e storage.Entry
	var publishedAt sql.NullInt64
	var createdAt, updatedAt int64
	if err := row.Scan(
		&e.ID,
		&e.Slug,
		&e.Title,
		&e.Format,
		&e.Body,
		&e.Excerpt,
		&e.CoverPath,
		&e.Status,
		&publishedAt,
		&e.AuthorID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.Entry{}, err
	}
	e.PublishedAt = timePtr(publishedAt)
	e.CreatedAt = fromMillis(createdAt)
	e.UpdatedAt = fromMillis(updatedAt)
	return e, nil
}

// ListEntries returns entries newest first. Published entries order by
// publication time, everything else by last update.
func (s *Store) ListEntries(ctx context.Context, query storage.EntryQuery) (storage.EntryPage, error) {
	if err := s.ready(); err != nil {
		return storage.EntryPage{}, err
	}
	status := strings.TrimSpace(query.Status)
	var page storage.EntryPage
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE (?1 = '' OR status = ?1)`, status,
	).Scan(&page.Total); err != nil {
		return storage.EntryPage{}, fmt.Errorf("count entries: %w", err)
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+entryColumns+`
FROM entries
WHERE (?1 = '' OR status = ?1)
ORDER BY COALESCE(published_at, updated_at) DESC, id ASC
LIMIT ?2 OFFSET ?3`,
		status, limitArg(query.Limit), offsetArg(query.Offset),
	)
	if err != nil {
		return storage.EntryPage{}, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return storage.EntryPage{}, fmt.Errorf("scan entry: %w", err)
		}
		page.Entries = append(page.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return storage.EntryPage{}, fmt.Errorf("iterate entries: %w", err)
	}
	return page, nil
}

// GetEntry returns an entry by id.
func (s *Store) GetEntry(ctx context.Context, entryID string) (storage.Entry, error) {
	if err := s.ready(); err != nil {
		return storage.Entry{}, err
	}
	e, err := scanEntry(s.sqlDB.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, strings.TrimSpace(entryID)))
	if err != nil {
		return storage.Entry{}, fmt.Errorf("get entry: %w", translateError(err))
	}
	return e, nil
}

// GetEntryBySlug returns an entry by slug.
func (s *Store) GetEntryBySlug(ctx context.Context, slug string) (storage.Entry, error) {
	if err := s.ready(); err != nil {
		return storage.Entry{}, err
	}
	e, err := scanEntry(s.sqlDB.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE slug = ?`, strings.TrimSpace(slug)))
	if err != nil {
		return storage.Entry{}, fmt.Errorf("get entry by slug: %w", translateError(err))
	}
	return e, nil
}

// PutEntry upserts an entry.
func (s *Store) PutEntry(ctx context.Context, entry storage.Entry) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO entries (`+entryColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    slug = excluded.slug,
    title = excluded.title,
    format = excluded.format,
    body = excluded.body,
    excerpt = excluded.excerpt,
    cover_path = excluded.cover_path,
    status = excluded.status,
    published_at = excluded.published_at,
    updated_at = excluded.updated_at`,
		entry.ID,
		entry.Slug,
		entry.Title,
		entry.Format,
		entry.Body,
		entry.Excerpt,
		entry.CoverPath,
		entry.Status,
		nullMillis(entry.PublishedAt),
		entry.AuthorID,
		toMillis(entry.CreatedAt),
		toMillis(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put entry: %w", translateError(err))
	}
	return nil
}

// DeleteEntry removes an entry.
func (s *Store) DeleteEntry(ctx context.Context, entryID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, strings.TrimSpace(entryID))
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireAffected(result)
}
