package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/louisbranch/folio/internal/services/site/storage"
)

// GetSetting returns one settings document.
func (s *Store) GetSetting(ctx context.Context, key string) (storage.Setting, error) {
	if err := s.ready(); err != nil {
		return storage.Setting{}, err
	}
	var setting storage.Setting
	var updatedAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM settings WHERE key = ?`, strings.TrimSpace(key),
	).Scan(&setting.Key, &setting.Value, &updatedAt)
	if err != nil {
		return storage.Setting{}, fmt.Errorf("get setting: %w", translateError(err))
	}
	setting.UpdatedAt = fromMillis(updatedAt)
	return setting, nil
}

// PutSetting upserts one settings document.
func (s *Store) PutSetting(ctx context.Context, setting storage.Setting) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := putSetting(ctx, s.sqlDB, setting); err != nil {
		return err
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putSetting(ctx context.Context, exec execer, setting storage.Setting) error {
	key := strings.TrimSpace(setting.Key)
	if key == "" {
		return fmt.Errorf("setting key is required")
	}
	_, err := exec.ExecContext(ctx, `
INSERT INTO settings (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    updated_at = excluded.updated_at`,
		key, setting.Value, toMillis(setting.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put setting: %w", err)
	}
	return nil
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func scanMenuItem(row rowScanner) (storage.MenuItem, error) {
	var item storage.MenuItem
	var parentID sql.NullString
	var visible int
	if err := row.Scan(&item.ID, &item.Location, &item.Label, &item.URL, &parentID, &item.SortOrder, &visible); err != nil {
		return storage.MenuItem{}, err
	}
	item.ParentID = parentID.String
	item.Visible = visible != 0
	return item, nil
}

// ListMenuItems returns menu items ordered for display.
func (s *Store) ListMenuItems(ctx context.Context, location string) ([]storage.MenuItem, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, location, label, url, parent_id, sort_order, visible
FROM menu_items
WHERE (?1 = '' OR location = ?1)
ORDER BY location ASC, sort_order ASC, label ASC`, strings.TrimSpace(location))
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()
	var out []storage.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu items: %w", err)
	}
	return out, nil
}

// GetMenuItem returns one menu item.
func (s *Store) GetMenuItem(ctx context.Context, itemID string) (storage.MenuItem, error) {
	if err := s.ready(); err != nil {
		return storage.MenuItem{}, err
	}
	item, err := scanMenuItem(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, location, label, url, parent_id, sort_order, visible FROM menu_items WHERE id = ?`,
		strings.TrimSpace(itemID),
	))
	if err != nil {
		return storage.MenuItem{}, fmt.Errorf("get menu item: %w", translateError(err))
	}
	return item, nil
}

// PutMenuItem upserts one menu item.
func (s *Store) PutMenuItem(ctx context.Context, item storage.MenuItem) error {
	if err := s.ready(); err != nil {
		return err
	}
	return putMenuItem(ctx, s.sqlDB, item)
}

func putMenuItem(ctx context.Context, exec execer, item storage.MenuItem) error {
	_, err := exec.ExecContext(ctx, `
INSERT INTO menu_items (id, location, label, url, parent_id, sort_order, visible)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    location = excluded.location,
    label = excluded.label,
    url = excluded.url,
    parent_id = excluded.parent_id,
    sort_order = excluded.sort_order,
    visible = excluded.visible`,
		item.ID,
		item.Location,
		item.Label,
		item.URL,
		nullString(item.ParentID),
		item.SortOrder,
		boolInt(item.Visible),
	)
	if err != nil {
		return fmt.Errorf("put menu item: %w", translateError(err))
	}
	return nil
}

// DeleteMenuItem removes a menu item; children cascade.
func (s *Store) DeleteMenuItem(ctx context.Context, itemID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM menu_items WHERE id = ?`, strings.TrimSpace(itemID))
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	return requireAffected(result)
}

// ReorderMenuItems assigns sort order by slice position.
func (s *Store) ReorderMenuItems(ctx context.Context, itemIDs []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for position, itemID := range itemIDs {
			result, err := tx.ExecContext(ctx,
				`UPDATE menu_items SET sort_order = ? WHERE id = ?`, position, strings.TrimSpace(itemID),
			)
			if err != nil {
				return fmt.Errorf("reorder menu item: %w", err)
			}
			if err := requireAffected(result); err != nil {
				return fmt.Errorf("reorder menu item %q: %w", itemID, err)
			}
		}
		return nil
	})
}

// ReplaceSiteConfig swaps a settings document and the full menu set atomically.
func (s *Store) ReplaceSiteConfig(ctx context.Context, setting storage.Setting, items []storage.MenuItem) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := putSetting(ctx, tx, setting); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM menu_items`); err != nil {
			return fmt.Errorf("clear menu items: %w", err)
		}
		// Parents must exist before children reference them.
		for _, pass := range []bool{true, false} {
			for _, item := range items {
				if (strings.TrimSpace(item.ParentID) == "") != pass {
					continue
				}
				if err := putMenuItem(ctx, tx, item); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
