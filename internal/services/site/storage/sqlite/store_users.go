package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/folio/internal/services/site/storage"
)

const userColumns = `id, email, username, display_name, password_hash, role, status, created_at, updated_at, approved_at, approved_by`

func scanUser(row rowScanner) (storage.User, error) {
	var u storage.User
	var createdAt, updatedAt int64
	var approvedAt sql.NullInt64
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.DisplayName,
		&u.PasswordHash,
		&u.Role,
		&u.Status,
		&createdAt,
		&updatedAt,
		&approvedAt,
		&u.ApprovedBy,
	); err != nil {
		return storage.User{}, err
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	u.ApprovedAt = timePtr(approvedAt)
	return u, nil
}

// CreateUser inserts a user, applying bootstrap when the table is empty.
func (s *Store) CreateUser(ctx context.Context, u storage.User, bootstrap func(storage.User) storage.User) (storage.User, error) {
	if err := s.ready(); err != nil {
		return storage.User{}, err
	}
	if strings.TrimSpace(u.ID) == "" {
		return storage.User{}, fmt.Errorf("user id is required")
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if count == 0 && bootstrap != nil {
			u = bootstrap(u)
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO users (`+userColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			u.ID,
			u.Email,
			u.Username,
			u.DisplayName,
			u.PasswordHash,
			u.Role,
			u.Status,
			toMillis(u.CreatedAt),
			toMillis(u.UpdatedAt),
			nullMillis(u.ApprovedAt),
			u.ApprovedBy,
		)
		if err != nil {
			return fmt.Errorf("insert user: %w", translateError(err))
		}
		return nil
	})
	if err != nil {
		return storage.User{}, err
	}
	return u, nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (storage.User, error) {
	if err := s.ready(); err != nil {
		return storage.User{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, strings.TrimSpace(userID))
	u, err := scanUser(row)
	if err != nil {
		return storage.User{}, fmt.Errorf("get user: %w", translateError(err))
	}
	return u, nil
}

// GetUserByLogin returns the user whose email or username matches identifier.
func (s *Store) GetUserByLogin(ctx context.Context, identifier string) (storage.User, error) {
	if err := s.ready(); err != nil {
		return storage.User{}, err
	}
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = ?1 OR lower(username) = ?1 LIMIT 1`,
		identifier,
	)
	u, err := scanUser(row)
	if err != nil {
		return storage.User{}, fmt.Errorf("get user by login: %w", translateError(err))
	}
	return u, nil
}

// ListUsers returns users filtered by status, oldest first.
func (s *Store) ListUsers(ctx context.Context, status string, limit int, offset int) (storage.UserPage, error) {
	if err := s.ready(); err != nil {
		return storage.UserPage{}, err
	}
	status = strings.TrimSpace(status)
	var page storage.UserPage
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE (?1 = '' OR status = ?1)`, status,
	).Scan(&page.Total); err != nil {
		return storage.UserPage{}, fmt.Errorf("count users: %w", err)
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE (?1 = '' OR status = ?1)
ORDER BY created_at ASC, id ASC
LIMIT ?2 OFFSET ?3`,
		status, limitArg(limit), offsetArg(offset),
	)
	if err != nil {
		return storage.UserPage{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return storage.UserPage{}, fmt.Errorf("scan user: %w", err)
		}
		page.Users = append(page.Users, u)
	}
	if err := rows.Err(); err != nil {
		return storage.UserPage{}, fmt.Errorf("iterate users: %w", err)
	}
	return page, nil
}

// UpdateUserStatus changes a user's status. Approval stamps approver and time.
func (s *Store) UpdateUserStatus(ctx context.Context, userID string, status string, approvedBy string, at time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}
	var (
		result sql.Result
		err    error
	)
	if status == storage.UserStatusApproved {
		result, err = s.sqlDB.ExecContext(ctx,
			`UPDATE users SET status = ?, approved_by = ?, approved_at = ?, updated_at = ? WHERE id = ?`,
			status, strings.TrimSpace(approvedBy), toMillis(at), toMillis(at), strings.TrimSpace(userID),
		)
	} else {
		result, err = s.sqlDB.ExecContext(ctx,
			`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`,
			status, toMillis(at), strings.TrimSpace(userID),
		)
	}
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	return requireAffected(result)
}

// UpdateUserRole changes a user's role.
func (s *Store) UpdateUserRole(ctx context.Context, userID string, role string, at time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		role, toMillis(at), strings.TrimSpace(userID),
	)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	return requireAffected(result)
}

// UpdateUserPassword replaces a user's password hash.
func (s *Store) UpdateUserPassword(ctx context.Context, userID string, passwordHash string, at time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, toMillis(at), strings.TrimSpace(userID),
	)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return requireAffected(result)
}

// CountUsers returns the number of accounts.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// PutSession stores a session.
func (s *Store) PutSession(ctx context.Context, session storage.Session) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (id, user_id, created_at, expires_at, last_seen_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    expires_at = excluded.expires_at,
    last_seen_at = excluded.last_seen_at`,
		session.ID,
		session.UserID,
		toMillis(session.CreatedAt),
		toMillis(session.ExpiresAt),
		toMillis(session.LastSeenAt),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", translateError(err))
	}
	return nil
}

// GetSession returns a session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (storage.Session, error) {
	if err := s.ready(); err != nil {
		return storage.Session{}, err
	}
	var session storage.Session
	var createdAt, expiresAt, lastSeenAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at, last_seen_at FROM sessions WHERE id = ?`,
		strings.TrimSpace(sessionID),
	).Scan(&session.ID, &session.UserID, &createdAt, &expiresAt, &lastSeenAt)
	if err != nil {
		return storage.Session{}, fmt.Errorf("get session: %w", translateError(err))
	}
	session.CreatedAt = fromMillis(createdAt)
	session.ExpiresAt = fromMillis(expiresAt)
	session.LastSeenAt = fromMillis(lastSeenAt)
	return session, nil
}

// TouchSession records session activity.
func (s *Store) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = ? WHERE id = ?`, toMillis(at), strings.TrimSpace(sessionID),
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return requireAffected(result)
}

// DeleteSession removes one session. Missing sessions are not an error.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, strings.TrimSpace(sessionID)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions removes every session owned by userID.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, strings.TrimSpace(userID)); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired at or before now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
