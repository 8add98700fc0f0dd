package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/folio/internal/services/site/storage"
)

var postOrderColumns = map[string]string{
	"created_at":    "p.created_at",
	"like_count":    "p.like_count",
	"view_count":    "p.view_count",
	"comment_count": "p.comment_count",
}

const boardSelect = `
SELECT b.id, b.slug, b.name, b.description, b.write_role, b.sort_order, b.hidden,
       (SELECT COUNT(*) FROM posts p WHERE p.board_id = b.id AND p.deleted_at IS NULL),
       b.created_at, b.updated_at
FROM boards b`

const postSelect = `
SELECT p.id, p.board_id, b.slug, p.author_id, COALESCE(u.display_name, ''), p.title, p.body,
       p.pinned, p.view_count, p.like_count, p.comment_count, p.created_at, p.updated_at, p.deleted_at
FROM posts p
JOIN boards b ON b.id = p.board_id
LEFT JOIN users u ON u.id = p.author_id`

func scanBoard(row rowScanner) (storage.Board, error) {
	var b storage.Board
	var hidden int
	var createdAt, updatedAt int64
	if err := row.Scan(&b.ID, &b.Slug, &b.Name, &b.Description, &b.WriteRole, &b.SortOrder, &hidden, &b.PostCount, &createdAt, &updatedAt); err != nil {
		return storage.Board{}, err
	}
	b.Hidden = hidden != 0
	b.CreatedAt = fromMillis(createdAt)
	b.UpdatedAt = fromMillis(updatedAt)
	return b, nil
}

func scanPost(row rowScanner) (storage.Post, error) {
	var p storage.Post
	var pinned int
	var createdAt, updatedAt int64
	var deletedAt sql.NullInt64
	if err := row.Scan(
		&p.ID,
		&p.BoardID,
		&p.BoardSlug,
		&p.AuthorID,
		&p.AuthorName,
		&p.Title,
		&p.Body,
		&pinned,
		&p.ViewCount,
		&p.LikeCount,
		&p.CommentCount,
		&createdAt,
		&updatedAt,
		&deletedAt,
	); err != nil {
		return storage.Post{}, err
	}
	p.Pinned = pinned != 0
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	p.DeletedAt = timePtr(deletedAt)
	return p, nil
}

// ListBoards returns boards in display order.
func (s *Store) ListBoards(ctx context.Context, includeHidden bool) ([]storage.Board, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		boardSelect+"\nWHERE (?1 = 1 OR b.hidden = 0)\nORDER BY b.sort_order ASC, b.name ASC",
		boolInt(includeHidden),
	)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()
	var out []storage.Board
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return out, nil
}

// GetBoard returns a board by id.
func (s *Store) GetBoard(ctx context.Context, boardID string) (storage.Board, error) {
	if err := s.ready(); err != nil {
		return storage.Board{}, err
	}
	b, err := scanBoard(s.sqlDB.QueryRowContext(ctx, boardSelect+"\nWHERE b.id = ?", strings.TrimSpace(boardID)))
	if err != nil {
		return storage.Board{}, fmt.Errorf("get board: %w", translateError(err))
	}
	return b, nil
}

// GetBoardBySlug returns a board by slug.
func (s *Store) GetBoardBySlug(ctx context.Context, slug string) (storage.Board, error) {
	if err := s.ready(); err != nil {
		return storage.Board{}, err
	}
	b, err := scanBoard(s.sqlDB.QueryRowContext(ctx, boardSelect+"\nWHERE b.slug = ?", strings.TrimSpace(slug)))
	if err != nil {
		return storage.Board{}, fmt.Errorf("get board by slug: %w", translateError(err))
	}
	return b, nil
}

// PutBoard upserts a board.
func (s *Store) PutBoard(ctx context.Context, board storage.Board) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO boards (id, slug, name, description, write_role, sort_order, hidden, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    slug = excluded.slug,
    name = excluded.name,
    description = excluded.description,
    write_role = excluded.write_role,
    sort_order = excluded.sort_order,
    hidden = excluded.hidden,
    updated_at = excluded.updated_at`,
		board.ID,
		board.Slug,
		board.Name,
		board.Description,
		board.WriteRole,
		board.SortOrder,
		boolInt(board.Hidden),
		toMillis(board.CreatedAt),
		toMillis(board.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put board: %w", translateError(err))
	}
	return nil
}

// DeleteBoard removes a board with no posts.
func (s *Store) DeleteBoard(ctx context.Context, boardID string) error {
	boardID = strings.TrimSpace(boardID)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var posts int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE board_id = ?`, boardID).Scan(&posts); err != nil {
			return fmt.Errorf("count board posts: %w", err)
		}
		if posts > 0 {
			return fmt.Errorf("delete board: %w", storage.ErrConflict)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, boardID)
		if err != nil {
			return fmt.Errorf("delete board: %w", translateError(err))
		}
		return requireAffected(result)
	})
}

// ListPosts returns one page of posts with pinned posts first.
func (s *Store) ListPosts(ctx context.Context, query storage.PostQuery) (storage.PostPage, error) {
	if err := s.ready(); err != nil {
		return storage.PostPage{}, err
	}
	where := `WHERE (?1 = '' OR p.board_id = ?1) AND (?2 = 1 OR p.deleted_at IS NULL)`
	boardID := strings.TrimSpace(query.BoardID)
	includeDeleted := boolInt(query.IncludeDeleted)

	var page storage.PostPage
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts p `+where, boardID, includeDeleted,
	).Scan(&page.Total); err != nil {
		return storage.PostPage{}, fmt.Errorf("count posts: %w", err)
	}
	order := orderClause(query.OrderBy, postOrderColumns, "p.created_at DESC")
	rows, err := s.sqlDB.QueryContext(ctx,
		postSelect+"\n"+where+"\nORDER BY p.pinned DESC, "+order+", p.id ASC\nLIMIT ?3 OFFSET ?4",
		boardID, includeDeleted, limitArg(query.Limit), offsetArg(query.Offset),
	)
	if err != nil {
		return storage.PostPage{}, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return storage.PostPage{}, fmt.Errorf("scan post: %w", err)
		}
		page.Posts = append(page.Posts, p)
	}
	if err := rows.Err(); err != nil {
		return storage.PostPage{}, fmt.Errorf("iterate posts: %w", err)
	}
	return page, nil
}

// GetPost returns a post by id, including soft-deleted posts.
func (s *Store) GetPost(ctx context.Context, postID string) (storage.Post, error) {
	if err := s.ready(); err != nil {
		return storage.Post{}, err
	}
	p, err := scanPost(s.sqlDB.QueryRowContext(ctx, postSelect+"\nWHERE p.id = ?", strings.TrimSpace(postID)))
	if err != nil {
		return storage.Post{}, fmt.Errorf("get post: %w", translateError(err))
	}
	return p, nil
}

// CreatePost inserts a post.
func (s *Store) CreatePost(ctx context.Context, post storage.Post) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO posts (id, board_id, author_id, title, body, pinned, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.BoardID,
		post.AuthorID,
		post.Title,
		post.Body,
		boolInt(post.Pinned),
		toMillis(post.CreatedAt),
		toMillis(post.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create post: %w", translateError(err))
	}
	return nil
}

// UpdatePost replaces a live post's title and body.
func (s *Store) UpdatePost(ctx context.Context, post storage.Post) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE posts SET title = ?, body = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		post.Title, post.Body, toMillis(post.UpdatedAt), post.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return requireAffected(result)
}

// SoftDeletePost marks a post deleted.
func (s *Store) SoftDeletePost(ctx context.Context, postID string, at time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE posts SET deleted_at = ?, pinned = 0, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		toMillis(at), toMillis(at), strings.TrimSpace(postID),
	)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return requireAffected(result)
}

// SetPostPinned pins or unpins a live post.
func (s *Store) SetPostPinned(ctx context.Context, postID string, pinned bool) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE posts SET pinned = ? WHERE id = ? AND deleted_at IS NULL`,
		boolInt(pinned), strings.TrimSpace(postID),
	)
	if err != nil {
		return fmt.Errorf("pin post: %w", err)
	}
	return requireAffected(result)
}

// IncrementPostViews bumps a post's view count.
func (s *Store) IncrementPostViews(ctx context.Context, postID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE posts SET view_count = view_count + 1 WHERE id = ?`, strings.TrimSpace(postID),
	)
	if err != nil {
		return fmt.Errorf("increment post views: %w", err)
	}
	return requireAffected(result)
}

const commentSelect = `
SELECT c.id, c.post_id, c.parent_id, c.author_id, COALESCE(u.display_name, ''), c.body, c.created_at, c.deleted_at
FROM comments c
LEFT JOIN users u ON u.id = c.author_id`

func scanComment(row rowScanner) (storage.Comment, error) {
	var c storage.Comment
	var createdAt int64
	var deletedAt sql.NullInt64
	if err := row.Scan(&c.ID, &c.PostID, &c.ParentID, &c.AuthorID, &c.AuthorName, &c.Body, &createdAt, &deletedAt); err != nil {
		return storage.Comment{}, err
	}
	c.CreatedAt = fromMillis(createdAt)
	c.DeletedAt = timePtr(deletedAt)
	return c, nil
}

// ListComments returns a post's comments oldest first.
func (s *Store) ListComments(ctx context.Context, postID string) ([]storage.Comment, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		commentSelect+"\nWHERE c.post_id = ?\nORDER BY c.created_at ASC, c.id ASC", strings.TrimSpace(postID),
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	var out []storage.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}

// GetComment returns a comment by id.
func (s *Store) GetComment(ctx context.Context, commentID string) (storage.Comment, error) {
	if err := s.ready(); err != nil {
		return storage.Comment{}, err
	}
	c, err := scanComment(s.sqlDB.QueryRowContext(ctx, commentSelect+"\nWHERE c.id = ?", strings.TrimSpace(commentID)))
	if err != nil {
		return storage.Comment{}, fmt.Errorf("get comment: %w", translateError(err))
	}
	return c, nil
}

// CreateComment inserts a comment and bumps the post comment count.
func (s *Store) CreateComment(ctx context.Context, comment storage.Comment) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO comments (id, post_id, parent_id, author_id, body, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
			comment.ID,
			comment.PostID,
			comment.ParentID,
			comment.AuthorID,
			comment.Body,
			toMillis(comment.CreatedAt),
		); err != nil {
			return fmt.Errorf("create comment: %w", translateError(err))
		}
		result, err := tx.ExecContext(ctx,
			`UPDATE posts SET comment_count = comment_count + 1 WHERE id = ?`, comment.PostID,
		)
		if err != nil {
			return fmt.Errorf("bump comment count: %w", err)
		}
		return requireAffected(result)
	})
}

// SoftDeleteComment marks a comment deleted and lowers the post comment count.
func (s *Store) SoftDeleteComment(ctx context.Context, commentID string, at time.Time) error {
	commentID = strings.TrimSpace(commentID)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var postID string
		err := tx.QueryRowContext(ctx,
			`SELECT post_id FROM comments WHERE id = ? AND deleted_at IS NULL`, commentID,
		).Scan(&postID)
		if err != nil {
			return fmt.Errorf("delete comment: %w", translateError(err))
		}
		if _, err := tx.ExecContext(ctx, `UPDATE comments SET deleted_at = ? WHERE id = ?`, toMillis(at), commentID); err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET comment_count = MAX(comment_count - 1, 0) WHERE id = ?`, postID,
		); err != nil {
			return fmt.Errorf("lower comment count: %w", err)
		}
		return nil
	})
}

// ToggleLike flips a user's like on a post and returns the new state.
func (s *Store) ToggleLike(ctx context.Context, postID string, userID string, at time.Time) (bool, int, error) {
	var liked bool
	var count int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID,
		)
		if err != nil {
			return fmt.Errorf("remove like: %w", err)
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return err
		}
		delta := -1
		if removed == 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO post_likes (post_id, user_id, created_at) VALUES (?, ?, ?)`,
				postID, userID, toMillis(at),
			); err != nil {
				return fmt.Errorf("add like: %w", translateError(err))
			}
			delta = 1
			liked = true
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET like_count = MAX(like_count + ?, 0) WHERE id = ?`, delta, postID,
		); err != nil {
			return fmt.Errorf("update like count: %w", err)
		}
		if err := tx.QueryRowContext(ctx, `SELECT like_count FROM posts WHERE id = ?`, postID).Scan(&count); err != nil {
			return fmt.Errorf("read like count: %w", translateError(err))
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

// HasLiked reports whether userID liked postID.
func (s *Store) HasLiked(ctx context.Context, postID string, userID string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
}

// ToggleScrap flips a user's scrap of a post and returns the new state.
func (s *Store) ToggleScrap(ctx context.Context, userID string, postID string, at time.Time) (bool, error) {
	var scrapped bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM scraps WHERE user_id = ? AND post_id = ?`, userID, postID)
		if err != nil {
			return fmt.Errorf("remove scrap: %w", err)
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if removed > 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scraps (user_id, post_id, created_at) VALUES (?, ?, ?)`, userID, postID, toMillis(at),
		); err != nil {
			return fmt.Errorf("add scrap: %w", translateError(err))
		}
		scrapped = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return scrapped, nil
}

// HasScrapped reports whether userID scrapped postID.
func (s *Store) HasScrapped(ctx context.Context, userID string, postID string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM scraps WHERE user_id = ? AND post_id = ?`, userID, postID)
}

// ListScraps returns a user's live scrapped posts, most recent scrap first.
func (s *Store) ListScraps(ctx context.Context, userID string, limit int, offset int) ([]storage.ScrappedPost, int, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	userID = strings.TrimSpace(userID)
	var total int
	if err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM scraps s JOIN posts p ON p.id = s.post_id
WHERE s.user_id = ? AND p.deleted_at IS NULL`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scraps: %w", err)
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT p.id, p.board_id, b.slug, p.author_id, COALESCE(u.display_name, ''), p.title, p.body,
       p.pinned, p.view_count, p.like_count, p.comment_count, p.created_at, p.updated_at, p.deleted_at,
       s.created_at
FROM scraps s
JOIN posts p ON p.id = s.post_id
JOIN boards b ON b.id = p.board_id
LEFT JOIN users u ON u.id = p.author_id
WHERE s.user_id = ? AND p.deleted_at IS NULL
ORDER BY s.created_at DESC, p.id ASC
LIMIT ? OFFSET ?`, userID, limitArg(limit), offsetArg(offset))
	if err != nil {
		return nil, 0, fmt.Errorf("list scraps: %w", err)
	}
	defer rows.Close()
	var out []storage.ScrappedPost
	for rows.Next() {
		var scrapped storage.ScrappedPost
		var pinned int
		var createdAt, updatedAt, scrappedAt int64
		var deletedAt sql.NullInt64
		p := &scrapped.Post
		if err := rows.Scan(
			&p.ID, &p.BoardID, &p.BoardSlug, &p.AuthorID, &p.AuthorName, &p.Title, &p.Body,
			&pinned, &p.ViewCount, &p.LikeCount, &p.CommentCount, &createdAt, &updatedAt, &deletedAt,
			&scrappedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan scrap: %w", err)
		}
		p.Pinned = pinned != 0
		p.CreatedAt = fromMillis(createdAt)
		p.UpdatedAt = fromMillis(updatedAt)
		p.DeletedAt = timePtr(deletedAt)
		scrapped.ScrappedAt = fromMillis(scrappedAt)
		out = append(out, scrapped)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate scraps: %w", err)
	}
	return out, total, nil
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	var found int
	err := s.sqlDB.QueryRowContext(ctx, query, args...).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
