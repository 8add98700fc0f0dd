// Package community implements boards, posts, comments, likes and scraps.
package community

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
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/richtext"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"go.uber.org/zap"
)

// OrderFields are the post list order_by paths.
var OrderFields = []string{"created_at", "like_count", "view_count", "comment_count"}

const (
	maxTitleRunes   = 120
	maxCommentRunes = 2000
)

// Actor is the signed-in user performing a write.
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == storage.RoleAdmin
}

// Publisher is told about public URLs that changed.
type Publisher interface {
	Enqueue(paths ...string)
}

// Service owns community rules.
type Service struct {
	store     storage.CommunityStore
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the IndexNow publisher notified of new posts.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
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

// NewService builds a community service.
func NewService(store storage.CommunityStore, opts ...Option) *Service {
	s := &Service{store: store, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BoardPath returns the public path of a board.
func BoardPath(boardSlug string) string {
	return "/boards/" + boardSlug
}

// PostPath returns the public path of a post.
func PostPath(boardSlug string, postID string) string {
	return "/boards/" + boardSlug + "/posts/" + postID
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return apperrors.E(apperrors.KindUnavailable, "community store is not configured")
	}
	return nil
}

// ListBoards returns visible boards, or every board when includeHidden.
func (s *Service) ListBoards(ctx context.Context, includeHidden bool) ([]storage.Board, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListBoards(ctx, includeHidden)
}

// GetBoard returns a board by id.
func (s *Service) GetBoard(ctx context.Context, boardID string) (storage.Board, error) {
	if err := s.ready(); err != nil {
		return storage.Board{}, err
	}
	board, err := s.store.GetBoard(ctx, strings.TrimSpace(boardID))
	if err != nil {
		return storage.Board{}, notFound(err, "error.community.board_not_found")
	}
	return board, nil
}

// GetBoardBySlug returns a visible board by slug. Hidden boards are only
// visible to admins.
func (s *Service) GetBoardBySlug(ctx context.Context, boardSlug string, viewer Actor) (storage.Board, error) {
	if err := s.ready(); err != nil {
		return storage.Board{}, err
	}
	board, err := s.store.GetBoardBySlug(ctx, strings.TrimSpace(boardSlug))
	if err != nil {
		return storage.Board{}, notFound(err, "error.community.board_not_found")
	}
	if board.Hidden && !viewer.IsAdmin() {
		return storage.Board{}, apperrors.EK(apperrors.KindNotFound, "error.community.board_not_found", "board not found")
	}
	return board, nil
}

// ListPosts pages a board's posts, pinned first.
func (s *Service) ListPosts(ctx context.Context, boardSlug string, orderBy string, page listing.Page, viewer Actor) (storage.Board, storage.PostPage, error) {
	board, err := s.GetBoardBySlug(ctx, boardSlug, viewer)
	if err != nil {
		return storage.Board{}, storage.PostPage{}, err
	}
	order, err := listing.ParseOrder(orderBy, OrderFields...)
	if err != nil {
		return storage.Board{}, storage.PostPage{}, err
	}
	posts, err := s.store.ListPosts(ctx, storage.PostQuery{
		BoardID: board.ID,
		OrderBy: order,
		Limit:   page.Limit(),
		Offset:  page.Offset(),
	})
	if err != nil {
		return storage.Board{}, storage.PostPage{}, err
	}
	return board, posts, nil
}

// ListAllPosts pages non-deleted posts across boards for the sitemap and
// admin views.
func (s *Service) ListAllPosts(ctx context.Context, page listing.Page) (storage.PostPage, error) {
	if err := s.ready(); err != nil {
		return storage.PostPage{}, err
	}
	return s.store.ListPosts(ctx, storage.PostQuery{Limit: page.Limit(), Offset: page.Offset()})
}

// BoardInput is the admin board form.
type BoardInput struct {
	ID          string
	Slug        string
	Name        string
	Description string
	WriteRole   string
	SortOrder   int
	Hidden      bool
}

// SaveBoard validates and stores a board.
func (s *Service) SaveBoard(ctx context.Context, in BoardInput) (storage.Board, error) {
	if err := s.ready(); err != nil {
		return storage.Board{}, err
	}
	board := storage.Board{
		ID:          strings.TrimSpace(in.ID),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		WriteRole:   strings.TrimSpace(in.WriteRole),
		SortOrder:   in.SortOrder,
		Hidden:      in.Hidden,
	}
	if n := utf8.RuneCountInString(board.Name); n < 1 || n > 60 {
		return storage.Board{}, apperrors.EK(apperrors.KindInvalidInput, "error.community.invalid_board_name", "board name must be 1-60 characters")
	}
	if board.WriteRole == "" {
		board.WriteRole = storage.RoleMember
	}
	if board.WriteRole != storage.RoleMember && board.WriteRole != storage.RoleAdmin {
		return storage.Board{}, apperrors.EK(apperrors.KindInvalidInput, "error.community.invalid_write_role", "write role must be member or admin")
	}
	now := s.now().UTC()
	board.CreatedAt, board.UpdatedAt = now, now
	if board.ID == "" {
		newID, err := id.NewID()
		if err != nil {
			return storage.Board{}, err
		}
		board.ID = newID
	} else {
		existing, err := s.store.GetBoard(ctx, board.ID)
		if err != nil {
			return storage.Board{}, notFound(err, "error.community.board_not_found")
		}
		board.CreatedAt = existing.CreatedAt
	}
	boardSlug, ok := slug.Resolve(in.Slug, board.Name, "board-"+board.ID[:8])
	if !ok {
		return storage.Board{}, apperrors.EK(apperrors.KindInvalidInput, "error.slug.invalid", "slug must be lowercase letters, digits and dashes")
	}
	board.Slug = boardSlug
	if err := s.store.PutBoard(ctx, board); err != nil {
		return storage.Board{}, conflict(err, "error.slug.taken")
	}
	return board, nil
}

// DeleteBoard removes a board that has no posts.
func (s *Service) DeleteBoard(ctx context.Context, boardID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.DeleteBoard(ctx, strings.TrimSpace(boardID)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return notFound(err, "error.community.board_not_found")
		}
		return conflict(err, "error.community.board_in_use")
	}
	return nil
}

// PostView is a post with its board, rendered body and viewer state.
type PostView struct {
	Board     storage.Board
	Post      storage.Post
	BodyHTML  string
	Comments  []Thread
	Liked     bool
	Scrapped  bool
	CanEdit   bool
	CanDelete bool
}

// GetPost loads a post for display and counts one view.
func (s *Service) GetPost(ctx context.Context, boardSlug string, postID string, viewer Actor) (PostView, error) {
	board, err := s.GetBoardBySlug(ctx, boardSlug, viewer)
	if err != nil {
		return PostView{}, err
	}
	post, err := s.store.GetPost(ctx, strings.TrimSpace(postID))
	if err != nil {
		return PostView{}, notFound(err, "error.community.post_not_found")
	}
	if post.BoardID != board.ID || post.DeletedAt != nil {
		return PostView{}, apperrors.EK(apperrors.KindNotFound, "error.community.post_not_found", "post not found")
	}
	if err := s.store.IncrementPostViews(ctx, post.ID); err != nil {
		s.logger.Warn("increment post views", zap.String("post_id", post.ID), zap.Error(err))
	} else {
		post.ViewCount++
	}
	doc, err := richtext.Parse(post.Body)
	if err != nil {
		return PostView{}, fmt.Errorf("parse post %s: %w", post.ID, err)
	}
	comments, err := s.store.ListComments(ctx, post.ID)
	if err != nil {
		return PostView{}, err
	}
	view := PostView{
		Board:     board,
		Post:      post,
		BodyHTML:  richtext.RenderHTML(doc),
		Comments:  Threads(comments),
		CanEdit:   canModify(viewer, post.AuthorID),
		CanDelete: canModify(viewer, post.AuthorID),
	}
	if viewer.UserID != "" {
		if view.Liked, err = s.store.HasLiked(ctx, post.ID, viewer.UserID); err != nil {
			return PostView{}, err
		}
		if view.Scrapped, err = s.store.HasScrapped(ctx, viewer.UserID, post.ID); err != nil {
			return PostView{}, err
		}
	}
	return view, nil
}

// GetPostForEdit returns a live post the actor may edit.
func (s *Service) GetPostForEdit(ctx context.Context, postID string, actor Actor) (storage.Post, error) {
	if err := s.ready(); err != nil {
		return storage.Post{}, err
	}
	post, _, err := s.editablePost(ctx, postID, actor)
	return post, err
}

func (s *Service) editablePost(ctx context.Context, postID string, actor Actor) (storage.Post, storage.Board, error) {
	post, board, err := s.visiblePost(ctx, postID, actor)
	if err != nil {
		return storage.Post{}, storage.Board{}, err
	}
	if !canModify(actor, post.AuthorID) {
		return storage.Post{}, storage.Board{}, forbidden()
	}
	return post, board, nil
}

// PostInput is the post form.
type PostInput struct {
	BoardID string
	Title   string
	Body    string
}

func normalizePost(in PostInput) (PostInput, error) {
	in.BoardID = strings.TrimSpace(in.BoardID)
	in.Title = strings.TrimSpace(in.Title)
	if n := utf8.RuneCountInString(in.Title); n < 1 || n > maxTitleRunes {
		return PostInput{}, apperrors.EK(apperrors.KindInvalidInput, "error.community.invalid_title", "title must be 1-120 characters")
	}
	doc, err := richtext.Parse(in.Body)
	if err != nil {
		return PostInput{}, apperrors.Wrap(apperrors.KindInvalidInput, "error.richtext.invalid", "body is not a valid document", err)
	}
	body, err := richtext.Marshal(doc)
	if err != nil {
		return PostInput{}, err
	}
	in.Body = body
	return in, nil
}

// CreatePost publishes a post on a board the actor may write to.
func (s *Service) CreatePost(ctx context.Context, actor Actor, in PostInput) (storage.Post, error) {
	if err := s.ready(); err != nil {
		return storage.Post{}, err
	}
	if actor.UserID == "" {
		return storage.Post{}, apperrors.EK(apperrors.KindUnauthorized, "error.auth.required", "sign in required")
	}
	in, err := normalizePost(in)
	if err != nil {
		return storage.Post{}, err
	}
	board, err := s.store.GetBoard(ctx, in.BoardID)
	if err != nil {
		return storage.Post{}, notFound(err, "error.community.board_not_found")
	}
	if board.Hidden && !actor.IsAdmin() {
		return storage.Post{}, apperrors.EK(apperrors.KindNotFound, "error.community.board_not_found", "board not found")
	}
	if board.WriteRole == storage.RoleAdmin && !actor.IsAdmin() {
		return storage.Post{}, apperrors.EK(apperrors.KindForbidden, "error.community.board_read_only", "only admins can write on this board")
	}
	postID, err := id.NewID()
	if err != nil {
		return storage.Post{}, err
	}
	now := s.now().UTC()
	post := storage.Post{
		ID:        postID,
		BoardID:   board.ID,
		BoardSlug: board.Slug,
		AuthorID:  actor.UserID,
		Title:     in.Title,
		Body:      in.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return storage.Post{}, fmt.Errorf("create post: %w", err)
	}
	if !board.Hidden {
		s.announce(PostPath(board.Slug, post.ID), BoardPath(board.Slug))
	}
	return post, nil
}

// UpdatePost edits a post the actor authored, or any post for admins.
func (s *Service) UpdatePost(ctx context.Context, actor Actor, postID string, in PostInput) (storage.Post, error) {
	if err := s.ready(); err != nil {
		return storage.Post{}, err
	}
	post, board, err := s.editablePost(ctx, postID, actor)
	if err != nil {
		return storage.Post{}, err
	}
	in, err = normalizePost(in)
	if err != nil {
		return storage.Post{}, err
	}
	post.Title = in.Title
	post.Body = in.Body
	post.UpdatedAt = s.now().UTC()
	if err := s.store.UpdatePost(ctx, post); err != nil {
		return storage.Post{}, notFound(err, "error.community.post_not_found")
	}
	if !board.Hidden {
		s.announce(PostPath(board.Slug, post.ID))
	}
	return post, nil
}

// DeletePost soft-deletes a post.
func (s *Service) DeletePost(ctx context.Context, actor Actor, postID string) (storage.Post, error) {
	if err := s.ready(); err != nil {
		return storage.Post{}, err
	}
	post, board, err := s.editablePost(ctx, postID, actor)
	if err != nil {
		return storage.Post{}, err
	}
	if err := s.store.SoftDeletePost(ctx, post.ID, s.now().UTC()); err != nil {
		return storage.Post{}, notFound(err, "error.community.post_not_found")
	}
	s.logger.Info("post deleted", zap.String("post_id", post.ID), zap.String("actor_id", actor.UserID))
	if !board.Hidden {
		s.announce(PostPath(board.Slug, post.ID), BoardPath(board.Slug))
	}
	return post, nil
}

// SetPinned pins or unpins a post.
func (s *Service) SetPinned(ctx context.Context, postID string, pinned bool) (storage.Post, error) {
	if err := s.ready(); err != nil {
		return storage.Post{}, err
	}
	post, err := s.livePost(ctx, postID)
	if err != nil {
		return storage.Post{}, err
	}
	if err := s.store.SetPostPinned(ctx, post.ID, pinned); err != nil {
		return storage.Post{}, notFound(err, "error.community.post_not_found")
	}
	post.Pinned = pinned
	return post, nil
}

// AddComment adds a comment or a reply to a top-level comment.
func (s *Service) AddComment(ctx context.Context, actor Actor, postID string, parentID string, body string) (storage.Comment, error) {
	if err := s.ready(); err != nil {
		return storage.Comment{}, err
	}
	if actor.UserID == "" {
		return storage.Comment{}, apperrors.EK(apperrors.KindUnauthorized, "error.auth.required", "sign in required")
	}
	body = strings.TrimSpace(body)
	if n := utf8.RuneCountInString(body); n < 1 || n > maxCommentRunes {
		return storage.Comment{}, apperrors.EK(apperrors.KindInvalidInput, "error.community.invalid_comment", "comment must be 1-2000 characters")
	}
	post, _, err := s.visiblePost(ctx, postID, actor)
	if err != nil {
		return storage.Comment{}, err
	}
	parentID = strings.TrimSpace(parentID)
	if parentID != "" {
		parent, err := s.store.GetComment(ctx, parentID)
		if err != nil || parent.PostID != post.ID || parent.ParentID != "" || parent.DeletedAt != nil {
			return storage.Comment{}, apperrors.EK(apperrors.KindInvalidInput, "error.community.invalid_parent", "replies must target a top-level comment on the same post")
		}
	}
	commentID, err := id.NewID()
	if err != nil {
		return storage.Comment{}, err
	}
	comment := storage.Comment{
		ID:        commentID,
		PostID:    post.ID,
		ParentID:  parentID,
		AuthorID:  actor.UserID,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return storage.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// DeleteComment soft-deletes a comment authored by the actor, or any
// comment for admins. It returns the post id for redirects.
func (s *Service) DeleteComment(ctx context.Context, actor Actor, commentID string) (storage.Post, error) {
	if err := s.ready(); err != nil {
		return storage.Post{}, err
	}
	comment, err := s.store.GetComment(ctx, strings.TrimSpace(commentID))
	if err != nil || comment.DeletedAt != nil {
		return storage.Post{}, apperrors.EK(apperrors.KindNotFound, "error.community.comment_not_found", "comment not found")
	}
	if !canModify(actor, comment.AuthorID) {
		return storage.Post{}, forbidden()
	}
	post, err := s.store.GetPost(ctx, comment.PostID)
	if err != nil {
		return storage.Post{}, notFound(err, "error.community.post_not_found")
	}
	if err := s.store.SoftDeleteComment(ctx, comment.ID, s.now().UTC()); err != nil {
		return storage.Post{}, notFound(err, "error.community.comment_not_found")
	}
	return post, nil
}

// Toggle is the result of a like or scrap toggle.
type Toggle struct {
	Post   storage.Post
	Active bool
	Count  int
}

// ToggleLike flips the actor's like and returns the new like count.
func (s *Service) ToggleLike(ctx context.Context, actor Actor, postID string) (Toggle, error) {
	if err := s.ready(); err != nil {
		return Toggle{}, err
	}
	post, _, err := s.visiblePost(ctx, postID, actor)
	if err != nil {
		return Toggle{}, err
	}
	liked, count, err := s.store.ToggleLike(ctx, post.ID, actor.UserID, s.now().UTC())
	if err != nil {
		return Toggle{}, fmt.Errorf("toggle like: %w", err)
	}
	post.LikeCount = count
	return Toggle{Post: post, Active: liked, Count: count}, nil
}

// ToggleScrap flips whether the actor saved the post.
func (s *Service) ToggleScrap(ctx context.Context, actor Actor, postID string) (Toggle, error) {
	if err := s.ready(); err != nil {
		return Toggle{}, err
	}
	post, _, err := s.visiblePost(ctx, postID, actor)
	if err != nil {
		return Toggle{}, err
	}
	scrapped, err := s.store.ToggleScrap(ctx, actor.UserID, post.ID, s.now().UTC())
	if err != nil {
		return Toggle{}, fmt.Errorf("toggle scrap: %w", err)
	}
	return Toggle{Post: post, Active: scrapped}, nil
}

// ScrapPage is one page of a user's saved posts.
type ScrapPage struct {
	Scraps []storage.ScrappedPost
	Total  int
}

// ListScraps pages the actor's saved posts newest first.
func (s *Service) ListScraps(ctx context.Context, actor Actor, page listing.Page) (ScrapPage, error) {
	if err := s.ready(); err != nil {
		return ScrapPage{}, err
	}
	scraps, total, err := s.store.ListScraps(ctx, actor.UserID, page.Limit(), page.Offset())
	if err != nil {
		return ScrapPage{}, err
	}
	return ScrapPage{Scraps: scraps, Total: total}, nil
}

// Thread is a top-level comment with its replies.
type Thread struct {
	Comment storage.Comment
	Replies []storage.Comment
}

// Threads groups comments under their top-level parent, keeping order.
// Deleted comments keep their place with the body cleared.
func Threads(comments []storage.Comment) []Thread {
	index := map[string]int{}
	var threads []Thread
	for _, c := range comments {
		if c.DeletedAt != nil {
			c.Body = ""
		}
		if c.ParentID == "" {
			index[c.ID] = len(threads)
			threads = append(threads, Thread{Comment: c})
			continue
		}
		if i, ok := index[c.ParentID]; ok {
			threads[i].Replies = append(threads[i].Replies, c)
		}
	}
	return threads
}

// LivePost returns a post that has not been deleted.
func (s *Service) LivePost(ctx context.Context, postID string) (storage.Post, error) {
	if err := s.ready(); err != nil {
		return storage.Post{}, err
	}
	return s.livePost(ctx, postID)
}

func (s *Service) livePost(ctx context.Context, postID string) (storage.Post, error) {
	post, err := s.store.GetPost(ctx, strings.TrimSpace(postID))
	if err != nil {
		return storage.Post{}, notFound(err, "error.community.post_not_found")
	}
	if post.DeletedAt != nil {
		return storage.Post{}, apperrors.EK(apperrors.KindNotFound, "error.community.post_not_found", "post not found")
	}
	return post, nil
}

// visiblePost returns a live post and its board. Posts on hidden boards
// are not found for anyone but admins.
func (s *Service) visiblePost(ctx context.Context, postID string, actor Actor) (storage.Post, storage.Board, error) {
	post, err := s.livePost(ctx, postID)
	if err != nil {
		return storage.Post{}, storage.Board{}, err
	}
	board, err := s.store.GetBoard(ctx, post.BoardID)
	if err != nil {
		return storage.Post{}, storage.Board{}, notFound(err, "error.community.post_not_found")
	}
	if board.Hidden && !actor.IsAdmin() {
		return storage.Post{}, storage.Board{}, apperrors.EK(apperrors.KindNotFound, "error.community.post_not_found", "post not found")
	}
	return post, board, nil
}

func (s *Service) announce(paths ...string) {
	if s.publisher != nil {
		s.publisher.Enqueue(paths...)
	}
}

func canModify(actor Actor, authorID string) bool {
	if actor.UserID == "" {
		return false
	}
	return actor.IsAdmin() || actor.UserID == authorID
}

func forbidden() error {
	return apperrors.EK(apperrors.KindForbidden, "error.community.not_author", "only the author or an admin can change this")
}

func notFound(err error, key string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.Wrap(apperrors.KindNotFound, key, "not found", err)
	}
	return err
}

func conflict(err error, key string) error {
	if errors.Is(err, storage.ErrConflict) {
		return apperrors.Wrap(apperrors.KindConflict, key, "conflict", err)
	}
	return err
}
