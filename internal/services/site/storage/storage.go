package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrConflict indicates a uniqueness or referential constraint was violated.
var ErrConflict = errors.New("record conflict")

// User roles.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User account statuses.
const (
	UserStatusPending   = "pending"
	UserStatusApproved  = "approved"
	UserStatusRejected  = "rejected"
	UserStatusSuspended = "suspended"
)

// Publication statuses shared by products and content entries.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Content entry body formats.
const (
	FormatMarkdown = "markdown"
	FormatRichText = "richtext"
)

// Menu locations.
const (
	MenuHeader = "header"
	MenuFooter = "footer"
)

// User is one site account.
type User struct {
	ID           string
	Email        string
	Username     string
	DisplayName  string
	PasswordHash string
	Role         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ApprovedAt   *time.Time
	ApprovedBy   string
}

// Session is one signed-in browser session.
type Session struct {
	ID         string
	UserID     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastSeenAt time.Time
}

// UserPage is one page of users plus the total matching count.
type UserPage struct {
	Users []User
	Total int
}

// UserStore persists site accounts.
type UserStore interface {
	// CreateUser inserts u. When no user exists yet, bootstrap is applied to
	// u inside the same transaction before the insert.
	CreateUser(ctx context.Context, u User, bootstrap func(User) User) (User, error)
	GetUser(ctx context.Context, userID string) (User, error)
	// GetUserByLogin matches identifier against email or username,
	// case-insensitively.
	GetUserByLogin(ctx context.Context, identifier string) (User, error)
	ListUsers(ctx context.Context, status string, limit int, offset int) (UserPage, error)
	UpdateUserStatus(ctx context.Context, userID string, status string, approvedBy string, at time.Time) error
	UpdateUserRole(ctx context.Context, userID string, role string, at time.Time) error
	UpdateUserPassword(ctx context.Context, userID string, passwordHash string, at time.Time) error
	CountUsers(ctx context.Context) (int, error)
}

// SessionStore persists browser sessions.
type SessionStore interface {
	PutSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, sessionID string) (Session, error)
	TouchSession(ctx context.Context, sessionID string, at time.Time) error
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteUserSessions(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// OrderField is one validated ordering term.
type OrderField struct {
	Field string
	Desc  bool
}

// Category groups catalog products.
type Category struct {
	ID           string
	Slug         string
	Name         string
	Description  string
	SortOrder    int
	ProductCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Product is one catalog item.
type Product struct {
	ID            string
	Slug          string
	CategoryID    string
	CategorySlug  string
	CategoryName  string
	Name          string
	Summary       string
	Description   string
	PriceCents    int64
	Currency      string
	ThumbnailPath string
	Images        []string
	Status        string
	SortOrder     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductQuery filters and orders product listings.
type ProductQuery struct {
	CategorySlug string
	Status       string
	OrderBy      []OrderField
	Limit        int
	Offset       int
}

// ProductPage is one page of products plus the total matching count.
type ProductPage struct {
	Products []Product
	Total    int
}

// CatalogStore persists categories and products.
type CatalogStore interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, categoryID string) (Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (Category, error)
	PutCategory(ctx context.Context, category Category) error
	// DeleteCategory returns ErrConflict while products still reference it.
	DeleteCategory(ctx context.Context, categoryID string) error
	ListProducts(ctx context.Context, query ProductQuery) (ProductPage, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
	// PutProduct upserts the product and replaces its image list.
	PutProduct(ctx context.Context, product Product) error
	DeleteProduct(ctx context.Context, productID string) error
	SetProductStatus(ctx context.Context, productID string, status string, at time.Time) error
}

// Entry is one authored page or article.
type Entry struct {
	ID          string
	Slug        string
	Title       string
	Format      string
	Body        string
	Excerpt     string
	CoverPath   string
	Status      string
	PublishedAt *time.Time
	AuthorID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EntryQuery filters entry listings. Published entries sort newest first.
type EntryQuery struct {
	Status string
	Limit  int
	Offset int
}

// EntryPage is one page of entries plus the total matching count.
type EntryPage struct {
	Entries []Entry
	Total   int
}

// ContentStore persists pages and articles.
type ContentStore interface {
	ListEntries(ctx context.Context, query EntryQuery) (EntryPage, error)
	GetEntry(ctx context.Context, entryID string) (Entry, error)
	GetEntryBySlug(ctx context.Context, slug string) (Entry, error)
	PutEntry(ctx context.Context, entry Entry) error
	DeleteEntry(ctx context.Context, entryID string) error
}

// Board is one community board.
type Board struct {
	ID          string
	Slug        string
	Name        string
	Description string
	WriteRole   string
	SortOrder   int
	Hidden      bool
	PostCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Post is one community post.
type Post struct {
	ID           string
	BoardID      string
	BoardSlug    string
	AuthorID     string
	AuthorName   string
	Title        string
	Body         string
	Pinned       bool
	ViewCount    int
	LikeCount    int
	CommentCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Comment is one post comment. ParentID is empty for top-level comments.
type Comment struct {
	ID         string
	PostID     string
	ParentID   string
	AuthorID   string
	AuthorName string
	Body       string
	CreatedAt  time.Time
	DeletedAt  *time.Time
}

// PostQuery filters and orders post listings. Pinned posts always sort first.
type PostQuery struct {
	BoardID        string
	OrderBy        []OrderField
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// PostPage is one page of posts plus the total matching count.
type PostPage struct {
	Posts []Post
	Total int
}

// ScrappedPost is a post saved by a user.
type ScrappedPost struct {
	Post       Post
	ScrappedAt time.Time
}

// CommunityStore persists boards, posts, comments, likes and scraps.
type CommunityStore interface {
	ListBoards(ctx context.Context, includeHidden bool) ([]Board, error)
	GetBoard(ctx context.Context, boardID string) (Board, error)
	GetBoardBySlug(ctx context.Context, slug string) (Board, error)
	PutBoard(ctx context.Context, board Board) error
	// DeleteBoard returns ErrConflict while posts still reference it.
	DeleteBoard(ctx context.Context, boardID string) error

	ListPosts(ctx context.Context, query PostQuery) (PostPage, error)
	GetPost(ctx context.Context, postID string) (Post, error)
	CreatePost(ctx context.Context, post Post) error
	UpdatePost(ctx context.Context, post Post) error
	SoftDeletePost(ctx context.Context, postID string, at time.Time) error
	SetPostPinned(ctx context.Context, postID string, pinned bool) error
	IncrementPostViews(ctx context.Context, postID string) error

	ListComments(ctx context.Context, postID string) ([]Comment, error)
	GetComment(ctx context.Context, commentID string) (Comment, error)
	// CreateComment inserts the comment and bumps the post comment count
	// in one transaction.
	CreateComment(ctx context.Context, comment Comment) error
	// SoftDeleteComment marks the comment deleted and lowers the post
	// comment count in one transaction.
	SoftDeleteComment(ctx context.Context, commentID string, at time.Time) error

	ToggleLike(ctx context.Context, postID string, userID string, at time.Time) (liked bool, count int, err error)
	HasLiked(ctx context.Context, postID string, userID string) (bool, error)
	ToggleScrap(ctx context.Context, userID string, postID string, at time.Time) (bool, error)
	HasScrapped(ctx context.Context, userID string, postID string) (bool, error)
	ListScraps(ctx context.Context, userID string, limit int, offset int) ([]ScrappedPost, int, error)
}

// Setting is one keyed configuration document.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// MenuItem is one navigation link. ParentID is empty for top-level items.
type MenuItem struct {
	ID        string
	Location  string
	Label     string
	URL       string
	ParentID  string
	SortOrder int
	Visible   bool
}

// SiteConfigStore persists settings documents and menus.
type SiteConfigStore interface {
	GetSetting(ctx context.Context, key string) (Setting, error)
	PutSetting(ctx context.Context, setting Setting) error
	// ListMenuItems returns items for location ordered by sort order;
	// an empty location lists every item.
	ListMenuItems(ctx context.Context, location string) ([]MenuItem, error)
	GetMenuItem(ctx context.Context, itemID string) (MenuItem, error)
	PutMenuItem(ctx context.Context, item MenuItem) error
	// DeleteMenuItem removes the item and its children.
	DeleteMenuItem(ctx context.Context, itemID string) error
	// ReorderMenuItems sets each item's sort order to its slice index.
	ReorderMenuItems(ctx context.Context, itemIDs []string) error
	// ReplaceSiteConfig swaps the setting and every menu item atomically.
	ReplaceSiteConfig(ctx context.Context, setting Setting, items []MenuItem) error
}

// Upload is one stored upload file.
type Upload struct {
	ID           string
	Path         string
	OriginalName string
	ContentType  string
	SizeBytes    int64
	UploaderID   string
	CreatedAt    time.Time
}

// UploadPage is one page of uploads plus the total count.
type UploadPage struct {
	Uploads []Upload
	Total   int
}

// UploadStore persists upload records.
type UploadStore interface {
	PutUpload(ctx context.Context, upload Upload) error
	GetUploadByPath(ctx context.Context, path string) (Upload, error)
	// ListUploads returns uploads newest first; limit <= 0 returns all.
	ListUploads(ctx context.Context, limit int, offset int) (UploadPage, error)
	DeleteUploadsByPath(ctx context.Context, paths []string) (int64, error)
}

// ReferenceSource is one stored document that may point at upload files.
type ReferenceSource struct {
	Kind   string
	ID     string
	Format string
	Body   string
	Paths  []string
}

// Reference source kinds.
const (
	ReferenceProduct = "product"
	ReferenceEntry   = "entry"
	ReferencePost    = "post"
	ReferenceSetting = "setting"
)

// ReferenceStore lists every stored document that can reference uploads.
type ReferenceStore interface {
	ListReferenceSources(ctx context.Context) ([]ReferenceSource, error)
}

// Submission records one IndexNow request.
type Submission struct {
	ID         string
	Host       string
	URLCount   int
	StatusCode int
	Attempts   int
	Error      string
	CreatedAt  time.Time
}

// SubmissionStore persists the IndexNow submission log.
type SubmissionStore interface {
	PutSubmission(ctx context.Context, submission Submission) error
	ListSubmissions(ctx context.Context, limit int) ([]Submission, error)
}

// Store is the full site persistence contract.
type Store interface {
	UserStore
	SessionStore
	CatalogStore
	ContentStore
	CommunityStore
	SiteConfigStore
	UploadStore
	ReferenceStore
	SubmissionStore
	Close() error
}
