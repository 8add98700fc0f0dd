package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "folio.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return store
}

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func seedUser(t *testing.T, store *Store, id, username string) storage.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), storage.User{
		ID:           id,
		Email:        username + "@example.com",
		Username:     username,
		DisplayName:  "User " + username,
		PasswordHash: "hash",
		Role:         storage.RoleMember,
		Status:       storage.UserStatusApproved,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}, nil)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = sqlDB.Close() }()

	for _, table := range []string{"users", "sessions", "categories", "products", "product_images", "entries", "boards", "posts", "comments", "post_likes", "scraps", "settings", "menu_items", "uploads", "indexnow_submissions"} {
		assertTableExists(t, sqlDB, table)
	}

	applied, err := store.Migrate(context.Background())
	if err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("second migrate applied %v, want none", applied)
	}
}

func assertTableExists(t *testing.T, sqlDB *sql.DB, table string) {
	t.Helper()
	var name string
	err := sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	if err != nil {
		t.Fatalf("table %s missing: %v", table, err)
	}
}

func TestCreateUserBootstrapAppliesOnlyToFirstUser(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	bootstrap := func(u storage.User) storage.User {
		u.Role = storage.RoleAdmin
		u.Status = storage.UserStatusApproved
		return u
	}
	base := storage.User{PasswordHash: "h", Role: storage.RoleMember, Status: storage.UserStatusPending, CreatedAt: testNow, UpdatedAt: testNow}

	first := base
	first.ID, first.Email, first.Username, first.DisplayName = "u1", "one@example.com", "one", "One"
	created, err := store.CreateUser(ctx, first, bootstrap)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if created.Role != storage.RoleAdmin || created.Status != storage.UserStatusApproved {
		t.Fatalf("first user = %s/%s, want admin/approved", created.Role, created.Status)
	}

	second := base
	second.ID, second.Email, second.Username, second.DisplayName = "u2", "two@example.com", "two", "Two"
	created, err = store.CreateUser(ctx, second, bootstrap)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if created.Role != storage.RoleMember || created.Status != storage.UserStatusPending {
		t.Fatalf("second user = %s/%s, want member/pending", created.Role, created.Status)
	}

	// Invariant: email uniqueness ignores case.
	dup := base
	dup.ID, dup.Email, dup.Username, dup.DisplayName = "u3", "ONE@example.com", "three", "Three"
	if _, err := store.CreateUser(ctx, dup, bootstrap); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate email error = %v, want ErrConflict", err)
	}
}

func TestGetUserByLoginMatchesEmailOrUsername(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "u1", "alice")

	for _, identifier := range []string{"alice", "ALICE", "alice@example.com", " Alice@Example.com "} {
		u, err := store.GetUserByLogin(ctx, identifier)
		if err != nil {
			t.Fatalf("GetUserByLogin(%q): %v", identifier, err)
		}
		if u.ID != "u1" {
			t.Fatalf("GetUserByLogin(%q) id = %q, want u1", identifier, u.ID)
		}
	}
	if _, err := store.GetUserByLogin(ctx, "bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing login error = %v, want ErrNotFound", err)
	}
}

func TestUserStatusAndSessions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "admin", "admin")
	seedUser(t, store, "u1", "alice")

	if err := store.UpdateUserStatus(ctx, "u1", storage.UserStatusApproved, "admin", testNow); err != nil {
		t.Fatalf("approve: %v", err)
	}
	u, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.ApprovedBy != "admin" || u.ApprovedAt == nil || !u.ApprovedAt.Equal(testNow) {
		t.Fatalf("approval stamp = %q/%v", u.ApprovedBy, u.ApprovedAt)
	}
	if err := store.UpdateUserStatus(ctx, "missing", storage.UserStatusRejected, "", testNow); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing user status error = %v, want ErrNotFound", err)
	}

	live := storage.Session{ID: "s1", UserID: "u1", CreatedAt: testNow, ExpiresAt: testNow.Add(time.Hour), LastSeenAt: testNow}
	expired := storage.Session{ID: "s2", UserID: "u1", CreatedAt: testNow, ExpiresAt: testNow.Add(-time.Minute), LastSeenAt: testNow}
	for _, s := range []storage.Session{live, expired} {
		if err := store.PutSession(ctx, s); err != nil {
			t.Fatalf("put session: %v", err)
		}
	}
	got, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if diff := cmp.Diff(live, got); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}
	purged, err := store.DeleteExpiredSessions(ctx, testNow)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}
	if err := store.DeleteUserSessions(ctx, "u1"); err != nil {
		t.Fatalf("delete user sessions: %v", err)
	}
	if _, err := store.GetSession(ctx, "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("session after delete error = %v, want ErrNotFound", err)
	}
}

func TestCatalogProductsAndCategoryConflict(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	cat := storage.Category{ID: "c1", Slug: "tea", Name: "Tea", CreatedAt: testNow, UpdatedAt: testNow}
	if err := store.PutCategory(ctx, cat); err != nil {
		t.Fatalf("put category: %v", err)
	}
	dupSlug := storage.Category{ID: "c2", Slug: "tea", Name: "Other", CreatedAt: testNow, UpdatedAt: testNow}
	if err := store.PutCategory(ctx, dupSlug); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate slug error = %v, want ErrConflict", err)
	}

	products := []storage.Product{
		{ID: "p1", Slug: "green", CategoryID: "c1", Name: "Green", PriceCents: 3000, Currency: "KRW", Status: storage.StatusPublished, SortOrder: 2, Images: []string{"/uploads/2026/03/a.png", "/uploads/2026/03/b.png"}},
		{ID: "p2", Slug: "black", CategoryID: "c1", Name: "Black", PriceCents: 1000, Currency: "KRW", Status: storage.StatusPublished, SortOrder: 1},
		{ID: "p3", Slug: "white", CategoryID: "c1", Name: "White", PriceCents: 2000, Currency: "KRW", Status: storage.StatusDraft, SortOrder: 0},
	}
	for _, p := range products {
		p.CreatedAt, p.UpdatedAt = testNow, testNow
		if err := store.PutProduct(ctx, p); err != nil {
			t.Fatalf("put product %s: %v", p.ID, err)
		}
	}

	page, err := store.ListProducts(ctx, storage.ProductQuery{Status: storage.StatusPublished, OrderBy: []storage.OrderField{{Field: "price", Desc: true}}})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	var slugs []string
	for _, p := range page.Products {
		slugs = append(slugs, p.Slug)
	}
	if diff := cmp.Diff([]string{"green", "black"}, slugs); diff != "" {
		t.Fatalf("published order mismatch (-want +got):\n%s", diff)
	}
	if page.Total != 2 {
		t.Fatalf("total = %d, want 2", page.Total)
	}

	got, err := store.GetProductBySlug(ctx, "green")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if diff := cmp.Diff(products[0].Images, got.Images); diff != "" {
		t.Fatalf("images mismatch (-want +got):\n%s", diff)
	}
	if got.CategorySlug != "tea" {
		t.Fatalf("category slug = %q, want tea", got.CategorySlug)
	}

	if err := store.DeleteCategory(ctx, "c1"); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("delete non-empty category error = %v, want ErrConflict", err)
	}
	for _, p := range products {
		if err := store.DeleteProduct(ctx, p.ID); err != nil {
			t.Fatalf("delete product: %v", err)
		}
	}
	if err := store.DeleteCategory(ctx, "c1"); err != nil {
		t.Fatalf("delete empty category: %v", err)
	}
}

func TestEntriesListNewestPublishedFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	older := testNow.Add(-48 * time.Hour)
	newer := testNow.Add(-time.Hour)
	entries := []storage.Entry{
		{ID: "e1", Slug: "old", Title: "Old", Format: storage.FormatMarkdown, Status: storage.StatusPublished, PublishedAt: &older},
		{ID: "e2", Slug: "new", Title: "New", Format: storage.FormatMarkdown, Status: storage.StatusPublished, PublishedAt: &newer},
		{ID: "e3", Slug: "draft", Title: "Draft", Format: storage.FormatMarkdown, Status: storage.StatusDraft},
	}
	for _, e := range entries {
		e.CreatedAt, e.UpdatedAt = testNow, testNow
		if err := store.PutEntry(ctx, e); err != nil {
			t.Fatalf("put entry: %v", err)
		}
	}
	page, err := store.ListEntries(ctx, storage.EntryQuery{Status: storage.StatusPublished})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(page.Entries) != 2 || page.Entries[0].Slug != "new" || page.Entries[1].Slug != "old" {
		t.Fatalf("unexpected entries order: %+v", page.Entries)
	}
}

func seedBoardAndPost(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	seedUser(t, store, "u1", "alice")
	seedUser(t, store, "u2", "bob")
	if err := store.PutBoard(ctx, storage.Board{ID: "b1", Slug: "free", Name: "Free", WriteRole: storage.RoleMember, CreatedAt: testNow, UpdatedAt: testNow}); err != nil {
		t.Fatalf("put board: %v", err)
	}
	if err := store.CreatePost(ctx, storage.Post{ID: "p1", BoardID: "b1", AuthorID: "u1", Title: "Hello", Body: "{}", CreatedAt: testNow, UpdatedAt: testNow}); err != nil {
		t.Fatalf("create post: %v", err)
	}
}

func TestCommentCountersTrackInsertAndSoftDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedBoardAndPost(t, store)

	if err := store.CreateComment(ctx, storage.Comment{ID: "c1", PostID: "p1", AuthorID: "u2", Body: "hi", CreatedAt: testNow}); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if err := store.CreateComment(ctx, storage.Comment{ID: "c2", PostID: "p1", ParentID: "c1", AuthorID: "u1", Body: "reply", CreatedAt: testNow.Add(time.Second)}); err != nil {
		t.Fatalf("create reply: %v", err)
	}
	post, err := store.GetPost(ctx, "p1")
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if post.CommentCount != 2 {
		t.Fatalf("comment count = %d, want 2", post.CommentCount)
	}
	if post.AuthorName != "User alice" {
		t.Fatalf("author name = %q", post.AuthorName)
	}

	if err := store.SoftDeleteComment(ctx, "c1", testNow); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	if err := store.SoftDeleteComment(ctx, "c1", testNow); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete error = %v, want ErrNotFound", err)
	}
	post, _ = store.GetPost(ctx, "p1")
	if post.CommentCount != 1 {
		t.Fatalf("comment count after delete = %d, want 1", post.CommentCount)
	}
	comments, err := store.ListComments(ctx, "p1")
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 2 || comments[0].DeletedAt == nil {
		t.Fatalf("expected soft-deleted comment to remain listed: %+v", comments)
	}
}

func TestToggleLikeAndScrap(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedBoardAndPost(t, store)

	liked, count, err := store.ToggleLike(ctx, "p1", "u2", testNow)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !liked || count != 1 {
		t.Fatalf("like = %v/%d, want true/1", liked, count)
	}
	liked, count, err = store.ToggleLike(ctx, "p1", "u2", testNow)
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if liked || count != 0 {
		t.Fatalf("unlike = %v/%d, want false/0", liked, count)
	}

	scrapped, err := store.ToggleScrap(ctx, "u2", "p1", testNow)
	if err != nil || !scrapped {
		t.Fatalf("scrap = %v, %v", scrapped, err)
	}
	scraps, total, err := store.ListScraps(ctx, "u2", 10, 0)
	if err != nil {
		t.Fatalf("list scraps: %v", err)
	}
	if total != 1 || len(scraps) != 1 || scraps[0].Post.ID != "p1" {
		t.Fatalf("scraps = %+v total %d", scraps, total)
	}
	// Invariant: soft-deleted posts drop out of scrap listings.
	if err := store.SoftDeletePost(ctx, "p1", testNow); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	_, total, err = store.ListScraps(ctx, "u2", 10, 0)
	if err != nil {
		t.Fatalf("list scraps: %v", err)
	}
	if total != 0 {
		t.Fatalf("scraps after delete = %d, want 0", total)
	}
}

func TestListPostsPinnedFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedBoardAndPost(t, store)
	if err := store.CreatePost(ctx, storage.Post{ID: "p2", BoardID: "b1", AuthorID: "u2", Title: "Newer", Body: "{}", CreatedAt: testNow.Add(time.Hour), UpdatedAt: testNow}); err != nil {
		t.Fatalf("create post: %v", err)
	}
	if err := store.SetPostPinned(ctx, "p1", true); err != nil {
		t.Fatalf("pin: %v", err)
	}
	page, err := store.ListPosts(ctx, storage.PostQuery{BoardID: "b1"})
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(page.Posts) != 2 || page.Posts[0].ID != "p1" || page.Posts[1].ID != "p2" {
		t.Fatalf("unexpected order: %+v", page.Posts)
	}
	if err := store.DeleteBoard(ctx, "b1"); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("delete board with posts error = %v, want ErrConflict", err)
	}
}

func TestMenuItemsCascadeAndReplace(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	items := []storage.MenuItem{
		{ID: "child", Location: storage.MenuHeader, Label: "Child", URL: "/c", ParentID: "parent", Visible: true},
		{ID: "parent", Location: storage.MenuHeader, Label: "Parent", URL: "/p", Visible: true},
	}
	setting := storage.Setting{Key: "theme", Value: `{"siteName":"Folio"}`, UpdatedAt: testNow}
	if err := store.ReplaceSiteConfig(ctx, setting, items); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := store.ListMenuItems(ctx, storage.MenuHeader)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("items = %d, want 2", len(got))
	}
	if err := store.DeleteMenuItem(ctx, "parent"); err != nil {
		t.Fatalf("delete parent: %v", err)
	}
	got, _ = store.ListMenuItems(ctx, "")
	if len(got) != 0 {
		t.Fatalf("children should cascade, got %+v", got)
	}
	stored, err := store.GetSetting(ctx, "theme")
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if stored.Value != setting.Value {
		t.Fatalf("setting value = %q", stored.Value)
	}
}

func TestReferenceSourcesCoverEveryKind(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedBoardAndPost(t, store)
	if err := store.PutCategory(ctx, storage.Category{ID: "c1", Slug: "c", Name: "C", CreatedAt: testNow, UpdatedAt: testNow}); err != nil {
		t.Fatalf("put category: %v", err)
	}
	if err := store.PutProduct(ctx, storage.Product{ID: "p1", Slug: "p", CategoryID: "c1", Name: "P", Currency: "KRW", Status: storage.StatusDraft, ThumbnailPath: "/uploads/t.png", CreatedAt: testNow, UpdatedAt: testNow}); err != nil {
		t.Fatalf("put product: %v", err)
	}
	if err := store.PutEntry(ctx, storage.Entry{ID: "e1", Slug: "e", Title: "E", Format: storage.FormatMarkdown, Status: storage.StatusDraft, CoverPath: "/uploads/c.png", CreatedAt: testNow, UpdatedAt: testNow}); err != nil {
		t.Fatalf("put entry: %v", err)
	}
	if err := store.PutSetting(ctx, storage.Setting{Key: "theme", Value: "{}", UpdatedAt: testNow}); err != nil {
		t.Fatalf("put setting: %v", err)
	}
	sources, err := store.ListReferenceSources(ctx)
	if err != nil {
		t.Fatalf("list sources: %v", err)
	}
	kinds := map[string]int{}
	for _, source := range sources {
		kinds[source.Kind]++
	}
	want := map[string]int{storage.ReferenceProduct: 1, storage.ReferenceEntry: 1, storage.ReferencePost: 1, storage.ReferenceSetting: 1}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestUploadsAndSubmissions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	upload := storage.Upload{ID: "f1", Path: "/uploads/2026/03/f1.png", ContentType: "image/png", SizeBytes: 42, CreatedAt: testNow}
	if err := store.PutUpload(ctx, upload); err != nil {
		t.Fatalf("put upload: %v", err)
	}
	if err := store.PutUpload(ctx, upload); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate upload error = %v, want ErrConflict", err)
	}
	deleted, err := store.DeleteUploadsByPath(ctx, []string{upload.Path, "/uploads/missing.png"})
	if err != nil {
		t.Fatalf("delete uploads: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	for i, at := range []time.Time{testNow, testNow.Add(time.Minute)} {
		sub := storage.Submission{ID: string(rune('a' + i)), Host: "example.com", URLCount: 3, StatusCode: 200, Attempts: 1, CreatedAt: at}
		if err := store.PutSubmission(ctx, sub); err != nil {
			t.Fatalf("put submission: %v", err)
		}
	}
	subs, err := store.ListSubmissions(ctx, 1)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != "b" {
		t.Fatalf("latest submission = %+v", subs)
	}
}
