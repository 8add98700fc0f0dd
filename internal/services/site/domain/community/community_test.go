package community

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/folio/internal/platform/id"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/storage/sqlite"
)

const simpleBody = `{"root":{"type":"root","children":[{"type":"paragraph","children":[{"type":"text","text":"hello"}]}]}}`

type recordingPublisher struct {
	mu    sync.Mutex
	paths []string
}

func (p *recordingPublisher) Enqueue(paths ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, paths...)
}

type fixture struct {
	svc    *Service
	pub    *recordingPublisher
	admin  Actor
	alice  Actor
	bob    Actor
	boards map[string]storage.Board
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "folio.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	newUser := func(username string, role string) Actor {
		u := storage.User{
			ID:          id.MustNewID(),
			Email:       username + "@example.com",
			Username:    username,
			DisplayName: username,
			Role:        role,
			Status:      storage.UserStatusApproved,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		created, err := store.CreateUser(ctx, u, nil)
		if err != nil {
			t.Fatalf("create user %s: %v", username, err)
		}
		return Actor{UserID: created.ID, Role: created.Role}
	}

	pub := &recordingPublisher{}
	svc := NewService(store, WithPublisher(pub), WithClock(func() time.Time {
		now = now.Add(time.Minute)
		return now
	}))
	f := fixture{
		svc:    svc,
		pub:    pub,
		admin:  newUser("admin", storage.RoleAdmin),
		alice:  newUser("alice", storage.RoleMember),
		bob:    newUser("bob", storage.RoleMember),
		boards: map[string]storage.Board{},
	}
	for _, in := range []BoardInput{
		{Name: "Free Talk", Slug: "free"},
		{Name: "Notices", WriteRole: storage.RoleAdmin},
		{Name: "Staff", Hidden: true},
	} {
		board, err := svc.SaveBoard(ctx, in)
		if err != nil {
			t.Fatalf("save board %s: %v", in.Name, err)
		}
		f.boards[board.Slug] = board
	}
	return f
}

func TestSaveBoardValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SaveBoard(ctx, BoardInput{Name: ""}); apperrors.LocalizationKey(err) != "error.community.invalid_board_name" {
		t.Fatalf("blank name err = %v", err)
	}
	if _, err := f.svc.SaveBoard(ctx, BoardInput{Name: "X", WriteRole: "guest"}); apperrors.LocalizationKey(err) != "error.community.invalid_write_role" {
		t.Fatalf("bad role err = %v", err)
	}
	if _, err := f.svc.SaveBoard(ctx, BoardInput{Name: "Again", Slug: "free"}); !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("duplicate slug err = %v", err)
	}

	boards, err := f.svc.ListBoards(ctx, false)
	if err != nil {
		t.Fatalf("list boards: %v", err)
	}
	for _, b := range boards {
		if b.Hidden {
			t.Fatalf("hidden board %q listed publicly", b.Slug)
		}
	}
	if _, err := f.svc.GetBoardBySlug(ctx, "staff", f.alice); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("hidden board for member err = %v, want not found", err)
	}
	if _, err := f.svc.GetBoardBySlug(ctx, "staff", f.admin); err != nil {
		t.Fatalf("hidden board for admin: %v", err)
	}
}

func TestCreatePostEnforcesWriteRoleAndValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	notices := f.boards["notices"]
	if _, err := f.svc.CreatePost(ctx, f.alice, PostInput{BoardID: notices.ID, Title: "Hi", Body: simpleBody}); !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Fatalf("member on admin board err = %v, want forbidden", err)
	}
	if _, err := f.svc.CreatePost(ctx, f.admin, PostInput{BoardID: notices.ID, Title: "Hours", Body: simpleBody}); err != nil {
		t.Fatalf("admin post: %v", err)
	}

	free := f.boards["free"]
	long := make([]rune, maxTitleRunes+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := f.svc.CreatePost(ctx, f.alice, PostInput{BoardID: free.ID, Title: string(long), Body: simpleBody}); apperrors.LocalizationKey(err) != "error.community.invalid_title" {
		t.Fatalf("long title err = %v", err)
	}
	if _, err := f.svc.CreatePost(ctx, f.alice, PostInput{BoardID: free.ID, Title: "Hi", Body: "not json"}); apperrors.LocalizationKey(err) != "error.richtext.invalid" {
		t.Fatalf("bad body err = %v", err)
	}
	if _, err := f.svc.CreatePost(ctx, Actor{}, PostInput{BoardID: free.ID, Title: "Hi", Body: simpleBody}); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("anonymous err = %v", err)
	}

	post, err := f.svc.CreatePost(ctx, f.alice, PostInput{BoardID: free.ID, Title: "Hi", Body: ""})
	if err != nil {
		t.Fatalf("empty body post: %v", err)
	}
	if got := f.pub.paths[len(f.pub.paths)-2:]; !cmp.Equal(got, []string{PostPath("free", post.ID), "/boards/free"}) {
		t.Fatalf("announced = %v", got)
	}
}

func TestPostLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.alice, PostInput{BoardID: f.boards["free"].ID, Title: "First", Body: simpleBody})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.UpdatePost(ctx, f.bob, post.ID, PostInput{Title: "Mine now", Body: simpleBody}); !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Fatalf("non-author update err = %v, want forbidden", err)
	}
	updated, err := f.svc.UpdatePost(ctx, f.admin, post.ID, PostInput{Title: "Edited", Body: simpleBody})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Title != "Edited" {
		t.Fatalf("title = %q", updated.Title)
	}

	view, err := f.svc.GetPost(ctx, "free", post.ID, f.bob)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if view.Post.ViewCount != 1 || view.CanEdit || view.BodyHTML != "<p>hello</p>" {
		t.Fatalf("view = %+v", view)
	}
	if _, err := f.svc.GetPost(ctx, "notices", post.ID, f.bob); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("wrong board err = %v", err)
	}

	pinned, err := f.svc.SetPinned(ctx, post.ID, true)
	if err != nil || !pinned.Pinned {
		t.Fatalf("pin = %+v, %v", pinned, err)
	}

	if _, err := f.svc.DeletePost(ctx, f.alice, post.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetPost(ctx, "free", post.ID, f.alice); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("deleted post err = %v, want not found", err)
	}
	_, page, err := f.svc.ListPosts(ctx, "free", "", listing.NewPage(1, 20, 20), f.alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("deleted post still listed: %+v", page)
	}
}

func TestHiddenBoardsStayPrivate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	staff := f.boards["staff"]

	if _, err := f.svc.CreatePost(ctx, f.alice, PostInput{BoardID: staff.ID, Title: "Hi", Body: simpleBody}); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("member post on hidden board err = %v, want not found", err)
	}
	f.pub.paths = nil
	post, err := f.svc.CreatePost(ctx, f.admin, PostInput{BoardID: staff.ID, Title: "Rota", Body: simpleBody})
	if err != nil {
		t.Fatalf("admin post: %v", err)
	}
	if _, err := f.svc.AddComment(ctx, f.alice, post.ID, "", "me too"); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("member comment err = %v, want not found", err)
	}
	if _, err := f.svc.ToggleLike(ctx, f.bob, post.ID); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("member like err = %v, want not found", err)
	}
	if _, err := f.svc.ToggleScrap(ctx, f.bob, post.ID); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("member scrap err = %v, want not found", err)
	}
	if _, err := f.svc.AddComment(ctx, f.admin, post.ID, "", "noted"); err != nil {
		t.Fatalf("admin comment: %v", err)
	}
	if _, err := f.svc.UpdatePost(ctx, f.admin, post.ID, PostInput{Title: "Rota v2", Body: simpleBody}); err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if _, err := f.svc.DeletePost(ctx, f.admin, post.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}

	// Invariant: nothing on a hidden board is ever announced.
	if len(f.pub.paths) != 0 {
		t.Fatalf("announced hidden board paths %v", f.pub.paths)
	}
}

func TestListPostsPinnedFirstAndOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	free := f.boards["free"].ID

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		post, err := f.svc.CreatePost(ctx, f.alice, PostInput{BoardID: free, Title: title, Body: simpleBody})
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		ids = append(ids, post.ID)
	}
	if _, err := f.svc.SetPinned(ctx, ids[0], true); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if _, err := f.svc.ToggleLike(ctx, f.bob, ids[1]); err != nil {
		t.Fatalf("like: %v", err)
	}

	_, page, err := f.svc.ListPosts(ctx, "free", "", listing.NewPage(1, 20, 20), f.alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{ids[0], ids[2], ids[1]}, postIDs(page.Posts)); diff != "" {
		t.Fatalf("default order mismatch (-want +got):\n%s", diff)
	}

	_, page, err = f.svc.ListPosts(ctx, "free", "like_count desc", listing.NewPage(1, 20, 20), f.alice)
	if err != nil {
		t.Fatalf("list by likes: %v", err)
	}
	if page.Posts[1].ID != ids[1] {
		t.Fatalf("like order = %v", postIDs(page.Posts))
	}

	if _, _, err := f.svc.ListPosts(ctx, "free", "title", listing.NewPage(1, 20, 20), f.alice); !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Fatalf("bad order err = %v", err)
	}
}

func TestCommentsAllowOneReplyLevel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.alice, PostInput{BoardID: f.boards["free"].ID, Title: "Q", Body: simpleBody})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	other, err := f.svc.CreatePost(ctx, f.alice, PostInput{BoardID: f.boards["free"].ID, Title: "Other", Body: simpleBody})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	if _, err := f.svc.AddComment(ctx, f.bob, post.ID, "", "   "); apperrors.LocalizationKey(err) != "error.community.invalid_comment" {
		t.Fatalf("blank comment err = %v", err)
	}
	top, err := f.svc.AddComment(ctx, f.bob, post.ID, "", "first!")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	reply, err := f.svc.AddComment(ctx, f.alice, post.ID, top.ID, "thanks")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if _, err := f.svc.AddComment(ctx, f.bob, post.ID, reply.ID, "nested"); apperrors.LocalizationKey(err) != "error.community.invalid_parent" {
		t.Fatalf("nested reply err = %v", err)
	}
	if _, err := f.svc.AddComment(ctx, f.bob, other.ID, top.ID, "cross"); apperrors.LocalizationKey(err) != "error.community.invalid_parent" {
		t.Fatalf("cross-post reply err = %v", err)
	}

	if _, err := f.svc.DeleteComment(ctx, f.alice, top.ID); !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Fatalf("non-author delete err = %v", err)
	}
	if _, err := f.svc.DeleteComment(ctx, f.bob, top.ID); err != nil {
		t.Fatalf("delete comment: %v", err)
	}

	view, err := f.svc.GetPost(ctx, "free", post.ID, f.bob)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if view.Post.CommentCount != 1 {
		t.Fatalf("comment count = %d, want 1", view.Post.CommentCount)
	}
	if len(view.Comments) != 1 || view.Comments[0].Comment.Body != "" || len(view.Comments[0].Replies) != 1 {
		t.Fatalf("threads = %+v", view.Comments)
	}
}

func TestToggleLikeAndScrap(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.svc.CreatePost(ctx, f.alice, PostInput{BoardID: f.boards["free"].ID, Title: "Like me", Body: simpleBody})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	first, err := f.svc.ToggleLike(ctx, f.bob, post.ID)
	if err != nil || !first.Active || first.Count != 1 {
		t.Fatalf("first like = %+v, %v", first, err)
	}
	second, err := f.svc.ToggleLike(ctx, f.bob, post.ID)
	if err != nil || second.Active || second.Count != 0 {
		t.Fatalf("second like = %+v, %v", second, err)
	}

	scrap, err := f.svc.ToggleScrap(ctx, f.bob, post.ID)
	if err != nil || !scrap.Active {
		t.Fatalf("scrap = %+v, %v", scrap, err)
	}
	scraps, err := f.svc.ListScraps(ctx, f.bob, listing.NewPage(1, 10, 10))
	if err != nil {
		t.Fatalf("list scraps: %v", err)
	}
	if scraps.Total != 1 || scraps.Scraps[0].Post.ID != post.ID {
		t.Fatalf("scraps = %+v", scraps)
	}

	view, err := f.svc.GetPost(ctx, "free", post.ID, f.bob)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if view.Liked || !view.Scrapped {
		t.Fatalf("viewer state liked=%v scrapped=%v", view.Liked, view.Scrapped)
	}
}

func TestDeleteBoardInUse(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	free := f.boards["free"]
	if _, err := f.svc.CreatePost(ctx, f.alice, PostInput{BoardID: free.ID, Title: "x", Body: simpleBody}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.DeleteBoard(ctx, free.ID); apperrors.LocalizationKey(err) != "error.community.board_in_use" {
		t.Fatalf("delete in-use board err = %v", err)
	}
	if err := f.svc.DeleteBoard(ctx, f.boards["staff"].ID); err != nil {
		t.Fatalf("delete empty board: %v", err)
	}
}

func postIDs(posts []storage.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}
