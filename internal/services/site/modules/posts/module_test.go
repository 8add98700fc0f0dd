package posts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/louisbranch/folio/internal/services/site/domain/community"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/sitetest"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

func mount(t *testing.T, env *sitetest.Env, viewer storage.User) http.Handler {
	t.Helper()
	mnt, err := New(env.Community).Mount(sitetest.Deps(viewer))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if mnt.Prefix != "/app/posts/" {
		t.Fatalf("Prefix = %q", mnt.Prefix)
	}
	return mnt.Handler
}

func do(h http.Handler, method string, path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNewFormPreselectsWritableBoard(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	member := env.User(t, "alice", storage.RoleMember)
	free := env.Board(t, "free", "Free talk")
	if _, err := env.Community.SaveBoard(context.Background(), community.BoardInput{Slug: "notice", Name: "Notices", WriteRole: storage.RoleAdmin}); err != nil {
		t.Fatalf("SaveBoard() error = %v", err)
	}

	rr := do(mount(t, env, member), http.MethodGet, "/app/posts/new?board=free", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `value="`+free.ID+`" selected`) {
		t.Fatalf("board not preselected:\n%s", body)
	}
	if strings.Contains(body, "Notices") {
		t.Fatal("admin-only board offered to a member")
	}
}

func TestCreatePostFromMarkdown(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	member := env.User(t, "alice", storage.RoleMember)
	board := env.Board(t, "free", "Free talk")
	h := mount(t, env, member)

	rr := do(h, http.MethodPost, "/app/posts/", url.Values{
		"board_id": {board.ID},
		"title":    {"Hello board"},
		"body":     {"**bold** start"},
	}, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	loc := rr.Header().Get("Location")
	if !strings.HasPrefix(loc, "/boards/free/posts/") {
		t.Fatalf("Location = %q", loc)
	}
	page, err := env.Store.ListPosts(context.Background(), storage.PostQuery{BoardID: board.ID, Limit: 10})
	if err != nil || len(page.Posts) != 1 {
		t.Fatalf("ListPosts() = %+v, %v", page, err)
	}
	if !strings.Contains(page.Posts[0].Body, `"format":1`) {
		t.Fatalf("body = %s, want bold text node", page.Posts[0].Body)
	}
}

func TestCreatePostRerendersOnInvalidTitle(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	member := env.User(t, "alice", storage.RoleMember)
	board := env.Board(t, "free", "Free talk")
	rr := do(mount(t, env, member), http.MethodPost, "/app/posts/", url.Values{
		"board_id": {board.ID},
		"title":    {"   "},
		"body":     {sitetest.RichText},
	}, false)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rr.Body.String(), `class="form-error"`) {
		t.Fatal("form error not rendered")
	}
}

func TestEditRequiresAuthor(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	author := env.User(t, "alice", storage.RoleMember)
	other := env.User(t, "bob", storage.RoleMember)
	admin := env.User(t, "root", storage.RoleAdmin)
	post := env.Post(t, author, env.Board(t, "free", "Free talk"), "Mine")

	if rr := do(mount(t, env, other), http.MethodGet, "/app/posts/"+post.ID+"/edit", nil, false); rr.Code != http.StatusForbidden {
		t.Fatalf("other edit status = %d, want 403", rr.Code)
	}
	if rr := do(mount(t, env, author), http.MethodGet, "/app/posts/"+post.ID+"/edit", nil, false); rr.Code != http.StatusOK {
		t.Fatalf("author edit status = %d", rr.Code)
	}
	rr := do(mount(t, env, admin), http.MethodPost, "/app/posts/"+post.ID, url.Values{"title": {"Moderated"}, "body": {sitetest.RichText}}, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("admin update status = %d", rr.Code)
	}
	got, err := env.Store.GetPost(context.Background(), post.ID)
	if err != nil || got.Title != "Moderated" {
		t.Fatalf("GetPost() = %+v, %v", got, err)
	}
}

func TestDeletePostRedirectsToBoard(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	author := env.User(t, "alice", storage.RoleMember)
	post := env.Post(t, author, env.Board(t, "free", "Free talk"), "Bye")
	rr := do(mount(t, env, author), http.MethodPost, "/app/posts/"+post.ID+"/delete", url.Values{}, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/boards/free" {
		t.Fatalf("delete = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if _, err := env.Community.LivePost(context.Background(), post.ID); err == nil {
		t.Fatal("post still live after delete")
	}
}

func TestCommentAndReplyFlow(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	author := env.User(t, "alice", storage.RoleMember)
	reader := env.User(t, "bob", storage.RoleMember)
	post := env.Post(t, author, env.Board(t, "free", "Free talk"), "Talk")
	h := mount(t, env, reader)

	rr := do(h, http.MethodPost, "/app/posts/"+post.ID+"/comments", url.Values{"body": {"first!"}}, false)
	if rr.Code != http.StatusSeeOther || !strings.Contains(rr.Header().Get("Location"), "#comment-") {
		t.Fatalf("comment = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	comments, err := env.Store.ListComments(context.Background(), post.ID)
	if err != nil || len(comments) != 1 {
		t.Fatalf("ListComments() = %v, %v", comments, err)
	}
	parent := comments[0]

	rr = do(h, http.MethodPost, "/app/posts/"+post.ID+"/comments", url.Values{"body": {"reply"}, "parent_id": {parent.ID}}, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("reply status = %d", rr.Code)
	}
	comments, _ = env.Store.ListComments(context.Background(), post.ID)
	reply := comments[1]
	rr = do(h, http.MethodPost, "/app/posts/"+post.ID+"/comments", url.Values{"body": {"too deep"}, "parent_id": {reply.ID}}, false)
	if rr.Code != http.StatusSeeOther || !strings.HasSuffix(rr.Header().Get("Location"), "#comments") {
		t.Fatalf("nested reply = %d %q, want redirect with error notice", rr.Code, rr.Header().Get("Location"))
	}

	if rr := do(mount(t, env, author), http.MethodPost, "/app/posts/"+post.ID+"/comments/"+parent.ID+"/delete", url.Values{}, false); rr.Code != http.StatusForbidden {
		t.Fatalf("foreign comment delete = %d, want 403", rr.Code)
	}
	if rr := do(h, http.MethodPost, "/app/posts/"+post.ID+"/comments/"+parent.ID+"/delete", url.Values{}, false); rr.Code != http.StatusSeeOther {
		t.Fatalf("own comment delete = %d", rr.Code)
	}
}

func TestLikeAndScrapToggleFragments(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	author := env.User(t, "alice", storage.RoleMember)
	reader := env.User(t, "bob", storage.RoleMember)
	post := env.Post(t, author, env.Board(t, "free", "Free talk"), "Likeable")
	h := mount(t, env, reader)

	rr := do(h, http.MethodPost, "/app/posts/"+post.ID+"/like", url.Values{}, true)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `aria-pressed="true"`) {
		t.Fatalf("like = %d %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "<html") {
		t.Fatal("htmx toggle rendered a full page")
	}
	rr = do(h, http.MethodPost, "/app/posts/"+post.ID+"/like", url.Values{}, true)
	if !strings.Contains(rr.Body.String(), `aria-pressed="false"`) {
		t.Fatalf("unlike body = %s", rr.Body.String())
	}

	rr = do(h, http.MethodPost, "/app/posts/"+post.ID+"/scrap", url.Values{}, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("scrap status = %d", rr.Code)
	}
	scraps, err := env.Community.ListScraps(context.Background(), sitetest.Actor(reader), listing.NewPage(1, 10, 10))
	if err != nil || scraps.Total != 1 {
		t.Fatalf("ListScraps() = %+v, %v", scraps, err)
	}
}
