package scraps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/louisbranch/folio/internal/services/site/sitetest"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

func TestScrapsListsSavedPosts(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	author := env.User(t, "alice", storage.RoleMember)
	reader := env.User(t, "bob", storage.RoleMember)
	board := env.Board(t, "free", "Free talk")
	saved := env.Post(t, author, board, "Keep this")
	env.Post(t, author, board, "Skip this")
	if _, err := env.Community.ToggleScrap(context.Background(), sitetest.Actor(reader), saved.ID); err != nil {
		t.Fatalf("ToggleScrap() error = %v", err)
	}

	mnt, err := New(env.Community).Mount(sitetest.Deps(reader))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	rr := httptest.NewRecorder()
	mnt.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/app/scraps/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Keep this") || strings.Contains(body, "Skip this") {
		t.Fatalf("unexpected scraps body:\n%s", body)
	}
	if !strings.Contains(body, "/boards/free/posts/"+saved.ID) {
		t.Fatal("scrap does not link to the post")
	}
}

func TestScrapsEmptyState(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	reader := env.User(t, "bob", storage.RoleMember)
	mnt, err := New(env.Community).Mount(sitetest.Deps(reader))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	rr := httptest.NewRecorder()
	mnt.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/app/scraps/", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `class="empty"`) {
		t.Fatalf("empty scraps = %d %s", rr.Code, rr.Body.String())
	}
}
