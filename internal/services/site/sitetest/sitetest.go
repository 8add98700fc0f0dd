// Package sitetest builds a fully wired site over a temporary SQLite store
// for module and composition tests.
package sitetest

import (
	"context"
	"net/http"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/folio/internal/platform/id"
	"github.com/louisbranch/folio/internal/services/site/domain/accounts"
	"github.com/louisbranch/folio/internal/services/site/domain/catalog"
	"github.com/louisbranch/folio/internal/services/site/domain/community"
	"github.com/louisbranch/folio/internal/services/site/domain/content"
	"github.com/louisbranch/folio/internal/services/site/domain/orphans"
	"github.com/louisbranch/folio/internal/services/site/domain/siteconfig"
	"github.com/louisbranch/folio/internal/services/site/domain/uploads"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/storage/sqlite"
	"golang.org/x/crypto/bcrypt"
)

// RichText is a minimal editor document with one paragraph.
const RichText = `{"root":{"type":"root","children":[{"type":"paragraph","children":[{"type":"text","text":"hello"}]}]}}`

// Publisher records enqueued paths.
type Publisher struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// Enqueue records paths.
func (p *Publisher) Enqueue(paths ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paths == nil {
		p.paths = make(map[string]struct{})
	}
	for _, path := range paths {
		p.paths[path] = struct{}{}
	}
}

// Paths returns the recorded paths sorted.
func (p *Publisher) Paths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.paths))
	for path := range p.paths {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Clock is a manual time source that ticks one second per read.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances the clock by a second and returns it.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// Env is a wired set of domain services.
type Env struct {
	Store      *sqlite.Store
	Clock      *Clock
	Publisher  *Publisher
	Accounts   *accounts.Service
	Catalog    *catalog.Service
	Content    *content.Service
	Community  *community.Service
	SiteConfig *siteconfig.Service
	Uploads    *uploads.Service
	Orphans    *orphans.Service
}

// New opens a store in a temp dir and wires every service.
func New(t testing.TB) *Env {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.Open(filepath.Join(dir, "folio.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clock := &Clock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	pub := &Publisher{}
	files := uploads.NewService(store, filepath.Join(dir, "uploads"), uploads.WithClock(clock.Now))
	return &Env{
		Store:      store,
		Clock:      clock,
		Publisher:  pub,
		Accounts:   accounts.NewService(store, accounts.WithClock(clock.Now), accounts.WithBcryptCost(bcrypt.MinCost)),
		Catalog:    catalog.NewService(store, catalog.WithPublisher(pub), catalog.WithClock(clock.Now)),
		Content:    content.NewService(store, content.WithPublisher(pub), content.WithClock(clock.Now), content.WithPreviewSigner(content.NewPreviewSigner("test-preview-secret"))),
		Community:  community.NewService(store, community.WithPublisher(pub), community.WithClock(clock.Now)),
		SiteConfig: siteconfig.NewService(store, siteconfig.WithClock(clock.Now)),
		Uploads:    files,
		Orphans:    orphans.NewService(store, files),
	}
}

// User inserts an approved user with role directly into the store.
func (e *Env) User(t testing.TB, username string, role string) storage.User {
	t.Helper()
	now := e.Clock.Now()
	u, err := e.Store.CreateUser(context.Background(), storage.User{
		ID:          id.MustNewID(),
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
		Role:        role,
		Status:      storage.UserStatusApproved,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// Board saves a visible board open to members.
func (e *Env) Board(t testing.TB, slugValue string, name string) storage.Board {
	t.Helper()
	b, err := e.Community.SaveBoard(context.Background(), community.BoardInput{Slug: slugValue, Name: name, WriteRole: storage.RoleMember})
	if err != nil {
		t.Fatalf("save board %s: %v", slugValue, err)
	}
	return b
}

// Post creates a post by author on board.
func (e *Env) Post(t testing.TB, author storage.User, board storage.Board, title string) storage.Post {
	t.Helper()
	p, err := e.Community.CreatePost(context.Background(), Actor(author), community.PostInput{BoardID: board.ID, Title: title, Body: RichText})
	if err != nil {
		t.Fatalf("create post %s: %v", title, err)
	}
	return p
}

// Actor converts a user into a community actor.
func Actor(u storage.User) community.Actor {
	return community.Actor{UserID: u.ID, Role: u.Role}
}

// Viewer converts a user into signed-in chrome state.
func Viewer(u storage.User) module.Viewer {
	if u.ID == "" {
		return module.Viewer{}
	}
	return module.Viewer{
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		SignedIn:    true,
		IsAdmin:     u.Role == storage.RoleAdmin,
	}
}

// Deps returns module dependencies that always resolve to u.
func Deps(u storage.User) module.Dependencies {
	viewer := Viewer(u)
	return module.Dependencies{
		ResolveViewer:   func(*http.Request) module.Viewer { return viewer },
		ResolveUserID:   func(*http.Request) string { return viewer.UserID },
		ResolveLanguage: func(*http.Request) string { return "en-US" },
		ResolveChrome:   func(*http.Request) module.Chrome { return module.Chrome{SiteName: "Folio"} },
	}
}
