package folioctl

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	siteserver "github.com/louisbranch/folio/internal/services/site"
	"github.com/louisbranch/folio/internal/services/site/domain/accounts"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"go.uber.org/zap"
)

type testEnv struct {
	dbPath    string
	uploadDir string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	return testEnv{
		dbPath:    filepath.Join(dir, "folio.db"),
		uploadDir: filepath.Join(dir, "uploads"),
	}
}

func (e testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root, err := NewRootCommand(Options{
		Stdin:  strings.NewReader(stdin),
		Stdout: &out,
		Stderr: io.Discard,
		Logger: zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewRootCommand() error = %v", err)
	}
	base := []string{"--db", e.dbPath, "--upload-dir", e.uploadDir, "--base-url", "https://folio.example"}
	root.SetArgs(append(args, base...))
	err = root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e testEnv) runtime(t *testing.T, extra ...func(*siteserver.Config)) *siteserver.Runtime {
	t.Helper()
	cfg := siteserver.Config{
		DBPath:        e.dbPath,
		UploadDir:     e.uploadDir,
		PublicBaseURL: "https://folio.example",
		SessionTTL:    time.Hour,
	}
	for _, fn := range extra {
		fn(&cfg)
	}
	rt, err := siteserver.OpenRuntime(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("OpenRuntime() error = %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestMigrateListsAppliedMigrations(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	out, err := env.run(t, "", "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "migrations applied") || !strings.Contains(out, ".sql") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(env.dbPath); err != nil {
		t.Fatalf("database not created: %v", err)
	}
}

func TestAdminCreateReadsPasswordFromStdin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	out, err := env.run(t, "correct-horse\n", "admin", "create", "--email", "root@folio.example", "--username", "root")
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if !strings.HasPrefix(out, "created admin root") {
		t.Fatalf("output = %q", out)
	}

	rt := env.runtime(t)
	user, _, err := rt.Services.Accounts.SignIn(context.Background(), "root", "correct-horse")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if user.Role != storage.RoleAdmin || user.Status != storage.UserStatusApproved || user.DisplayName != "root" {
		t.Fatalf("user = %+v", user)
	}
}

func TestAdminCreateRequiresPassword(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	if _, err := env.run(t, "", "admin", "create", "--email", "root@folio.example", "--username", "root"); err == nil {
		t.Fatal("expected error without password")
	}
}

func TestUsersApprove(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	if _, err := env.run(t, "", "admin", "create", "--email", "root@folio.example", "--username", "root", "--password", "correct-horse"); err != nil {
		t.Fatalf("admin create: %v", err)
	}
	rt := env.runtime(t)
	pending, err := rt.Services.Accounts.SignUp(context.Background(), accounts.SignUpInput{
		Email: "mina@folio.example", Username: "mina", DisplayName: "Mina", Password: "battery-staple",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if pending.Status != storage.UserStatusPending {
		t.Fatalf("status = %q, want pending", pending.Status)
	}

	out, err := env.run(t, "", "users", "approve", "mina@folio.example")
	if err != nil {
		t.Fatalf("users approve: %v", err)
	}
	if strings.TrimSpace(out) != "approved mina" {
		t.Fatalf("output = %q", out)
	}
	user, err := rt.Services.Accounts.GetUser(context.Background(), pending.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if user.Status != storage.UserStatusApproved {
		t.Fatalf("status = %q, want approved", user.Status)
	}

	if _, err := env.run(t, "", "users", "approve", "nobody"); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestOrphansScanAndClean(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	stray := filepath.Join(env.uploadDir, "2026", "01", "stray.png")
	if err := os.MkdirAll(filepath.Dir(stray), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(stray, []byte("not referenced"), 0o644); err != nil {
		t.Fatalf("write stray: %v", err)
	}
	old := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(stray, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out, err := env.run(t, "", "orphans", "scan")
	if err != nil {
		t.Fatalf("orphans scan: %v", err)
	}
	if !strings.Contains(out, "1 orphans") {
		t.Fatalf("scan output:\n%s", out)
	}

	out, err = env.run(t, "", "orphans", "clean", "--dry-run")
	if err != nil {
		t.Fatalf("orphans clean --dry-run: %v", err)
	}
	if !strings.HasPrefix(out, "would delete 1 files") {
		t.Fatalf("dry run output:\n%s", out)
	}
	if _, err := os.Stat(stray); err != nil {
		t.Fatalf("dry run removed the file: %v", err)
	}

	out, err = env.run(t, "", "orphans", "clean")
	if err != nil {
		t.Fatalf("orphans clean: %v", err)
	}
	if !strings.HasPrefix(out, "deleted 1 files") {
		t.Fatalf("clean output:\n%s", out)
	}
	if _, err := os.Stat(stray); !os.IsNotExist(err) {
		t.Fatalf("stray file still present: %v", err)
	}
}

func TestIndexNowSubmitAll(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	if _, err := env.run(t, "", "indexnow", "submit-all"); err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Fatalf("expected not configured error, got %v", err)
	}

	var hits atomic.Int32
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(endpoint.Close)

	out, err := env.run(t, "", "indexnow", "submit-all", "--indexnow-key", "folio-key-1234", "--indexnow-endpoint", endpoint.URL)
	if err != nil {
		t.Fatalf("indexnow submit-all: %v", err)
	}
	if !strings.HasPrefix(out, "submitted ") {
		t.Fatalf("output = %q", out)
	}
	if hits.Load() != 1 {
		t.Fatalf("endpoint hits = %d, want 1", hits.Load())
	}
}

func TestThemeImport(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	path := filepath.Join(t.TempDir(), "theme.yaml")
	yaml := "theme:\n  siteName: Imported Bakery\nmenus:\n  header:\n    - label: Shop\n      url: /products/\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write theme: %v", err)
	}
	if _, err := env.run(t, "", "theme", "import", path); err != nil {
		t.Fatalf("theme import: %v", err)
	}

	rt := env.runtime(t)
	snap, err := rt.Services.SiteConfig.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Theme.SiteName != "Imported Bakery" {
		t.Fatalf("site name = %q", snap.Theme.SiteName)
	}

	if _, err := env.run(t, "", "theme", "import", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
