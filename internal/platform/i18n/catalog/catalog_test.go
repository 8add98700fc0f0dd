package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestLoadEmbeddedHasExpectedLocales(t *testing.T) {
	bundle, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded catalogs: %v", err)
	}
	for _, locale := range []string{BaseLocale, "ko-KR"} {
		if !bundle.HasLocale(locale) {
			t.Fatalf("expected locale %s", locale)
		}
	}
	if _, ok := bundle.Message("en-US", "site.nav.home"); !ok {
		t.Fatalf("expected site.nav.home in en-US")
	}
}

func TestEmbeddedLocalesTranslateEveryBaseKey(t *testing.T) {
	bundle, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded catalogs: %v", err)
	}
	if missing := bundle.MissingKeys("ko-KR"); len(missing) > 0 {
		t.Fatalf("ko-KR missing keys: %v", missing)
	}
}

func TestLoadFromFSRejectsKeyOutsideNamespace(t *testing.T) {
	tempDir := t.TempDir()
	mustWriteFile(t, filepath.Join(tempDir, "locales/en-US/site.yaml"), `locale: "en-US"
namespace: "site"
messages:
  "admin.bad": "nope"
`)

	if _, err := LoadFromFS(os.DirFS(tempDir)); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadFromFSRejectsLocaleMismatch(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en-US/site.yaml": {Data: []byte("locale: ko-KR\nnamespace: site\nmessages:\n  site.a: b\n")},
	}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected locale mismatch error")
	}
}

func TestLoadFromFSRequiresBaseLocale(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/ko-KR/site.yaml": {Data: []byte("locale: ko-KR\nnamespace: site\nmessages:\n  site.a: b\n")},
	}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected missing base locale error")
	}
}

func TestMessageFallsBackToBaseLocale(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en-US/site.yaml": {Data: []byte("locale: en-US\nnamespace: site\nmessages:\n  site.a: A\n  site.b: B\n")},
		"locales/ko-KR/site.yaml": {Data: []byte("locale: ko-KR\nnamespace: site\nmessages:\n  site.a: 가\n")},
	}
	bundle, err := LoadFromFS(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got, _ := bundle.Message("ko-KR", "site.a"); got != "가" {
		t.Fatalf("ko-KR site.a = %q, want 가", got)
	}
	if got, _ := bundle.Message("ko-KR", "site.b"); got != "B" {
		t.Fatalf("ko-KR site.b = %q, want B", got)
	}
	if missing := bundle.MissingKeys("ko-KR"); len(missing) != 1 || missing[0] != "site.b" {
		t.Fatalf("missing = %v, want [site.b]", missing)
	}
}

func mustWriteFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
