package forms

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/folio/internal/services/site/richtext"
)

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestTypedValues(t *testing.T) {
	t.Parallel()

	req := postForm(url.Values{
		"name":   {"  Mug  "},
		"order":  {"3"},
		"price":  {"12x"},
		"hidden": {"on"},
		"images": {"/uploads/a.png\n\n  /uploads/b.png \r\n"},
	})
	if err := Parse(httptest.NewRecorder(), req); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := Value(req, "name"); got != "Mug" {
		t.Fatalf("Value() = %q", got)
	}
	if got := Int(req, "order"); got != 3 {
		t.Fatalf("Int() = %d", got)
	}
	if got := Int64(req, "price"); got != -1 {
		t.Fatalf("Int64(invalid) = %d, want -1", got)
	}
	if got := Int64(req, "missing"); got != 0 {
		t.Fatalf("Int64(missing) = %d, want 0", got)
	}
	if !Bool(req, "hidden") || Bool(req, "missing") {
		t.Fatal("Bool() mismatch")
	}
	if diff := cmp.Diff([]string{"/uploads/a.png", "/uploads/b.png"}, Lines(req, "images")); diff != "" {
		t.Fatalf("Lines() mismatch (-want +got):\n%s", diff)
	}
}

func TestEditorDocumentConvertsMarkdown(t *testing.T) {
	t.Parallel()

	got, err := EditorDocument("# Hello\n\nworld")
	if err != nil {
		t.Fatalf("EditorDocument() error = %v", err)
	}
	if _, err := richtext.Parse(got); err != nil {
		t.Fatalf("converted document does not parse: %v", err)
	}
	raw := `{"root":{"type":"root","children":[]}}`
	if same, _ := EditorDocument(raw); same != raw {
		t.Fatalf("EditorDocument(json) = %q, want unchanged", same)
	}
	if blank, _ := EditorDocument("   "); blank != "" {
		t.Fatalf("EditorDocument(blank) = %q", blank)
	}
}
