package richtext

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleDoc = `{"root":{"type":"root","children":[
 {"type":"heading","tag":"h2","children":[{"type":"text","text":"Spring menu"}]},
 {"type":"paragraph","children":[
   {"type":"text","text":"Fresh "},
   {"type":"text","text":"strawberry","format":1},
   {"type":"text","text":" & cream <3"},
   {"type":"linebreak"},
   {"type":"link","url":"https://example.com/menu","children":[{"type":"text","text":"full menu"}]}
 ]},
 {"type":"image","src":"/uploads/2026/03/abc.png","altText":"Cake","width":640,"height":480},
 {"type":"youtube","videoID":"dQw4w9WgXcQ"},
 {"type":"list","listType":"number","children":[
   {"type":"listitem","children":[{"type":"text","text":"one"}]},
   {"type":"listitem","children":[{"type":"text","text":"two"}]}
 ]},
 {"type":"image","src":"/uploads/2026/03/abc.png","altText":"again"}
]}}`

func TestParseRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown type":       `{"root":{"type":"root","children":[{"type":"table"}]}}`,
		"bad root":           `{"root":{"type":"paragraph"}}`,
		"javascript link":    `{"root":{"type":"root","children":[{"type":"paragraph","children":[{"type":"link","url":"javascript:alert(1)"}]}]}}`,
		"data image":         `{"root":{"type":"root","children":[{"type":"image","src":"data:image/png;base64,AAAA"}]}}`,
		"bad youtube":        `{"root":{"type":"root","children":[{"type":"youtube","videoID":"short"}]}}`,
		"bad heading":        `{"root":{"type":"root","children":[{"type":"heading","tag":"h7"}]}}`,
		"list without items": `{"root":{"type":"root","children":[{"type":"list","listType":"bullet","children":[{"type":"paragraph"}]}]}}`,
		"malformed json":     `{"root":`,
		"trailing document":  `{"root":{"type":"root"}}{"root":{"type":"root"}}`,
		"trailing garbage":   `{"root":{"type":"root"}} x`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse(raw); !errors.Is(err, ErrInvalidDocument) {
				t.Fatalf("Parse() error = %v, want ErrInvalidDocument", err)
			}
		})
	}
}

func TestParseBlankIsEmptyDocument(t *testing.T) {
	t.Parallel()

	doc, err := Parse("   ")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !doc.IsEmpty() || doc.Root.Type != TypeRoot {
		t.Fatalf("doc = %+v, want empty root", doc)
	}
}

func TestRenderHTMLEscapesAndEmbeds(t *testing.T) {
	t.Parallel()

	doc, err := Parse(sampleDoc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got := RenderHTML(doc)
	for _, want := range []string{
		"<h2>Spring menu</h2>",
		"<strong>strawberry</strong>",
		"&amp; cream &lt;3",
		"<br>",
		`<a href="https://example.com/menu" rel="noopener nofollow ugc" target="_blank">full menu</a>`,
		`<figure class="rt-image"><img src="/uploads/2026/03/abc.png" alt="Cake" width="640" height="480" loading="lazy">`,
		`https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ`,
		"<ol><li>one</li><li>two</li></ol>",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("RenderHTML() missing %q in %s", want, got)
		}
	}
}

func TestPlainTextTruncates(t *testing.T) {
	t.Parallel()

	doc, err := Parse(sampleDoc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := PlainText(doc, 0); !strings.HasPrefix(got, "Spring menu Fresh strawberry & cream <3 full menu") {
		t.Fatalf("PlainText() = %q", got)
	}
	if got := PlainText(doc, 6); got != "Spring…" {
		t.Fatalf("PlainText(6) = %q, want %q", got, "Spring…")
	}
}

func TestImageSourcesDeduplicatesInOrder(t *testing.T) {
	t.Parallel()

	got := ImageSources(sampleDoc)
	if diff := cmp.Diff([]string{"/uploads/2026/03/abc.png"}, got); diff != "" {
		t.Fatalf("ImageSources() mismatch (-want +got):\n%s", diff)
	}
	if got := ImageSources("not json"); got != nil {
		t.Fatalf("ImageSources(invalid) = %v, want nil", got)
	}
}

func TestParseYouTubeID(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10": "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                     "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":        "dQw4w9WgXcQ",
		"https://youtube.com/shorts/dQw4w9WgXcQ":           "dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ":        "dQw4w9WgXcQ",
		"https://vimeo.com/12345":                          "",
		"https://www.youtube.com/watch?v=tooShort":         "",
		"javascript:alert(1)":                              "",
	}
	for raw, want := range tests {
		got, ok := ParseYouTubeID(raw)
		if got != want || ok != (want != "") {
			t.Fatalf("ParseYouTubeID(%q) = %q, %v; want %q", raw, got, ok, want)
		}
	}
}

func TestFromMarkdownMapsEmbeds(t *testing.T) {
	t.Parallel()

	src := "# Title\n\nHello **bold** and *soft*.\n\n![Cake](/uploads/2026/03/abc.png)\n\nhttps://youtu.be/dQw4w9WgXcQ\n\n- a\n- b\n\n[bad](javascript:alert(1))\n"
	doc := FromMarkdown(src)
	if err := Validate(doc); err != nil {
		t.Fatalf("Validate(FromMarkdown()) error = %v", err)
	}
	var types []string
	for _, child := range doc.Root.Children {
		types = append(types, child.Type)
	}
	want := []string{TypeHeading, TypeParagraph, TypeImage, TypeYouTube, TypeList, TypeParagraph}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Fatalf("block types mismatch (-want +got):\n%s", diff)
	}
	if doc.Root.Children[3].VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("video id = %q", doc.Root.Children[3].VideoID)
	}
	// Invariant: disallowed link targets degrade to their text.
	last := doc.Root.Children[5]
	if len(last.Children) != 1 || last.Children[0].Type != TypeText || last.Children[0].Text != "bad" {
		t.Fatalf("unsafe link paragraph = %+v", last)
	}
}

func TestMarkdownRoundTripIsStable(t *testing.T) {
	t.Parallel()

	doc, err := Parse(sampleDoc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	first := ToMarkdown(doc)
	if !strings.Contains(first, "https://www.youtube.com/watch?v=dQw4w9WgXcQ") {
		t.Fatalf("ToMarkdown() missing youtube watch url:\n%s", first)
	}
	second := ToMarkdown(FromMarkdown(first))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("markdown round trip not stable (-first +second):\n%s", diff)
	}
}

func TestMarshalParseRoundTrip(t *testing.T) {
	t.Parallel()

	doc, err := Parse(sampleDoc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	raw, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	again, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse(Marshal()) error = %v", err)
	}
	if diff := cmp.Diff(doc, again); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
}
