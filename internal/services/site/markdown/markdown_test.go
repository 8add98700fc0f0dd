package markdown

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRenderSanitizesRawHTML(t *testing.T) {
	t.Parallel()

	got, err := Render("# Hi\n\n<script>alert(1)</script>\n\n[x](https://example.com) ~~old~~\n\n<img src=\"/uploads/a.png\" onerror=\"x()\">\n")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, banned := range []string{"<script", "onerror"} {
		if strings.Contains(got, banned) {
			t.Fatalf("Render() kept %q: %s", banned, got)
		}
	}
	for _, want := range []string{"<h1", "<del>old</del>", "nofollow", `src="/uploads/a.png"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("Render() missing %q: %s", want, got)
		}
	}
}

func TestImageSourcesIncludesRawHTML(t *testing.T) {
	t.Parallel()

	src := "![a](/uploads/2026/01/a.png)\n\n<p><img src=\"/uploads/2026/01/b.png\"></p>\n\ninline <img src='/uploads/2026/01/c.webp'> tag\n\n![again](/uploads/2026/01/a.png)\n"
	want := []string{"/uploads/2026/01/a.png", "/uploads/2026/01/b.png", "/uploads/2026/01/c.webp"}
	if diff := cmp.Diff(want, ImageSources(src)); diff != "" {
		t.Fatalf("ImageSources() mismatch (-want +got):\n%s", diff)
	}
}

func TestHTMLImageSourcesReadsVideoPoster(t *testing.T) {
	t.Parallel()

	got := HTMLImageSources(`<video poster="/uploads/p.jpg"><source src="/uploads/v.webm"></video>`)
	if diff := cmp.Diff([]string{"/uploads/p.jpg", "/uploads/v.webm"}, got); diff != "" {
		t.Fatalf("HTMLImageSources() mismatch (-want +got):\n%s", diff)
	}
}
