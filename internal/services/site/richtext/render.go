package richtext

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// RenderHTML renders a validated document as HTML. Text is escaped; only
// the markup produced here reaches the page.
func RenderHTML(doc Document) string {
	var b strings.Builder
	for _, child := range doc.Root.Children {
		renderBlock(&b, child)
	}
	return b.String()
}

func renderBlock(b *strings.Builder, n Node) {
	switch n.Type {
	case TypeParagraph:
		b.WriteString("<p>")
		renderInline(b, n.Children)
		b.WriteString("</p>")
	case TypeHeading:
		b.WriteString("<" + n.Tag + ">")
		renderInline(b, n.Children)
		b.WriteString("</" + n.Tag + ">")
	case TypeQuote:
		b.WriteString("<blockquote>")
		renderInline(b, n.Children)
		b.WriteString("</blockquote>")
	case TypeList:
		tag := "ul"
		if n.ListType == ListNumber {
			tag = "ol"
		}
		b.WriteString("<" + tag + ">")
		for _, item := range n.Children {
			b.WriteString("<li>")
			for _, child := range item.Children {
				if child.Type == TypeList {
					renderBlock(b, child)
					continue
				}
				renderInline(b, []Node{child})
			}
			b.WriteString("</li>")
		}
		b.WriteString("</" + tag + ">")
	case TypeCode:
		b.WriteString("<pre><code")
		if lang := strings.TrimSpace(n.Language); lang != "" {
			b.WriteString(` class="language-` + html.EscapeString(lang) + `"`)
		}
		b.WriteString(">")
		for _, child := range n.Children {
			if child.Type == TypeLineBreak {
				b.WriteString("\n")
				continue
			}
			b.WriteString(html.EscapeString(child.Text))
		}
		b.WriteString("</code></pre>")
	case TypeImage:
		b.WriteString(`<figure class="rt-image">`)
		renderImage(b, n)
		if alt := strings.TrimSpace(n.AltText); alt != "" {
			b.WriteString("<figcaption>" + html.EscapeString(alt) + "</figcaption>")
		}
		b.WriteString("</figure>")
	case TypeYouTube:
		b.WriteString(`<div class="rt-youtube"><iframe src="` + html.EscapeString(EmbedURL(n.VideoID)) +
			`" title="YouTube video" loading="lazy" allow="accelerometer; encrypted-media; picture-in-picture" allowfullscreen></iframe></div>`)
	case TypeHorizontalRule:
		b.WriteString("<hr>")
	default:
		renderInline(b, []Node{n})
	}
}

func renderInline(b *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		switch n.Type {
		case TypeText:
			renderText(b, n)
		case TypeLineBreak:
			b.WriteString("<br>")
		case TypeLink:
			b.WriteString(`<a href="` + html.EscapeString(n.URL) + `"`)
			if !isSiteRelative(n.URL) {
				b.WriteString(` rel="noopener nofollow ugc" target="_blank"`)
			}
			b.WriteString(">")
			renderInline(b, n.Children)
			b.WriteString("</a>")
		case TypeImage:
			renderImage(b, n)
		case TypeYouTube, TypeHorizontalRule, TypeList, TypeCode:
			renderBlock(b, n)
		default:
			renderInline(b, n.Children)
		}
	}
}

var formatTags = []struct {
	bit int
	tag string
}{
	{FormatCode, "code"},
	{FormatBold, "strong"},
	{FormatItalic, "em"},
	{FormatStrikethrough, "s"},
	{FormatUnderline, "u"},
}

func renderText(b *strings.Builder, n Node) {
	var open []string
	for _, f := range formatTags {
		if n.Format&f.bit != 0 {
			b.WriteString("<" + f.tag + ">")
			open = append(open, f.tag)
		}
	}
	b.WriteString(html.EscapeString(n.Text))
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i] + ">")
	}
}

func renderImage(b *strings.Builder, n Node) {
	b.WriteString(`<img src="` + html.EscapeString(n.Src) + `" alt="` + html.EscapeString(n.AltText) + `"`)
	if n.Width > 0 {
		b.WriteString(` width="` + strconv.Itoa(n.Width) + `"`)
	}
	if n.Height > 0 {
		b.WriteString(` height="` + strconv.Itoa(n.Height) + `"`)
	}
	b.WriteString(` loading="lazy">`)
}

// PlainText flattens the document into whitespace-collapsed text. When
// limit is positive the result is cut to limit runes with an ellipsis.
func PlainText(doc Document, limit int) string {
	var parts []string
	collectText(doc.Root, &parts)
	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	return Truncate(text, limit)
}

// Truncate cuts s to limit runes, appending an ellipsis when shortened.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

func collectText(n Node, parts *[]string) {
	switch n.Type {
	case TypeText:
		*parts = append(*parts, n.Text)
		return
	case TypeLineBreak:
		*parts = append(*parts, " ")
		return
	}
	for _, child := range n.Children {
		collectText(child, parts)
	}
	if n.Type != TypeRoot && n.Type != TypeText && n.Type != TypeLink {
		*parts = append(*parts, " ")
	}
}
