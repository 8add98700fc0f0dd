// Package markdown renders authored markdown to sanitized HTML and lists
// the images a markdown body references.
package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxBodyBytes bounds stored markdown bodies.
const MaxBodyBytes = 200 << 10

var engine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+-]+$`)).OnElements("code")
	p.AllowAttrs("loading").Matching(regexp.MustCompile(`^lazy$`)).OnElements("img")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Render converts markdown to sanitized HTML. Raw HTML in the source is
// passed to the sanitizer rather than dropped.
func Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := engine.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}

// Sanitize applies the user content policy to an HTML fragment.
func Sanitize(fragment string) string {
	return policy.Sanitize(fragment)
}

// ImageSources returns image destinations referenced by src, including
// <img> tags inside raw HTML, in order and without duplicates.
func ImageSources(src string) []string {
	source := []byte(src)
	root := engine.Parser().Parse(text.NewReader(source))
	var out []string
	seen := map[string]struct{}{}
	add := func(dest string) {
		dest = strings.TrimSpace(dest)
		if dest == "" {
			return
		}
		if _, ok := seen[dest]; ok {
			return
		}
		seen[dest] = struct{}{}
		out = append(out, dest)
	}
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Image:
			add(string(node.Destination))
		case *ast.HTMLBlock:
			for _, s := range HTMLImageSources(segmentsText(node.Lines(), source)) {
				add(s)
			}
		case *ast.RawHTML:
			for _, s := range HTMLImageSources(segmentsText(node.Segments, source)) {
				add(s)
			}
		}
		return ast.WalkContinue, nil
	})
	return out
}

// HTMLImageSources returns the src of every <img> and the poster or src of
// every <video>/<source> in an HTML fragment.
func HTMLImageSources(fragment string) []string {
	var out []string
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return out
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch token.DataAtom {
			case atom.Img, atom.Source:
				out = appendAttr(out, token, "src")
			case atom.Video:
				out = appendAttr(out, token, "poster")
				out = appendAttr(out, token, "src")
			}
		}
	}
}

func appendAttr(out []string, token html.Token, name string) []string {
	for _, attr := range token.Attr {
		if attr.Key == name {
			if value := strings.TrimSpace(attr.Val); value != "" {
				out = append(out, value)
			}
		}
	}
	return out
}

func segmentsText(lines *text.Segments, source []byte) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		b.Write(segment.Value(source))
	}
	return b.String()
}
