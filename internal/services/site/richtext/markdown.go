package richtext

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"~", `\~`,
)

// ToMarkdown renders the document as markdown. Underline has no markdown
// form and is dropped; YouTube embeds become a bare watch URL paragraph.
func ToMarkdown(doc Document) string {
	blocks := make([]string, 0, len(doc.Root.Children))
	for _, child := range doc.Root.Children {
		if block := blockMarkdown(child, ""); block != "" {
			blocks = append(blocks, block)
		}
	}
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

func blockMarkdown(n Node, indent string) string {
	switch n.Type {
	case TypeParagraph:
		return inlineMarkdown(n.Children)
	case TypeHeading:
		level, _ := strconv.Atoi(strings.TrimPrefix(n.Tag, "h"))
		return strings.Repeat("#", max(level, 1)) + " " + inlineMarkdown(n.Children)
	case TypeQuote:
		lines := strings.Split(inlineMarkdown(n.Children), "\n")
		for i, line := range lines {
			lines[i] = strings.TrimRight("> "+line, " ")
		}
		return strings.Join(lines, "\n")
	case TypeList:
		var lines []string
		for i, item := range n.Children {
			marker := "- "
			if n.ListType == ListNumber {
				marker = strconv.Itoa(i+1) + ". "
			}
			var inline []Node
			var nested []string
			for _, child := range item.Children {
				if child.Type == TypeList {
					nested = append(nested, blockMarkdown(child, indent+strings.Repeat(" ", len(marker))))
					continue
				}
				inline = append(inline, child)
			}
			lines = append(lines, indent+marker+inlineMarkdown(inline))
			lines = append(lines, nested...)
		}
		return strings.Join(lines, "\n")
	case TypeCode:
		var body strings.Builder
		for _, child := range n.Children {
			if child.Type == TypeLineBreak {
				body.WriteString("\n")
				continue
			}
			body.WriteString(child.Text)
		}
		return "```" + strings.TrimSpace(n.Language) + "\n" + body.String() + "\n```"
	case TypeImage:
		return imageMarkdown(n)
	case TypeYouTube:
		return WatchURL(n.VideoID)
	case TypeHorizontalRule:
		return "---"
	default:
		return inlineMarkdown([]Node{n})
	}
}

func inlineMarkdown(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n.Type {
		case TypeText:
			b.WriteString(textMarkdown(n))
		case TypeLineBreak:
			b.WriteString("\\\n")
		case TypeLink:
			b.WriteString("[" + inlineMarkdown(n.Children) + "](" + n.URL + ")")
		case TypeImage:
			b.WriteString(imageMarkdown(n))
		default:
			b.WriteString(inlineMarkdown(n.Children))
		}
	}
	return b.String()
}

func textMarkdown(n Node) string {
	if n.Text == "" {
		return ""
	}
	if n.Format&FormatCode != 0 {
		fence := "`"
		for strings.Contains(n.Text, fence) {
			fence += "`"
		}
		return fence + n.Text + fence
	}
	// Markers must hug non-space text to stay emphasis in CommonMark.
	body := strings.TrimSpace(n.Text)
	if body == "" {
		return n.Text
	}
	lead := n.Text[:strings.Index(n.Text, body)]
	trail := n.Text[len(lead)+len(body):]
	out := markdownEscaper.Replace(body)
	if n.Format&FormatStrikethrough != 0 {
		out = "~~" + out + "~~"
	}
	if n.Format&FormatItalic != 0 {
		out = "*" + out + "*"
	}
	if n.Format&FormatBold != 0 {
		out = "**" + out + "**"
	}
	return lead + out + trail
}

func imageMarkdown(n Node) string {
	return "![" + markdownEscaper.Replace(n.AltText) + "](" + n.Src + ")"
}

// FromMarkdown converts markdown into a document. Constructs the editor
// cannot represent degrade to text; links and images with disallowed
// targets keep only their text.
func FromMarkdown(src string) Document {
	source := []byte(src)
	root := markdownParser.Parse(text.NewReader(source))
	doc := Empty()
	c := converter{source: source}
	for child := root.FirstChild(); child != nil; child = child.NextSibling() {
		doc.Root.Children = append(doc.Root.Children, c.block(child)...)
	}
	return doc
}

type converter struct {
	source []byte
}

func (c converter) block(n ast.Node) []Node {
	switch node := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return c.paragraph(node)
	case *ast.Heading:
		level := min(max(node.Level, 1), 6)
		return []Node{{Type: TypeHeading, Tag: "h" + strconv.Itoa(level), Children: c.inlines(node, 0)}}
	case *ast.Blockquote:
		quote := Node{Type: TypeQuote}
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			if len(quote.Children) > 0 {
				quote.Children = append(quote.Children, Node{Type: TypeLineBreak})
			}
			quote.Children = append(quote.Children, c.inlines(child, 0)...)
		}
		return []Node{quote}
	case *ast.List:
		return []Node{c.list(node)}
	case *ast.FencedCodeBlock:
		return []Node{c.code(node.Lines(), string(node.Language(c.source)))}
	case *ast.CodeBlock:
		return []Node{c.code(node.Lines(), "")}
	case *ast.ThematicBreak:
		return []Node{{Type: TypeHorizontalRule}}
	case *ast.HTMLBlock:
		raw := strings.TrimSpace(c.lines(node.Lines()))
		if raw == "" {
			return nil
		}
		return []Node{{Type: TypeParagraph, Children: []Node{{Type: TypeText, Text: raw}}}}
	default:
		var out []Node
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			if child.Type() == ast.TypeBlock {
				out = append(out, c.block(child)...)
				continue
			}
			if inline := c.inlines(child, 0); len(inline) > 0 {
				out = append(out, Node{Type: TypeParagraph, Children: inline})
			}
		}
		return out
	}
}

func (c converter) paragraph(n ast.Node) []Node {
	children := c.inlines(n, 0)
	if len(children) == 0 {
		return nil
	}
	if len(children) == 1 {
		only := children[0]
		switch only.Type {
		case TypeImage:
			return []Node{only}
		case TypeLink:
			if id, ok := ParseYouTubeID(only.URL); ok {
				return []Node{{Type: TypeYouTube, VideoID: id}}
			}
		case TypeText:
			if id, ok := ParseYouTubeID(only.Text); ok && only.Format == 0 {
				return []Node{{Type: TypeYouTube, VideoID: id}}
			}
		}
	}
	return []Node{{Type: TypeParagraph, Children: children}}
}

func (c converter) list(n *ast.List) Node {
	list := Node{Type: TypeList, ListType: ListBullet}
	if n.IsOrdered() {
		list.ListType = ListNumber
	}
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		li := Node{Type: TypeListItem}
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			if nested, ok := child.(*ast.List); ok {
				li.Children = append(li.Children, c.list(nested))
				continue
			}
			if len(li.Children) > 0 {
				li.Children = append(li.Children, Node{Type: TypeLineBreak})
			}
			li.Children = append(li.Children, c.inlines(child, 0)...)
		}
		list.Children = append(list.Children, li)
	}
	return list
}

func (c converter) code(lines *text.Segments, language string) Node {
	code := Node{Type: TypeCode, Language: strings.TrimSpace(language)}
	body := strings.TrimSuffix(c.lines(lines), "\n")
	for i, line := range strings.Split(body, "\n") {
		if i > 0 {
			code.Children = append(code.Children, Node{Type: TypeLineBreak})
		}
		if line != "" {
			code.Children = append(code.Children, Node{Type: TypeText, Text: line})
		}
	}
	return code
}

func (c converter) lines(lines *text.Segments) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		b.Write(segment.Value(c.source))
	}
	return b.String()
}

// inlines converts the inline children of n, carrying the text format of
// enclosing emphasis nodes.
func (c converter) inlines(n ast.Node, format int) []Node {
	var out []Node
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		out = appendInline(out, c.inline(child, format)...)
	}
	return out
}

func (c converter) inline(n ast.Node, format int) []Node {
	switch node := n.(type) {
	case *ast.Text:
		value := util.UnescapePunctuations(node.Segment.Value(c.source))
		value = util.ResolveEntityNames(util.ResolveNumericReferences(value))
		out := []Node{{Type: TypeText, Text: string(value), Format: format}}
		switch {
		case node.HardLineBreak():
			out = append(out, Node{Type: TypeLineBreak})
		case node.SoftLineBreak():
			out = append(out, Node{Type: TypeText, Text: " ", Format: format})
		}
		return out
	case *ast.String:
		return []Node{{Type: TypeText, Text: string(node.Value), Format: format}}
	case *ast.CodeSpan:
		var b strings.Builder
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			if t, ok := child.(*ast.Text); ok {
				b.Write(t.Segment.Value(c.source))
			}
		}
		return []Node{{Type: TypeText, Text: b.String(), Format: format | FormatCode}}
	case *ast.Emphasis:
		bit := FormatItalic
		if node.Level >= 2 {
			bit = FormatBold
		}
		return c.inlines(node, format|bit)
	case *east.Strikethrough:
		return c.inlines(node, format|FormatStrikethrough)
	case *ast.Link:
		children := c.inlines(node, format)
		dest := string(node.Destination)
		if !AllowedLinkURL(dest) {
			return children
		}
		return []Node{{Type: TypeLink, URL: dest, Children: children}}
	case *ast.AutoLink:
		dest := string(node.URL(c.source))
		label := string(node.Label(c.source))
		if node.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(dest), "mailto:") {
			dest = "mailto:" + dest
		}
		if !AllowedLinkURL(dest) {
			return []Node{{Type: TypeText, Text: label, Format: format}}
		}
		return []Node{{Type: TypeLink, URL: dest, Children: []Node{{Type: TypeText, Text: label, Format: format}}}}
	case *ast.Image:
		var alt strings.Builder
		for _, t := range c.inlines(node, 0) {
			alt.WriteString(t.Text)
		}
		src := string(node.Destination)
		if !AllowedImageSrc(src) {
			if alt.Len() == 0 {
				return nil
			}
			return []Node{{Type: TypeText, Text: alt.String(), Format: format}}
		}
		return []Node{{Type: TypeImage, Src: src, AltText: alt.String()}}
	case *ast.RawHTML:
		return []Node{{Type: TypeText, Text: c.lines(node.Segments), Format: format}}
	default:
		return c.inlines(n, format)
	}
}

// appendInline merges adjacent text nodes that share a format.
func appendInline(out []Node, nodes ...Node) []Node {
	for _, n := range nodes {
		if n.Type == TypeText && n.Text == "" {
			continue
		}
		if last := len(out) - 1; last >= 0 && n.Type == TypeText && out[last].Type == TypeText && out[last].Format == n.Format {
			out[last].Text += n.Text
			continue
		}
		out = append(out, n)
	}
	return out
}
