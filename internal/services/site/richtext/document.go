// Package richtext models the JSON node tree produced by the browser editor
// and converts it to HTML, plain text and markdown.
//
// Documents are trusted only after Parse: every node type is known, link and
// image targets use allowed schemes and YouTube ids are well formed.
package richtext

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
)

// Node types.
const (
	TypeRoot           = "root"
	TypeParagraph      = "paragraph"
	TypeHeading        = "heading"
	TypeQuote          = "quote"
	TypeList           = "list"
	TypeListItem       = "listitem"
	TypeCode           = "code"
	TypeText           = "text"
	TypeLineBreak      = "linebreak"
	TypeLink           = "link"
	TypeImage          = "image"
	TypeYouTube        = "youtube"
	TypeHorizontalRule = "horizontalrule"
)

// Text format bits.
const (
	FormatBold          = 1
	FormatItalic        = 2
	FormatStrikethrough = 4
	FormatUnderline     = 8
	FormatCode          = 16
)

// List types.
const (
	ListBullet = "bullet"
	ListNumber = "number"
)

const maxDepth = 32

// ErrInvalidDocument marks documents rejected by Parse.
var ErrInvalidDocument = errors.New("invalid rich text document")

var youTubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Node is one element of the document tree.
type Node struct {
	Type     string `json:"type"`
	Children []Node `json:"children,omitempty"`
	Text     string `json:"text,omitempty"`
	Format   int    `json:"format,omitempty"`
	Tag      string `json:"tag,omitempty"`
	ListType string `json:"listType,omitempty"`
	URL      string `json:"url,omitempty"`
	Src      string `json:"src,omitempty"`
	AltText  string `json:"altText,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	VideoID  string `json:"videoID,omitempty"`
	Language string `json:"language,omitempty"`
}

// Document is a parsed editor document.
type Document struct {
	Root Node `json:"root"`
}

// Empty returns a document with an empty root.
func Empty() Document {
	return Document{Root: Node{Type: TypeRoot}}
}

// IsEmpty reports whether the document has no visible content.
func (d Document) IsEmpty() bool {
	return strings.TrimSpace(PlainText(d, 0)) == "" && !hasEmbeds(d.Root)
}

// Parse decodes and validates raw editor JSON. Blank input yields an empty
// document.
func Parse(raw string) (Document, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Empty(), nil
	}
	var doc Document
	decoder := json.NewDecoder(strings.NewReader(raw))
	if err := decoder.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("%w: trailing data after document", ErrInvalidDocument)
	}
	if err := Validate(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Marshal encodes the document as editor JSON.
func Marshal(doc Document) (string, error) {
	if doc.Root.Type == "" {
		doc.Root.Type = TypeRoot
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal rich text: %w", err)
	}
	return string(data), nil
}

// Validate checks node types, nesting and link targets.
func Validate(doc Document) error {
	if doc.Root.Type != TypeRoot {
		return fmt.Errorf("%w: root node type %q", ErrInvalidDocument, doc.Root.Type)
	}
	return validateChildren(doc.Root, 1)
}

func validateChildren(parent Node, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrInvalidDocument, maxDepth)
	}
	for _, child := range parent.Children {
		if err := validateNode(parent, child); err != nil {
			return err
		}
		if err := validateChildren(child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(parent Node, n Node) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, fmt.Sprintf(format, args...))
	}
	if parent.Type == TypeList && n.Type != TypeListItem {
		return invalid("list may only contain list items, got %q", n.Type)
	}
	switch n.Type {
	case TypeParagraph, TypeQuote, TypeListItem:
	case TypeHeading:
		switch n.Tag {
		case "h1", "h2", "h3", "h4", "h5", "h6":
		default:
			return invalid("heading tag %q", n.Tag)
		}
	case TypeList:
		if n.ListType != ListBullet && n.ListType != ListNumber {
			return invalid("list type %q", n.ListType)
		}
	case TypeCode:
		for _, child := range n.Children {
			if child.Type != TypeText && child.Type != TypeLineBreak {
				return invalid("code block may only contain text, got %q", child.Type)
			}
		}
	case TypeText:
		if len(n.Children) > 0 {
			return invalid("text node has children")
		}
		if n.Format < 0 || n.Format > FormatBold|FormatItalic|FormatStrikethrough|FormatUnderline|FormatCode {
			return invalid("text format %d", n.Format)
		}
	case TypeLineBreak, TypeHorizontalRule:
		if len(n.Children) > 0 {
			return invalid("%s node has children", n.Type)
		}
	case TypeLink:
		if !AllowedLinkURL(n.URL) {
			return invalid("link url %q", n.URL)
		}
	case TypeImage:
		if !AllowedImageSrc(n.Src) {
			return invalid("image src %q", n.Src)
		}
		if n.Width < 0 || n.Height < 0 {
			return invalid("image dimensions")
		}
	case TypeYouTube:
		if !youTubeIDPattern.MatchString(n.VideoID) {
			return invalid("youtube video id %q", n.VideoID)
		}
	default:
		return invalid("unknown node type %q", n.Type)
	}
	return nil
}

// AllowedLinkURL reports whether raw is an http, https, mailto or
// site-relative link.
func AllowedLinkURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if isSiteRelative(raw) {
		return true
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return parsed.Host != ""
	case "mailto":
		return parsed.Opaque != ""
	}
	return false
}

// AllowedImageSrc reports whether raw is an upload path or an http(s) URL.
func AllowedImageSrc(raw string) bool {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "/uploads/") {
		return !strings.Contains(raw, "..")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && parsed.Host != ""
}

func isSiteRelative(raw string) bool {
	return (strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//")) || strings.HasPrefix(raw, "#")
}

func hasEmbeds(n Node) bool {
	if n.Type == TypeImage || n.Type == TypeYouTube {
		return true
	}
	for _, child := range n.Children {
		if hasEmbeds(child) {
			return true
		}
	}
	return false
}
