// Package seo builds the sitemap and robots documents and submits changed
// URLs to IndexNow.
package seo

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/louisbranch/folio/internal/services/site/storage"
)

// MaxSitemapURLs is the sitemaps.org per-file limit.
const MaxSitemapURLs = 50000

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// SitemapStore lists the public documents that appear in the sitemap.
type SitemapStore interface {
	ListEntries(ctx context.Context, query storage.EntryQuery) (storage.EntryPage, error)
	ListProducts(ctx context.Context, query storage.ProductQuery) (storage.ProductPage, error)
	ListBoards(ctx context.Context, includeHidden bool) ([]storage.Board, error)
	ListPosts(ctx context.Context, query storage.PostQuery) (storage.PostPage, error)
}

// URL is one sitemap entry.
type URL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// Site resolves site paths against the configured base URL.
type Site struct {
	base *url.URL
}

// NewSite parses baseURL, which must be an absolute http(s) URL.
func NewSite(baseURL string) (Site, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return Site{}, fmt.Errorf("parse base url: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Site{}, fmt.Errorf("base url %q must be an absolute http(s) URL", baseURL)
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	parsed.RawQuery, parsed.Fragment = "", ""
	return Site{base: parsed}, nil
}

// Host returns the site host name.
func (s Site) Host() string {
	if s.base == nil {
		return ""
	}
	return s.base.Hostname()
}

// Absolute joins a site path onto the base URL.
func (s Site) Absolute(path string) string {
	if s.base == nil {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.base.String() + path
}

// Sitemap collects sitemap URLs from the store.
type Sitemap struct {
	site  Site
	store SitemapStore
}

// NewSitemap builds a sitemap source.
func NewSitemap(site Site, store SitemapStore) *Sitemap {
	return &Sitemap{site: site, store: store}
}

// URLs lists home, content, catalog and community URLs, capped at
// MaxSitemapURLs. Hidden boards and their posts are left out.
func (s *Sitemap) URLs(ctx context.Context) ([]URL, error) {
	var out []URL
	add := func(path string, lastMod time.Time) bool {
		if len(out) >= MaxSitemapURLs {
			return false
		}
		u := URL{Loc: s.site.Absolute(path)}
		if !lastMod.IsZero() {
			u.LastMod = lastMod.UTC().Format("2006-01-02")
		}
		out = append(out, u)
		return true
	}

	add("/", time.Time{})
	add("/pages/", time.Time{})
	entries, err := s.store.ListEntries(ctx, storage.EntryQuery{Status: storage.StatusPublished, Limit: MaxSitemapURLs})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	for _, e := range entries.Entries {
		if !add("/pages/"+e.Slug, e.UpdatedAt) {
			return out, nil
		}
	}

	add("/products/", time.Time{})
	products, err := s.store.ListProducts(ctx, storage.ProductQuery{Status: storage.StatusPublished, Limit: MaxSitemapURLs})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	for _, p := range products.Products {
		if !add("/products/"+p.Slug, p.UpdatedAt) {
			return out, nil
		}
	}

	add("/boards/", time.Time{})
	boards, err := s.store.ListBoards(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	for _, b := range boards {
		if !add("/boards/"+b.Slug, b.UpdatedAt) {
			return out, nil
		}
	}
	for _, b := range boards {
		remaining := MaxSitemapURLs - len(out)
		if remaining <= 0 {
			break
		}
		posts, err := s.store.ListPosts(ctx, storage.PostQuery{BoardID: b.ID, Limit: remaining})
		if err != nil {
			return nil, fmt.Errorf("list posts: %w", err)
		}
		for _, p := range posts.Posts {
			if !add("/boards/"+b.Slug+"/posts/"+p.ID, p.UpdatedAt) {
				return out, nil
			}
		}
	}
	return out, nil
}

// WriteSitemap encodes urls as a sitemaps.org urlset.
func WriteSitemap(w io.Writer, urls []URL) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(urlSet{XMLNS: sitemapNamespace, URLs: urls}); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}
	return enc.Flush()
}

// Robots returns robots.txt allowing everything except the member and
// admin areas.
func Robots(site Site) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Disallow: /app/\n")
	b.WriteString("Disallow: /admin/\n")
	b.WriteString("Allow: /\n\n")
	b.WriteString("Sitemap: " + site.Absolute("/sitemap.xml") + "\n")
	return b.String()
}

// SubmitAll sends every sitemap URL to submitter and returns how many
// were sent.
func (s *Sitemap) SubmitAll(ctx context.Context, submitter Submitter) (int, error) {
	urls, err := s.URLs(ctx)
	if err != nil {
		return 0, err
	}
	locs := make([]string, 0, len(urls))
	for _, u := range urls {
		locs = append(locs, u.Loc)
	}
	if err := submitter.Submit(ctx, locs); err != nil {
		return len(locs), err
	}
	return len(locs), nil
}
