// Package templates holds the templ components that render site pages.
//
// Markup lives in the .templ files next to this one; the _templ.go files are
// generated from them and checked in.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"golang.org/x/text/message"
)

// HTMXScriptURL is the pinned htmx build loaded by every page.
const HTMXScriptURL = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

// Localizer provides translated strings for site components.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// T returns a translated string or a key-derived fallback.
func T(loc Localizer, key message.Reference, args ...any) string {
	if loc != nil {
		return loc.Sprintf(key, args...)
	}
	if keyString, ok := key.(string); ok {
		if len(args) > 0 {
			return fmt.Sprintf(keyString, args...)
		}
		return keyString
	}
	return ""
}

// Notice is a one-shot message rendered above page content.
type Notice struct {
	Kind    string
	Message string
}

type option struct {
	Value string
	Label string
}

type fieldOpts struct {
	Kind        string
	Required    bool
	Placeholder string
	Help        string
	Attrs       templ.Attributes
}

func (o fieldOpts) inputType() string {
	if o.Kind == "" {
		return "text"
	}
	return o.Kind
}

// richTextAttrs marks a textarea for the browser-side editor.
func richTextAttrs(extra templ.Attributes) templ.Attributes {
	attrs := templ.Attributes{"data-upload-url": routepath.AppUploadsPrefix}
	for k, v := range extra {
		attrs[k] = v
	}
	return attrs
}

func siteName(chrome module.Chrome) string {
	if name := strings.TrimSpace(chrome.SiteName); name != "" {
		return name
	}
	return "Folio"
}

func documentTitle(p Page) string {
	name := siteName(p.Chrome)
	if t := strings.TrimSpace(p.Title); t != "" && t != name {
		return t + " · " + name
	}
	return name
}

func documentDescription(p Page) string {
	if d := strings.TrimSpace(p.Description); d != "" {
		return d
	}
	return p.Chrome.Tagline
}

// themeStyle writes the theme colors as CSS custom properties. Both values
// pass colorOr, so only #rrggbb reaches the stylesheet.
func themeStyle(chrome module.Chrome) templ.Component {
	return templ.Raw("<style>:root{--primary:" + colorOr(chrome.PrimaryColor, "#1f4e79") +
		";--accent:" + colorOr(chrome.AccentColor, "#e07a1f") + ";}</style>")
}

func colorOr(value string, fallback string) string {
	if len(value) != 7 || value[0] != '#' {
		return fallback
	}
	for _, c := range value[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return fallback
		}
	}
	return value
}

func defaultMenu(loc Localizer) []module.MenuLink {
	return []module.MenuLink{
		{Label: T(loc, "site.nav.home"), URL: routepath.Root},
		{Label: T(loc, "site.nav.pages"), URL: routepath.PagesPrefix},
		{Label: T(loc, "site.nav.products"), URL: routepath.ProductsPrefix},
		{Label: T(loc, "site.nav.boards"), URL: routepath.BoardsPrefix},
	}
}

type navItem struct {
	Path string
	Key  string
}

var adminNavItems = []navItem{
	{routepath.AdminPrefix, "admin.nav.dashboard"},
	{routepath.AdminUsersPrefix, "admin.nav.users"},
	{routepath.AdminCatalogPrefix, "admin.nav.catalog"},
	{routepath.AdminContentPrefix, "admin.nav.content"},
	{routepath.AdminBoardsPrefix, "admin.nav.boards"},
	{routepath.AdminSitePrefix, "admin.nav.site"},
	{routepath.AdminUploadsPrefix, "admin.nav.uploads"},
	{routepath.AdminOrphansPrefix, "admin.nav.orphans"},
	{routepath.AdminIndexNowPrefix, "admin.nav.indexnow"},
}

func navActive(current string, path string) bool {
	if current == path {
		return true
	}
	return path != routepath.AdminPrefix && strings.HasPrefix(current, path)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func machineTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func publishedDate(at *time.Time) string {
	if at == nil {
		return ""
	}
	return formatDate(*at)
}

// sortOption is one entry of a listing's order switcher.
type sortOption struct {
	Value string
	Key   string
}

var productOrders = []sortOption{
	{"", "site.products.order_default"},
	{"price", "site.products.order_price_asc"},
	{"price desc", "site.products.order_price_desc"},
	{"created_at desc", "site.products.order_newest"},
}

var boardOrders = []sortOption{
	{"", "site.boards.order_latest"},
	{"like_count desc", "site.boards.order_likes"},
	{"view_count desc", "site.boards.order_views"},
	{"comment_count desc", "site.boards.order_comments"},
}

func productListPath(category string, order string) string {
	var query []string
	if category != "" {
		query = append(query, "category="+url.QueryEscape(category))
	}
	if order != "" {
		query = append(query, "order="+url.QueryEscape(order))
	}
	if len(query) == 0 {
		return routepath.ProductsPrefix
	}
	return routepath.ProductsPrefix + "?" + strings.Join(query, "&")
}

func boardOrderPath(base string, order string) string {
	if order == "" {
		return base
	}
	return base + "?order=" + url.QueryEscape(order)
}

// FormatPrice renders minor units with thousands separators. Currencies
// without a minor unit are shown as whole amounts.
func FormatPrice(cents int64, currency string) string {
	switch currency {
	case "KRW", "JPY":
		return humanize.Comma(cents) + " " + currency
	}
	whole := humanize.Comma(cents / 100)
	frac := cents % 100
	if frac < 0 {
		frac = -frac
	}
	return whole + "." + leftPad(strconv.FormatInt(frac, 10), 2) + " " + currency
}

func leftPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func galleryImages(p storage.Product) []string {
	if len(p.Images) == 0 && p.ThumbnailPath != "" {
		return []string{p.ThumbnailPath}
	}
	return p.Images
}

func canDeleteComment(viewer module.Viewer, c storage.Comment) bool {
	return viewer.IsAdmin || (viewer.UserID != "" && viewer.UserID == c.AuthorID)
}

func scrapLabel(loc Localizer, scrapped bool) string {
	if scrapped {
		return T(loc, "site.post.scrapped")
	}
	return T(loc, "site.post.scrap")
}

// ErrorTitle returns the heading of an error page.
func ErrorTitle(loc Localizer, statusCode int) string {
	switch statusCode {
	case 403:
		return T(loc, "error.page.title_forbidden")
	case 404:
		return T(loc, "error.page.title_not_found")
	}
	return T(loc, "error.page.title_server_error")
}

func errorMessage(loc Localizer, statusCode int, message string) string {
	if message != "" {
		return message
	}
	switch statusCode {
	case 403:
		return T(loc, "error.page.message_forbidden")
	case 404:
		return T(loc, "error.page.message_not_found")
	}
	return T(loc, "error.page.message_server_error")
}
