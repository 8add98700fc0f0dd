// Package i18n resolves the request language and hands out printers backed
// by the embedded message catalogs.
package i18n

import (
	"net/http"
	"strings"
	"time"

	platformi18n "github.com/louisbranch/folio/internal/platform/i18n"
	"github.com/louisbranch/folio/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam selects a language for this and later requests.
	LangParam = "lang"
	// CookieName persists an explicit language choice.
	CookieName = "folio_lang"
)

// Localizer renders catalog keys for one language.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// LanguageOption is one entry of the language switcher.
type LanguageOption struct {
	Tag    string
	Label  string
	Active bool
}

var labels = map[string]string{
	"en-US": "English",
	"ko-KR": "한국어",
}

// catalogs are registered with x/text on first use of this package.
var _ = catalog.Default()

// ResolveTag picks the request language from the lang query parameter, the
// language cookie and Accept-Language, in that order. persist reports
// whether the choice came from the query and should be stored.
func ResolveTag(r *http.Request) (tag language.Tag, persist bool) {
	if r == nil {
		return platformi18n.DefaultTag(), false
	}
	if r.URL != nil {
		if tag, ok := platformi18n.ParseTag(r.URL.Query().Get(LangParam)); ok {
			return tag, true
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		if tag, ok := platformi18n.ParseTag(cookie.Value); ok {
			return tag, false
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil {
			return platformi18n.MatchTags(tags), false
		}
	}
	return platformi18n.DefaultTag(), false
}

// SetLanguageCookie stores tag for a year.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// Printer returns a localizer for tag.
func Printer(tag language.Tag) Localizer {
	return message.NewPrinter(tag)
}

// ResolveLocalizer returns the request localizer and its language string.
// An override resolver, when it yields a supported language, wins over the
// request preferences; a lang query choice is persisted as a cookie.
func ResolveLocalizer(w http.ResponseWriter, r *http.Request, override func(*http.Request) string) (Localizer, string) {
	if override != nil {
		if tag, ok := platformi18n.ParseTag(override(r)); ok {
			return Printer(tag), tag.String()
		}
	}
	tag, persist := ResolveTag(r)
	if persist {
		SetLanguageCookie(w, tag)
	}
	return Printer(tag), tag.String()
}

// Options lists supported languages with active marking the current one.
func Options(active string) []LanguageOption {
	activeTag, ok := platformi18n.ParseTag(active)
	if !ok {
		activeTag = platformi18n.DefaultTag()
	}
	tags := platformi18n.SupportedTags()
	out := make([]LanguageOption, 0, len(tags))
	for _, tag := range tags {
		label := labels[tag.String()]
		if label == "" {
			label = tag.String()
		}
		out = append(out, LanguageOption{Tag: tag.String(), Label: label, Active: tag == activeTag})
	}
	return out
}
