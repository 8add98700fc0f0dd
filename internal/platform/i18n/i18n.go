// Package i18n defines the languages Folio serves and how request language
// preferences map onto them.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.AmericanEnglish,
	language.MustParse("ko-KR"),
}

var matcher = language.NewMatcher(supported)

// SupportedTags returns supported tags with the default first.
func SupportedTags() []language.Tag {
	out := make([]language.Tag, len(supported))
	copy(out, supported)
	return out
}

// DefaultTag returns the fallback language.
func DefaultTag() language.Tag {
	return supported[0]
}

// ParseTag parses raw and reports whether it names a supported language.
// Base-language matches such as "ko" resolve to the regional tag.
func ParseTag(raw string) (language.Tag, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return language.Tag{}, false
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return language.Tag{}, false
	}
	_, index, confidence := matcher.Match(tag)
	if confidence < language.High {
		return language.Tag{}, false
	}
	return supported[index], true
}

// MatchTags returns the best supported tag for ordered preferences.
func MatchTags(tags []language.Tag) language.Tag {
	if len(tags) == 0 {
		return DefaultTag()
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return DefaultTag()
	}
	return supported[index]
}
