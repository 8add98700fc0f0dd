// Package slug derives and validates URL slugs.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds generated and accepted slugs.
const MaxLength = 80

var pattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Make lowercases name, strips diacritics and joins runs of other
// characters with single dashes. Names without any ASCII letters or digits
// yield "".
func Make(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	out := b.String()
	if len(out) > MaxLength {
		out = strings.TrimRight(out[:MaxLength], "-")
	}
	return out
}

// Valid reports whether s is a canonical slug.
func Valid(s string) bool {
	return len(s) <= MaxLength && pattern.MatchString(s)
}

// Resolve returns the explicit slug when given, otherwise one derived from
// name, otherwise fallback. ok is false when an explicit slug is malformed.
func Resolve(explicit string, name string, fallback string) (string, bool) {
	explicit = strings.ToLower(strings.TrimSpace(explicit))
	if explicit != "" {
		return explicit, Valid(explicit)
	}
	if derived := Make(name); derived != "" {
		return derived, true
	}
	return fallback, Valid(fallback)
}
