// Package forms reads trimmed, typed values from parsed HTML forms.
package forms

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/louisbranch/folio/internal/services/site/richtext"
)

// MaxFormBytes bounds urlencoded form bodies.
const MaxFormBytes = 1 << 20

// Parse reads a urlencoded body capped at MaxFormBytes.
func Parse(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFormBytes)
	return r.ParseForm()
}

// Value returns the trimmed form value.
func Value(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}

// Int returns the form value as an int, or 0.
func Int(r *http.Request, name string) int {
	n, err := strconv.Atoi(Value(r, name))
	if err != nil {
		return 0
	}
	return n
}

// Int64 returns the form value as an int64, or -1 when it is not a number
// so validation rejects it instead of silently storing zero.
func Int64(r *http.Request, name string) int64 {
	raw := Value(r, name)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// Bool reports whether a checkbox was ticked.
func Bool(r *http.Request, name string) bool {
	switch strings.ToLower(Value(r, name)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// Lines splits a textarea into trimmed non-blank lines.
func Lines(r *http.Request, name string) []string {
	var out []string
	for _, line := range strings.Split(r.FormValue(name), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// EditorDocument returns raw when it is an editor JSON document and
// otherwise converts it from markdown, so forms work without the editor.
func EditorDocument(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	return richtext.Marshal(richtext.FromMarkdown(raw))
}
