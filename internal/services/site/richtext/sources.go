package richtext

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ImageSources returns every image src in raw editor JSON in document
// order without duplicates. It walks the JSON directly so unparseable or
// partially invalid documents still report what they reference.
func ImageSources(raw string) []string {
	if !gjson.Valid(raw) {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	var walk func(node gjson.Result)
	walk = func(node gjson.Result) {
		if node.Get("type").String() == TypeImage {
			if src := strings.TrimSpace(node.Get("src").String()); src != "" {
				if _, ok := seen[src]; !ok {
					seen[src] = struct{}{}
					out = append(out, src)
				}
			}
		}
		node.Get("children").ForEach(func(_, child gjson.Result) bool {
			walk(child)
			return true
		})
	}
	walk(gjson.Get(raw, "root"))
	return out
}
