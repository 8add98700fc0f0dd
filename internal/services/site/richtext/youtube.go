package richtext

import (
	"net/url"
	"strings"
)

// ParseYouTubeID extracts the video id from watch, short, embed and shorts
// URLs.
func ParseYouTubeID(raw string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return "", false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, prefix := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, prefix)
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")

	var id string
	switch host {
	case "youtu.be":
		id = segments[0]
	case "youtube.com", "youtube-nocookie.com":
		switch {
		case len(segments) == 1 && segments[0] == "watch":
			id = parsed.Query().Get("v")
		case len(segments) >= 2 && (segments[0] == "embed" || segments[0] == "shorts" || segments[0] == "live"):
			id = segments[1]
		}
	}
	if !youTubeIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

// WatchURL returns the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// EmbedURL returns the privacy-enhanced embed URL for a video id.
func EmbedURL(videoID string) string {
	return "https://www.youtube-nocookie.com/embed/" + videoID
}
