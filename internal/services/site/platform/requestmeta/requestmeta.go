// Package requestmeta derives scheme, origin and client metadata from
// incoming requests under an explicit proxy trust policy.
package requestmeta

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Policy controls which proxy headers are trusted.
//
// Forwarded headers are ignored unless the operator opts in, because clients
// can set them freely when the site is exposed without a proxy.
type Policy struct {
	TrustForwardedProto bool
	TrustForwardedFor   bool
}

// Scheme returns "https" or "http" for the request.
func Scheme(r *http.Request, policy Policy) string {
	if r == nil {
		return "http"
	}
	if policy.TrustForwardedProto {
		switch proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto {
		case "http", "https":
			return proto
		}
	}
	if r.URL != nil {
		switch scheme := strings.ToLower(r.URL.Scheme); scheme {
		case "http", "https":
			return scheme
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// IsHTTPS reports whether cookies for this request should be Secure.
func IsHTTPS(r *http.Request, policy Policy) bool {
	return Scheme(r, policy) == "https"
}

// Origin returns scheme://host for the request, or "" when the host is unknown.
func Origin(r *http.Request, policy Policy) string {
	if r == nil {
		return ""
	}
	host := strings.TrimSpace(r.Host)
	if host == "" && r.URL != nil {
		host = r.URL.Host
	}
	if host == "" {
		return ""
	}
	return Scheme(r, policy) + "://" + strings.ToLower(host)
}

// HasSameOriginProof reports whether the Origin header, or the Referer when
// Origin is absent, names the same scheme, host and port as the request.
func HasSameOriginProof(r *http.Request, policy Policy) bool {
	if r == nil {
		return false
	}
	scheme := Scheme(r, policy)
	host, port := splitHost(r.Host, scheme)
	if host == "" {
		return false
	}
	claim := strings.TrimSpace(r.Header.Get("Origin"))
	if claim == "" {
		claim = strings.TrimSpace(r.Header.Get("Referer"))
	}
	if claim == "" {
		return false
	}
	parsed, err := url.Parse(claim)
	if err != nil {
		return false
	}
	claimScheme := strings.ToLower(parsed.Scheme)
	if claimScheme != scheme {
		return false
	}
	claimHost, claimPort := splitHost(parsed.Host, claimScheme)
	return claimHost != "" && claimHost == host && claimPort == port
}

// ClientIP returns the best-effort client address without a port.
func ClientIP(r *http.Request, policy Policy) string {
	if r == nil {
		return ""
	}
	if policy.TrustForwardedFor {
		if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func splitHost(raw string, scheme string) (string, string) {
	parsed, err := url.Parse("//" + strings.TrimSpace(raw))
	if err != nil {
		return "", ""
	}
	port := parsed.Port()
	if port == "" {
		switch scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		}
	}
	return strings.ToLower(parsed.Hostname()), port
}
