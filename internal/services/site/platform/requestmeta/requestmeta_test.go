package requestmeta

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHasSameOriginProof(t *testing.T) {
	t.Parallel()

	newReq := func(host string, headers map[string]string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "http://"+host+"/app/posts", nil)
		req.URL.Scheme = ""
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req
	}

	tests := []struct {
		name   string
		req    *http.Request
		policy Policy
		want   bool
	}{
		{name: "matching origin", req: newReq("example.com", map[string]string{"Origin": "http://example.com"}), want: true},
		{name: "default port equivalence", req: newReq("example.com:80", map[string]string{"Origin": "http://example.com"}), want: true},
		{name: "referer fallback", req: newReq("example.com", map[string]string{"Referer": "http://example.com/boards/free"}), want: true},
		{name: "foreign origin", req: newReq("example.com", map[string]string{"Origin": "http://evil.test"}), want: false},
		{name: "scheme mismatch", req: newReq("example.com", map[string]string{"Origin": "https://example.com"}), want: false},
		{name: "forwarded https trusted", req: newReq("example.com", map[string]string{"Origin": "https://example.com", "X-Forwarded-Proto": "https"}), policy: Policy{TrustForwardedProto: true}, want: true},
		{name: "no proof", req: newReq("example.com", nil), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasSameOriginProof(tc.req, tc.policy); got != tc.want {
				t.Fatalf("HasSameOriginProof() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSchemeIgnoresForwardedProtoByDefault(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	if IsHTTPS(req, Policy{}) {
		t.Fatal("expected forwarded proto to be ignored without trust")
	}
	if !IsHTTPS(req, Policy{TrustForwardedProto: true}) {
		t.Fatal("expected forwarded proto to be honored with trust")
	}

	tlsReq := httptest.NewRequest(http.MethodGet, "/", nil)
	tlsReq.TLS = &tls.ConnectionState{}
	if !IsHTTPS(tlsReq, Policy{}) {
		t.Fatal("expected TLS request to be https")
	}
}

func TestOriginAndClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil)
	req.Host = "Shop.Example.com"
	req.RemoteAddr = "10.0.0.7:5123"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := Origin(req, Policy{}); got != "http://shop.example.com" {
		t.Fatalf("Origin() = %q", got)
	}
	if got := ClientIP(req, Policy{}); got != "10.0.0.7" {
		t.Fatalf("ClientIP() = %q, want %q", got, "10.0.0.7")
	}
	if got := ClientIP(req, Policy{TrustForwardedFor: true}); got != "203.0.113.9" {
		t.Fatalf("ClientIP(trusted) = %q, want %q", got, "203.0.113.9")
	}
}
