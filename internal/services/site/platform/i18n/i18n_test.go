package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveTagPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		url         string
		cookie      string
		accept      string
		want        string
		wantPersist bool
	}{
		{name: "default", url: "/", want: "en-US"},
		{name: "accept language", url: "/", accept: "ko,en;q=0.5", want: "ko-KR"},
		{name: "cookie beats accept", url: "/", cookie: "en-US", accept: "ko", want: "en-US"},
		{name: "query beats cookie", url: "/?lang=ko-KR", cookie: "en-US", want: "ko-KR", wantPersist: true},
		{name: "unsupported query ignored", url: "/?lang=fr", accept: "ko", want: "ko-KR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tc.cookie})
			}
			if tc.accept != "" {
				req.Header.Set("Accept-Language", tc.accept)
			}
			tag, persist := ResolveTag(req)
			if tag.String() != tc.want || persist != tc.wantPersist {
				t.Fatalf("ResolveTag() = %s, %v; want %s, %v", tag, persist, tc.want, tc.wantPersist)
			}
		})
	}
}

func TestResolveLocalizerPersistsQueryChoice(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	loc, lang := ResolveLocalizer(rr, httptest.NewRequest(http.MethodGet, "/?lang=ko", nil), nil)
	if lang != "ko-KR" {
		t.Fatalf("lang = %q, want ko-KR", lang)
	}
	if got := loc.Sprintf("site.nav.home"); got == "site.nav.home" || got == "" {
		t.Fatalf("expected translated nav label, got %q", got)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != "ko-KR" {
		t.Fatalf("language cookie = %+v", cookies)
	}
}

func TestResolveLocalizerOverrideWins(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/?lang=en-US", nil)
	_, lang := ResolveLocalizer(httptest.NewRecorder(), req, func(*http.Request) string { return "ko-KR" })
	if lang != "ko-KR" {
		t.Fatalf("lang = %q, want ko-KR", lang)
	}
}

func TestOptionsMarksActive(t *testing.T) {
	t.Parallel()

	options := Options("ko-KR")
	if len(options) != 2 {
		t.Fatalf("options = %d, want 2", len(options))
	}
	if options[0].Active || !options[1].Active || options[1].Label != "한국어" {
		t.Fatalf("options = %+v", options)
	}
}
