package i18n

import (
	"testing"

	"golang.org/x/text/language"
)

func TestParseTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{raw: "en-US", want: "en-US", wantOK: true},
		{raw: "ko", want: "ko-KR", wantOK: true},
		{raw: " ko-KR ", want: "ko-KR", wantOK: true},
		{raw: "fr", wantOK: false},
		{raw: "", wantOK: false},
		{raw: "!!", wantOK: false},
	}
	for _, tc := range tests {
		got, ok := ParseTag(tc.raw)
		if ok != tc.wantOK {
			t.Fatalf("ParseTag(%q) ok = %v, want %v", tc.raw, ok, tc.wantOK)
		}
		if ok && got.String() != tc.want {
			t.Fatalf("ParseTag(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestMatchTags(t *testing.T) {
	t.Parallel()

	if got := MatchTags(nil); got != DefaultTag() {
		t.Fatalf("MatchTags(nil) = %v, want default", got)
	}
	if got := MatchTags([]language.Tag{language.French, language.Korean}); got.String() != "ko-KR" {
		t.Fatalf("MatchTags(fr, ko) = %v, want ko-KR", got)
	}
	if got := MatchTags([]language.Tag{language.Japanese}); got != DefaultTag() {
		t.Fatalf("MatchTags(ja) = %v, want default", got)
	}
}
