// Package flash carries one-shot notices across a redirect in a cookie.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/louisbranch/folio/internal/services/site/platform/requestmeta"
)

// CookieName is the flash cookie name.
const CookieName = "folio_flash"

// Kind selects the notice style.
type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notice references a localized message shown once on the next page.
type Notice struct {
	Kind Kind     `json:"kind"`
	Key  string   `json:"key"`
	Args []string `json:"args,omitempty"`
}

// Success builds a success notice.
func Success(key string, args ...string) Notice {
	return Notice{Kind: KindSuccess, Key: key, Args: args}
}

// Failure builds an error notice.
func Failure(key string, args ...string) Notice {
	return Notice{Kind: KindError, Key: key, Args: args}
}

// Write stores notice for the next render. Invalid notices are dropped.
func Write(w http.ResponseWriter, r *http.Request, notice Notice, policy requestmeta.Policy) {
	if w == nil {
		return
	}
	notice, ok := normalize(notice)
	if !ok {
		return
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		return
	}
	cookie := base(r, policy)
	cookie.Value = base64.RawURLEncoding.EncodeToString(payload)
	http.SetCookie(w, cookie)
}

// ReadAndClear pops the pending notice. The cookie is cleared even when
// its value cannot be decoded.
func ReadAndClear(w http.ResponseWriter, r *http.Request, policy requestmeta.Policy) (Notice, bool) {
	if r == nil {
		return Notice{}, false
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Notice{}, false
	}
	if w != nil {
		expired := base(r, policy)
		expired.MaxAge = -1
		http.SetCookie(w, expired)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(cookie.Value))
	if err != nil {
		return Notice{}, false
	}
	var notice Notice
	if err := json.Unmarshal(raw, &notice); err != nil {
		return Notice{}, false
	}
	return normalize(notice)
}

func normalize(notice Notice) (Notice, bool) {
	notice.Key = strings.TrimSpace(notice.Key)
	notice.Kind = Kind(strings.ToLower(strings.TrimSpace(string(notice.Kind))))
	if notice.Key == "" {
		return Notice{}, false
	}
	switch notice.Kind {
	case KindSuccess, KindInfo, KindWarning, KindError:
		return notice, true
	}
	return Notice{}, false
}

func base(r *http.Request, policy requestmeta.Policy) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, policy),
		SameSite: http.SameSiteLaxMode,
	}
}
