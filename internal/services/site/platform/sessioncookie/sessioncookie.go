// Package sessioncookie reads and writes the signed-in session cookie.
package sessioncookie

import (
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/folio/internal/services/site/platform/requestmeta"
)

// Name is the session cookie name.
const Name = "folio_session"

// Read returns the session token when the cookie is present and non-blank.
func Read(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(Name)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(cookie.Value)
	return token, token != ""
}

// Write sets the session cookie to expire with the server-side session.
func Write(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time, policy requestmeta.Policy) {
	if w == nil {
		return
	}
	cookie := base(r, policy)
	cookie.Value = strings.TrimSpace(token)
	if !expiresAt.IsZero() {
		cookie.Expires = expiresAt.UTC()
		if maxAge := int(time.Until(expiresAt).Seconds()); maxAge > 0 {
			cookie.MaxAge = maxAge
		}
	}
	http.SetCookie(w, cookie)
}

// Clear expires the session cookie.
func Clear(w http.ResponseWriter, r *http.Request, policy requestmeta.Policy) {
	if w == nil {
		return
	}
	cookie := base(r, policy)
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
}

func base(r *http.Request, policy requestmeta.Policy) *http.Cookie {
	return &http.Cookie{
		Name:     Name,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, policy),
		SameSite: http.SameSiteLaxMode,
	}
}
