package content

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PreviewTTL is how long a preview link stays valid.
const PreviewTTL = 24 * time.Hour

const previewAudience = "folio-preview"

// PreviewSigner mints and verifies HS256 preview tokens whose subject is
// the entry id.
type PreviewSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewPreviewSigner returns nil when secret is blank so previews stay off.
func NewPreviewSigner(secret string) *PreviewSigner {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	return &PreviewSigner{secret: []byte(secret), ttl: PreviewTTL}
}

// Sign returns a token for entryID issued at now.
func (p *PreviewSigner) Sign(entryID string, now time.Time) (string, error) {
	if p == nil {
		return "", errors.New("preview signer is not configured")
	}
	claims := jwt.RegisteredClaims{
		Subject:   entryID,
		Audience:  jwt.ClaimStrings{previewAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign preview token: %w", err)
	}
	return token, nil
}

// Verify checks the token signature, audience and expiry at now and
// returns the entry id.
func (p *PreviewSigner) Verify(token string, now time.Time) (string, error) {
	if p == nil {
		return "", errors.New("preview signer is not configured")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims,
		func(*jwt.Token) (any, error) { return p.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(previewAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", fmt.Errorf("verify preview token: %w", err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("preview token has no subject")
	}
	return claims.Subject, nil
}
