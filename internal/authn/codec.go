package authn

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken indicates the claims cookie is absent.
var ErrNoToken = errors.New("authn: no session token")

// ErrInvalidToken indicates the token failed signature, expiry or shape
// checks. Callers treat it identically to an absent token.
var ErrInvalidToken = errors.New("authn: invalid session token")

// TokenCodec signs Claims into the session cookie and verifies them back.
// HS256 only; tokens signed with any other method are rejected.
type TokenCodec struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewTokenCodec constructs a TokenCodec.
func NewTokenCodec(secret, cookieName string, ttl time.Duration, secure bool) *TokenCodec {
	return &TokenCodec{
		secret:     []byte(secret),
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// CookieName returns the claims cookie identifier.
func (c *TokenCodec) CookieName() string {
	return c.cookieName
}

// TTL returns the configured session lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Sign stamps issue/expiry times and returns the signed compact token.
func (c *TokenCodec) Sign(claims *Claims) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify parses and validates a compact token.
func (c *TokenCodec) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// FromRequest reads and verifies the claims cookie on a request.
func (c *TokenCodec) FromRequest(r *http.Request) (*Claims, error) {
	cookie, err := r.Cookie(c.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoToken
	}
	return c.Verify(cookie.Value)
}

// Write sets the claims cookie on the response.
func (c *TokenCodec) Write(w http.ResponseWriter, signed string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(c.ttl),
	})
}

// Clear removes the claims cookie.
func (c *TokenCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
