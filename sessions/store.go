package sessions

import (
	"net/http"
	"time"
)

const (
	// DefaultCookieName is the cookie the session token lives in
	DefaultCookieName = "token"
	// DefaultMaxAge is how long a session cookie stays valid after it is set
	DefaultMaxAge = 7 * 24 * time.Hour
)

// Store holds the single opaque session token of the running client.
// The token is the id of the signed-in user record; it is never signed or verified.
type Store interface {
	// Token returns the current token, false when none is set or it has expired
	Token() (string, bool)

	// SetToken replaces the current token with a fresh cookie
	SetToken(token string) error

	// Clear removes the token, it is not an error if none is set
	Clear() error
}

// NewCookie builds the session cookie with the transport flags the token is always stored with.
func NewCookie(name, token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func expired(c *http.Cookie, now time.Time) bool {
	return c == nil || c.Value == "" || (!c.Expires.IsZero() && !now.Before(c.Expires))
}
