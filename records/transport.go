package records

import (
	"net/http"

	"golang.org/x/oauth2"
)

// TokenSource yields the current session token, false when there is none.
// sessions.Store satisfies it.
type TokenSource interface {
	Token() (string, bool)
}

// bearerTransport attaches "Authorization: Bearer <token>" whenever a token resolves
// and sends the request unauthenticated otherwise.
type bearerTransport struct {
	tokens TokenSource
	base   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tokens != nil {
		if token, ok := t.tokens.Token(); ok {
			authed := &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
				Base:   t.base,
			}
			return authed.RoundTrip(req)
		}
	}
	return t.base.RoundTrip(req)
}
