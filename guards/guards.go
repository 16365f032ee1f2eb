// Package guards decides whether a view may render for a session State.
// Guards only read the State.
package guards

import (
	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/jrsteele09/go-portal-session/users"
)

const (
	LoginPath = "/auth/login"
	HomePath  = "/"
)

type Outcome int

const (
	// Loading means the session is still resolving and no decision is made
	Loading Outcome = iota
	Render
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Rule is what a view requires. A zero Rule lets everyone through.
type Rule struct {
	RequireAuth bool
	Role        users.RoleType
}

var (
	Public        = Rule{}
	Authenticated = Rule{RequireAuth: true}
	AdminOnly     = Rule{RequireAuth: true, Role: users.RoleAdmin}
)

type Decision struct {
	Outcome Outcome
	To      string // redirect target
}

// Evaluate applies rule to state. A role rule redirects home when the user is missing or
// holds another role; an auth rule redirects to the login view.
func Evaluate(state auth.State, rule Rule) Decision {
	if state.Loading {
		return Decision{Outcome: Loading}
	}
	if rule.Role != "" {
		if state.User == nil || state.User.Role != rule.Role {
			return Decision{Outcome: Redirect, To: HomePath}
		}
		return Decision{Outcome: Render}
	}
	if rule.RequireAuth && state.User == nil {
		return Decision{Outcome: Redirect, To: LoginPath}
	}
	return Decision{Outcome: Render}
}
