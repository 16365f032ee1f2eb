package auth

import (
	"github.com/jrsteele09/go-portal-session/internal/utils"
	"github.com/jrsteele09/go-portal-session/users"
)

// Phase is where the session is in its life cycle
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseResolving
	PhaseAuthenticated
	PhaseAnonymous
	PhaseMutating
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseResolving:
		return "resolving"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseMutating:
		return "mutating"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session. IsAuthenticated == (User != nil) whenever Loading is false.
type State struct {
	Phase           Phase
	IsAuthenticated bool
	User            *users.User
	Loading         bool
}

// Result is what every Auth Service operation returns. Message is for display; Err
// carries the cause for errors.Is and errors.As.
type Result struct {
	Success     bool
	Message     string
	User        *users.User
	ChallengeID string
	Err         error
}

func ok(msg string, user *users.User) Result {
	return Result{Success: true, Message: msg, User: user}
}

func failed(msg string, err error) Result {
	return Result{Success: false, Message: msg, Err: err}
}

func (s State) clone() State {
	s.User = cloneUser(s.User)
	return s
}

func cloneUser(u *users.User) *users.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.SubscriptionEndDate != nil {
		c.SubscriptionEndDate = utils.Ptr(*u.SubscriptionEndDate)
	}
	return &c
}
