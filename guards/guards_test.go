package guards_test

import (
	"testing"

	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/jrsteele09/go-portal-session/guards"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	admin := &users.User{ID: "1", Role: users.RoleAdmin}
	editor := &users.User{ID: "2", Role: users.RoleEditor}

	signedIn := func(u *users.User) auth.State {
		return auth.State{Phase: auth.PhaseAuthenticated, IsAuthenticated: true, User: u}
	}
	anonymous := auth.State{Phase: auth.PhaseAnonymous}

	tests := []struct {
		name  string
		state auth.State
		rule  guards.Rule
		want  guards.Decision
	}{
		{"loading makes no decision", auth.State{Phase: auth.PhaseResolving, Loading: true}, guards.AdminOnly, guards.Decision{Outcome: guards.Loading}},
		{"loading during a write", auth.State{Phase: auth.PhaseMutating, Loading: true, User: admin}, guards.Authenticated, guards.Decision{Outcome: guards.Loading}},
		{"auth rule renders for a user", signedIn(editor), guards.Authenticated, guards.Decision{Outcome: guards.Render}},
		{"auth rule redirects to login", anonymous, guards.Authenticated, guards.Decision{Outcome: guards.Redirect, To: "/auth/login"}},
		{"role rule renders for the role", signedIn(admin), guards.AdminOnly, guards.Decision{Outcome: guards.Render}},
		{"role rule redirects other roles home", signedIn(editor), guards.AdminOnly, guards.Decision{Outcome: guards.Redirect, To: "/"}},
		{"role rule redirects anonymous home", anonymous, guards.AdminOnly, guards.Decision{Outcome: guards.Redirect, To: "/"}},
		{"editor role", signedIn(editor), guards.Rule{Role: users.RoleEditor}, guards.Decision{Outcome: guards.Render}},
		{"public renders for anyone", anonymous, guards.Public, guards.Decision{Outcome: guards.Render}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, guards.Evaluate(tt.state, tt.rule))
		})
	}
}

func TestEvaluate_DoesNotMutate(t *testing.T) {
	user := &users.User{ID: "1", Role: users.RoleUser}
	state := auth.State{Phase: auth.PhaseAuthenticated, IsAuthenticated: true, User: user}
	before := *user

	guards.Evaluate(state, guards.AdminOnly)
	guards.Evaluate(state, guards.Authenticated)

	require.Equal(t, before, *user)
	require.Equal(t, auth.PhaseAuthenticated, state.Phase)
}
