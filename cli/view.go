package cli

import (
	"fmt"

	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/jrsteele09/go-portal-session/guards"
	"github.com/spf13/cobra"
)

// resolve runs the session resolution every view starts with
func resolve(cmd *cobra.Command, app *App) auth.State {
	return app.Auth.ResolveSession(commandContext(cmd))
}

// guard resolves the session and stops the view when rule does not let it render
func guard(cmd *cobra.Command, app *App, rule guards.Rule) (auth.State, error) {
	state := resolve(cmd, app)
	decision := guards.Evaluate(state, rule)
	switch decision.Outcome {
	case guards.Render:
		return state, nil
	case guards.Redirect:
		fmt.Fprintf(cmd.OutOrStdout(), "Redirecting to %s\n", decision.To)
		return state, exitError(exitRedirect, "redirected to %s", decision.To)
	default:
		fmt.Fprintln(cmd.OutOrStdout(), "Loading...")
		return state, exitError(exitFailed, "session is still loading")
	}
}

// report prints the result of an operation and turns a failure into an exit code
func report(cmd *cobra.Command, res auth.Result) error {
	if !res.Success {
		return exitError(exitFailed, "%s", res.Message)
	}
	if res.Message != "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	}
	if res.ChallengeID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Challenge: %s\n", res.ChallengeID)
	}
	return nil
}
