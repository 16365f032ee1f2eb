package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/jrsteele09/go-portal-session/guards"
	"github.com/jrsteele09/go-portal-session/records"
	"github.com/jrsteele09/go-portal-session/subscriptions"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/spf13/cobra"
)

const (
	msgLoginToTrial      = "Please log in to start your free trial."
	msgLoginToSubscribe  = "Please log in to subscribe."
	msgAlreadySubscribed = "You are already subscribed."
)

func newWhoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Aliases: []string{"dashboard"},
		Short:   "Show the signed-in account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.get(cmd)
			if err != nil {
				return err
			}
			state, err := guard(cmd, app, guards.Authenticated)
			if err != nil {
				return err
			}

			u := state.User
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Name:\t%s\n", u.FullName())
			fmt.Fprintf(w, "Email:\t%s\n", u.Email)
			fmt.Fprintf(w, "Role:\t%s\n", u.Role)
			fmt.Fprintf(w, "Verified:\t%s\n", yesNo(u.Verified))
			fmt.Fprintf(w, "Plan:\t%s\n", describePlan(u, time.Now()))
			return w.Flush()
		},
	}
}

func newPlansCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List subscription plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.get(cmd)
			if err != nil {
				return err
			}
			state := resolve(cmd, app)
			plans, err := app.Catalog.Plans(commandContext(cmd))
			if err != nil {
				return exitError(exitFailed, "Failed to load pricing information. Please try again later.")
			}

			out := cmd.OutOrStdout()
			for _, p := range plans {
				fmt.Fprintf(out, "[%s] %s  %s (%s)\n", p.ID, p.Title, p.Price, p.Period)
				if p.Trial != "" {
					fmt.Fprintf(out, "    %s - %s\n", p.Trial, p.TrialNote)
				}
				for _, f := range p.Features {
					fmt.Fprintf(out, "    * %s\n", f)
				}
				fmt.Fprintf(out, "    %s\n", planActions(state.User))
			}
			return nil
		},
	}
}

func newTrialCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "trial",
		Short: "Start the free trial",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.get(cmd)
			if err != nil {
				return err
			}
			state := resolve(cmd, app)
			if stop := pricingNotice(cmd, state, msgLoginToTrial); stop != nil {
				return stop
			}
			res := app.Auth.StartTrial(commandContext(cmd))
			if !res.Success {
				return report(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Your free trial is active until %s.\n", formatEnd(res.User))
			return nil
		},
	}
}

func newSubscribeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <plan-id>",
		Short: "Subscribe to a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.get(cmd)
			if err != nil {
				return err
			}
			id := records.ID(strings.TrimSpace(args[0]))

			state := resolve(cmd, app)
			if stop := pricingNotice(cmd, state, msgLoginToSubscribe); stop != nil {
				return stop
			}

			plans, err := app.Catalog.Plans(commandContext(cmd))
			if err != nil {
				return exitError(exitFailed, "Failed to load pricing information. Please try again later.")
			}
			plan, found := subscriptions.Find(plans, id)
			if !found {
				return exitError(exitFailed, "unknown plan %s", id)
			}

			res := app.Auth.Subscribe(commandContext(cmd), plan)
			if !res.Success {
				return report(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Subscribed to %s until %s.\n", plan.Title, formatEnd(res.User))
			return nil
		},
	}
}

func newDeleteAccountCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.get(cmd)
			if err != nil {
				return err
			}
			if _, err := guard(cmd, app, guards.Authenticated); err != nil {
				return err
			}
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return exitError(exitFailed, "refusing to delete the account without --yes")
			}
			return report(cmd, app.Auth.DeleteAccount(commandContext(cmd)))
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm deletion")
	return cmd
}

// pricingNotice stops the pricing actions for anonymous and already subscribed users
func pricingNotice(cmd *cobra.Command, state auth.State, loginMsg string) error {
	out := cmd.OutOrStdout()
	if !state.IsAuthenticated {
		fmt.Fprintln(out, loginMsg)
		fmt.Fprintf(out, "Redirecting to %s\n", guards.LoginPath)
		return exitError(exitRedirect, "redirected to %s", guards.LoginPath)
	}
	if state.User.IsSubscribed {
		fmt.Fprintln(out, msgAlreadySubscribed)
		return exitError(exitFailed, "%s", msgAlreadySubscribed)
	}
	return nil
}

func planActions(u *users.User) string {
	switch {
	case u != nil && u.IsSubscribed:
		return "Manage Subscription"
	case u != nil && u.HasUsedTrial:
		return "Subscribe Now"
	default:
		return "Start Free Trial | Subscribe Now"
	}
}

func describePlan(u *users.User, now time.Time) string {
	if u.PlanType == "" || u.PlanType == users.PlanNone {
		return "none"
	}
	if u.SubscriptionActive(now) {
		return fmt.Sprintf("%s (active, %s remaining)", u.PlanType, u.Remaining(now).Round(time.Second))
	}
	return fmt.Sprintf("%s (expired)", u.PlanType)
}

func formatEnd(u *users.User) string {
	if u == nil || u.SubscriptionEndDate == nil {
		return "unknown"
	}
	return u.SubscriptionEndDate.Local().Format(time.RFC1123)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
