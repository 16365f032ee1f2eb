package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/jrsteele09/go-portal-session/guards"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newAdminCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer portal accounts",
	}
	cmd.AddCommand(newAdminUsersCmd(rt))
	return cmd
}

func newAdminUsersCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.get(cmd)
			if err != nil {
				return err
			}
			if _, err := guard(cmd, app, guards.AdminOnly); err != nil {
				return err
			}

			list, err := app.Auth.ListUsers(commandContext(cmd))
			if err != nil {
				if errors.Is(err, auth.ErrForbidden) {
					return exitError(exitRedirect, "%s", auth.MsgForbidden)
				}
				app.Logger.Error().Err(err).Msg("listing users failed")
				return exitError(exitFailed, "%s", auth.MsgListUsersError)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tVERIFIED\tPLAN")
			for _, u := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.FullName(), u.Role, yesNo(u.Verified), u.PlanType)
			}
			return w.Flush()
		},
	}
}
