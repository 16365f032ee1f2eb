package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// AppFactory builds the App for the command being run
type AppFactory func(cmd *cobra.Command) (*App, error)

// runtime builds the App once per process on first use
type runtime struct {
	factory AppFactory
	app     *App
}

func (r *runtime) get(cmd *cobra.Command) (*App, error) {
	if r.app != nil {
		return r.app, nil
	}
	app, err := r.factory(cmd)
	if err != nil {
		return nil, exitError(exitFailed, "starting portal: %v", err)
	}
	r.app = app
	return app, nil
}

// NewRootCmd creates the portal command tree
func NewRootCmd(factory AppFactory) *cobra.Command {
	rt := &runtime{factory: factory}

	root := &cobra.Command{
		Use:   "portal",
		Short: "Subscription portal",
		Long:  "Sign in, manage your subscription and administer accounts of the subscription portal.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("env-file", ".env", "Environment file to load")
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	root.AddCommand(
		newLoginCmd(rt),
		newLogoutCmd(rt),
		newRegisterCmd(rt),
		newVerifyCmd(rt),
		newResendCmd(rt),
		newForgotPasswordCmd(rt),
		newResetPasswordCmd(rt),
		newWhoamiCmd(rt),
		newPlansCmd(rt),
		newTrialCmd(rt),
		newSubscribeCmd(rt),
		newDeleteAccountCmd(rt),
		newAdminCmd(rt),
	)
	return root
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
