package cli

import (
	"fmt"

	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/spf13/cobra"
)

func newLoginCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.get(cmd)
			if err != nil {
				return err
			}
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			resolve(cmd, app)
			res := app.Auth.Login(commandContext(cmd), email, password)
			if !res.Success {
				return report(cmd, res)
			}
			name := res.User.FullName()
			if name == "" {
				name = res.User.Email
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome back, %s!\n", name)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password")
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the session cookie",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.get(cmd)
			if err != nil {
				return err
			}
			app.Auth.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newRegisterCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.get(cmd)
			if err != nil {
				return err
			}
			var req auth.RegisterRequest
			req.Email, _ = cmd.Flags().GetString("email")
			req.Password, _ = cmd.Flags().GetString("password")
			req.FirstName, _ = cmd.Flags().GetString("first-name")
			req.LastName, _ = cmd.Flags().GetString("last-name")

			resolve(cmd, app)
			return report(cmd, app.Auth.RegisterUser(commandContext(cmd), req))
		},
	}
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Password, at least 8 characters with upper and lower case letters and a number")
	cmd.Flags().String("first-name", "", "First name")
	cmd.Flags().String("last-name", "", "Last name")
	return cmd
}

func newVerifyCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <challenge> <code>",
		Short: "Verify a new account with the emailed code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.get(cmd)
			if err != nil {
				return err
			}
			return report(cmd, app.Auth.VerifyRegistrationOTP(commandContext(cmd), args[0], args[1]))
		},
	}
}

func newResendCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "resend <challenge>",
		Short: "Send a new code for a pending challenge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.get(cmd)
			if err != nil {
				return err
			}
			return report(cmd, app.Auth.ResendOTP(commandContext(cmd), args[0]))
		},
	}
}

func newForgotPasswordCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Email a password reset code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.get(cmd)
			if err != nil {
				return err
			}
			return report(cmd, app.Auth.RequestPasswordResetOTP(commandContext(cmd), args[0]))
		},
	}
}

func newResetPasswordCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password using a reset code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.get(cmd)
			if err != nil {
				return err
			}
			challenge, _ := cmd.Flags().GetString("challenge")
			code, _ := cmd.Flags().GetString("code")
			password, _ := cmd.Flags().GetString("password")

			resolve(cmd, app)
			return report(cmd, app.Auth.CompletePasswordReset(commandContext(cmd), challenge, code, password))
		},
	}
	cmd.Flags().String("challenge", "", "Challenge printed by forgot-password")
	cmd.Flags().String("code", "", "Code from the email")
	cmd.Flags().String("password", "", "New password")
	_ = cmd.MarkFlagRequired("challenge")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}
