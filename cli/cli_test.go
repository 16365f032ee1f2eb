package cli_test

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/jrsteele09/go-portal-session/cli"
	"github.com/jrsteele09/go-portal-session/internal/config"
	"github.com/jrsteele09/go-portal-session/otp"
	"github.com/jrsteele09/go-portal-session/recordserver"
	"github.com/jrsteele09/go-portal-session/subscriptions"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "Analytical1"
)

type testFixture struct {
	server   *recordserver.Server
	sender   *otp.MemorySender
	settings cli.Settings
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	store := recordserver.NewMemoryStore(recordserver.UsersCollection, otp.Collection, subscriptions.Collection)
	rs := recordserver.New(config.New(), store, recordserver.WithLogger(zerolog.Nop()))
	srv := httptest.NewServer(rs)
	t.Cleanup(srv.Close)

	return &testFixture{
		server: rs,
		sender: otp.NewMemorySender(),
		settings: cli.Settings{
			RecordStoreURL:     srv.URL,
			RequestTimeout:     5 * time.Second,
			CookieFile:         filepath.Join(t.TempDir(), "cookies.json"),
			CookieName:         "token",
			CookieMaxAge:       7 * 24 * time.Hour,
			TrialDuration:      3 * time.Minute,
			CodeExpiry:         10 * time.Minute,
			CodeMaxAttempts:    5,
			CodeResendInterval: 30 * time.Second,
		},
	}
}

// run executes one command against a fresh root, the way a new process would
func (f *testFixture) run(args ...string) (stdout string, err error) {
	root := cli.NewRootCmd(func(cmd *cobra.Command) (*cli.App, error) {
		return cli.NewApp(f.settings, f.sender, zerolog.Nop())
	})
	stdout, _, err = executeCommand(root, args...)
	return stdout, err
}

func (f *testFixture) register(t *testing.T) {
	t.Helper()
	out, err := f.run("register", "--email", testEmail, "--password", testPassword, "--first-name", "Ada", "--last-name", "Lovelace")
	require.NoError(t, err)
	challenge := challengeFrom(t, out)
	msg, found := f.sender.Last(testEmail)
	require.True(t, found)

	out, err = f.run("verify", challenge, msg.Code)
	require.NoError(t, err)
	require.Contains(t, out, auth.MsgRegistrationDone)
}

func executeCommand(root *cobra.Command, args ...string) (stdout, stderr string, err error) {
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

func challengeFrom(t *testing.T, out string) string {
	t.Helper()
	_, rest, found := strings.Cut(out, "Challenge: ")
	require.True(t, found, "no challenge in %q", out)
	return strings.TrimSpace(strings.SplitN(rest, "\n", 2)[0])
}

func requireExitCode(t *testing.T, err error, code int) *cli.ExitError {
	t.Helper()
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, code, exitErr.Code)
	return exitErr
}

func TestCLI_SessionLifecycle(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	t.Run("guarded view redirects when signed out", func(t *testing.T) {
		out, err := f.run("whoami")
		requireExitCode(t, err, 2)
		require.Contains(t, out, "Redirecting to /auth/login")
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.run("login", "--email", testEmail, "--password", "Wrong1234")
		exitErr := requireExitCode(t, err, 1)
		require.Equal(t, auth.MsgInvalidLogin, exitErr.Message)
	})

	t.Run("missing fields are rejected before the store", func(t *testing.T) {
		_, err := f.run("login", "--email", testEmail)
		exitErr := requireExitCode(t, err, 1)
		require.Equal(t, auth.MsgMissingCredentials, exitErr.Message)
	})

	t.Run("login persists across runs", func(t *testing.T) {
		out, err := f.run("login", "--email", "Ada@Example.com", "--password", testPassword)
		require.NoError(t, err)
		require.Contains(t, out, "Welcome back, Ada Lovelace!")

		out, err = f.run("whoami")
		require.NoError(t, err)
		require.Contains(t, out, testEmail)
		require.Contains(t, out, "Verified:  yes")
		require.Contains(t, out, "Plan:      none")
	})

	t.Run("non admin is sent home", func(t *testing.T) {
		out, err := f.run("admin", "users")
		requireExitCode(t, err, 2)
		require.Contains(t, out, "Redirecting to /")
	})

	t.Run("logout", func(t *testing.T) {
		out, err := f.run("logout")
		require.NoError(t, err)
		require.Contains(t, out, "Logged out.")

		_, err = f.run("whoami")
		requireExitCode(t, err, 2)
	})
}

func TestCLI_Pricing(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	t.Run("anonymous visitors are asked to log in", func(t *testing.T) {
		out, err := f.run("plans")
		require.NoError(t, err)
		require.Contains(t, out, "Monthly Subscription")
		require.Contains(t, out, "£99/year")

		out, err = f.run("trial")
		requireExitCode(t, err, 2)
		require.Contains(t, out, "Please log in to start your free trial.")

		out, err = f.run("subscribe", "1")
		requireExitCode(t, err, 2)
		require.Contains(t, out, "Please log in to subscribe.")
	})

	_, err := f.run("login", "--email", testEmail, "--password", testPassword)
	require.NoError(t, err)

	t.Run("trial then already subscribed", func(t *testing.T) {
		out, err := f.run("trial")
		require.NoError(t, err)
		require.Contains(t, out, "Your free trial is active until")

		out, err = f.run("whoami")
		require.NoError(t, err)
		require.Contains(t, out, "trial (active")

		out, err = f.run("plans")
		require.NoError(t, err)
		require.Contains(t, out, "Manage Subscription")

		out, err = f.run("subscribe", "2")
		requireExitCode(t, err, 1)
		require.Contains(t, out, "You are already subscribed.")
	})

	t.Run("unknown plan", func(t *testing.T) {
		g := setupTestFixture(t)
		g.register(t)
		_, err := g.run("login", "--email", testEmail, "--password", testPassword)
		require.NoError(t, err)

		_, err = g.run("subscribe", "7")
		exitErr := requireExitCode(t, err, 1)
		require.Equal(t, "unknown plan 7", exitErr.Message)

		out, err := g.run("subscribe", "2")
		require.NoError(t, err)
		require.Contains(t, out, "Subscribed to Annual Subscription")
	})
}

func TestCLI_PasswordReset(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	out, err := f.run("forgot-password", testEmail)
	require.NoError(t, err)
	require.Contains(t, out, auth.MsgOTPSent)
	challenge := challengeFrom(t, out)

	_, err = f.run("resend", challenge)
	exitErr := requireExitCode(t, err, 1)
	require.Equal(t, auth.MsgOTPThrottled, exitErr.Message, "the code sent by the previous run holds back the resend")

	f.settings.CodeResendInterval = 0
	out, err = f.run("resend", challenge)
	require.NoError(t, err)
	require.Contains(t, out, auth.MsgOTPResent)
	msg, _ := f.sender.Last(testEmail)

	_, err = f.run("reset-password", "--challenge", challenge, "--code", "000000x", "--password", "Brand1New")
	exitErr = requireExitCode(t, err, 1)
	require.Equal(t, auth.MsgOTPInvalid, exitErr.Message)

	out, err = f.run("reset-password", "--challenge", challenge, "--code", msg.Code, "--password", "Brand1New")
	require.NoError(t, err)
	require.Contains(t, out, auth.MsgPasswordReset)

	_, err = f.run("login", "--email", testEmail, "--password", testPassword)
	requireExitCode(t, err, 1)
	_, err = f.run("login", "--email", testEmail, "--password", "Brand1New")
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.run("forgot-password", "nobody@example.com")
		exitErr := requireExitCode(t, err, 1)
		require.Equal(t, auth.MsgUserNotFound, exitErr.Message)
	})
}

func TestCLI_AdminAndDelete(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	password, err := f.server.BootstrapAdmin(recordserver.DefaultAdminEmail)
	require.NoError(t, err)

	_, err = f.run("login", "--email", recordserver.DefaultAdminEmail, "--password", password)
	require.NoError(t, err)

	out, err := f.run("admin", "users")
	require.NoError(t, err)
	require.Contains(t, out, "EMAIL")
	require.Contains(t, out, testEmail)
	require.Contains(t, out, recordserver.DefaultAdminEmail)

	t.Run("delete needs confirmation", func(t *testing.T) {
		_, err := f.run("login", "--email", testEmail, "--password", testPassword)
		require.NoError(t, err)

		_, err = f.run("delete-account")
		requireExitCode(t, err, 1)

		out, err := f.run("delete-account", "--yes")
		require.NoError(t, err)
		require.Contains(t, out, auth.MsgAccountDeleted)

		_, err = f.run("whoami")
		requireExitCode(t, err, 2)

		_, err = f.run("login", "--email", testEmail, "--password", testPassword)
		requireExitCode(t, err, 1)
	})
}
