package auth

import (
	"context"

	"github.com/jrsteele09/go-portal-session/users"
)

// CredentialVerifier decides whether secret authenticates user
type CredentialVerifier interface {
	Verify(ctx context.Context, user *users.User, secret string) bool
}

// BcryptVerifier checks the secret against the record's bcrypt passwordHash
type BcryptVerifier struct{}

var _ CredentialVerifier = BcryptVerifier{}

func (BcryptVerifier) Verify(_ context.Context, user *users.User, secret string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return users.CheckPasswordHash(secret, user.PasswordHash)
}

// Purposes a one-time code is issued for
const (
	PurposeRegistration  = "registration"
	PurposePasswordReset = "password-reset"
)

// OneTimeCodeProvider issues, verifies and resends one-time codes
type OneTimeCodeProvider interface {
	// Issue sends a new code to target and returns the challenge id it is verified against
	Issue(ctx context.Context, target, purpose string) (challengeID string, err error)

	// Verify reports whether code answers the challenge and consumes it when it does
	Verify(ctx context.Context, challengeID, code string) (bool, error)

	// Check reports whether code answers the challenge, leaving it outstanding
	Check(ctx context.Context, challengeID, code string) (bool, error)

	// Resend sends a fresh code for an existing challenge
	Resend(ctx context.Context, challengeID string) error

	// Lookup returns the target and purpose a challenge was issued for
	Lookup(ctx context.Context, challengeID string) (target, purpose string, err error)
}
