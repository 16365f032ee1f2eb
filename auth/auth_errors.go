package auth

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", ErrNotFound)
	ErrConflict           = errors.New("user already exists")
	ErrPrecondition       = errors.New("precondition failed")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCode        = errors.New("invalid one-time code")
	ErrThrottled          = errors.New("one-time code requested too recently")
)

// ValidationError carries the message shown for input rejected before any network call
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
