package auth

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator"
	"github.com/jrsteele09/go-portal-session/users"
)

// LoginRequest is the login form
type LoginRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// RegisterRequest is the sign-up form
type RegisterRequest struct {
	Email     string `validate:"required,email"`
	Password  string `validate:"required"`
	FirstName string `validate:"required"`
	LastName  string
}

type resetRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Validator checks forms before anything is sent to the record store
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidateLogin rejects empty fields first, then a malformed email
func (v *Validator) ValidateLogin(req LoginRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	return v.check(req, MsgMissingCredentials)
}

func (v *Validator) ValidateRegistration(req RegisterRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if err := v.check(req, MsgMissingFields); err != nil {
		return err
	}
	return validatePassword(req.Password)
}

func (v *Validator) ValidatePasswordReset(email, password string) error {
	req := resetRequest{Email: strings.TrimSpace(email), Password: password}
	if err := v.check(req, MsgMissingFields); err != nil {
		return err
	}
	return validatePassword(password)
}

func (v *Validator) ValidateEmail(email string) error {
	if err := v.validate.Var(strings.TrimSpace(email), "required,email"); err != nil {
		return &ValidationError{Message: MsgInvalidEmail}
	}
	return nil
}

func (v *Validator) check(req any, missingMsg string) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Message: missingMsg}
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return &ValidationError{Message: missingMsg}
		}
	}
	return &ValidationError{Message: MsgInvalidEmail}
}

func validatePassword(password string) error {
	if err := users.ValidatePasswordStrength(password); err != nil {
		msg := []rune(err.Error())
		msg[0] = unicode.ToUpper(msg[0])
		return &ValidationError{Message: string(msg) + "."}
	}
	return nil
}
