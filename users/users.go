package users

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jrsteele09/go-portal-session/records"
	"golang.org/x/crypto/bcrypt"
)

// RoleType is the single role a portal account holds
type RoleType string

const (
	RoleAdmin  RoleType = "admin"  // Can reach the admin dashboard and user management
	RoleEditor RoleType = "editor" // Can manage portal content
	RoleUser   RoleType = "user"   // Regular subscriber account
)

// PlanType is the kind of subscription an account is on
type PlanType string

const (
	PlanNone    PlanType = "none"
	PlanTrial   PlanType = "trial"
	PlanMonthly PlanType = "monthly"
	PlanAnnual  PlanType = "annual"
)

// User is a record of the users collection. The record store owns it; the client only
// caches a copy for the life of a session.
type User struct {
	ID           records.ID `json:"id,omitempty"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"passwordHash,omitempty"` // bcrypt, the store never sees a plaintext password
	FirstName    string     `json:"firstName,omitempty"`
	LastName     string     `json:"lastName,omitempty"`
	Role         RoleType   `json:"role"`
	Verified     bool       `json:"verified"`
	CreatedAt    time.Time  `json:"createdAt,omitempty"`

	// Subscription
	IsSubscribed        bool       `json:"isSubscribed"`
	PlanType            PlanType   `json:"planType"`
	HasUsedTrial        bool       `json:"hasUsedTrial"`
	SubscriptionEndDate *time.Time `json:"subscriptionEndDate"`
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// NormalizeEmail is the form emails are stored and looked up in
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SubscriptionActive reports whether the account has a subscription or trial running at now
func (u *User) SubscriptionActive(now time.Time) bool {
	if !u.IsSubscribed || u.SubscriptionEndDate == nil {
		return false
	}
	return now.Before(*u.SubscriptionEndDate)
}

// Remaining is the time left on the current subscription, zero when none is active
func (u *User) Remaining(now time.Time) time.Duration {
	if !u.SubscriptionActive(now) {
		return 0
	}
	return u.SubscriptionEndDate.Sub(now)
}
