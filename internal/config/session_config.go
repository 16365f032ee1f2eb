package config

import (
	"path/filepath"
	"time"
)

const (
	trialDurationVar = "TRIAL_DURATION"
	cookieFileVar    = "COOKIE_FILE"
)

type SessionConfig interface {
	GetCookieName() string
	GetCookieMaxAge() time.Duration
	GetCookieFile() string
	GetTrialDuration() time.Duration
	GetCodeExpiry() time.Duration
	GetCodeMaxAttempts() int
	GetCodeResendInterval() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetCookieName() string {
	return "token"
}

func (Session) GetCookieMaxAge() time.Duration {
	return 7 * 24 * time.Hour // 7 days
}

// GetCookieFile is where the session cookie is kept between runs
func (Session) GetCookieFile() string {
	return GetEnv(cookieFileVar, filepath.Join(EnvVars{}.GetDataFolder(), "cookies.json"))
}

func (Session) GetTrialDuration() time.Duration {
	return GetDuration(trialDurationVar, 3*time.Minute)
}

func (Session) GetCodeExpiry() time.Duration {
	return 10 * time.Minute
}

func (Session) GetCodeMaxAttempts() int {
	return 5
}

func (Session) GetCodeResendInterval() time.Duration {
	return 30 * time.Second
}

// GetDuration parses envVar with time.ParseDuration, falling back to defaultValue
// when it is unset, malformed or not positive.
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnv(envVar, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
