// Package cli is the portal's view layer. Each command is a view: it resolves the
// session, asks the guards whether it may render, and drives the Auth Service.
package cli

import (
	"time"

	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/jrsteele09/go-portal-session/internal/config"
	"github.com/jrsteele09/go-portal-session/otp"
	"github.com/jrsteele09/go-portal-session/records"
	"github.com/jrsteele09/go-portal-session/sessions"
	"github.com/jrsteele09/go-portal-session/subscriptions"
	"github.com/jrsteele09/go-portal-session/users/recordrepo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Settings are the values an App is wired from
type Settings struct {
	RecordStoreURL     string
	RequestTimeout     time.Duration
	CookieFile         string
	CookieName         string
	CookieMaxAge       time.Duration
	TrialDuration      time.Duration
	CodeExpiry         time.Duration
	CodeMaxAttempts    int
	CodeResendInterval time.Duration
}

func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		RecordStoreURL:     cfg.GetRecordStoreURL(),
		RequestTimeout:     cfg.GetRequestTimeout(),
		CookieFile:         cfg.GetCookieFile(),
		CookieName:         cfg.GetCookieName(),
		CookieMaxAge:       cfg.GetCookieMaxAge(),
		TrialDuration:      cfg.GetTrialDuration(),
		CodeExpiry:         cfg.GetCodeExpiry(),
		CodeMaxAttempts:    cfg.GetCodeMaxAttempts(),
		CodeResendInterval: cfg.GetCodeResendInterval(),
	}
}

// App is everything a command needs for one process run
type App struct {
	Sessions *sessions.CookieStore
	Records  *records.Client
	Auth     *auth.Service
	Catalog  *subscriptions.Catalog
	Logger   zerolog.Logger
}

func NewApp(s Settings, sender otp.Sender, logger zerolog.Logger) (*App, error) {
	if sender == nil {
		return nil, errors.New("[NewApp] sender is required")
	}

	store, err := sessions.NewCookieStore(s.CookieFile,
		sessions.WithCookieName(s.CookieName),
		sessions.WithMaxAge(s.CookieMaxAge),
		sessions.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[NewApp] cookie store")
	}

	client, err := records.New(s.RecordStoreURL, store,
		records.WithTimeout(s.RequestTimeout),
		records.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[NewApp] record client")
	}

	codes, err := otp.NewProvider(otp.NewRecordChallengeStore(client), sender,
		otp.WithExpiry(s.CodeExpiry),
		otp.WithMaxAttempts(s.CodeMaxAttempts),
		otp.WithResendInterval(s.CodeResendInterval),
		otp.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[NewApp] code provider")
	}

	service, err := auth.NewService(recordrepo.New(client), store, codes,
		auth.WithTrialDuration(s.TrialDuration),
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[NewApp] auth service")
	}

	return &App{
		Sessions: store,
		Records:  client,
		Auth:     service,
		Catalog:  subscriptions.NewCatalog(client),
		Logger:   logger,
	}, nil
}

// NewSender picks SMTP delivery when a host is configured and logs codes otherwise
func NewSender(cfg config.SmtpConfig, logger zerolog.Logger) (otp.Sender, error) {
	if cfg.GetSmtpHost() == "" {
		return otp.NewLogSender(logger), nil
	}
	return otp.NewSMTPSender(cfg, logger)
}
