// Package otp issues and verifies one-time codes for registration and password reset.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-portal-session/records"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	CodeLength            = 6
	DefaultExpiry         = 10 * time.Minute
	DefaultMaxAttempts    = 5
	DefaultResendInterval = 30 * time.Second
)

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrExpired           = errors.New("code expired")
	ErrTooManyAttempts   = errors.New("too many attempts")
	ErrThrottled         = errors.New("code requested too recently")
)

// Provider issues codes, hands them to a Sender and keeps a hash of each in a
// ChallengeStore until it is verified or expires.
type Provider struct {
	store          ChallengeStore
	sender         Sender
	expiry         time.Duration
	maxAttempts    int
	resendInterval time.Duration
	limiters       map[string]*rate.Limiter
	limitersLock   sync.Mutex
	nowTime        func() time.Time
	logger         zerolog.Logger
}

// ProviderOption defines a function type to modify the Provider instance.
type ProviderOption func(*Provider)

func WithExpiry(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.expiry = d
	}
}

func WithMaxAttempts(n int) ProviderOption {
	return func(p *Provider) {
		p.maxAttempts = n
	}
}

// WithResendInterval sets how often a single target may be sent a code
func WithResendInterval(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.resendInterval = d
	}
}

// WithNowTime sets a custom time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

func NewProvider(store ChallengeStore, sender Sender, options ...ProviderOption) (*Provider, error) {
	if store == nil {
		return nil, errors.New("[NewProvider] challenge store is required")
	}
	if sender == nil {
		return nil, errors.New("[NewProvider] sender is required")
	}
	p := &Provider{
		store:          store,
		sender:         sender,
		expiry:         DefaultExpiry,
		maxAttempts:    DefaultMaxAttempts,
		resendInterval: DefaultResendInterval,
		limiters:       make(map[string]*rate.Limiter),
		nowTime:        time.Now,
		logger:         log.Logger,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// Issue creates a challenge for target and sends it a fresh code
func (p *Provider) Issue(ctx context.Context, target, purpose string) (string, error) {
	if err := p.throttle(ctx, target); err != nil {
		return "", err
	}
	code, hash, err := newCode()
	if err != nil {
		return "", errors.Wrap(err, "[Provider.Issue]")
	}

	now := p.nowTime()
	c := &Challenge{
		ID:        records.ID(uuid.New().String()),
		Target:    target,
		Purpose:   purpose,
		CodeHash:  hash,
		SentAt:    now,
		ExpiresAt: now.Add(p.expiry),
	}
	if err := p.store.Create(ctx, c); err != nil {
		return "", errors.Wrap(err, "[Provider.Issue] store challenge")
	}
	if err := p.sender.Send(ctx, p.message(c, code)); err != nil {
		_ = p.store.Delete(ctx, c.ID.String())
		return "", errors.Wrap(err, "[Provider.Issue] send code")
	}

	p.logger.Debug().Str("challenge", c.ID.String()).Str("purpose", purpose).Msg("one-time code issued")
	return c.ID.String(), nil
}

// Verify checks code against the challenge. A wrong code returns false and counts an
// attempt; a matching code consumes the challenge.
func (p *Provider) Verify(ctx context.Context, challengeID, code string) (bool, error) {
	c, ok, err := p.match(ctx, challengeID, code)
	if err != nil || !ok {
		return false, err
	}
	if err := p.store.Delete(ctx, c.ID.String()); err != nil {
		return false, errors.Wrap(err, "[Provider.Verify] consume challenge")
	}
	return true, nil
}

// Check is Verify without consuming the challenge, so the same code can be verified
// again to complete the action it guards.
func (p *Provider) Check(ctx context.Context, challengeID, code string) (bool, error) {
	_, ok, err := p.match(ctx, challengeID, code)
	return ok, err
}

func (p *Provider) match(ctx context.Context, challengeID, code string) (*Challenge, bool, error) {
	c, err := p.store.Get(ctx, challengeID)
	if err != nil {
		return nil, false, err
	}
	if c.expired(p.nowTime()) {
		_ = p.store.Delete(ctx, c.ID.String())
		return nil, false, ErrExpired
	}
	if c.Attempts >= p.maxAttempts {
		return nil, false, ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) != nil {
		c.Attempts++
		if err := p.store.Update(ctx, c); err != nil {
			return nil, false, errors.Wrap(err, "[Provider.Verify] record attempt")
		}
		return c, false, nil
	}
	return c, true, nil
}

// Resend replaces the challenge's code with a new one and restarts its expiry. When the
// new code cannot be sent the previous one stays valid.
func (p *Provider) Resend(ctx context.Context, challengeID string) error {
	c, err := p.store.Get(ctx, challengeID)
	if err != nil {
		return err
	}
	if err := p.throttle(ctx, c.Target); err != nil {
		return err
	}
	code, hash, err := newCode()
	if err != nil {
		return errors.Wrap(err, "[Provider.Resend]")
	}

	prior := *c
	now := p.nowTime()
	c.CodeHash = hash
	c.Attempts = 0
	c.SentAt = now
	c.ExpiresAt = now.Add(p.expiry)
	if err := p.store.Update(ctx, c); err != nil {
		return errors.Wrap(err, "[Provider.Resend] store challenge")
	}
	if err := p.sender.Send(ctx, p.message(c, code)); err != nil {
		if restoreErr := p.store.Update(ctx, &prior); restoreErr != nil {
			p.logger.Error().Err(restoreErr).Str("challenge", c.ID.String()).Msg("previous code could not be restored")
		}
		return errors.Wrap(err, "[Provider.Resend] send code")
	}
	return nil
}

// Lookup returns who a challenge was issued to and why
func (p *Provider) Lookup(ctx context.Context, challengeID string) (target, purpose string, err error) {
	c, err := p.store.Get(ctx, challengeID)
	if err != nil {
		return "", "", err
	}
	return c.Target, c.Purpose, nil
}

// throttle refuses a code for target when one was sent less than the resend interval
// ago. The persisted SentAt covers codes sent by other processes.
func (p *Provider) throttle(ctx context.Context, target string) error {
	recent, err := p.store.ListByTarget(ctx, target)
	if err != nil {
		return errors.Wrap(err, "[Provider.throttle] recent challenges")
	}
	now := p.nowTime()
	for _, c := range recent {
		if now.Sub(c.SentAt) < p.resendInterval {
			return ErrThrottled
		}
	}
	if !p.allow(target) {
		return ErrThrottled
	}
	return nil
}

// allow is the in-process limiter, which still counts challenges that were consumed
func (p *Provider) allow(target string) bool {
	p.limitersLock.Lock()
	defer p.limitersLock.Unlock()

	l, ok := p.limiters[target]
	if !ok {
		l = rate.NewLimiter(rate.Every(p.resendInterval), 1)
		p.limiters[target] = l
	}
	return l.AllowN(p.nowTime(), 1)
}

func (p *Provider) message(c *Challenge, code string) Message {
	return Message{
		To:      c.Target,
		Subject: "Your verification code",
		Body: fmt.Sprintf("Your %s code is %s. It expires in %s.",
			c.Purpose, code, p.expiry.Round(time.Minute)),
		Code: code,
	}
}

// newCode returns a code and the bcrypt hash that is stored in its place
func newCode() (code, hash string, err error) {
	if code, err = generateCode(); err != nil {
		return "", "", errors.Wrap(err, "generate code")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", errors.Wrap(err, "hash code")
	}
	return code, string(h), nil
}

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
