// Package auth owns the client's session: it resolves the persisted token into a user,
// signs users in and out, and performs every write to the signed-in user's record.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-portal-session/otp"
	"github.com/jrsteele09/go-portal-session/sessions"
	"github.com/jrsteele09/go-portal-session/subscriptions"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type watcher struct {
	id int
	fn func(State)
}

// Service is the only writer of the session State. Operations that write are run one at
// a time in call order; State and Watch never wait on the network.
type Service struct {
	users         users.Repo
	sessions      sessions.Store
	codes         OneTimeCodeProvider
	verifier      CredentialVerifier
	validator     *Validator
	trialDuration time.Duration
	nowTime       func() time.Time
	logger        zerolog.Logger

	opLock sync.Mutex

	stateLock   sync.RWMutex
	state       State
	watchers    []watcher
	nextWatcher int
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTrialDuration sets the length of the free trial
func WithTrialDuration(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.trialDuration = d
	}
}

// WithVerifier replaces the bcrypt credential check
func WithVerifier(v CredentialVerifier) ServiceOption {
	return func(s *Service) {
		s.verifier = v
	}
}

// NewService creates a Service in the uninitialized, loading state. Call ResolveSession
// before rendering anything that depends on the user.
func NewService(repo users.Repo, store sessions.Store, codes OneTimeCodeProvider, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[NewService] users repo is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	if codes == nil {
		return nil, errors.New("[NewService] one-time code provider is required")
	}

	s := &Service{
		users:         repo,
		sessions:      store,
		codes:         codes,
		verifier:      BcryptVerifier{},
		validator:     NewValidator(),
		trialDuration: subscriptions.DefaultTrialDuration,
		nowTime:       time.Now,
		logger:        log.Logger,
		state:         State{Phase: PhaseUninitialized, Loading: true},
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// State returns a snapshot of the session
func (s *Service) State() State {
	s.stateLock.RLock()
	defer s.stateLock.RUnlock()

	return s.state.clone()
}

// Watch calls fn with the current State and again after every change until cancel is
// called. fn runs on the goroutine that made the change and must not call operations
// that write.
func (s *Service) Watch(fn func(State)) (cancel func()) {
	s.stateLock.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers = append(s.watchers, watcher{id: id, fn: fn})
	snapshot := s.state.clone()
	s.stateLock.Unlock()

	fn(snapshot)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.stateLock.Lock()
			defer s.stateLock.Unlock()
			for i, w := range s.watchers {
				if w.id == id {
					s.watchers = append(s.watchers[:i:i], s.watchers[i+1:]...)
					return
				}
			}
		})
	}
}

// ResolveSession turns the persisted token into a session. It runs once; later calls
// return the current State without touching the network.
func (s *Service) ResolveSession(ctx context.Context) State {
	s.opLock.Lock()
	defer s.opLock.Unlock()

	return s.resolve(ctx)
}

func (s *Service) resolve(ctx context.Context) State {
	s.stateLock.RLock()
	phase := s.state.Phase
	s.stateLock.RUnlock()
	if phase != PhaseUninitialized {
		return s.State()
	}

	s.setState(func(st *State) {
		st.Phase = PhaseResolving
		st.Loading = true
	})

	token, found := s.sessions.Token()
	if !found {
		s.finish(PhaseAnonymous, nil)
		return s.State()
	}

	user, err := s.users.GetByID(ctx, token)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("session could not be resolved")
		}
		s.clearToken()
		s.finish(PhaseAnonymous, nil)
		return s.State()
	}

	s.finish(PhaseAuthenticated, user)
	return s.State()
}

// Login checks the form, looks the account up by email and verifies the password.
// On success the user's id becomes the session token.
func (s *Service) Login(ctx context.Context, email, password string) Result {
	if err := s.validator.ValidateLogin(LoginRequest{Email: email, Password: password}); err != nil {
		return failed(err.Error(), err)
	}

	s.opLock.Lock()
	defer s.opLock.Unlock()
	s.resolve(ctx)

	prior := s.begin()
	matches, err := s.users.FindByEmail(ctx, users.NormalizeEmail(email))
	if err != nil {
		s.restore(prior)
		s.logger.Error().Err(err).Msg("login failed")
		return failed(MsgLoginError, errors.Wrap(err, "[Service.Login] find user"))
	}
	if len(matches) == 0 || matches[0].ID == "" || !s.verifier.Verify(ctx, matches[0], password) {
		s.restore(prior)
		return failed(MsgInvalidLogin, ErrInvalidCredentials)
	}

	user := matches[0]
	if err := s.sessions.SetToken(user.ID.String()); err != nil {
		s.restore(prior)
		s.logger.Error().Err(err).Msg("session token could not be stored")
		return failed(MsgLoginError, errors.Wrap(err, "[Service.Login] store token"))
	}
	s.finish(PhaseAuthenticated, user)
	return ok("", cloneUser(user))
}

// Logout clears the token and the cached user. It always succeeds.
func (s *Service) Logout() Result {
	s.opLock.Lock()
	defer s.opLock.Unlock()

	s.logout()
	return ok("", nil)
}

func (s *Service) logout() {
	s.clearToken()
	s.finish(PhaseAnonymous, nil)
}

// RegisterUser creates an unverified account and sends it a registration code. The
// caller is not signed in.
func (s *Service) RegisterUser(ctx context.Context, req RegisterRequest) Result {
	if err := s.validator.ValidateRegistration(req); err != nil {
		return failed(err.Error(), err)
	}
	passwordHash, err := users.HashPassword(req.Password)
	if err != nil {
		return failed(MsgRegisterError, errors.Wrap(err, "[Service.RegisterUser] hash password"))
	}

	s.opLock.Lock()
	defer s.opLock.Unlock()
	s.resolve(ctx)

	prior := s.begin()
	defer s.restore(prior)

	email := users.NormalizeEmail(req.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Error().Err(err).Msg("registration failed")
		return failed(MsgRegisterError, errors.Wrap(err, "[Service.RegisterUser] find user"))
	}
	if len(existing) > 0 {
		return failed(MsgUserExists, ErrConflict)
	}

	created, err := s.users.Create(ctx, &users.User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         users.RoleUser,
		PlanType:     users.PlanNone,
		CreatedAt:    s.nowTime().UTC(),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("registration failed")
		return failed(MsgRegisterError, errors.Wrap(err, "[Service.RegisterUser] create user"))
	}

	challengeID, err := s.codes.Issue(ctx, created.Email, PurposeRegistration)
	if err != nil {
		s.logger.Warn().Err(err).Str("email", created.Email).Msg("registration code not sent")
		return Result{Success: true, Message: MsgCodeNotSent, User: created, Err: errors.Wrap(err, "[Service.RegisterUser] issue code")}
	}
	return Result{Success: true, Message: MsgOTPSent, User: created, ChallengeID: challengeID}
}

// RequestPasswordResetOTP sends a reset code to an existing account
func (s *Service) RequestPasswordResetOTP(ctx context.Context, email string) Result {
	if err := s.validator.ValidateEmail(email); err != nil {
		return failed(err.Error(), err)
	}
	email = users.NormalizeEmail(email)

	matches, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return failed(MsgOTPRequestError, errors.Wrap(err, "[Service.RequestPasswordResetOTP] find user"))
	}
	if len(matches) == 0 {
		return failed(MsgUserNotFound, ErrNotFound)
	}

	challengeID, err := s.codes.Issue(ctx, email, PurposePasswordReset)
	if err != nil {
		if errors.Is(err, otp.ErrThrottled) {
			return failed(MsgOTPThrottled, errors.Wrap(ErrThrottled, err.Error()))
		}
		s.logger.Error().Err(err).Msg("reset code not sent")
		return failed(MsgOTPRequestError, errors.Wrap(err, "[Service.RequestPasswordResetOTP] issue code"))
	}
	return Result{Success: true, Message: MsgOTPSent, ChallengeID: challengeID}
}

// VerifyOTPForReset checks a password reset code. The challenge stays outstanding so
// CompletePasswordReset can be called with the same code.
func (s *Service) VerifyOTPForReset(ctx context.Context, challengeID, code string) Result {
	if _, err := s.verifyCode(ctx, challengeID, code, PurposePasswordReset, false); err != nil {
		return failed(MsgOTPInvalid, err)
	}
	return Result{Success: true, Message: MsgOTPResetVerified, ChallengeID: challengeID}
}

// VerifyRegistrationOTP checks a registration code and marks the account verified
func (s *Service) VerifyRegistrationOTP(ctx context.Context, challengeID, code string) Result {
	target, err := s.verifyCode(ctx, challengeID, code, PurposeRegistration, true)
	if err != nil {
		return failed(MsgOTPInvalid, err)
	}

	s.opLock.Lock()
	defer s.opLock.Unlock()

	matches, err := s.users.FindByEmail(ctx, target)
	if err != nil {
		return failed(MsgRegisterError, errors.Wrap(err, "[Service.VerifyRegistrationOTP] find user"))
	}
	if len(matches) == 0 {
		return failed(MsgUserNotFound, ErrNotFound)
	}
	user := matches[0]
	user.Verified = true
	saved, err := s.users.Update(ctx, user)
	if err != nil {
		return failed(MsgRegisterError, errors.Wrap(err, "[Service.VerifyRegistrationOTP] update user"))
	}
	s.refreshCached(saved)
	return ok(MsgRegistrationDone, saved)
}

// ResendOTP sends a fresh code for an outstanding challenge
func (s *Service) ResendOTP(ctx context.Context, challengeID string) Result {
	if challengeID == "" {
		return failed(MsgOTPResendError, errors.Wrap(ErrInvalidCode, "[Service.ResendOTP] challenge id is required"))
	}
	if err := s.codes.Resend(ctx, challengeID); err != nil {
		if errors.Is(err, otp.ErrThrottled) {
			return failed(MsgOTPThrottled, errors.Wrap(ErrThrottled, err.Error()))
		}
		return failed(MsgOTPResendError, errors.Wrap(err, "[Service.ResendOTP]"))
	}
	return Result{Success: true, Message: MsgOTPResent, ChallengeID: challengeID}
}

// ResetPassword replaces the password of the account with email
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) Result {
	if err := s.validator.ValidatePasswordReset(email, newPassword); err != nil {
		return failed(err.Error(), err)
	}
	passwordHash, err := users.HashPassword(newPassword)
	if err != nil {
		return failed(MsgPasswordResetError, errors.Wrap(err, "[Service.ResetPassword] hash password"))
	}

	s.opLock.Lock()
	defer s.opLock.Unlock()

	matches, err := s.users.FindByEmail(ctx, users.NormalizeEmail(email))
	if err != nil {
		s.logger.Error().Err(err).Msg("password reset failed")
		return failed(MsgPasswordResetError, errors.Wrap(err, "[Service.ResetPassword] find user"))
	}
	if len(matches) == 0 {
		return failed(MsgUserNotFound, ErrNotFound)
	}

	user := matches[0]
	user.PasswordHash = passwordHash
	saved, err := s.users.Update(ctx, user)
	if err != nil {
		s.logger.Error().Err(err).Msg("password reset failed")
		return failed(MsgPasswordResetError, errors.Wrap(err, "[Service.ResetPassword] update user"))
	}
	s.refreshCached(saved)
	return ok(MsgPasswordReset, nil)
}

// CompletePasswordReset verifies a reset code and sets the new password of the account
// the code was sent to.
func (s *Service) CompletePasswordReset(ctx context.Context, challengeID, code, newPassword string) Result {
	if err := validatePassword(newPassword); err != nil {
		return failed(err.Error(), err)
	}
	target, err := s.verifyCode(ctx, challengeID, code, PurposePasswordReset, true)
	if err != nil {
		return failed(MsgOTPInvalid, err)
	}
	return s.ResetPassword(ctx, target, newPassword)
}

// DeleteAccount removes the signed-in user's record and signs out
func (s *Service) DeleteAccount(ctx context.Context) Result {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	s.resolve(ctx)

	user := s.currentUser()
	if user == nil {
		return failed(MsgNotLoggedIn, ErrPrecondition)
	}

	prior := s.begin()
	if err := s.users.Delete(ctx, user.ID.String()); err != nil {
		s.restore(prior)
		s.logger.Error().Err(err).Str("user", user.ID.String()).Msg("account deletion failed")
		return failed(MsgDeleteError, errors.Wrap(err, "[Service.DeleteAccount]"))
	}
	s.logout()
	return ok(MsgAccountDeleted, nil)
}

// StartTrial puts the signed-in user on the free trial. An account gets one trial.
func (s *Service) StartTrial(ctx context.Context) Result {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	s.resolve(ctx)

	user := s.currentUser()
	if user == nil {
		return failed(MsgNotLoggedIn, ErrPrecondition)
	}
	updated, err := subscriptions.ApplyTrial(*user, s.nowTime(), s.trialDuration)
	if err != nil {
		return failed(MsgTrialUsed, errors.Wrap(ErrPrecondition, err.Error()))
	}
	return s.save(ctx, &updated, MsgTrialError, "[Service.StartTrial]")
}

// Subscribe puts the signed-in user on plan
func (s *Service) Subscribe(ctx context.Context, plan subscriptions.Plan) Result {
	s.opLock.Lock()
	defer s.opLock.Unlock()
	s.resolve(ctx)

	user := s.currentUser()
	if user == nil {
		return failed(MsgNotLoggedIn, ErrPrecondition)
	}
	updated := subscriptions.ApplySubscription(*user, plan, s.nowTime())
	return s.save(ctx, &updated, MsgSubscribeError, "[Service.Subscribe]")
}

// ListUsers returns every account. Only admins may call it.
func (s *Service) ListUsers(ctx context.Context) ([]*users.User, error) {
	s.opLock.Lock()
	s.resolve(ctx)
	s.opLock.Unlock()

	user := s.currentUser()
	if user == nil {
		return nil, ErrPrecondition
	}
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	list, err := s.users.List(ctx)
	return list, errors.Wrap(err, "[Service.ListUsers]")
}

// save persists the signed-in user's record and caches what the store returns
func (s *Service) save(ctx context.Context, user *users.User, failMsg, op string) Result {
	prior := s.begin()
	saved, err := s.users.Update(ctx, user)
	if err != nil {
		s.restore(prior)
		s.logger.Error().Err(err).Str("user", user.ID.String()).Msg(failMsg)
		return failed(failMsg, errors.Wrap(err, op))
	}
	s.finish(prior, saved)
	return ok("", cloneUser(saved))
}

// verifyCode returns the target of a challenge issued for purpose that code answers.
// The challenge is only consumed when consume is set.
func (s *Service) verifyCode(ctx context.Context, challengeID, code, purpose string, consume bool) (string, error) {
	if challengeID == "" || code == "" {
		return "", errors.Wrap(ErrInvalidCode, "challenge id and code are required")
	}
	target, issuedFor, err := s.codes.Lookup(ctx, challengeID)
	if err != nil {
		return "", errors.Wrap(ErrInvalidCode, err.Error())
	}
	if issuedFor != purpose {
		return "", errors.Wrapf(ErrInvalidCode, "challenge issued for %s", issuedFor)
	}
	check := s.codes.Check
	if consume {
		check = s.codes.Verify
	}
	valid, err := check(ctx, challengeID, code)
	if err != nil {
		return "", errors.Wrap(ErrInvalidCode, err.Error())
	}
	if !valid {
		return "", ErrInvalidCode
	}
	return target, nil
}

func (s *Service) currentUser() *users.User {
	s.stateLock.RLock()
	defer s.stateLock.RUnlock()

	return cloneUser(s.state.User)
}

// refreshCached replaces the cached user when saved is the signed-in account
func (s *Service) refreshCached(saved *users.User) {
	current := s.currentUser()
	if current == nil || saved == nil || current.ID != saved.ID {
		return
	}
	s.setState(func(st *State) {
		st.User = cloneUser(saved)
	})
}

func (s *Service) clearToken() {
	if err := s.sessions.Clear(); err != nil {
		s.logger.Warn().Err(err).Msg("session token could not be cleared")
	}
}

// begin enters the Mutating phase and returns the phase to go back to
func (s *Service) begin() Phase {
	var prior Phase
	s.setState(func(st *State) {
		prior = st.Phase
		st.Phase = PhaseMutating
		st.Loading = true
	})
	return prior
}

// restore leaves the Mutating phase without changing the user
func (s *Service) restore(prior Phase) {
	s.setState(func(st *State) {
		st.Phase = prior
		st.Loading = false
	})
}

func (s *Service) finish(phase Phase, user *users.User) {
	s.setState(func(st *State) {
		st.Phase = phase
		st.User = cloneUser(user)
		st.IsAuthenticated = user != nil
		st.Loading = false
	})
}

func (s *Service) setState(update func(st *State)) {
	s.stateLock.Lock()
	update(&s.state)
	snapshot := s.state.clone()
	watchers := make([]watcher, len(s.watchers))
	copy(watchers, s.watchers)
	s.stateLock.Unlock()

	for _, w := range watchers {
		w.fn(snapshot.clone())
	}
}
