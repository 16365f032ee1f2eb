package recordserver

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/jrsteele09/go-portal-session/internal/errors"
	"github.com/jrsteele09/go-portal-session/subscriptions"
	"github.com/jrsteele09/go-portal-session/users"
)

const (
	UsersCollection     = "users"
	DefaultAdminEmail   = "admin@portal.local"
	defaultAdminFirst   = "System"
	defaultAdminLast    = "Administrator"
	generatedPasswordSz = 12
)

// BootstrapAdmin creates a verified admin account when the users collection has none.
// The generated password is returned on first creation and is empty afterwards.
func (s *Server) BootstrapAdmin(email string) (generatedPassword string, err error) {
	existing, err := s.store.List(UsersCollection, map[string][]string{"role": {string(users.RoleAdmin)}})
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return "", errors.Wrapf(err, "failed to check for existing admins")
	}
	if len(existing) > 0 {
		s.logger.Info().Str("email", stringify(existing[0]["email"])).Msg("admin already exists")
		return "", nil
	}

	passwordBytes := make([]byte, generatedPasswordSz)
	if _, err := rand.Read(passwordBytes); err != nil {
		return "", errors.Wrapf(err, "failed to generate password")
	}
	// Upper, lower and digit prefix keeps the password acceptable to ValidatePasswordStrength
	generatedPassword = "Aa1" + base64.RawURLEncoding.EncodeToString(passwordBytes)

	passwordHash, err := users.HashPassword(generatedPassword)
	if err != nil {
		return "", errors.Wrapf(err, "failed to hash password")
	}

	admin := users.User{
		Email:        users.NormalizeEmail(email),
		PasswordHash: passwordHash,
		FirstName:    defaultAdminFirst,
		LastName:     defaultAdminLast,
		Role:         users.RoleAdmin,
		Verified:     true,
		CreatedAt:    time.Now().UTC(),
		PlanType:     users.PlanNone,
	}
	rec, err := toRecord(admin)
	if err != nil {
		return "", err
	}
	if _, err := s.store.Create(UsersCollection, rec); err != nil {
		return "", errors.Wrapf(err, "failed to create admin")
	}

	s.logger.Info().Str("email", admin.Email).Msg("created admin")
	return generatedPassword, nil
}

// SeedPlans fills an empty pricing collection with plans and reports how many it added
func (s *Server) SeedPlans(plans []subscriptions.Plan) (int, error) {
	existing, err := s.store.List(subscriptions.Collection, nil)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return 0, errors.Wrapf(err, "failed to read pricing")
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, p := range plans {
		rec, err := toRecord(p)
		if err != nil {
			return i, err
		}
		if _, err := s.store.Create(subscriptions.Collection, rec); err != nil {
			return i, errors.Wrapf(err, "failed to seed plan %s", p.ID)
		}
	}
	s.logger.Info().Int("plans", len(plans)).Msg("seeded pricing")
	return len(plans), nil
}

func toRecord(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "[toRecord] marshal")
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(err, "[toRecord] unmarshal")
	}
	return rec, nil
}
