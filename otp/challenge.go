package otp

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-portal-session/records"
	"github.com/pkg/errors"
)

// Collection is the record store collection challenges are persisted in
const Collection = "otpChallenges"

// Challenge is one issued code. Only the bcrypt hash of the code is kept.
type Challenge struct {
	ID        records.ID `json:"id"`
	Target    string     `json:"target"`
	Purpose   string     `json:"purpose"`
	CodeHash  string     `json:"codeHash"`
	Attempts  int        `json:"attempts"`
	SentAt    time.Time  `json:"sentAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

func (c *Challenge) expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ChallengeStore persists challenges between issue and verify
type ChallengeStore interface {
	Get(ctx context.Context, id string) (*Challenge, error)
	Create(ctx context.Context, c *Challenge) error
	Update(ctx context.Context, c *Challenge) error
	Delete(ctx context.Context, id string) error

	// ListByTarget returns every stored challenge issued to target
	ListByTarget(ctx context.Context, target string) ([]*Challenge, error)
}

var (
	_ ChallengeStore = (*MemoryChallengeStore)(nil)
	_ ChallengeStore = (*RecordChallengeStore)(nil)
)

type MemoryChallengeStore struct {
	challenges map[records.ID]Challenge
	lock       sync.RWMutex
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{challenges: make(map[records.ID]Challenge)}
}

func (s *MemoryChallengeStore) Get(_ context.Context, id string) (*Challenge, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	c, ok := s.challenges[records.ID(id)]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	return &c, nil
}

func (s *MemoryChallengeStore) Create(_ context.Context, c *Challenge) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.challenges[c.ID] = *c
	return nil
}

func (s *MemoryChallengeStore) Update(_ context.Context, c *Challenge) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.challenges[c.ID]; !ok {
		return ErrChallengeNotFound
	}
	s.challenges[c.ID] = *c
	return nil
}

func (s *MemoryChallengeStore) Delete(_ context.Context, id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.challenges, records.ID(id))
	return nil
}

func (s *MemoryChallengeStore) ListByTarget(_ context.Context, target string) ([]*Challenge, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var out []*Challenge
	for _, c := range s.challenges {
		if c.Target == target {
			c := c
			out = append(out, &c)
		}
	}
	return out, nil
}

// RecordChallengeStore keeps challenges in the record store, so a code issued by one
// process can be verified by the next.
type RecordChallengeStore struct {
	challenges records.Collection[Challenge]
}

func NewRecordChallengeStore(client *records.Client) *RecordChallengeStore {
	return &RecordChallengeStore{challenges: records.NewCollection[Challenge](client, Collection)}
}

func (s *RecordChallengeStore) Get(ctx context.Context, id string) (*Challenge, error) {
	c, err := s.challenges.Get(ctx, id)
	if err != nil {
		if records.IsNotFound(err) {
			return nil, ErrChallengeNotFound
		}
		return nil, errors.Wrapf(err, "[RecordChallengeStore.Get] %s", id)
	}
	if c.ID == "" {
		return nil, ErrChallengeNotFound
	}
	return &c, nil
}

func (s *RecordChallengeStore) Create(ctx context.Context, c *Challenge) error {
	_, err := s.challenges.Create(ctx, *c)
	return errors.Wrap(err, "[RecordChallengeStore.Create]")
}

func (s *RecordChallengeStore) Update(ctx context.Context, c *Challenge) error {
	if _, err := s.challenges.Update(ctx, c.ID.String(), *c); err != nil {
		if records.IsNotFound(err) {
			return ErrChallengeNotFound
		}
		return errors.Wrapf(err, "[RecordChallengeStore.Update] %s", c.ID)
	}
	return nil
}

func (s *RecordChallengeStore) Delete(ctx context.Context, id string) error {
	if _, err := s.challenges.Remove(ctx, id); err != nil && !records.IsNotFound(err) {
		return errors.Wrapf(err, "[RecordChallengeStore.Delete] %s", id)
	}
	return nil
}

func (s *RecordChallengeStore) ListByTarget(ctx context.Context, target string) ([]*Challenge, error) {
	list, err := s.challenges.List(ctx, records.Filters{"target": target})
	if err != nil {
		if records.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "[RecordChallengeStore.ListByTarget]")
	}
	out := make([]*Challenge, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out, nil
}
