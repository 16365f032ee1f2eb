package users

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user not found")

// Repo is the persistence the auth service needs. Every call is one round trip to the
// record store; GetByID returns ErrNotFound (possibly wrapped) for a missing record.
type Repo interface {
	GetByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) ([]*User, error)
	List(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	Delete(ctx context.Context, id string) error
}
