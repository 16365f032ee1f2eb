// Package recordrepo implements users.Repo over the record store's users collection.
package recordrepo

import (
	"context"

	"github.com/jrsteele09/go-portal-session/internal/errors"
	"github.com/jrsteele09/go-portal-session/records"
	"github.com/jrsteele09/go-portal-session/users"
)

// Collection is the record store collection user records live in
const Collection = "users"

var _ users.Repo = (*Repo)(nil)

type Repo struct {
	users records.Collection[users.User]
}

func New(client *records.Client) *Repo {
	return &Repo{users: records.NewCollection[users.User](client, Collection)}
}

func (r *Repo) GetByID(ctx context.Context, id string) (*users.User, error) {
	if id == "" {
		return nil, errors.Wrapf(users.ErrNotFound, "[recordrepo.GetByID] empty id")
	}
	u, err := r.users.Get(ctx, id)
	if err != nil {
		if records.IsNotFound(err) {
			return nil, errors.Wrapf(users.ErrNotFound, "[recordrepo.GetByID] %s", id)
		}
		return nil, errors.Wrapf(err, "[recordrepo.GetByID] %s", id)
	}
	// json-server answers some misses with an empty object
	if u.ID == "" {
		return nil, errors.Wrapf(users.ErrNotFound, "[recordrepo.GetByID] %s", id)
	}
	return &u, nil
}

func (r *Repo) FindByEmail(ctx context.Context, email string) ([]*users.User, error) {
	list, err := r.users.List(ctx, records.Filters{"email": users.NormalizeEmail(email)})
	if err != nil {
		return nil, errors.Wrapf(err, "[recordrepo.FindByEmail]")
	}
	return toPointers(list), nil
}

func (r *Repo) List(ctx context.Context) ([]*users.User, error) {
	list, err := r.users.List(ctx, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[recordrepo.List]")
	}
	return toPointers(list), nil
}

func (r *Repo) Create(ctx context.Context, user *users.User) (*users.User, error) {
	created, err := r.users.Create(ctx, *user)
	if err != nil {
		return nil, errors.Wrapf(err, "[recordrepo.Create]")
	}
	return &created, nil
}

func (r *Repo) Update(ctx context.Context, user *users.User) (*users.User, error) {
	updated, err := r.users.Update(ctx, user.ID.String(), *user)
	if err != nil {
		if records.IsNotFound(err) {
			return nil, errors.Wrapf(users.ErrNotFound, "[recordrepo.Update] %s", user.ID)
		}
		return nil, errors.Wrapf(err, "[recordrepo.Update] %s", user.ID)
	}
	return &updated, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	if _, err := r.users.Remove(ctx, id); err != nil {
		if records.IsNotFound(err) {
			return errors.Wrapf(users.ErrNotFound, "[recordrepo.Delete] %s", id)
		}
		return errors.Wrapf(err, "[recordrepo.Delete] %s", id)
	}
	return nil
}

func toPointers(list []users.User) []*users.User {
	out := make([]*users.User, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out
}
