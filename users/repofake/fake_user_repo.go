package fakeuserrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-portal-session/records"
	"github.com/jrsteele09/go-portal-session/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory users.Repo. Every method hands out copies, the way a
// remote store would, and can be made to fail per method.
type FakeUserRepo struct {
	users map[records.ID]*users.User
	calls map[string]int
	fail  map[string]error
	lock  sync.RWMutex

	// OnDelete runs before a delete is applied
	OnDelete func(id string)
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users: make(map[records.ID]*users.User),
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

// FailWith makes method return err until cleared with a nil err
func (ur *FakeUserRepo) FailWith(method string, err error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if err == nil {
		delete(ur.fail, method)
		return
	}
	ur.fail[method] = err
}

// Calls returns how many times method was called
func (ur *FakeUserRepo) Calls(method string) int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	return ur.calls[method]
}

// TotalCalls counts calls across every method
func (ur *FakeUserRepo) TotalCalls() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	total := 0
	for _, n := range ur.calls {
		total += n
	}
	return total
}

// Seed stores user directly, bypassing call accounting
func (ur *FakeUserRepo) Seed(user *users.User) *users.User {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = records.ID(uuid.New().String())
	}
	ur.users[user.ID] = clone(user)
	return clone(user)
}

func (ur *FakeUserRepo) enter(method string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	ur.calls[method]++
	return ur.fail[method]
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	if err := ur.enter("GetByID"); err != nil {
		return nil, err
	}
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[records.ID(id)]
	if !ok {
		return nil, users.ErrNotFound
	}
	return clone(u), nil
}

func (ur *FakeUserRepo) FindByEmail(_ context.Context, email string) ([]*users.User, error) {
	if err := ur.enter("FindByEmail"); err != nil {
		return nil, err
	}
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	email = users.NormalizeEmail(email)
	matches := make([]*users.User, 0)
	for _, u := range ur.sorted() {
		if u.Email == email {
			matches = append(matches, clone(u))
		}
	}
	return matches, nil
}

func (ur *FakeUserRepo) List(_ context.Context) ([]*users.User, error) {
	if err := ur.enter("List"); err != nil {
		return nil, err
	}
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	list := make([]*users.User, 0, len(ur.users))
	for _, u := range ur.sorted() {
		list = append(list, clone(u))
	}
	return list, nil
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) (*users.User, error) {
	if err := ur.enter("Create"); err != nil {
		return nil, err
	}
	ur.lock.Lock()
	defer ur.lock.Unlock()

	stored := clone(user)
	if stored.ID == "" {
		stored.ID = records.ID(uuid.New().String())
	}
	ur.users[stored.ID] = stored
	return clone(stored), nil
}

func (ur *FakeUserRepo) Update(_ context.Context, user *users.User) (*users.User, error) {
	if err := ur.enter("Update"); err != nil {
		return nil, err
	}
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.users[user.ID]; !ok {
		return nil, users.ErrNotFound
	}
	ur.users[user.ID] = clone(user)
	return clone(user), nil
}

func (ur *FakeUserRepo) Delete(_ context.Context, id string) error {
	if err := ur.enter("Delete"); err != nil {
		return err
	}
	if ur.OnDelete != nil {
		ur.OnDelete(id)
	}
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.users[records.ID(id)]; !ok {
		return users.ErrNotFound
	}
	delete(ur.users, records.ID(id))
	return nil
}

// Stored returns the stored copy of id without counting a call
func (ur *FakeUserRepo) Stored(id records.ID) (*users.User, bool) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, false
	}
	return clone(u), true
}

func (ur *FakeUserRepo) sorted() []*users.User {
	list := make([]*users.User, 0, len(ur.users))
	for _, u := range ur.users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

func clone(u *users.User) *users.User {
	c := *u
	if u.SubscriptionEndDate != nil {
		end := *u.SubscriptionEndDate
		c.SubscriptionEndDate = &end
	}
	return &c
}
