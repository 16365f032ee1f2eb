package sessions

import (
	"net/http"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the session cookie for the life of the process only.
type MemoryStore struct {
	cookie  *http.Cookie
	maxAge  time.Duration
	nowTime func() time.Time
	lock    sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{maxAge: DefaultMaxAge, nowTime: time.Now}
}

func (ms *MemoryStore) Token() (string, bool) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	if expired(ms.cookie, ms.nowTime()) {
		return "", false
	}
	return ms.cookie.Value, true
}

func (ms *MemoryStore) SetToken(token string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.cookie = NewCookie(DefaultCookieName, token, ms.nowTime().Add(ms.maxAge))
	return nil
}

func (ms *MemoryStore) Clear() error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.cookie = nil
	return nil
}
