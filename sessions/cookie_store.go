package sessions

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var _ Store = (*CookieStore)(nil)

// persistedCookie is the on-disk form of the session cookie
type persistedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires"`
	Secure   bool      `json:"secure"`
	SameSite string    `json:"sameSite"`
}

// CookieStore persists the session cookie in a JSON file so the session survives restarts,
// the way a browser keeps a cookie across page reloads.
type CookieStore struct {
	path    string
	name    string
	maxAge  time.Duration
	nowTime func() time.Time
	logger  zerolog.Logger

	lock   sync.Mutex
	loaded bool
	cookie *http.Cookie
}

// CookieStoreOption defines a function type to modify the CookieStore instance.
type CookieStoreOption func(*CookieStore)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CookieStoreOption {
	return func(cs *CookieStore) {
		cs.nowTime = nowFunc
	}
}

func WithMaxAge(maxAge time.Duration) CookieStoreOption {
	return func(cs *CookieStore) {
		cs.maxAge = maxAge
	}
}

func WithCookieName(name string) CookieStoreOption {
	return func(cs *CookieStore) {
		cs.name = name
	}
}

func WithLogger(logger zerolog.Logger) CookieStoreOption {
	return func(cs *CookieStore) {
		cs.logger = logger
	}
}

// NewCookieStore creates a store backed by the file at path. The file is read lazily.
func NewCookieStore(path string, options ...CookieStoreOption) (*CookieStore, error) {
	if path == "" {
		return nil, errors.New("[NewCookieStore] path is required")
	}
	cs := &CookieStore{
		path:    path,
		name:    DefaultCookieName,
		maxAge:  DefaultMaxAge,
		nowTime: time.Now,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(cs)
	}
	if cs.name == "" {
		return nil, errors.New("[NewCookieStore] cookie name is required")
	}
	if cs.maxAge <= 0 {
		return nil, errors.New("[NewCookieStore] max age must be positive")
	}
	return cs, nil
}

func (cs *CookieStore) Token() (string, bool) {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	cs.load()
	if expired(cs.cookie, cs.nowTime()) {
		return "", false
	}
	return cs.cookie.Value, true
}

// Cookie returns a copy of the current cookie, nil when there is none
func (cs *CookieStore) Cookie() *http.Cookie {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	cs.load()
	if cs.cookie == nil {
		return nil
	}
	c := *cs.cookie
	return &c
}

func (cs *CookieStore) SetToken(token string) error {
	if token == "" {
		return errors.New("[CookieStore.SetToken] empty token")
	}
	cs.lock.Lock()
	defer cs.lock.Unlock()

	cookie := NewCookie(cs.name, token, cs.nowTime().Add(cs.maxAge))
	if err := cs.write(cookie); err != nil {
		return errors.Wrap(err, "[CookieStore.SetToken] write")
	}
	cs.cookie = cookie
	cs.loaded = true
	return nil
}

func (cs *CookieStore) Clear() error {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	cs.cookie = nil
	cs.loaded = true
	if err := os.Remove(cs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[CookieStore.Clear] remove")
	}
	return nil
}

// load reads the cookie file once. Unreadable or malformed files count as no cookie.
func (cs *CookieStore) load() {
	if cs.loaded {
		return
	}
	cs.loaded = true

	data, err := os.ReadFile(cs.path)
	if err != nil {
		if !os.IsNotExist(err) {
			cs.logger.Warn().Err(err).Str("path", cs.path).Msg("failed to read session cookie")
		}
		return
	}

	var pc persistedCookie
	if err := json.Unmarshal(data, &pc); err != nil {
		cs.logger.Warn().Err(err).Str("path", cs.path).Msg("failed to parse session cookie")
		return
	}
	if pc.Name != cs.name {
		return
	}
	cs.cookie = NewCookie(pc.Name, pc.Value, pc.Expires)
	cs.cookie.Path = pc.Path
}

// write replaces the cookie file through a temp file and rename
func (cs *CookieStore) write(c *http.Cookie) error {
	data, err := json.MarshalIndent(persistedCookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Expires:  c.Expires.UTC(),
		Secure:   c.Secure,
		SameSite: "Lax",
	}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(cs.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".cookies-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), cs.path)
}
