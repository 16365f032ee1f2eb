package recordserver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-portal-session/internal/errors"
	"github.com/jrsteele09/go-portal-session/recordserver"
	"github.com/stretchr/testify/require"
)

func TestStore_CRUD(t *testing.T) {
	store := recordserver.NewMemoryStore("users")

	created, err := store.Create("users", recordserver.Record{"email": "a@b.com", "role": "user"})
	require.NoError(t, err)
	id, ok := created["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	t.Run("get returns a copy", func(t *testing.T) {
		got, err := store.Get("users", id)
		require.NoError(t, err)
		got["email"] = "changed@b.com"

		again, err := store.Get("users", id)
		require.NoError(t, err)
		require.Equal(t, "a@b.com", again["email"])
	})

	t.Run("replace keeps the id", func(t *testing.T) {
		replaced, err := store.Replace("users", id, recordserver.Record{"id": "other", "email": "c@d.com"})
		require.NoError(t, err)
		require.Equal(t, id, replaced["id"])
		require.NotContains(t, replaced, "role")
	})

	t.Run("merge overlays fields", func(t *testing.T) {
		merged, err := store.Merge("users", id, recordserver.Record{"verified": true})
		require.NoError(t, err)
		require.Equal(t, "c@d.com", merged["email"])
		require.Equal(t, true, merged["verified"])
	})

	t.Run("delete echoes the record", func(t *testing.T) {
		deleted, err := store.Delete("users", id)
		require.NoError(t, err)
		require.Equal(t, id, deleted["id"])

		_, err = store.Get("users", id)
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestStore_Create(t *testing.T) {
	store := recordserver.NewMemoryStore()

	t.Run("keeps a supplied id", func(t *testing.T) {
		rec, err := store.Create("plans", recordserver.Record{"id": "1", "title": "Monthly"})
		require.NoError(t, err)
		require.Equal(t, "1", rec["id"])
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		_, err := store.Create("plans", recordserver.Record{"id": "1"})
		require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	})

	t.Run("unknown collection is created on write", func(t *testing.T) {
		require.Contains(t, store.Collections(), "plans")
	})
}

func TestStore_List(t *testing.T) {
	store := recordserver.NewMemoryStore("users")
	for _, rec := range []recordserver.Record{
		{"email": "a@b.com", "role": "admin", "verified": true},
		{"email": "c@d.com", "role": "user", "verified": false},
		{"email": "e@f.com", "role": "user", "verified": true},
	} {
		_, err := store.Create("users", rec)
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		filters map[string][]string
		want    int
	}{
		{"no filters", nil, 3},
		{"string field", map[string][]string{"role": {"user"}}, 2},
		{"bool field", map[string][]string{"verified": {"true"}}, 2},
		{"several fields", map[string][]string{"role": {"user"}, "verified": {"true"}}, 1},
		{"any of several values", map[string][]string{"email": {"a@b.com", "c@d.com"}}, 2},
		{"underscore keys ignored", map[string][]string{"_page": {"2"}}, 3},
		{"no match", map[string][]string{"email": {"x@y.com"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List("users", tt.filters)
			require.NoError(t, err)
			require.Len(t, got, tt.want)
		})
	}

	t.Run("unknown collection", func(t *testing.T) {
		_, err := store.List("missing", nil)
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestOpenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "db.json")

	store, err := recordserver.OpenStore(path, "users")
	require.NoError(t, err)
	require.Equal(t, []string{"users"}, store.Collections())

	created, err := store.Create("users", recordserver.Record{"email": "a@b.com"})
	require.NoError(t, err)

	t.Run("writes survive a reopen", func(t *testing.T) {
		reopened, err := recordserver.OpenStore(path)
		require.NoError(t, err)
		got, err := reopened.Get("users", created["id"].(string))
		require.NoError(t, err)
		require.Equal(t, "a@b.com", got["email"])
	})

	t.Run("malformed file", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "db.json")
		require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
		_, err := recordserver.OpenStore(bad)
		require.Error(t, err)
	})
}
