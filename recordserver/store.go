package recordserver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-portal-session/internal/errors"
)

// Record is one JSON object of a collection
type Record = map[string]any

// Store holds collections of records in memory and, when it has a path, rewrites the
// whole database file after every write, the way json-server does with db.json.
type Store struct {
	path        string
	collections map[string][]Record
	lock        sync.RWMutex
}

// NewMemoryStore creates a store that is never written to disk
func NewMemoryStore(collections ...string) *Store {
	s := &Store{collections: make(map[string][]Record)}
	for _, c := range collections {
		s.collections[c] = []Record{}
	}
	return s
}

// OpenStore loads path if it exists and makes sure every named collection is present.
func OpenStore(path string, collections ...string) (*Store, error) {
	s := NewMemoryStore()
	s.path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &s.collections); err != nil {
			return nil, errors.Wrapf(err, "[OpenStore] parse %s", path)
		}
		if s.collections == nil {
			s.collections = make(map[string][]Record)
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrapf(err, "[OpenStore] read %s", path)
	}

	for _, c := range collections {
		if _, ok := s.collections[c]; !ok {
			s.collections[c] = []Record{}
		}
	}
	return s, nil
}

// Collections lists collection names in sorted order
func (s *Store) Collections() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether collection is served
func (s *Store) Has(collection string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	_, ok := s.collections[collection]
	return ok
}

// List returns the records of collection whose fields equal every filter. A filter with
// several values matches any of them. Keys starting with "_" are ignored.
func (s *Store) List(collection string, filters map[string][]string) ([]Record, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	recs, ok := s.collections[collection]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "collection %s", collection)
	}
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if matches(rec, filters) {
			out = append(out, copyRecord(rec))
		}
	}
	return out, nil
}

func (s *Store) Get(collection, id string) (Record, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	_, rec, err := s.find(collection, id)
	if err != nil {
		return nil, err
	}
	return copyRecord(rec), nil
}

// Create appends rec, assigning a string id when it has none
func (s *Store) Create(collection string, rec Record) (Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	rec = copyRecord(rec)
	id := stringify(rec["id"])
	if id == "" {
		id = uuid.New().String()
	}
	rec["id"] = id

	recs := s.collections[collection]
	for _, existing := range recs {
		if stringify(existing["id"]) == id {
			return nil, errors.Wrapf(errors.ErrInvalidRequest, "%s/%s already exists", collection, id)
		}
	}
	s.collections[collection] = append(recs, rec)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return copyRecord(rec), nil
}

// Replace swaps the whole record for rec, keeping its id
func (s *Store) Replace(collection, id string, rec Record) (Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	idx, existing, err := s.find(collection, id)
	if err != nil {
		return nil, err
	}
	rec = copyRecord(rec)
	rec["id"] = existing["id"]
	s.collections[collection][idx] = rec
	if err := s.persist(); err != nil {
		return nil, err
	}
	return copyRecord(rec), nil
}

// Merge overlays the fields of patch onto the record
func (s *Store) Merge(collection, id string, patch Record) (Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	idx, existing, err := s.find(collection, id)
	if err != nil {
		return nil, err
	}
	merged := copyRecord(existing)
	for k, v := range patch {
		if k == "id" {
			continue
		}
		merged[k] = v
	}
	s.collections[collection][idx] = merged
	if err := s.persist(); err != nil {
		return nil, err
	}
	return copyRecord(merged), nil
}

// Delete removes the record and returns it
func (s *Store) Delete(collection, id string) (Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	idx, rec, err := s.find(collection, id)
	if err != nil {
		return nil, err
	}
	recs := s.collections[collection]
	s.collections[collection] = append(recs[:idx:idx], recs[idx+1:]...)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) find(collection, id string) (int, Record, error) {
	recs, ok := s.collections[collection]
	if !ok {
		return -1, nil, errors.Wrapf(errors.ErrNotFound, "collection %s", collection)
	}
	for i, rec := range recs {
		if stringify(rec["id"]) == id {
			return i, rec, nil
		}
	}
	return -1, nil, errors.Wrapf(errors.ErrNotFound, "%s/%s", collection, id)
}

// persist rewrites the database file through a temp file and rename. Callers hold the write lock.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.collections, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "[Store.persist] marshal")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "[Store.persist] mkdir")
	}
	tmp, err := os.CreateTemp(dir, ".db-*.json")
	if err != nil {
		return errors.Wrapf(err, "[Store.persist] temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "[Store.persist] write")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "[Store.persist] close")
	}
	return errors.Wrapf(os.Rename(tmp.Name(), s.path), "[Store.persist] rename")
}

func matches(rec Record, filters map[string][]string) bool {
	for field, wanted := range filters {
		if strings.HasPrefix(field, "_") || len(wanted) == 0 {
			continue
		}
		got := stringify(rec[field])
		found := false
		for _, w := range wanted {
			if got == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// stringify renders a decoded JSON value the way it appears in a query string
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func copyRecord(rec Record) Record {
	c := make(Record, len(rec))
	for k, v := range rec {
		c[k] = v
	}
	return c
}
