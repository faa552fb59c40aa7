// Package fixture persists per-scenario state between test steps.
//
// Each scenario owns one JSON file, testdata-<key>.json, inside a run
// directory. Helpers read it to learn the credentials and ids produced by
// earlier steps and merge their own results back only after the server has
// confirmed success.
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/logutil"
	"github.com/kuitang/notes-e2e/internal/obs"
)

const filePrefix = "testdata-"

// Record is the accumulated key/value state of one scenario.
type Record map[string]any

// Store reads and writes fixture records under a single directory.
type Store struct {
	dir string
}

// Open returns a store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errs.New(errs.InvalidArgument, "fixture directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.FixtureIO, "create fixture directory "+dir, err)
	}
	return &Store{dir: dir}, nil
}

// OpenRun creates a fresh directory for one run below parent (or the OS temp
// dir when parent is empty). The returned cleanup removes it.
func OpenRun(parent string) (*Store, func() error, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, nil, errs.Wrap(errs.FixtureIO, "create fixture parent "+parent, err)
		}
	}
	dir, err := os.MkdirTemp(parent, "notes-e2e-run-")
	if err != nil {
		return nil, nil, errs.Wrap(errs.FixtureIO, "create run directory", err)
	}
	return &Store{dir: dir}, func() error { return os.RemoveAll(dir) }, nil
}

// NewKey returns a fresh scenario key.
func NewKey() string {
	return uuid.NewString()
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file backing key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, filePrefix+key+".json")
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return errs.New(errs.InvalidArgument, fmt.Sprintf("invalid fixture key %q", key))
	}
	return nil
}

// Read returns the record for key. A missing file is a FixtureIO error.
func (s *Store) Read(key string) (Record, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.FixtureIO, "fixture "+key+" does not exist", err)
		}
		return nil, errs.Wrap(errs.FixtureIO, "read fixture "+key, err)
	}
	rec := Record{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errs.Wrap(errs.FixtureIO, "decode fixture "+key, err)
	}
	return rec, nil
}

// Write replaces the full record for key.
func (s *Store) Write(key string, rec Record) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if rec == nil {
		rec = Record{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(errs.FixtureIO, "encode fixture "+key, err)
	}

	// Write to a sibling temp file and rename so a reader never sees a
	// half-written record.
	tmp, err := os.CreateTemp(s.dir, filePrefix+key+".*.tmp")
	if err != nil {
		return errs.Wrap(errs.FixtureIO, "write fixture "+key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errs.Wrap(errs.FixtureIO, "write fixture "+key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.FixtureIO, "write fixture "+key, err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.FixtureIO, "write fixture "+key, err)
	}
	return nil
}

// Merge overlays partial onto the current record, writes the union and
// returns it. Keys in partial always win. The record must already exist.
func (s *Store) Merge(key string, partial Record) (Record, error) {
	current, err := s.Read(key)
	if err != nil {
		return nil, err
	}
	merged := Overlay(current, partial)
	if err := s.Write(key, merged); err != nil {
		return nil, err
	}
	obs.Pkg("fixture").Debug("fixture_merged", "fixture_key", key, "fields", logutil.RedactFields(partial))
	return merged, nil
}

// Remove drops fields from the record and returns what is left.
func (s *Store) Remove(key string, fields ...string) (Record, error) {
	current, err := s.Read(key)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		delete(current, f)
	}
	if err := s.Write(key, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Delete removes the file backing key. Deleting a missing record fails.
func (s *Store) Delete(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.Path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.Wrap(errs.FixtureIO, "fixture "+key+" does not exist", err)
		}
		return errs.Wrap(errs.FixtureIO, "delete fixture "+key, err)
	}
	obs.Pkg("fixture").Debug("fixture_deleted", "fixture_key", key)
	return nil
}

// Exists reports whether a record is stored for key.
func (s *Store) Exists(key string) bool {
	if checkKey(key) != nil {
		return false
	}
	_, err := os.Stat(s.Path(key))
	return err == nil
}

// Keys lists the scenario keys with a record in the store, sorted.
func (s *Store) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errs.Wrap(errs.FixtureIO, "list fixtures", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

// Overlay returns a new record holding base with partial laid on top.
func Overlay(base, partial Record) Record {
	out := make(Record, len(base)+len(partial))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// Init creates or overwrites the record for key at scenario start.
func (s *Store) Init(key string, rec Record) error {
	return s.Write(key, rec)
}

// Upsert merges partial into an existing record, or creates the record
// from partial when none exists yet.
func (s *Store) Upsert(key string, partial Record) (Record, error) {
	if !s.Exists(key) {
		rec := Overlay(nil, partial)
		return rec, s.Write(key, rec)
	}
	return s.Merge(key, partial)
}
