// Package jsonfile provides a storage.Store implementation that keeps one
// JSON file per monitored domain in a single directory. Writes go through a
// temp-file-then-rename sequence so a crash mid-write never corrupts an
// existing entry.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"certwatch/pkg/domain"
	"certwatch/pkg/serrors"
	"certwatch/pkg/storage"
)

// Store persists subdomain sets as <dir>/<domain>.json files.
type Store struct {
	dir string
}

// entry is the on-disk representation of one domain's known subdomains.
type entry struct {
	Domain     string              `json:"domain"`
	Subdomains domain.SubdomainSet `json:"subdomains"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Load reads the stored set for name. Missing files map to ErrNotFound;
// unreadable or undecodable files map to ErrPersistence.
func (s *Store) Load(_ context.Context, name string) (domain.SubdomainSet, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, serrors.With(serrors.ErrNotFound, "no stored entry for %q", name)
		}

		return nil, serrors.Wrap(serrors.ErrPersistence, err, "could not read entry for %q", name)
	}

	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, serrors.Wrap(serrors.ErrPersistence, err, "corrupt entry for %q", name)
	}
	if e.Subdomains == nil {
		e.Subdomains = domain.NewSubdomainSet()
	}

	return e.Subdomains, nil
}

// Save atomically replaces the stored set for name: the entry is written to a
// temp file in the same directory, synced, then renamed over the target.
func (s *Store) Save(_ context.Context, name string, set domain.SubdomainSet) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return serrors.Wrap(serrors.ErrPersistence, err, "could not create storage directory")
	}

	b, err := json.MarshalIndent(entry{
		Domain:     name,
		Subdomains: set,
		UpdatedAt:  time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return serrors.Wrap(serrors.ErrPersistence, err, "could not encode entry for %q", name)
	}

	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return serrors.Wrap(serrors.ErrPersistence, err, "could not create temp file for %q", name)
	}
	// best-effort cleanup when any later step fails
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()

		return serrors.Wrap(serrors.ErrPersistence, err, "could not write entry for %q", name)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()

		return serrors.Wrap(serrors.ErrPersistence, err, "could not sync entry for %q", name)
	}
	if err := tmp.Close(); err != nil {
		return serrors.Wrap(serrors.ErrPersistence, err, "could not close temp file for %q", name)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return serrors.Wrap(serrors.ErrPersistence, err, "could not replace entry for %q", name)
	}

	return nil
}

// Delete removes the stored set for name; a missing entry is not an error.
func (s *Store) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return serrors.Wrap(serrors.ErrPersistence, err, "could not delete entry for %q", name)
	}

	return nil
}

// List returns the domains that have a stored entry, sorted. It lets a
// restarted process resume monitoring the domains it already knows about.
func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, serrors.Wrap(serrors.ErrPersistence, err, "could not list storage directory")
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}

		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)

	return names, nil
}

// path maps a domain name to its file path. Names reaching the store are
// validated by the monitor already; path separators are rejected again here
// so a store misuse can never escape the storage directory.
func (s *Store) path(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, "/\\") || name != filepath.Base(name) {
		return "", serrors.With(serrors.ErrBadRequest, "invalid storage key %q", name)
	}

	return filepath.Join(s.dir, name+".json"), nil
}

// Ensure Store conforms to the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// New constructs a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create storage directory: %w", err)
	}

	return &Store{dir: dir}, nil
}
