// Package memory is an in-process key-value store, optionally seeded from
// JSON files on disk. Nothing is written back to disk.
package memory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Store struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

func New() *Store {
	return &Store{values: map[string]string{}}
}

// NewFromFiles seeds the store with the listed keys, reading each from
// <base>/<key>.json. Missing or blank files are skipped.
func NewFromFiles(base string, keys ...string) *Store {
	s := New()
	for _, key := range keys {
		data, err := os.ReadFile(filepath.Join(base, key+".json"))
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			s.values[key] = v
		}
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.writes++
	return nil
}

// Writes returns how many Set calls the store has accepted.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
