// Package memstore is an in-process Slot. Nothing survives the process;
// it backs tests and the "memory" storage backend.
package memstore

import (
	"context"
	"sync"

	"github.com/Makepad-fr/tada/internal/store"
)

type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
	writes int
}

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	s.writes++
	return nil
}

// Writes reports how many times Set has been called.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *Store) Close() error { return nil }
