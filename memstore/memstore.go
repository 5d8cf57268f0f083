// Package memstore is an in-memory workflow.Store for tests and ephemeral runs.
package memstore

import (
	"context"
	"sync"
)

// Store implements workflow.Store with a guarded map.
type Store struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// New creates an empty Store.
func New() *Store { return &Store{m: map[string][]byte{}} }

// Get returns a copy of the value under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Put stores a copy of value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
