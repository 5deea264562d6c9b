package memory

import (
	"context"
	"sync"

	"clearcrew/pkg/platform/sentinel"
)

// InMemoryStore keeps entries in a map. Used by tests and by the CLI when no
// persistent backend is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	closed  bool
}

func New() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string][]byte)}
}

func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, sentinel.ErrClosed
	}
	v, ok := s.entries[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *InMemoryStore) SetMany(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sentinel.ErrClosed
	}
	for k, v := range entries {
		s.entries[k] = append([]byte(nil), v...)
	}
	return nil
}

func (s *InMemoryStore) DeleteMany(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sentinel.ErrClosed
	}
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
