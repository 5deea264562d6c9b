package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"clearcrew/pkg/platform/sentinel"
)

// InMemoryContentStore addresses content by its SHA-256 digest. It keeps the
// initial implementation lightweight and testable.
type InMemoryContentStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	names   map[string]string
}

func NewInMemoryContentStore() *InMemoryContentStore {
	return &InMemoryContentStore{
		objects: make(map[string][]byte),
		names:   make(map[string]string),
	}
}

func (s *InMemoryContentStore) Upload(_ context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyContent
	}
	sum := sha256.Sum256(data)
	cid := "sha256-" + hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[cid] = append([]byte(nil), data...)
	s.names[cid] = name
	return cid, nil
}

// Get returns a copy of the stored bytes.
func (s *InMemoryContentStore) Get(_ context.Context, cid string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[cid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *InMemoryContentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
