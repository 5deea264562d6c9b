package store

import (
	"context"
	"errors"
	"fmt"

	"clearcrew/internal/devicestore"
	"clearcrew/internal/identity/models"
	"clearcrew/pkg/platform/sentinel"
)

// Store persists the single resident identity on top of a device store.
// Save overwrites whatever identity was there before.
type Store struct {
	kv devicestore.Store
}

func New(kv devicestore.Store) *Store {
	return &Store{kv: kv}
}

// Save writes both halves atomically.
func (s *Store) Save(ctx context.Context, id models.Identity) error {
	err := s.kv.SetMany(ctx, map[string][]byte{
		devicestore.KeyNullifierSeed: []byte(id.NullifierSeed),
		devicestore.KeySecret:        []byte(id.Secret),
	})
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// Load returns sentinel.ErrNotFound when no complete identity is resident.
func (s *Store) Load(ctx context.Context) (models.Identity, error) {
	seed, err := s.kv.Get(ctx, devicestore.KeyNullifierSeed)
	if err != nil {
		return models.Identity{}, wrapLoad(err)
	}
	secret, err := s.kv.Get(ctx, devicestore.KeySecret)
	if err != nil {
		return models.Identity{}, wrapLoad(err)
	}
	return models.Identity{NullifierSeed: string(seed), Secret: string(secret)}, nil
}

// Clear removes the identity. The session token is left alone.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.DeleteMany(ctx, devicestore.KeyNullifierSeed, devicestore.KeySecret); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}

func wrapLoad(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("load identity: %w", err)
}
