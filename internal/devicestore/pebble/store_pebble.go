package pebble

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"clearcrew/pkg/platform/sentinel"
)

// Store is the default on-device backend: a pebble database in the user's
// data directory. Writes are synced so an acknowledged registration survives
// a crash.
type Store struct {
	db *pebble.DB
}

type Option func(*pebble.Options)

// WithInMemoryFS keeps the database in memory. Tests use it to exercise the
// real pebble code path without touching disk.
func WithInMemoryFS() Option {
	return func(o *pebble.Options) {
		o.FS = vfs.NewMem()
	}
}

// Open opens (creating if needed) the database at dir.
func Open(dir string, opts ...Option) (*Store, error) {
	o := &pebble.Options{}
	for _, opt := range opts {
		opt(o)
	}
	db, err := pebble.Open(dir, o)
	if err != nil {
		return nil, fmt.Errorf("open device store at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (s *Store) SetMany(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	for k, v := range entries {
		if err := b.Set([]byte(k), v, nil); err != nil {
			return fmt.Errorf("stage %s: %w", k, err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit device store batch: %w", err)
	}
	return nil
}

func (s *Store) DeleteMany(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	for _, k := range keys {
		if err := b.Delete([]byte(k), nil); err != nil {
			return fmt.Errorf("stage delete %s: %w", k, err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit device store delete: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
