package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"clearcrew/pkg/platform/sentinel"
)

const defaultKeyPrefix = "clearcrew:device:"

// Store is a Redis-backed device store for machines that already run a local
// redis. The client must reach it over a unix socket or loopback only; see
// config.IsLocalRedisURL.
type Store struct {
	client *redis.Client
	prefix string
}

type Option func(*Store)

// WithKeyPrefix namespaces all keys, typically with a device id.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New wraps an existing client. The client lifecycle is managed by the caller.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

// SetMany writes all entries inside MULTI/EXEC so readers never observe a
// partially written identity.
func (s *Store) SetMany(ctx context.Context, entries map[string][]byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, s.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write device entries: %w", err)
	}
	return nil
}

func (s *Store) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("delete device entries: %w", err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (s *Store) Close() error {
	return nil
}
