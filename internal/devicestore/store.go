// Package devicestore defines the device-local key/value boundary that holds
// identity scalars and the session token. Nothing behind it talks to the
// registry, the prover, storage, or the ledger.
package devicestore

import "context"

// Store is a small byte-oriented key/value store. Get returns
// sentinel.ErrNotFound for absent keys. SetMany and DeleteMany are atomic: a
// reader never sees half of an identity.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetMany(ctx context.Context, entries map[string][]byte) error
	DeleteMany(ctx context.Context, keys ...string) error
	Close() error
}

// Keys used by the identity and session stores.
const (
	KeyNullifierSeed = "zk/custom_nullifier"
	KeySecret        = "zk/secret"
	KeySessionToken  = "auth/token"
)
