// Package storage defines the content-addressed storage boundary sealed
// reports are published to. The pinata subpackage is the production backend;
// the in-memory store backs tests.
package storage

import "context"

// ContentStore accepts opaque bytes and returns their content identifier.
// Implementations fail with CodeUploadFailed.
type ContentStore interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}
