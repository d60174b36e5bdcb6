// Package storage persists small JSON documents under fixed keys.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when nothing is stored under the key
var ErrNotFound = errors.New("key not found")

// KV is a key-value store for persisted pipeline state
type KV interface {
	// Get returns the stored value or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under the key
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the key, deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	// Health checks that the backend is reachable
	Health() error
}
