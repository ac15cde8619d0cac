// Package kv abstracts the persistent storage scope that holds the session
// record and the legacy token slot. Backends must make each Set atomic: a
// reader never observes a partially written value.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("key not found")

// ErrStoreUnavailable wraps backend transport failures.
var ErrStoreUnavailable = errors.New("storage backend unavailable")

// Store is a minimal key/value surface. Implementations are safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
