// Package storage provides the key/value substrate the session store persists into.
package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("storage closed")

// KV is a string key/value store.
// Get returns ok=false for a missing key. Delete removes all given keys
// together: callers never observe a partial delete.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Batcher is implemented by stores that can write several keys atomically
type Batcher interface {
	SetMany(ctx context.Context, values map[string]string) error
}

var (
	_ KV      = (*Memory)(nil)
	_ Batcher = (*Memory)(nil)
	_ KV      = (*SQLite)(nil)
	_ Batcher = (*SQLite)(nil)
)
