// Package store provides the cache-backed persistence layer: an in-process
// cache with a TTL in front of an eventually consistent durable backend.
//
// Writes land in the cache first and are then attempted against the
// backend. A backend failure never fails a read or a write; the store keeps
// serving from the cache and reports the failure on the WriteResult.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrMemoryOnly is reported in Status.Reason when the durable backend could
// not be opened and the store runs from its cache alone.
var ErrMemoryOnly = errors.New("durable backend unavailable, running memory-only")

// ErrVolatileBackend is the Status reason detail for a backend whose data
// lives in this process only.
var ErrVolatileBackend = errors.New("process-local backend, data does not survive a restart")

// ObjectInfo describes one durable object returned by Backend.List.
type ObjectInfo struct {
	Key string

	// SavedAt is the backend's record of when the object was written.
	// Zero when the backend does not track it.
	SavedAt time.Time
}

// Backend is the durable blob store contract. Keys are slash-separated
// paths and values are JSON documents.
//
// Get reports found=false with a nil error when the key does not exist.
// List returns keys in no particular order.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetJSON(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// Volatile is implemented by backends that keep data in this process only.
// The store runs memory-only over them: writes still reach the backend but
// are never reported as persisted.
type Volatile interface {
	Volatile() bool
}

// Opener constructs a Backend. Open calls it once and degrades to
// memory-only mode when it fails.
type Opener func(ctx context.Context) (Backend, error)
