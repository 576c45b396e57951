// Package cache provides the shared result cache: a keyed store that memoizes
// the results of idempotent operations for a bounded time window. The default
// backend persists one file per key so that independently started worker
// processes observe the same cache without a network service.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Recognized cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Sentinel errors for cache operations.
var (
	// ErrUnsupportedBackend is returned by every operation of a configured
	// backend that has no implementation. It must surface to the caller;
	// falling back to another backend would hide a misconfiguration.
	ErrUnsupportedBackend = errors.New("cache: unsupported backend")

	// ErrStoreFailed wraps a persistence failure on Set. The computed value
	// is still valid when this error is returned alongside it.
	ErrStoreFailed = errors.New("cache: failed to store result")
)

// Stats describes the current contents of a cache store.
type Stats struct {
	Backend    string
	Directory  string
	Entries    int
	TotalBytes int64
}

// Store is the contract for a shared result cache backend.
//
// Contract:
//   - Get returns (nil, false, nil) on a miss. Corrupt or unreadable persisted
//     state is a miss, never an error; a non-nil error means the backend itself
//     is unusable.
//   - Concurrent use from multiple goroutines and multiple processes is
//     expected. Last writer wins; there is no cross-process locking.
//   - Expiry is lazy: an expired entry is deleted when a Get finds it, and at
//     no other time. Stats must not sweep.
type Store interface {
	Get(ctx context.Context, op string, args []any, kwargs map[string]any) ([]byte, bool, error)
	Set(ctx context.Context, value []byte, op string, args []any, kwargs map[string]any, ttl time.Duration) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

// NewStore creates the store selected by backend. The file backend is the only
// implemented one; redis is recognized but unimplemented, so it constructs
// successfully and fails loudly on first use. Anything else is rejected here.
func NewStore(backend, dir string) (Store, error) {
	switch backend {
	case BackendFile:
		return NewFileStore(dir)
	case BackendRedis:
		return NewRedisStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	}
}
