package cache

import (
	"context"
	"fmt"
	"time"
)

// RedisStore is a placeholder for a Redis-backed cache. Selecting it is a
// valid configuration, but every operation fails with ErrUnsupportedBackend
// until a real client is wired in. There is no fallback to another backend.
type RedisStore struct{}

// NewRedisStore returns the placeholder Redis backend.
func NewRedisStore() *RedisStore {
	return &RedisStore{}
}

// Get always fails; the Redis backend is not implemented.
func (s *RedisStore) Get(_ context.Context, _ string, _ []any, _ map[string]any) ([]byte, bool, error) {
	return nil, false, s.err()
}

// Set always fails; the Redis backend is not implemented.
func (s *RedisStore) Set(_ context.Context, _ []byte, _ string, _ []any, _ map[string]any, _ time.Duration) error {
	return s.err()
}

// Clear always fails; the Redis backend is not implemented.
func (s *RedisStore) Clear(_ context.Context) error {
	return s.err()
}

// Stats always fails; the Redis backend is not implemented.
func (s *RedisStore) Stats(_ context.Context) (Stats, error) {
	return Stats{}, s.err()
}

func (s *RedisStore) err() error {
	return fmt.Errorf("%w: redis support is not implemented", ErrUnsupportedBackend)
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
