package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Memoizer wraps a Store with get-or-compute semantics. Results are stored
// as JSON, so anything a compute function returns must marshal cleanly.
type Memoizer struct {
	store Store
	ttl   time.Duration
}

// NewMemoizer creates a memoizer that caches computed results for ttl.
func NewMemoizer(store Store, ttl time.Duration) *Memoizer {
	return &Memoizer{store: store, ttl: ttl}
}

// Store exposes the underlying store for maintenance operations.
func (m *Memoizer) Store() Store {
	return m.store
}

// TTL reports the entry lifetime applied to newly computed results.
func (m *Memoizer) TTL() time.Duration {
	return m.ttl
}

// Do returns the cached result for (op, args, kwargs), decoded into out, or
// computes, stores, and returns a fresh one. A cached value that no longer
// decodes into out is treated as a miss and recomputed.
//
// If the result is computed but cannot be stored, out is still populated and
// the returned error matches ErrStoreFailed. Callers that can tolerate a cold
// cache should log that error and use the value anyway.
func (m *Memoizer) Do(ctx context.Context, op string, args []any, kwargs map[string]any, out any, compute func(ctx context.Context) (any, error)) error {
	cached, ok, err := m.store.Get(ctx, op, args, kwargs)
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}
	if ok {
		if err := json.Unmarshal(cached, out); err == nil {
			return nil
		}
	}

	result, err := compute(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}

	if err := m.store.Set(ctx, data, op, args, kwargs, m.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	return nil
}
