package server

import (
	"context"
	"time"

	"github.com/yehey123/spending-tracker/internal/cache"
)

// instrumentedStore counts cache traffic flowing through a Store.
type instrumentedStore struct {
	cache.Store
	metrics *Metrics
}

// InstrumentStore wraps store so reads and writes feed the server metrics.
// Clear and Stats pass through uncounted.
func InstrumentStore(store cache.Store, metrics *Metrics) cache.Store {
	return &instrumentedStore{Store: store, metrics: metrics}
}

func (s *instrumentedStore) Get(ctx context.Context, op string, args []any, kwargs map[string]any) ([]byte, bool, error) {
	value, ok, err := s.Store.Get(ctx, op, args, kwargs)
	if err == nil {
		if ok {
			s.metrics.CacheHits.Inc()
		} else {
			s.metrics.CacheMisses.Inc()
		}
	}
	return value, ok, err
}

func (s *instrumentedStore) Set(ctx context.Context, value []byte, op string, args []any, kwargs map[string]any, ttl time.Duration) error {
	err := s.Store.Set(ctx, value, op, args, kwargs, ttl)
	if err != nil {
		s.metrics.CacheStoreFailures.Inc()
		return err
	}
	s.metrics.CacheStores.Inc()
	return nil
}
