package eligibility

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yehey123/spending-tracker/internal/cache"
	"github.com/yehey123/spending-tracker/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*Service, *cache.FileStore) {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	memo := cache.NewMemoizer(store, 5*time.Minute)
	return NewService(memo, testLogger()), store
}

func testTransaction(description, amount, category string) model.Transaction {
	return model.NewTransaction(description, decimal.RequireFromString(amount), category)
}

func TestServiceCheckCached(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		txn  model.Transaction
		want bool
	}{
		{
			name: "gift card purchase in quasi-cash",
			txn:  testTransaction("Gift card purchase", "100.00", "Quasi-cash"),
			want: false,
		},
		{
			name: "wallet top-up in cash-in",
			txn:  testTransaction("Wallet top-up", "50.00", "Cash-in"),
			want: false,
		},
		{
			name: "groceries run in food",
			txn:  testTransaction("Groceries run", "82.50", "Food"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			got, err := svc.CheckCached(ctx, tt.txn)
			if err != nil {
				t.Fatalf("CheckCached() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CheckCached() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServiceServesCachedDecision(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	txn := testTransaction("Groceries run", "100.00", "Food")

	// Plant a decision that contradicts the classifier. If the service
	// consults the cache, it serves this instead of recomputing.
	kwargs := map[string]any{
		"description": "Groceries run",
		"amount":      "100.00",
		"category":    "Food",
	}
	if err := store.Set(ctx, []byte(`{"is_eligible":false}`), opCheckEligibility, nil, kwargs, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := svc.CheckCached(ctx, txn)
	if err != nil {
		t.Fatalf("CheckCached() error = %v", err)
	}
	if got {
		t.Error("CheckCached() recomputed instead of serving the cached decision")
	}
}

func TestServiceCachesDecision(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	txn := testTransaction("Gift card purchase", "100.00", "Quasi-cash")
	if _, err := svc.CheckCached(ctx, txn); err != nil {
		t.Fatalf("CheckCached() error = %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Entries != 1 {
		t.Errorf("Stats().Entries = %d after one check, want 1", stats.Entries)
	}

	// Same transaction again reuses the entry.
	if _, err := svc.CheckCached(ctx, txn); err != nil {
		t.Fatalf("CheckCached() error = %v", err)
	}
	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Entries != 1 {
		t.Errorf("Stats().Entries = %d after repeat check, want 1", stats.Entries)
	}

	// A different transaction gets its own entry.
	other := testTransaction("Wallet top-up", "50.00", "Cash-in")
	if _, err := svc.CheckCached(ctx, other); err != nil {
		t.Fatalf("CheckCached() error = %v", err)
	}
	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Entries != 2 {
		t.Errorf("Stats().Entries = %d after distinct check, want 2", stats.Entries)
	}
}

// failingStore misses on every read and refuses every write.
type failingStore struct{}

func (failingStore) Get(_ context.Context, _ string, _ []any, _ map[string]any) ([]byte, bool, error) {
	return nil, false, nil
}

func (failingStore) Set(_ context.Context, _ []byte, _ string, _ []any, _ map[string]any, _ time.Duration) error {
	return errors.New("disk full")
}

func (failingStore) Clear(_ context.Context) error { return nil }

func (failingStore) Stats(_ context.Context) (cache.Stats, error) { return cache.Stats{}, nil }

func TestServiceStoreFailureStillAnswers(t *testing.T) {
	ctx := context.Background()
	memo := cache.NewMemoizer(failingStore{}, time.Minute)
	svc := NewService(memo, testLogger())

	got, err := svc.CheckCached(ctx, testTransaction("Groceries run", "82.50", "Food"))
	if err != nil {
		t.Fatalf("CheckCached() error = %v, want nil when only the store write fails", err)
	}
	if !got {
		t.Error("CheckCached() = false, want true")
	}
}

func TestServiceBackendFailurePropagates(t *testing.T) {
	ctx := context.Background()
	memo := cache.NewMemoizer(cache.NewRedisStore(), time.Minute)
	svc := NewService(memo, testLogger())

	_, err := svc.CheckCached(ctx, testTransaction("Groceries run", "82.50", "Food"))
	if !errors.Is(err, cache.ErrUnsupportedBackend) {
		t.Fatalf("CheckCached() error = %v, want ErrUnsupportedBackend", err)
	}
}
