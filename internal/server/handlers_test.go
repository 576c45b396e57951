package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yehey123/spending-tracker/internal/cache"
	"github.com/yehey123/spending-tracker/internal/config"
	"github.com/yehey123/spending-tracker/internal/eligibility"
	"github.com/yehey123/spending-tracker/internal/model"
)

// fakeStorage scripts the persistence surface for handler tests.
type fakeStorage struct {
	pingErr error
	listErr error
	txns    []model.Transaction
}

func (f *fakeStorage) Ping(_ context.Context) error { return f.pingErr }

func (f *fakeStorage) ListTransactions(_ context.Context) ([]model.Transaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.txns == nil {
		return []model.Transaction{}, nil
	}
	return f.txns, nil
}

type fixture struct {
	srv     *Server
	store   cache.Store
	metrics *Metrics
	storage *fakeStorage
	cfg     *config.Config
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.Server{Host: "127.0.0.1", Port: 8080},
		Database: config.Database{Path: "/tmp/test.db"},
		Cache:    config.Cache{Backend: cache.BackendFile, Directory: t.TempDir(), TTLSeconds: 300},
		Logging:  config.Logging{Level: "info", Format: "text"},
	}
}

func newFixture(t *testing.T, backing cache.Store, cfg *config.Config) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = testConfig(t)
	}
	if backing == nil {
		fileStore, err := cache.NewFileStore(cfg.Cache.Directory)
		require.NoError(t, err)
		backing = fileStore
	}

	reg := prometheus.NewRegistry()
	metrics := NewMetrics("spending_tracker", reg)
	store := InstrumentStore(backing, metrics)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	memo := cache.NewMemoizer(store, cfg.Cache.TTL())
	storage := &fakeStorage{}

	srv, err := New(Options{
		Config:      cfg,
		Store:       store,
		Eligibility: eligibility.NewService(memo, logger),
		Storage:     storage,
		Metrics:     metrics,
		Gatherer:    reg,
		Logger:      logger,
		Version:     "1.2.3",
	})
	require.NoError(t, err)

	return &fixture{srv: srv, store: store, metrics: metrics, storage: storage, cfg: cfg}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHandleRoot(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "Spending Tracker API", body["message"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestUnknownPathNotFound(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestHandleHealthDatabaseDown(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.storage.pingErr = errors.New("connection refused")

	rec := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestHandleCreateTransaction(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(http.MethodPost, "/transactions",
		`{"description": "Groceries run", "amount": "100.00", "category": "Food"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "Groceries run", body["description"])
	assert.Equal(t, "100.00", body["amount"], "amount precision must survive the round trip")
	assert.Equal(t, "Food", body["category"])
	assert.Equal(t, true, body["is_naffl_eligible"])
	assert.NotEmpty(t, body["date"], "date should default to the creation time")
}

func TestHandleCreateTransactionRecomputesEligibility(t *testing.T) {
	f := newFixture(t, nil, nil)

	// The client's claimed eligibility is discarded.
	rec := f.do(http.MethodPost, "/transactions",
		`{"description": "Gift card purchase", "amount": "50.00", "category": "Quasi-cash", "is_naffl_eligible": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, false, body["is_naffl_eligible"])
}

func TestHandleCreateTransactionValidation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{
			name:       "malformed json",
			body:       `{"description": `,
			wantDetail: "invalid request body",
		},
		{
			name:       "empty description",
			body:       `{"description": "", "amount": "10.00", "category": "Food"}`,
			wantDetail: "description",
		},
		{
			name:       "zero amount",
			body:       `{"description": "Groceries", "amount": "0", "category": "Food"}`,
			wantDetail: "amount",
		},
		{
			name:       "negative amount",
			body:       `{"description": "Groceries", "amount": "-5.00", "category": "Food"}`,
			wantDetail: "amount",
		},
		{
			name:       "missing amount",
			body:       `{"description": "Groceries", "category": "Food"}`,
			wantDetail: "amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, nil)

			rec := f.do(http.MethodPost, "/transactions", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			decodeBody(t, rec, &body)
			assert.Contains(t, body["detail"], tt.wantDetail)
		})
	}
}

func TestHandleListTransactions(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(http.MethodGet, "/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandleListTransactionsStorageError(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.storage.listErr = errors.New("disk error")

	rec := f.do(http.MethodGet, "/transactions", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleEligibilityCheck(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantEligible bool
	}{
		{
			name:         "groceries in food",
			query:        "description=Groceries+run&amount=82.50&category=Food",
			wantEligible: true,
		},
		{
			name:         "gift card in quasi-cash",
			query:        "description=Gift+card+purchase&amount=100.00&category=Quasi-cash",
			wantEligible: false,
		},
		{
			name:         "top-up in cash-in",
			query:        "description=Wallet+top-up&amount=50.00&category=Cash-in",
			wantEligible: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, nil)

			rec := f.do(http.MethodGet, "/eligibility/check?"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var body struct {
				Transaction        map[string]any `json:"transaction"`
				IsEligible         bool           `json:"is_eligible"`
				EligibleCategories []string       `json:"eligible_categories"`
			}
			decodeBody(t, rec, &body)

			assert.Equal(t, tt.wantEligible, body.IsEligible)
			assert.Equal(t, tt.wantEligible, body.Transaction["is_naffl_eligible"])
			assert.Equal(t, []string{"Not Quasi-cash", "Not Cash-in"}, body.EligibleCategories)
		})
	}
}

func TestHandleEligibilityCheckCaches(t *testing.T) {
	f := newFixture(t, nil, nil)
	target := "/eligibility/check?description=Groceries+run&amount=82.50&category=Food"

	rec := f.do(http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CacheMisses))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CacheStores))
}

func TestHandleEligibilityCheckValidation(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantDetail string
	}{
		{
			name:       "missing amount",
			query:      "description=Groceries&category=Food",
			wantDetail: "invalid amount",
		},
		{
			name:       "malformed amount",
			query:      "description=Groceries&amount=abc&category=Food",
			wantDetail: "invalid amount",
		},
		{
			name:       "negative amount",
			query:      "description=Groceries&amount=-1&category=Food",
			wantDetail: "amount",
		},
		{
			name:       "empty description",
			query:      "amount=10.00&category=Food",
			wantDetail: "description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, nil)

			rec := f.do(http.MethodGet, "/eligibility/check?"+tt.query, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			decodeBody(t, rec, &body)
			assert.Contains(t, body["detail"], tt.wantDetail)
		})
	}
}

func TestHandleEligibilityCheckUnsupportedBackend(t *testing.T) {
	f := newFixture(t, cache.NewRedisStore(), nil)

	rec := f.do(http.MethodGet, "/eligibility/check?description=Groceries&amount=10.00&category=Food", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Contains(t, body["detail"], "not supported")
}

func TestHandleCacheClear(t *testing.T) {
	f := newFixture(t, nil, nil)

	// Seed one entry through the API.
	rec := f.do(http.MethodGet, "/eligibility/check?description=Groceries&amount=10.00&category=Food", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/cache/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "Cache cleared successfully", body["message"])

	stats, err := f.store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
}

func TestHandleCacheClearUnsupportedBackend(t *testing.T) {
	f := newFixture(t, cache.NewRedisStore(), nil)

	rec := f.do(http.MethodPost, "/cache/clear", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleCacheStats(t *testing.T) {
	cfg := testConfig(t)
	f := newFixture(t, nil, cfg)

	rec := f.do(http.MethodGet, "/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body cacheStatsResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, cache.BackendFile, body.Backend)
	assert.Equal(t, cfg.Cache.Directory, body.CacheDirectory)
	assert.Equal(t, 0, body.TotalEntries)
	assert.Equal(t, int64(0), body.TotalSizeBytes)
	assert.False(t, body.RedisConfigured)

	// One cached decision shows up in the counts.
	seed := f.do(http.MethodGet, "/eligibility/check?description=Groceries&amount=10.00&category=Food", "")
	require.Equal(t, http.StatusOK, seed.Code)

	rec = f.do(http.MethodGet, "/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &body)
	assert.Equal(t, 1, body.TotalEntries)
	assert.Greater(t, body.TotalSizeBytes, int64(0))
}

func TestHandleCacheStatsReportsRedisURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.RedisURL = "redis://localhost:6379/0"
	f := newFixture(t, nil, cfg)

	rec := f.do(http.MethodGet, "/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body cacheStatsResponse
	decodeBody(t, rec, &body)
	assert.True(t, body.RedisConfigured)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil, nil)

	// Generate one request so the counters exist.
	rec := f.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "spending_tracker_http_requests_total")
}

func TestNewValidatesDependencies(t *testing.T) {
	cfg := testConfig(t)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics("spending_tracker", reg)
	store, err := cache.NewFileStore(cfg.Cache.Directory)
	require.NoError(t, err)
	svc := eligibility.NewService(cache.NewMemoizer(store, time.Minute), nil)

	valid := Options{
		Config:      cfg,
		Store:       store,
		Eligibility: svc,
		Storage:     &fakeStorage{},
		Metrics:     metrics,
		Gatherer:    reg,
	}

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{name: "nil config", mutate: func(o *Options) { o.Config = nil }},
		{name: "nil store", mutate: func(o *Options) { o.Store = nil }},
		{name: "nil eligibility", mutate: func(o *Options) { o.Eligibility = nil }},
		{name: "nil storage", mutate: func(o *Options) { o.Storage = nil }},
		{name: "nil metrics", mutate: func(o *Options) { o.Metrics = nil }},
		{name: "nil gatherer", mutate: func(o *Options) { o.Gatherer = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid
			tt.mutate(&opts)
			_, err := New(opts)
			assert.Error(t, err)
		})
	}

	srv, err := New(valid)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", srv.Addr())
}
