package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/yehey123/spending-tracker/internal/cache"
	"github.com/yehey123/spending-tracker/internal/eligibility"
	"github.com/yehey123/spending-tracker/internal/model"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

// handleRoot identifies the service.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Spending Tracker API",
		"version": s.version,
	})
}

// handleHealth reports liveness of the service and its database connection.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"detail": "database unreachable",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleCreateTransaction validates and echoes a transaction. Eligibility is
// always recomputed; whatever the client set in is_naffl_eligible is
// discarded. The transaction is not persisted yet.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var txn model.Transaction
	if err := json.NewDecoder(r.Body).Decode(&txn); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn.ApplyDefaults()
	if err := txn.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txn.IsNafflEligible = eligibility.Check(txn.Category)
	s.writeJSON(w, http.StatusOK, txn)
}

// handleListTransactions returns the persisted ledger.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.storage.ListTransactions(r.Context())
	if err != nil {
		s.logger.Error("failed to list transactions", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	s.writeJSON(w, http.StatusOK, txns)
}

type eligibilityResponse struct {
	Transaction        model.Transaction `json:"transaction"`
	IsEligible         bool              `json:"is_eligible"`
	EligibleCategories []string          `json:"eligible_categories"`
}

// handleEligibilityCheck builds a transaction from query parameters and
// answers through the result cache.
func (s *Server) handleEligibilityCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	txn := model.NewTransaction(q.Get("description"), amount, q.Get("category"))
	if err := txn.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	eligible, err := s.eligibility.CheckCached(r.Context(), txn)
	if err != nil {
		s.logger.Error("eligibility check failed", "error", err)
		if errors.Is(err, cache.ErrUnsupportedBackend) {
			s.writeError(w, http.StatusInternalServerError, "configured cache backend is not supported")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to check eligibility")
		return
	}

	txn.IsNafflEligible = eligible
	s.writeJSON(w, http.StatusOK, eligibilityResponse{
		Transaction:        txn,
		IsEligible:         eligible,
		EligibleCategories: eligibility.EligibleCategories(),
	})
}

// handleCacheClear deletes every cached result.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		s.logger.Error("failed to clear cache", "error", err)
		if errors.Is(err, cache.ErrUnsupportedBackend) {
			s.writeError(w, http.StatusInternalServerError, "configured cache backend is not supported")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Cache cleared successfully"})
}

type cacheStatsResponse struct {
	Backend         string `json:"backend"`
	CacheDirectory  string `json:"cache_directory"`
	TotalEntries    int    `json:"total_entries"`
	TotalSizeBytes  int64  `json:"total_size_bytes"`
	RedisConfigured bool   `json:"redis_configured"`
}

// handleCacheStats reports the cache contents without mutating them.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to read cache stats", "error", err)
		if errors.Is(err, cache.ErrUnsupportedBackend) {
			s.writeError(w, http.StatusInternalServerError, "configured cache backend is not supported")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to read cache stats")
		return
	}

	s.writeJSON(w, http.StatusOK, cacheStatsResponse{
		Backend:         stats.Backend,
		CacheDirectory:  stats.Directory,
		TotalEntries:    stats.Entries,
		TotalSizeBytes:  stats.TotalBytes,
		RedisConfigured: s.cacheCfg.RedisConfigured(),
	})
}
