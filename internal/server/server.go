// Package server implements the spending tracker HTTP API: transaction
// intake, NAFFL eligibility checks answered through the shared result cache,
// and cache maintenance endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yehey123/spending-tracker/internal/cache"
	"github.com/yehey123/spending-tracker/internal/config"
	"github.com/yehey123/spending-tracker/internal/eligibility"
	"github.com/yehey123/spending-tracker/internal/model"
)

// Storage is the persistence surface the server depends on.
type Storage interface {
	Ping(ctx context.Context) error
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
}

// Options configures New. Config, Store, Eligibility, Storage, Metrics and
// Gatherer are required.
type Options struct {
	Config      *config.Config
	Store       cache.Store
	Eligibility *eligibility.Service
	Storage     Storage
	Metrics     *Metrics
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
	Version     string
}

// Server serves the spending tracker HTTP API.
type Server struct {
	httpServer  *http.Server
	store       cache.Store
	eligibility *eligibility.Service
	storage     Storage
	metrics     *Metrics
	logger      *slog.Logger
	cacheCfg    config.Cache
	version     string
}

// New assembles the server from its dependencies.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store cannot be nil")
	}
	if opts.Eligibility == nil {
		return nil, errors.New("eligibility service cannot be nil")
	}
	if opts.Storage == nil {
		return nil, errors.New("storage cannot be nil")
	}
	if opts.Metrics == nil || opts.Gatherer == nil {
		return nil, errors.New("metrics cannot be nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		store:       opts.Store,
		eligibility: opts.Eligibility,
		storage:     opts.Storage,
		metrics:     opts.Metrics,
		logger:      logger,
		cacheCfg:    opts.Config.Cache,
		version:     version,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("GET /eligibility/check", s.handleEligibilityCheck)
	mux.HandleFunc("POST /cache/clear", s.handleCacheClear)
	mux.HandleFunc("GET /cache/stats", s.handleCacheStats)
	mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:              opts.Config.Server.Addr(),
		Handler:           s.instrument(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler exposes the full middleware-wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr reports the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the server until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// routeLabel bounds the metric route label: unknown paths are folded into
// "other" so junk URLs cannot inflate label cardinality.
func routeLabel(path string) string {
	switch path {
	case "/", "/health", "/transactions", "/eligibility/check", "/cache/clear", "/cache/stats", "/metrics":
		return path
	default:
		return "other"
	}
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument wraps the router with request logging and metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		s.metrics.RecordRequest(routeLabel(r.URL.Path), r.Method, rec.status, duration)
		s.logger.Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", duration)
	})
}
