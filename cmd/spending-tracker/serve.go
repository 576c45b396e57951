package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yehey123/spending-tracker/internal/cache"
	"github.com/yehey123/spending-tracker/internal/common"
	"github.com/yehey123/spending-tracker/internal/eligibility"
	"github.com/yehey123/spending-tracker/internal/server"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the spending tracker API server",
		Long: `Start the HTTP API: transaction intake, NAFFL eligibility checks backed
by the result cache, cache maintenance endpoints, and Prometheus metrics.`,
		RunE: runServe,
	}

	cmd.Flags().String("host", "0.0.0.0", "interface to listen on")
	cmd.Flags().Int("port", 8080, "port to listen on")
	_ = viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	baseStore, err := initStore(cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := server.NewMetrics("spending_tracker", registry)

	store := server.InstrumentStore(baseStore, metrics)
	memo := cache.NewMemoizer(store, cfg.Cache.TTL())
	checker := eligibility.NewService(memo, slog.Default())

	srv, err := server.New(server.Options{
		Config:      cfg,
		Store:       store,
		Eligibility: checker,
		Storage:     db,
		Metrics:     metrics,
		Gatherer:    registry,
		Logger:      slog.Default(),
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	common.LogInfo("spending tracker starting", common.Fields{
		"addr":          srv.Addr(),
		"cache_backend": cfg.Cache.Backend,
		"cache_ttl":     cfg.Cache.TTL().String(),
		"database":      cfg.Database.Path,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError(err, "failed to shut down cleanly", common.Fields{"addr": srv.Addr()})
		return err
	}

	slog.Info("server stopped")
	return nil
}
