package main

import (
	"fmt"

	"github.com/yehey123/spending-tracker/internal/cache"
	"github.com/yehey123/spending-tracker/internal/common"
	"github.com/yehey123/spending-tracker/internal/config"
	"github.com/yehey123/spending-tracker/internal/storage"
)

// loadConfig reads and validates the application configuration from viper.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, common.NewUserError("invalid configuration", err)
	}
	return cfg, nil
}

// initStore opens the configured cache store.
func initStore(cfg *config.Config) (cache.Store, error) {
	store, err := cache.NewStore(cfg.Cache.Backend, cfg.Cache.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache store: %w", err)
	}
	return store, nil
}

// initStorage opens the SQLite database with proper path expansion already
// applied by config.Load.
func initStorage(cfg *config.Config) (*storage.SQLiteStorage, error) {
	db, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return db, nil
}
