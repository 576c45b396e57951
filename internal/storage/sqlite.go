// Package storage provides the data persistence layer for the spending
// tracker. Persistence is connectivity-only for now: the database is opened
// and health-checked, but transactions are not yet written to it.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yehey123/spending-tracker/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrNotImplemented reports an operation that is declared but not yet backed
// by a database schema.
var ErrNotImplemented = errors.New("transaction persistence not implemented")

// SQLiteStorage holds the SQLite connection backing the transaction ledger.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage opens (creating if necessary) the SQLite database at
// dbPath and verifies the connection.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't benefit from multiple connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Ping verifies the database connection is alive. The health endpoint calls
// this on every request.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// ListTransactions returns the persisted transaction ledger. No writes reach
// the database yet, so the ledger is always empty; the connection is still
// checked so a broken database surfaces here rather than later.
func (s *SQLiteStorage) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := s.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return []model.Transaction{}, nil
}

// SaveTransaction will write txn to the ledger once a schema exists. Until
// then it reports ErrNotImplemented; the API layer echoes transactions back
// without persisting them.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, _ model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return ErrNotImplemented
}

// Path reports the database file location.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
