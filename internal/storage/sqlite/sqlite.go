// Package sqlite provides a SQLite-backed implementation of the
// ledger.Store interface.
//
// State transitions run inside BEGIN IMMEDIATE transactions (the
// _txlock=immediate DSN option), SQLite's equivalent of row-level
// locking: the write lock is taken when the transaction starts, so two
// concurrent transitions serialize and the loser re-reads committed
// state. Lock waits are bounded by busy_timeout; exceeding it surfaces
// as ledger.ErrBusy.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/roomledger/roomledger/internal/ledger"
)

// Ensure SQLiteStore implements ledger.Store
var _ ledger.Store = (*SQLiteStore)(nil)

// SQLiteStore implements ledger.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver. The pragmas ride in the DSN so
	// they apply to every pooled connection, not just the one a plain
	// Exec happens to check out: write transactions take the database
	// lock up front, foreign keys are enforced, and lock waits are
	// bounded so contended transitions fail as Busy instead of blocking
	// indefinitely.
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// begin starts a write transaction, mapping lock-timeout failures to
// ledger.ErrBusy.
func (s *SQLiteStore) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if isBusy(err) {
			return nil, fmt.Errorf("begin transaction: %w", ledger.ErrBusy)
		}
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// commit commits a transaction, mapping lock-timeout failures to
// ledger.ErrBusy.
func commit(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		if isBusy(err) {
			return fmt.Errorf("commit transaction: %w", ledger.ErrBusy)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isBusy reports whether err is SQLite's lock-contention failure.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// wrapErr wraps a failed statement, mapping lock contention to
// ledger.ErrBusy. SQLITE_BUSY can surface on any statement of a write
// path, not just BEGIN or COMMIT, so every write statement classifies
// its error through here.
func wrapErr(action string, err error) error {
	if isBusy(err) {
		return fmt.Errorf("%s: %w", action, ledger.ErrBusy)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

// nullable returns nil for empty strings so optional TEXT columns store
// NULL instead of "".
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
