package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/railops/dispatch/models"
)

// sqliteSchema is embedded at compile time from schema.sql and applied by
// EnsureSchema on every start.
//
//go:embed schema.sql
var sqliteSchema string

// SQLiteStore is the default store: one SQLite file in WAL mode holding the
// fleet, suggestions and scenarios
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // SQLite allows one writer; serializes all writes
}

// NewSQLiteStore opens (creating if needed) the SQLite database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_fk=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection plus writeMu avoids "database is locked" when the
	// implementation timers write concurrently with request handlers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates tables if they don't exist
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Seed loads data into the store when it holds no trains yet.
// Returns false if the store was already populated.
func (s *SQLiteStore) Seed(ctx context.Context, data SeedData) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trains`).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count trains: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range data.Stations {
		if err := insertStation(ctx, tx, &data.Stations[i]); err != nil {
			return false, err
		}
	}
	for i := range data.Trains {
		if err := insertTrain(ctx, tx, &data.Trains[i]); err != nil {
			return false, err
		}
	}
	for i := range data.Alerts {
		if err := insertAlert(ctx, tx, &data.Alerts[i]); err != nil {
			return false, err
		}
	}
	for i := range data.Suggestions {
		if err := upsertSuggestion(ctx, tx, &data.Suggestions[i]); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit seed: %w", err)
	}
	return true, nil
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	execer
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// storedTimeLayout is RFC3339 with a fixed-width fraction so stored strings
// sort chronologically
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime renders t as the UTC string stored in TEXT columns
func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

// formatTimePtr is formatTime for nullable columns
func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// parseTime converts a stored RFC3339 string to time.Time
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// parseTimeString converts a nullable RFC3339 string to *time.Time
// Returns nil if the input is nil, empty or malformed
func parseTimeString(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil
	}
	return &t
}

// notFound wraps sql.ErrNoRows into the shared not-found error
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %s: %w", what, id, err)
}
