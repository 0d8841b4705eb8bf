// Package storage persists imported courses and the import history in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver for database/sql

	"github.com/garyellow/coursetable/internal/config"
)

const memoryPath = ":memory:"

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
	path string
}

// New opens the database at dbPath, creating the file and schema as needed.
// Use ":memory:" for a throwaway database.
func New(ctx context.Context, dbPath string) (*DB, error) {
	if dbPath != memoryPath {
		if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == memoryPath {
		// Every connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(4)
		conn.SetMaxIdleConns(2)
	}
	conn.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// dsn applies the pragmas to every pooled connection, not just the first.
func dsn(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", config.DatabaseBusyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(ON)")
	if dbPath == memoryPath {
		return memoryPath + "?" + q.Encode()
	}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + dbPath + "?" + q.Encode()
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Ready reports whether the database can serve queries.
func (db *DB) Ready(ctx context.Context) error {
	var one int
	if err := db.conn.QueryRowContext(ctx, "SELECT 1 FROM courses LIMIT 1").Scan(&one); err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("database not ready: %w", err)
	}
	return nil
}

// ExecBatchContext prepares query once inside a transaction and hands the
// statement to fn. The transaction commits only if fn succeeds.
func (db *DB) ExecBatchContext(ctx context.Context, query string, fn func(stmt *sql.Stmt) error) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return execBatchTx(ctx, tx, query, fn)
	})
}

func execBatchTx(ctx context.Context, tx *sql.Tx, query string, fn func(stmt *sql.Stmt) error) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	return fn(stmt)
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// NewTestDB creates an in-memory database for testing.
func NewTestDB(ctx context.Context) (*DB, error) {
	return New(ctx, memoryPath)
}
