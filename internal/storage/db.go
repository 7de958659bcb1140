// Package storage keeps an analytics log of handled turns in SQLite.
// Only normalized utterances are stored; conversation history never is.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps the SQLite connection pool.
type DB struct {
	conn *sql.DB
	path string
}

// New opens the database at dbPath, creating its directory and schema.
func New(ctx context.Context, dbPath string) (*DB, error) {
	if dbPath != MemoryPath {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == MemoryPath {
		// Every connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(4)
		conn.SetMaxIdleConns(2)
	}
	conn.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

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

// NewTestDB creates an in-memory database for tests.
func NewTestDB() (*DB, error) {
	return New(context.Background(), MemoryPath)
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Ping checks the connection is usable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Vacuum reclaims space after large deletions.
func (db *DB) Vacuum(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "VACUUM")
	return err
}
