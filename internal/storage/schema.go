package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	return createTurnsTable(ctx, db)
}

func createTurnsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL,
		utterance_norm TEXT NOT NULL DEFAULT '',
		records INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_created_at ON turns(created_at);
	CREATE INDEX IF NOT EXISTS idx_turns_outcome_code ON turns(outcome, code);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create turns table: %w", err)
	}
	return nil
}
