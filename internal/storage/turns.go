package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Turn is one handled conversational turn.
type Turn struct {
	RequestID string
	Code      string
	Outcome   string
	// Utterance must already be normalized.
	Utterance string
	Records   int
	Duration  time.Duration
	CreatedAt time.Time
}

// PhraseCount is an utterance and how often it was seen.
type PhraseCount struct {
	Utterance string `json:"utterance"`
	Count     int    `json:"count"`
}

// unresolvedOutcomes are the outcomes that end without a course code when
// the phrase could not be mapped.
var unresolvedOutcomes = []any{"clarify", "umbrella"}

// RecordTurn appends a turn to the log. A zero CreatedAt means now.
func (db *DB) RecordTurn(ctx context.Context, t Turn) error {
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	query := `
		INSERT INTO turns (request_id, code, outcome, utterance_norm, records, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, query,
		t.RequestID, t.Code, t.Outcome, t.Utterance, t.Records, t.Duration.Milliseconds(), created.Unix())
	if err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}

	if d := time.Since(start); d > 100*time.Millisecond {
		slog.WarnContext(ctx, "slow database operation",
			"operation", "RecordTurn",
			"duration_ms", d.Milliseconds())
	}
	return nil
}

// TopUnresolved returns the phrases most often left without a course code,
// most frequent first.
func (db *DB) TopUnresolved(ctx context.Context, limit int) ([]PhraseCount, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT utterance_norm, COUNT(*) AS n
		FROM turns
		WHERE code = '' AND utterance_norm != '' AND outcome IN (?, ?)
		GROUP BY utterance_norm
		ORDER BY n DESC, utterance_norm ASC
		LIMIT ?
	`
	args := append(append([]any{}, unresolvedOutcomes...), limit)
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved phrases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []PhraseCount
	for rows.Next() {
		var p PhraseCount
		if err := rows.Scan(&p.Utterance, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to scan unresolved phrase: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountTurns returns the number of logged turns.
func (db *DB) CountTurns(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM turns").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return n, nil
}

// CountByOutcome returns turn counts per outcome since the given time.
func (db *DB) CountByOutcome(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT outcome, COUNT(*) FROM turns WHERE created_at >= ? GROUP BY outcome", since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		out[outcome] = n
	}
	return out, rows.Err()
}

// DeleteOlderThan removes turns older than ttl and returns how many were
// deleted.
func (db *DB) DeleteOlderThan(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).Unix()
	res, err := db.conn.ExecContext(ctx, "DELETE FROM turns WHERE created_at < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old turns: %w", err)
	}
	return res.RowsAffected()
}
