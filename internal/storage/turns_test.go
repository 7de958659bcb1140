package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_FileSystemDatabase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "turns.db")

	db, err := New(ctx, dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = os.Stat(dbPath)
	require.NoError(t, err)
	assert.Equal(t, dbPath, db.Path())
	require.NoError(t, db.Ping(ctx))

	require.NoError(t, db.RecordTurn(ctx, Turn{Outcome: "results", Code: "smsts"}))
	n, err := db.CountTurns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTopUnresolved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	turns := []Turn{
		{Outcome: "clarify", Utterance: "basketweaving"},
		{Outcome: "clarify", Utterance: "basketweaving"},
		{Outcome: "umbrella", Utterance: "nebosh"},
		{Outcome: "umbrella", Utterance: "nebosh"},
		{Outcome: "umbrella", Utterance: "nebosh"},
		{Outcome: "clarify", Utterance: "sssts", Code: "sssts"},
		{Outcome: "results", Utterance: "smstsinchelmsford", Code: "smsts"},
		{Outcome: "passthrough", Utterance: "hello"},
		{Outcome: "clarify", Utterance: ""},
	}
	for _, tt := range turns {
		require.NoError(t, db.RecordTurn(ctx, tt))
	}

	got, err := db.TopUnresolved(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []PhraseCount{
		{Utterance: "nebosh", Count: 3},
		{Utterance: "basketweaving", Count: 2},
	}, got)

	got, err = db.TopUnresolved(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCountByOutcome(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Now()

	require.NoError(t, db.RecordTurn(ctx, Turn{Outcome: "results", CreatedAt: now}))
	require.NoError(t, db.RecordTurn(ctx, Turn{Outcome: "results", CreatedAt: now}))
	require.NoError(t, db.RecordTurn(ctx, Turn{Outcome: "network_error", CreatedAt: now}))
	require.NoError(t, db.RecordTurn(ctx, Turn{Outcome: "results", CreatedAt: now.Add(-48 * time.Hour)}))

	got, err := db.CountByOutcome(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"results": 2, "network_error": 1}, got)
}

func TestDeleteOlderThan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Now()

	require.NoError(t, db.RecordTurn(ctx, Turn{Outcome: "results", CreatedAt: now.Add(-40 * 24 * time.Hour)}))
	require.NoError(t, db.RecordTurn(ctx, Turn{Outcome: "results", CreatedAt: now.Add(-31 * 24 * time.Hour)}))
	require.NoError(t, db.RecordTurn(ctx, Turn{Outcome: "clarify", CreatedAt: now}))

	deleted, err := db.DeleteOlderThan(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	n, err := db.CountTurns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, db.Vacuum(ctx))
}
