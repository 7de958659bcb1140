package catalog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisStore runs against a real server when COURSEBOT_TEST_REDIS_URL is set.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("COURSEBOT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("COURSEBOT_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	store := NewRedisStore(client)
	require.NoError(t, store.Clear(ctx))

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []Record{{Name: "SMSTS | Chelmsford", Price: "350", AvailableSpaces: "2"}}
	require.NoError(t, store.Save(ctx, want, time.Minute))

	got, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, "redis", store.Name())

	require.NoError(t, store.Clear(ctx))
}
