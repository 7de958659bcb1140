package genai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		attempt int
		initial time.Duration
		maxD    time.Duration
		// Full Jitter is random: only the upper bound is checked.
		upper time.Duration
	}{
		{"no delay before first attempt", 0, time.Second, 10 * time.Second, 0},
		{"negative attempt", -1, time.Second, 10 * time.Second, 0},
		{"first retry", 1, time.Second, 10 * time.Second, time.Second},
		{"second retry", 2, time.Second, 10 * time.Second, 2 * time.Second},
		{"capped", 10, time.Second, 5 * time.Second, 5 * time.Second},
		{"zero initial", 3, 0, time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for range 50 {
				d := CalculateBackoff(tt.attempt, tt.initial, tt.maxD)
				assert.GreaterOrEqual(t, d, time.Duration(0))
				assert.LessOrEqual(t, d, tt.upper)
			}
		})
	}
}

func TestSleep(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}

func TestHasSufficientBudget(t *testing.T) {
	t.Parallel()
	assert.True(t, HasSufficientBudget(context.Background(), time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.False(t, HasSufficientBudget(ctx, time.Second))
	assert.True(t, HasSufficientBudget(ctx, time.Millisecond))
}

func TestCompleteWithRetry(t *testing.T) {
	t.Parallel()
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("succeeds after transient errors", func(t *testing.T) {
		t.Parallel()
		m := &stubModel{provider: ProviderGroq, errs: []error{
			WrapError(errors.New("busy"), ProviderGroq, 503),
			WrapError(errors.New("busy"), ProviderGroq, 503),
		}, completion: &Completion{Content: "hi"}}

		c, err := completeWithRetry(context.Background(), cfg, m, nil)
		require.NoError(t, err)
		assert.Equal(t, "hi", c.Content)
		assert.Equal(t, 3, m.calls)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		t.Parallel()
		m := &stubModel{provider: ProviderGroq, errs: []error{WrapError(errors.New("bad key"), ProviderGroq, 401)}}

		_, err := completeWithRetry(context.Background(), cfg, m, nil)
		require.Error(t, err)
		assert.Equal(t, 1, m.calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		t.Parallel()
		busy := WrapError(errors.New("busy"), ProviderGroq, 500)
		m := &stubModel{provider: ProviderGroq, errs: []error{busy, busy, busy, busy}}

		_, err := completeWithRetry(context.Background(), cfg, m, nil)
		require.Error(t, err)
		assert.Equal(t, 3, m.calls)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m := &stubModel{provider: ProviderGroq}

		_, err := completeWithRetry(ctx, cfg, m, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, m.calls)
	})
}
