// Retry with exponential backoff and full jitter.

package genai

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math"
	"math/big"
	"time"
)

// CalculateBackoff returns the delay before retry number attempt (1-based):
//
//	delay = random(0, min(maxDelay, initial * 2^(attempt-1)))
//
// Reference: https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter/
func CalculateBackoff(attempt int, initial, maxDelay time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := time.Duration(float64(initial) * math.Pow(2, float64(attempt-1)))
	if delay > maxDelay {
		delay = maxDelay
	}
	if delay <= 0 {
		return 0
	}

	jitter, err := rand.Int(rand.Reader, big.NewInt(int64(delay)))
	if err != nil {
		return delay / 2
	}
	return time.Duration(jitter.Int64())
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HasSufficientBudget reports whether ctx leaves at least required before
// its deadline. A context without deadline always has budget.
func HasSufficientBudget(ctx context.Context, required time.Duration) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) >= required
}

// completeWithRetry calls m until it succeeds, returns a non-retryable
// error, or runs out of attempts or time.
func completeWithRetry(ctx context.Context, cfg RetryConfig, m Model, messages []Message) (*Completion, error) {
	attempts := max(cfg.MaxAttempts, 1)
	var lastErr error

	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, err := m.Complete(ctx, messages)
		if err == nil {
			return c, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry || attempt == attempts-1 {
			break
		}

		backoff := CalculateBackoff(attempt+1, cfg.InitialDelay, cfg.MaxDelay)
		if !HasSufficientBudget(ctx, backoff) {
			break
		}

		slog.DebugContext(ctx, "retrying model call",
			"provider", m.Provider(),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)

		if err := Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}
