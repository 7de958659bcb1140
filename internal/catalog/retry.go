package catalog

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"time"
)

// permanentError marks a failure that retrying cannot fix (4xx other than 429).
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// retryWithBackoff retries fn with exponential backoff and ±25% jitter.
// A permanentError stops immediately and its cause is returned.
//
//	attempt 0: immediate
//	attempt 1: ~initialDelay
//	attempt 2: ~initialDelay*2, capped at maxDelay
func retryWithBackoff(ctx context.Context, maxRetries int, initialDelay, maxDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var permErr *permanentError
		if errors.As(err, &permErr) {
			return permErr.Unwrap()
		}

		if attempt == maxRetries {
			break
		}

		delay := time.Duration(float64(initialDelay) * math.Pow(2, float64(attempt)))
		if maxDelay > 0 && delay > maxDelay {
			delay = maxDelay
		}

		halfDelay := int64(delay) / 2
		if halfDelay <= 0 {
			halfDelay = 1
		}
		jitterBig, err := rand.Int(rand.Reader, big.NewInt(halfDelay))
		if err != nil {
			jitterBig = big.NewInt(0)
		}
		delay = delay - delay/4 + time.Duration(jitterBig.Int64())

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return lastErr
}
