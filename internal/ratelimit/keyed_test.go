package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/targetzero/coursebot/internal/logger"
	"github.com/targetzero/coursebot/internal/metrics"
)

func TestKeyedLimiter_Basic(t *testing.T) {
	t.Parallel()
	kl := NewKeyedLimiter(KeyedConfig{Name: "test", RequestsPerSecond: 0.001, Burst: 2, CleanupPeriod: time.Hour})
	defer kl.Stop()

	assert.True(t, kl.Allow("a"))
	assert.True(t, kl.Allow("a"))
	assert.False(t, kl.Allow("a"), "burst exhausted")
	assert.True(t, kl.Allow("b"), "keys are independent")
	assert.True(t, kl.Allow(""), "empty key is never limited")
	assert.Equal(t, 2, kl.ActiveCount())
}

func TestKeyedLimiter_DailyLimit(t *testing.T) {
	t.Parallel()
	kl := NewKeyedLimiter(KeyedConfig{Name: "daily", RequestsPerSecond: 1000, Burst: 100, DailyLimit: 3, CleanupPeriod: time.Hour})
	defer kl.Stop()

	assert.Equal(t, 3, kl.DailyRemaining("a"))
	for range 3 {
		require.True(t, kl.Allow("a"))
	}
	assert.False(t, kl.Allow("a"))
	assert.Equal(t, 0, kl.DailyRemaining("a"))

	unlimited := NewKeyedLimiter(KeyedConfig{Name: "x", RequestsPerSecond: 1, Burst: 1})
	defer unlimited.Stop()
	assert.Equal(t, -1, unlimited.DailyRemaining("a"))
}

func TestKeyedLimiter_DropMetrics(t *testing.T) {
	t.Parallel()
	m := metrics.New(prometheus.NewRegistry())
	kl := NewKeyedLimiter(KeyedConfig{Name: "api", RequestsPerSecond: 0.001, Burst: 1, Metrics: m, CleanupPeriod: time.Hour})
	defer kl.Stop()

	kl.Allow("a")
	kl.Allow("a")
	kl.Allow("a")
	assert.InDelta(t, 2, testutil.ToFloat64(m.RateLimiterDropped.WithLabelValues("api")), 0)
}

func TestKeyedLimiter_Cleanup(t *testing.T) {
	t.Parallel()
	m := metrics.New(prometheus.NewRegistry())
	kl := NewKeyedLimiter(KeyedConfig{Name: "api", RequestsPerSecond: 0.001, Burst: 5, Metrics: m, CleanupPeriod: time.Hour})
	defer kl.Stop()

	kl.Allow("busy")
	kl.entry("idle")

	assert.Equal(t, 1, kl.Cleanup(), "only the key with spent tokens stays")
	assert.InDelta(t, 1, testutil.ToFloat64(m.RateLimiterKeys.WithLabelValues("api")), 0)
	assert.InDelta(t, 5, kl.Available("never-seen"), 0)
}

func TestKeyedLimiter_Concurrent(t *testing.T) {
	t.Parallel()
	kl := NewKeyedLimiter(KeyedConfig{Name: "c", RequestsPerSecond: 0.001, Burst: 50, CleanupPeriod: time.Hour})
	defer kl.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 100 {
		wg.Go(func() {
			if kl.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestKeyedLimiter_StopTwice(t *testing.T) {
	t.Parallel()
	kl := NewKeyedLimiter(KeyedConfig{Name: "s", RequestsPerSecond: 1, Burst: 1})
	kl.Stop()
	assert.NotPanics(t, kl.Stop)
}

func TestWindowCounter(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	w := newWindowCounterAt(4, time.Hour, clock)

	for range 4 {
		require.True(t, w.Allow())
	}
	assert.False(t, w.Allow())

	// Half way through the next window half of the previous count remains.
	now = now.Add(90 * time.Minute)
	assert.Equal(t, 2, w.Remaining())
	assert.False(t, w.Idle())

	// Two windows later nothing carries over.
	now = now.Add(2 * time.Hour)
	assert.Equal(t, 4, w.Remaining())
	assert.True(t, w.Idle())

	var disabled *WindowCounter
	assert.True(t, disabled.Allow())
	assert.Equal(t, -1, disabled.Remaining())
	assert.Nil(t, NewWindowCounter(0, time.Hour))
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)
	kl := NewKeyedLimiter(KeyedConfig{Name: "api", RequestsPerSecond: 0.001, Burst: 1, CleanupPeriod: time.Hour})
	defer kl.Stop()

	r := gin.New()
	r.POST("/api/ask", Middleware(kl, logger.Discard()), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/ask", http.NoBody)
		req.RemoteAddr = "203.0.113.7:4000"
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Rate limit exceeded")
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}
