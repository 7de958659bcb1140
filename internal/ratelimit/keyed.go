// Package ratelimit limits request rates per client key with a token bucket
// and an optional rolling daily cap.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/targetzero/coursebot/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	// Name labels the limiter in metrics ("api", "webhook").
	Name string

	// Token bucket settings.
	RequestsPerSecond float64
	Burst             int

	// DailyLimit caps requests per key over a rolling 24h window; 0 disables it.
	DailyLimit int

	// CleanupPeriod is how often idle keys are dropped.
	CleanupPeriod time.Duration

	Metrics *metrics.Metrics
}

// KeyedLimiter keeps one limiter per key and forgets keys that have gone
// idle. It is safe for concurrent use.
type KeyedLimiter struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
	cfg     KeyedConfig
	stopCh  chan struct{}
	once    sync.Once
}

type keyedEntry struct {
	bucket *rate.Limiter
	daily  *WindowCounter
}

// NewKeyedLimiter creates a limiter and starts its cleanup loop. Call Stop
// when done.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	kl := &KeyedLimiter{
		entries: make(map[string]*keyedEntry),
		cfg:     cfg,
		stopCh:  make(chan struct{}),
	}
	go kl.cleanupLoop()
	return kl
}

// Allow reports whether a request for key may proceed, consuming one token.
// An empty key is always allowed.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	e := kl.entry(key)
	if e.daily != nil && e.daily.Remaining() == 0 {
		kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
		return false
	}
	if !e.bucket.Allow() {
		kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
		return false
	}
	e.daily.Allow()
	return true
}

// Available returns the tokens currently available for key.
func (kl *KeyedLimiter) Available(key string) float64 {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	e, ok := kl.entries[key]
	if !ok {
		return float64(kl.cfg.Burst)
	}
	return e.bucket.Tokens()
}

// DailyRemaining returns the remaining daily quota for key, or -1 when no
// daily cap is configured.
func (kl *KeyedLimiter) DailyRemaining(key string) int {
	if kl.cfg.DailyLimit <= 0 {
		return -1
	}
	kl.mu.Lock()
	defer kl.mu.Unlock()

	e, ok := kl.entries[key]
	if !ok {
		return kl.cfg.DailyLimit
	}
	return e.daily.Remaining()
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.entries)
}

// entry must be called with mu held.
func (kl *KeyedLimiter) entry(key string) *keyedEntry {
	if e, ok := kl.entries[key]; ok {
		return e
	}
	e := &keyedEntry{
		bucket: rate.NewLimiter(rate.Limit(kl.cfg.RequestsPerSecond), kl.cfg.Burst),
		daily:  NewWindowCounter(kl.cfg.DailyLimit, 24*time.Hour),
	}
	kl.entries[key] = e
	return e
}

// Cleanup drops keys whose bucket has refilled and whose daily window is
// empty, then returns the number still tracked.
func (kl *KeyedLimiter) Cleanup() int {
	kl.mu.Lock()
	for key, e := range kl.entries {
		if e.bucket.Tokens() >= float64(kl.cfg.Burst) && e.daily.Idle() {
			delete(kl.entries, key)
		}
	}
	n := len(kl.entries)
	kl.mu.Unlock()

	kl.cfg.Metrics.SetRateLimiterKeys(kl.cfg.Name, n)
	return n
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.Cleanup()
		}
	}
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.once.Do(func() { close(kl.stopCh) })
}
