package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"

	"github.com/targetzero/coursebot/internal/ctxutil"
	"github.com/targetzero/coursebot/internal/logger"
	"github.com/targetzero/coursebot/internal/metrics"
)

// MaxCacheTTL bounds how stale cached seat counts may get.
const MaxCacheTTL = 5 * time.Minute

// sharedFetchTimeout bounds an upstream fetch that no longer belongs to the
// caller that started it.
const sharedFetchTimeout = time.Minute

// cacheKey is the only key: the catalog is always fetched whole.
const cacheKey = "coursebot:catalog"

// Store holds one cached copy of the whole catalog.
type Store interface {
	Load(ctx context.Context) ([]Record, bool, error)
	Save(ctx context.Context, records []Record, ttl time.Duration) error
	Clear(ctx context.Context) error
	Name() string
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	expires time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Load implements Store.
func (s *MemoryStore) Load(context.Context) ([]Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.records == nil || !s.now().Before(s.expires) {
		return nil, false, nil
	}
	return s.records, true, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, records []Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.expires = s.now().Add(ttl)
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

// Name implements Store.
func (s *MemoryStore) Name() string { return "memory" }

// RedisStore shares the cached catalog between replicas.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) ([]Record, bool, error) {
	data, err := s.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false, fmt.Errorf("decode cached catalog: %w", err)
	}
	return records, true, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, records []Record, ttl time.Duration) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, cacheKey, data, ttl).Err()
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, cacheKey).Err()
}

// Name implements Store.
func (s *RedisStore) Name() string { return "redis" }

// CachedSource serves the catalog from a Store with a short TTL and
// collapses concurrent misses into a single upstream fetch.
// Fetch failures are never cached and never answered with expired data.
type CachedSource struct {
	src     Source
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	log     *logger.Logger

	mu          sync.RWMutex
	lastRefresh time.Time
}

// NewCachedSource wraps src. ttl is clamped to (0, MaxCacheTTL].
func NewCachedSource(src Source, store Store, ttl time.Duration, m *metrics.Metrics, log *logger.Logger) *CachedSource {
	if ttl <= 0 || ttl > MaxCacheTTL {
		ttl = MaxCacheTTL
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &CachedSource{
		src:     src,
		store:   store,
		ttl:     ttl,
		metrics: m,
		log:     log.WithModule("catalog"),
	}
}

// Courses implements Source.
func (c *CachedSource) Courses(ctx context.Context) ([]Record, error) {
	records, ok, err := c.store.Load(ctx)
	if err != nil {
		c.log.WithError(err).WarnContext(ctx, "Catalog cache read failed")
	}
	if ok {
		c.metrics.RecordCacheHit(c.store.Name())
		return clone(records), nil
	}
	c.metrics.RecordCacheMiss(c.store.Name())

	// The fetch is shared, so one caller giving up must not fail the others.
	ch := c.group.DoChan(cacheKey, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), sharedFetchTimeout)
		defer cancel()
		fresh, err := c.src.Courses(fetchCtx)
		if err != nil {
			return nil, err
		}
		if err := c.store.Save(fetchCtx, fresh, c.ttl); err != nil {
			c.log.WithError(err).WarnContext(fetchCtx, "Catalog cache write failed")
		}
		c.mu.Lock()
		c.lastRefresh = time.Now()
		c.mu.Unlock()
		return fresh, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.metrics.RecordSingleflightDedup("catalog")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]Record)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the cached copy.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// LastRefresh reports when the upstream was last fetched successfully.
func (c *CachedSource) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

func clone(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
