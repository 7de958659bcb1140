package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls   atomic.Int32
	err     error
	delay   time.Duration
	records []Record
}

func (s *countingSource) Courses(ctx context.Context) ([]Record, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func TestCachedSource_HitWithinTTL(t *testing.T) {
	src := &countingSource{records: []Record{{Name: "SMSTS | Chelmsford"}}}
	cs := NewCachedSource(src, NewMemoryStore(), time.Minute, nil, nil)

	for range 3 {
		records, err := cs.Courses(context.Background())
		require.NoError(t, err)
		assert.Len(t, records, 1)
	}
	assert.Equal(t, int32(1), src.calls.Load())
	assert.False(t, cs.LastRefresh().IsZero())
}

func TestCachedSource_ExpiresAfterTTL(t *testing.T) {
	src := &countingSource{records: []Record{{Name: "SMSTS | Chelmsford"}}}
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	cs := NewCachedSource(src, store, time.Minute, nil, nil)

	_, err := cs.Courses(context.Background())
	require.NoError(t, err)

	now = now.Add(61 * time.Second)
	_, err = cs.Courses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCachedSource_ErrorsAreNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("connection refused")}
	cs := NewCachedSource(src, NewMemoryStore(), time.Minute, nil, nil)

	_, err := cs.Courses(context.Background())
	require.Error(t, err)

	src.err = nil
	src.records = []Record{{Name: "SSSTS | Basildon"}}
	records, err := cs.Courses(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCachedSource_CollapsesConcurrentMisses(t *testing.T) {
	src := &countingSource{records: []Record{{Name: "SMSTS | Chelmsford"}}, delay: 50 * time.Millisecond}
	cs := NewCachedSource(src, NewMemoryStore(), time.Minute, nil, nil)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cs.Courses(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), src.calls.Load())
}

// gatedSource blocks until release is closed and fails if its context is
// cancelled first.
type gatedSource struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
	records []Record
}

func (s *gatedSource) Courses(ctx context.Context) ([]Record, error) {
	if s.calls.Add(1) == 1 {
		close(s.entered)
	}
	select {
	case <-s.release:
		return s.records, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCachedSource_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	src := &gatedSource{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		records: []Record{{Name: "SMSTS | Chelmsford"}},
	}
	cs := NewCachedSource(src, NewMemoryStore(), time.Minute, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := cs.Courses(ctx)
		first <- err
	}()
	<-src.entered
	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(src.release)
	}()
	records, err := cs.Courses(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(1), src.calls.Load(), "the cancelled caller's fetch is reused")
}

func TestCachedSource_ReturnsCopies(t *testing.T) {
	src := &countingSource{records: []Record{{Name: "SMSTS | Chelmsford"}}}
	cs := NewCachedSource(src, NewMemoryStore(), time.Minute, nil, nil)

	first, err := cs.Courses(context.Background())
	require.NoError(t, err)
	first[0].Name = "mutated"

	second, err := cs.Courses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SMSTS | Chelmsford", second[0].Name)
}

func TestCachedSource_ClampsTTL(t *testing.T) {
	cs := NewCachedSource(&countingSource{}, nil, time.Hour, nil, nil)
	assert.Equal(t, MaxCacheTTL, cs.ttl)

	cs = NewCachedSource(&countingSource{}, nil, 0, nil, nil)
	assert.Equal(t, MaxCacheTTL, cs.ttl)
}

func TestCachedSource_Invalidate(t *testing.T) {
	src := &countingSource{records: []Record{{Name: "SMSTS | Chelmsford"}}}
	cs := NewCachedSource(src, NewMemoryStore(), time.Minute, nil, nil)

	_, _ = cs.Courses(context.Background())
	require.NoError(t, cs.Invalidate(context.Background()))
	_, _ = cs.Courses(context.Background())
	assert.Equal(t, int32(2), src.calls.Load())
}
