package ratelimit

import (
	"sync"
	"time"
)

// WindowCounter caps requests over a rolling window using two fixed
// windows: the previous window's count is weighted by how much of it still
// overlaps the rolling window.
type WindowCounter struct {
	mu        sync.Mutex
	curr      int
	prev      int
	currStart time.Time
	window    time.Duration
	max       int
	now       func() time.Time
}

// NewWindowCounter returns nil (no cap) when max is not positive.
func NewWindowCounter(max int, window time.Duration) *WindowCounter {
	if max <= 0 {
		return nil
	}
	return newWindowCounterAt(max, window, time.Now)
}

func newWindowCounterAt(max int, window time.Duration, now func() time.Time) *WindowCounter {
	return &WindowCounter{
		currStart: now(),
		window:    window,
		max:       max,
		now:       now,
	}
}

// Allow consumes one request if the cap permits it.
func (w *WindowCounter) Allow() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.rotate()
	if w.count() >= float64(w.max) {
		return false
	}
	w.curr++
	return true
}

// Remaining returns the approximate number of requests left, or -1 when
// there is no cap.
func (w *WindowCounter) Remaining() int {
	if w == nil {
		return -1
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.rotate()
	return max(0, int(float64(w.max)-w.count()))
}

// Idle reports whether nothing was counted in either tracked window.
func (w *WindowCounter) Idle() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.rotate()
	return w.curr == 0 && w.prev == 0
}

// rotate must be called with mu held.
func (w *WindowCounter) rotate() {
	elapsed := w.now().Sub(w.currStart)
	if elapsed < w.window {
		return
	}
	passed := int(elapsed / w.window)
	if passed == 1 {
		w.prev = w.curr
	} else {
		w.prev = 0
	}
	w.curr = 0
	w.currStart = w.currStart.Add(time.Duration(passed) * w.window)
}

// count must be called with mu held.
func (w *WindowCounter) count() float64 {
	elapsed := w.now().Sub(w.currStart)
	overlap := float64(w.window-elapsed) / float64(w.window)
	overlap = min(max(overlap, 0), 1)
	return float64(w.curr) + float64(w.prev)*overlap
}
