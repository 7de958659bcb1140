package logger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/targetzero/coursebot/internal/ctxutil"
)

// traceHandler stamps the turn's tracing identifiers from the context onto
// every record.
type traceHandler struct {
	next slog.Handler
}

func newTraceHandler(next slog.Handler) slog.Handler {
	return traceHandler{next: next}
}

func (h traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := ctxutil.TraceFrom(ctx).Attrs(); len(attrs) > 0 {
		r.Add(attrs...)
	}
	return h.next.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{next: h.next.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{next: h.next.WithGroup(name)}
}

// tee sends each record to every sink whose level admits it. A failing sink
// does not stop the others.
type tee []slog.Handler

func newTee(sinks ...slog.Handler) tee {
	var t tee
	for _, s := range sinks {
		if s != nil {
			t = append(t, s)
		}
	}
	return t
}

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range t {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range t {
		if s.Enabled(ctx, r.Level) {
			errs = append(errs, s.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (t tee) WithGroup(name string) slog.Handler {
	return t.each(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (t tee) each(fn func(slog.Handler) slog.Handler) tee {
	out := make(tee, len(t))
	for i, s := range t {
		out[i] = fn(s)
	}
	return out
}

// ShipperOptions tunes the background queue in front of a remote sink.
type ShipperOptions struct {
	// QueueSize bounds the records waiting to be sent; 1024 when unset.
	QueueSize int
	// DrainTimeout bounds Shutdown when ctx has no deadline; 5s when unset.
	DrainTimeout time.Duration
}

type shipment struct {
	ctx    context.Context
	record slog.Record
	sink   slog.Handler
}

type shipQueue struct {
	items   chan shipment
	drain   time.Duration
	mu      sync.RWMutex // guards closed against sends racing the close
	closed  bool
	dropped atomic.Uint64
	done    sync.WaitGroup
}

// Shipper hands records to a slow remote sink from a single background
// goroutine. When the queue is full the record is dropped and counted.
type Shipper struct {
	q    *shipQueue
	sink slog.Handler
}

// NewShipper starts the background goroutine. Call Shutdown to drain it.
func NewShipper(sink slog.Handler, opts ShipperOptions) *Shipper {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 5 * time.Second
	}
	q := &shipQueue{
		items: make(chan shipment, opts.QueueSize),
		drain: opts.DrainTimeout,
	}
	q.done.Go(func() {
		for s := range q.items {
			_ = s.sink.Handle(s.ctx, s.record)
		}
	})
	return &Shipper{q: q, sink: sink}
}

func (s *Shipper) Enabled(ctx context.Context, level slog.Level) bool {
	return s.sink.Enabled(ctx, level)
}

func (s *Shipper) Handle(ctx context.Context, r slog.Record) error {
	s.q.mu.RLock()
	defer s.q.mu.RUnlock()
	if s.q.closed {
		return nil
	}
	select {
	case s.q.items <- shipment{ctx: ctx, record: r.Clone(), sink: s.sink}:
	default:
		s.q.dropped.Add(1)
	}
	return nil
}

func (s *Shipper) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Shipper{q: s.q, sink: s.sink.WithAttrs(attrs)}
}

func (s *Shipper) WithGroup(name string) slog.Handler {
	return &Shipper{q: s.q, sink: s.sink.WithGroup(name)}
}

// Dropped returns how many records were discarded because the queue was
// full.
func (s *Shipper) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.q.dropped.Load()
}

// Shutdown stops accepting records and waits for the queue to drain.
func (s *Shipper) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.q.mu.Lock()
	if s.q.closed {
		s.q.mu.Unlock()
		return nil
	}
	s.q.closed = true
	close(s.q.items)
	s.q.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.q.drain)
		defer cancel()
	}

	drained := make(chan struct{})
	go func() {
		s.q.done.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
