// Package ctxutil carries per-turn tracing identifiers through a context.
package ctxutil

import (
	"context"
)

// Trace identifies the turn being processed. Zero fields are unset.
type Trace struct {
	// UserID is the LINE sender, or the client address for the web API.
	UserID string
	// ChatID identifies the conversation whose history is being extended.
	ChatID    string
	RequestID string
}

type traceKey struct{}

// TraceFrom returns the trace stored in ctx, or the zero Trace.
func TraceFrom(ctx context.Context) Trace {
	t, _ := ctx.Value(traceKey{}).(Trace)
	return t
}

func withTrace(ctx context.Context, update func(*Trace)) context.Context {
	t := TraceFrom(ctx)
	update(&t)
	return context.WithValue(ctx, traceKey{}, t)
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withTrace(ctx, func(t *Trace) { t.UserID = userID })
}

func GetUserID(ctx context.Context) string {
	return TraceFrom(ctx).UserID
}

// WithChatID returns a copy of ctx carrying chatID.
func WithChatID(ctx context.Context, chatID string) context.Context {
	return withTrace(ctx, func(t *Trace) { t.ChatID = chatID })
}

func GetChatID(ctx context.Context) string {
	return TraceFrom(ctx).ChatID
}

// WithRequestID returns a copy of ctx carrying requestID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withTrace(ctx, func(t *Trace) { t.RequestID = requestID })
}

// GetRequestID reports the request ID and whether one was set.
func GetRequestID(ctx context.Context) (string, bool) {
	id := TraceFrom(ctx).RequestID
	return id, id != ""
}

// PreserveTracing detaches ctx from its parent's cancellation and deadline
// while keeping its values. LINE turns use it to keep working after the
// webhook response has been written.
func PreserveTracing(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// Attrs returns the set trace fields as alternating key/value pairs for
// slog.
func (t Trace) Attrs() []any {
	var out []any
	if t.UserID != "" {
		out = append(out, "user_id", t.UserID)
	}
	if t.ChatID != "" {
		out = append(out, "chat_id", t.ChatID)
	}
	if t.RequestID != "" {
		out = append(out, "request_id", t.RequestID)
	}
	return out
}
