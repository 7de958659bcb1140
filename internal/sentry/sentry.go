// Package sentry initializes error reporting. Errors go to any
// Sentry-compatible backend, Better Stack Errors included.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/targetzero/coursebot/internal/ctxutil"
)

// Config holds error reporting configuration.
type Config struct {
	// DSN is the full client key URL. When empty, Token and Host build one.
	DSN string

	// Token and Host address Better Stack Errors: https://$TOKEN@$HOST/1.
	Token string
	Host  string

	Environment string
	Release     string

	// SampleRate controls error sampling (0.0-1.0, default 1.0).
	SampleRate float64

	Debug bool
}

// Enabled reports whether the configuration turns reporting on.
func (c Config) Enabled() bool {
	return c.DSN != "" || c.Token != ""
}

// Initialize sets up the SDK. Without a DSN or token reporting stays off
// and nil is returned.
func Initialize(cfg Config) error {
	if !cfg.Enabled() {
		return nil
	}

	dsn := cfg.DSN
	if dsn == "" {
		if cfg.Host == "" {
			return errors.New("sentry host is required when token is provided")
		}
		// The project ID is required by the SDK and ignored by Better Stack.
		dsn = fmt.Sprintf("https://%s@%s/1", cfg.Token, cfg.Host)
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureExceptionWithContext reports err on the request's hub, tagged with
// the request and chat IDs carried by ctx.
func CaptureExceptionWithContext(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if id, ok := ctxutil.GetRequestID(ctx); ok {
			scope.SetTag("request_id", id)
		}
		if chat := ctxutil.GetChatID(ctx); chat != "" {
			scope.SetTag("chat_id", chat)
		}
		hub.CaptureException(err)
	})
}
