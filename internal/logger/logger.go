// Package logger wraps log/slog with the JSON layout the service ships to
// stdout and, optionally, Better Stack.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogbetterstack "github.com/samber/slog-betterstack"
)

// Logger is the application logger
type Logger struct {
	*slog.Logger
	level  slog.Level
	remote *Shipper
}

// Options configures NewWithOptions.
type Options struct {
	Level  string
	Writer io.Writer

	// BetterStackToken enables shipping logs to Better Stack through a
	// Shipper.
	BetterStackToken string
	Shipper          ShipperOptions
}

// New creates a new logger instance with JSON formatting
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a new logger instance with JSON formatting writing to the provided writer
func NewWithWriter(level string, w io.Writer) *Logger {
	return NewWithOptions(Options{Level: level, Writer: w})
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter("error", io.Discard)
}

// NewWithOptions stamps trace IDs onto each record, then writes it to the
// local writer and the optional remote sink.
func NewWithOptions(opts Options) *Logger {
	logLevel := ParseLevel(opts.Level)
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	handlers := []slog.Handler{
		slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       logLevel,
			ReplaceAttr: replaceAttr,
		}),
	}

	var remote *Shipper
	if opts.BetterStackToken != "" {
		remote = NewShipper(slogbetterstack.Option{
			Level: logLevel,
			Token: opts.BetterStackToken,
		}.NewBetterstackHandler(), opts.Shipper)
		handlers = append(handlers, remote)
	}

	handler := newTraceHandler(newTee(handlers...))
	return &Logger{Logger: slog.New(handler), level: logLevel, remote: remote}
}

// ParseLevel maps a config string to a slog level; unknown values are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.LevelKey:
		a.Key = "level"
		level := a.Value.String()
		if level == "WARN" {
			level = "warning"
		} else {
			level = strings.ToLower(level)
		}
		a.Value = slog.StringValue(level)
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

func (l *Logger) derive(next *slog.Logger) *Logger {
	return &Logger{Logger: next, level: l.level, remote: l.remote}
}

// GetLevel returns the configured minimum level.
func (l *Logger) GetLevel() slog.Level {
	return l.level
}

// WithModule creates a new entry with module field
func (l *Logger) WithModule(module string) *Logger {
	return l.derive(l.With("module", module))
}

// WithRequestID creates a new entry with request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.derive(l.With("request_id", requestID))
}

// WithError creates a new entry with error field
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.derive(l.With("error", err.Error()))
}

// WithField creates a new entry with a single field
func (l *Logger) WithField(key string, value any) *Logger {
	return l.derive(l.With(key, value))
}

// WithFields creates a new entry with multiple fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.derive(l.With(args...))
}

// Shutdown flushes the remote sink, if any.
func (l *Logger) Shutdown(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.remote.Shutdown(ctx)
}

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...any) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.Debug(fmt.Sprintf(format, args...))
}
