// Fallback chain for model-to-model and provider-to-provider failover.

package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/targetzero/coursebot/internal/metrics"
)

// FallbackModel tries each model in order. Each model is retried on
// transient errors; quota and unusable-response errors move on to the next
// model; permanent errors stop the chain.
type FallbackModel struct {
	models      []Model
	retryConfig RetryConfig
	metrics     *metrics.Metrics
}

// NewFallbackModel chains models. Nil entries are skipped.
func NewFallbackModel(cfg RetryConfig, m *metrics.Metrics, models ...Model) *FallbackModel {
	chain := make([]Model, 0, len(models))
	for _, md := range models {
		if md != nil {
			chain = append(chain, md)
		}
	}
	return &FallbackModel{models: chain, retryConfig: cfg, metrics: m}
}

// Complete returns the first successful completion in the chain.
func (f *FallbackModel) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	if f == nil || len(f.models) == 0 {
		return nil, errors.New("no model configured")
	}

	start := time.Now()
	var lastErr error
	for i, m := range f.models {
		callStart := time.Now()
		c, err := completeWithRetry(ctx, f.retryConfig, m, messages)
		f.metrics.RecordLLM(string(m.Provider()), statusLabel(err), time.Since(callStart).Seconds())
		if err == nil {
			if i > 0 {
				f.metrics.RecordLLMFallback(string(f.models[0].Provider()), string(m.Provider()))
				slog.InfoContext(ctx, "model fallback succeeded",
					"from", f.models[0].Provider(),
					"to", m.Provider(),
					"position", i,
					"duration", time.Since(start))
			}
			return c, nil
		}
		lastErr = err

		action := ClassifyError(err)
		slog.WarnContext(ctx, "model failed",
			"provider", m.Provider(),
			"position", i,
			"action", action,
			"error", err)

		if action == ActionFail || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("all models failed: %w", lastErr)
}

// Provider returns the primary provider.
func (f *FallbackModel) Provider() Provider {
	if f == nil || len(f.models) == 0 {
		return ""
	}
	return f.models[0].Provider()
}

// Len returns the chain length.
func (f *FallbackModel) Len() int {
	if f == nil {
		return 0
	}
	return len(f.models)
}

// Close closes every model in the chain.
func (f *FallbackModel) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, m := range f.models {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
