// Factory for the configured model chain.

package genai

import (
	"context"
	"log/slog"

	domerrors "github.com/targetzero/coursebot/internal/errors"
	"github.com/targetzero/coursebot/internal/metrics"
)

// NewModel builds a FallbackModel over every configured provider and model,
// in cfg.Providers order. Without any API key it returns
// ErrMissingCredentials; the transport reports that per request.
func NewModel(ctx context.Context, cfg LLMConfig, m *metrics.Metrics) (Model, error) {
	if !cfg.HasAnyProvider() {
		return nil, domerrors.ErrMissingCredentials
	}

	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var models []Model
	for _, provider := range cfg.ConfiguredProviders() {
		pc := *cfg.GetProviderConfig(provider)
		names := pc.Models
		if len(names) == 0 {
			names = defaultModels(provider)
		}

		for _, name := range names {
			var (
				md  Model
				err error
			)
			if provider == ProviderGemini {
				var g *geminiModel
				g, err = newGeminiModel(ctx, pc, name, temperature, maxTokens)
				if g != nil {
					md = g
				}
			} else {
				var o *openaiModel
				o, err = newOpenAIModel(provider, pc, name, temperature, maxTokens)
				if o != nil {
					md = o
				}
			}
			if err != nil {
				slog.WarnContext(ctx, "failed to create model", "provider", provider, "model", name, "error", err)
				continue
			}
			if md != nil {
				models = append(models, md)
			}
		}
	}

	if len(models) == 0 {
		return nil, domerrors.ErrMissingCredentials
	}

	slog.InfoContext(ctx, "model chain configured",
		"primary", models[0].Provider(),
		"chain_size", len(models))

	return NewFallbackModel(cfg.RetryConfig, m, models...), nil
}

func defaultModels(p Provider) []string {
	switch p {
	case ProviderOpenAI:
		return DefaultOpenAIModels
	case ProviderGroq:
		return DefaultGroqModels
	case ProviderGemini:
		return DefaultGeminiModels
	default:
		return nil
	}
}

// DefaultLLMConfig returns the default provider order and model chains.
// API keys must be provided separately.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Providers:   DefaultProviders,
		OpenAI:      ProviderConfig{Models: DefaultOpenAIModels},
		Groq:        ProviderConfig{Models: DefaultGroqModels},
		Gemini:      ProviderConfig{Models: DefaultGeminiModels},
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		RetryConfig: DefaultRetryConfig(),
	}
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}
