// OpenAI-compatible model (OpenAI, Groq, or any BaseURL).

package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrEmptyResponse is returned when a provider answers with no choices or
// candidates at all. It triggers fallback to the next model.
var ErrEmptyResponse = errors.New("empty response from model")

type openaiModel struct {
	client      openai.Client
	model       string
	tools       []openai.ChatCompletionToolUnionParam
	provider    Provider
	temperature float64
	maxTokens   int
}

// newOpenAIModel returns nil when apiKey is empty.
func newOpenAIModel(provider Provider, pc ProviderConfig, model string, temperature float64, maxTokens int, opts ...option.RequestOption) (*openaiModel, error) {
	if pc.APIKey == "" {
		return nil, nil //nolint:nilnil // provider disabled
	}
	if model == "" {
		return nil, fmt.Errorf("model is required for provider %s", provider)
	}

	baseURL := pc.BaseURL
	if baseURL == "" {
		var ok bool
		baseURL, ok = ProviderEndpoint[provider]
		if !ok {
			return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
		}
	}

	opts = append([]option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(pc.APIKey),
		// Retries are handled by completeWithRetry.
		option.WithMaxRetries(0),
	}, opts...)

	return &openaiModel{
		client:      openai.NewClient(opts...),
		model:       model,
		tools:       buildOpenAITools(),
		provider:    provider,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (m *openaiModel) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	if m == nil {
		return nil, errors.New("openai model is nil")
	}

	params := openai.ChatCompletionNewParams{
		Model:    m.model,
		Messages: toOpenAIMessages(messages),
		Tools:    m.tools,
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoAuto)),
		},
		Temperature: openai.Float(m.temperature),
		MaxTokens:   openai.Int(int64(m.maxTokens)),
	}

	start := time.Now()
	resp, err := m.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "model call failed",
			"provider", m.provider,
			"model", m.model,
			"messages", len(messages),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, WrapError(fmt.Errorf("chat completion failed: %w", err), m.provider, 0)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return nil, WrapError(ErrEmptyResponse, m.provider, 0)
	}

	slog.DebugContext(ctx, "model call completed",
		"provider", m.provider,
		"model", m.model,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
		"duration_ms", duration.Milliseconds())

	msg := resp.Choices[0].Message
	out := &Completion{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		if tc.Type == "function" && tc.Function.Name == SearchFunctionName {
			out.Call = DecodeSearchArgs(tc.Function.Arguments)
			break
		}
	}
	return out, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func (m *openaiModel) Provider() Provider {
	if m == nil {
		return ""
	}
	return m.provider
}

// Close is a no-op; the openai-go client holds no resources.
func (m *openaiModel) Close() error {
	return nil
}
