// Gemini model via the official SDK.

package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

type geminiModel struct {
	client      *genai.Client
	model       string
	tools       []*genai.Tool
	temperature float32
	maxTokens   int32
}

// newGeminiModel returns nil when apiKey is empty.
func newGeminiModel(ctx context.Context, pc ProviderConfig, model string, temperature float64, maxTokens int) (*geminiModel, error) {
	if pc.APIKey == "" {
		return nil, nil //nolint:nilnil // provider disabled
	}
	if model == "" {
		model = DefaultGeminiModels[0]
	}

	cc := &genai.ClientConfig{
		APIKey:  pc.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if pc.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: pc.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiModel{
		client:      client,
		model:       model,
		tools:       []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{BuildSearchFunction()}}},
		temperature: float32(temperature),
		maxTokens:   int32(maxTokens),
	}, nil
}

func (m *geminiModel) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	if m == nil {
		return nil, errors.New("gemini model is nil")
	}

	system, contents := toGeminiContents(messages)
	config := &genai.GenerateContentConfig{
		Tools: m.tools,
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAuto,
			},
		},
		Temperature:     genai.Ptr(m.temperature),
		MaxOutputTokens: m.maxTokens,
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	start := time.Now()
	result, err := m.client.Models.GenerateContent(ctx, m.model, contents, config)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "model call failed",
			"provider", ProviderGemini,
			"model", m.model,
			"messages", len(messages),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, WrapError(fmt.Errorf("generate content failed: %w", err), ProviderGemini, 0)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, WrapError(ErrEmptyResponse, ProviderGemini, 0)
	}

	if result.UsageMetadata != nil {
		slog.DebugContext(ctx, "model call completed",
			"provider", ProviderGemini,
			"model", m.model,
			"input_tokens", result.UsageMetadata.PromptTokenCount,
			"output_tokens", result.UsageMetadata.CandidatesTokenCount,
			"duration_ms", duration.Milliseconds())
	}

	out := &Completion{}
	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil && part.FunctionCall.Name == SearchFunctionName && out.Call == nil {
			out.Call = SearchCallFromMap(part.FunctionCall.Args)
			continue
		}
		text.WriteString(part.Text)
	}
	out.Content = strings.TrimSpace(text.String())
	return out, nil
}

// toGeminiContents splits off system turns (Gemini takes them as the system
// instruction) and maps assistant turns to the model role.
func toGeminiContents(messages []Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}

func (m *geminiModel) Provider() Provider {
	return ProviderGemini
}

// Close is a no-op; genai.Client needs no explicit cleanup.
func (m *geminiModel) Close() error {
	return nil
}
