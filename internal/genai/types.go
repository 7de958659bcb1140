// Package genai is the model collaborator of the course assistant. It sends
// the conversation to an LLM together with the searchCourses function
// declaration and returns either the function call or the free-text reply.
//
// Architecture:
//   - Gemini: google.golang.org/genai (official SDK)
//   - OpenAI and Groq: github.com/openai/openai-go/v3 (Groq via its
//     OpenAI-compatible endpoint)
//
// Fallback strategy:
//  1. Model retry: the same model is retried with exponential backoff
//  2. Model chain: next model in the provider's model list
//  3. Provider chain: next provider in the configured order
package genai

import (
	"context"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderOpenAI is api.openai.com, or any endpoint set via BaseURL.
	ProviderOpenAI Provider = "openai"
	// ProviderGroq is Groq's OpenAI-compatible API.
	ProviderGroq Provider = "groq"
	// ProviderGemini is Google's Gemini API (non-OpenAI-compatible).
	ProviderGemini Provider = "gemini"
)

// ProviderEndpoint is the default base URL for OpenAI-compatible providers.
var ProviderEndpoint = map[Provider]string{
	ProviderOpenAI: "https://api.openai.com/v1/",
	ProviderGroq:   "https://api.groq.com/openai/v1/",
}

// IsOpenAICompatible reports whether p speaks the OpenAI chat API.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

func (p Provider) String() string {
	return string(p)
}

// ParseProvider accepts a provider name from configuration.
func ParseProvider(s string) (Provider, bool) {
	switch p := Provider(s); p {
	case ProviderOpenAI, ProviderGroq, ProviderGemini:
		return p, true
	default:
		return "", false
	}
}

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the payload sent to the model.
type Message struct {
	Role    string
	Content string
}

// SearchArgs are the arguments of a searchCourses call. Every field is
// optional; the model may leave out or get wrong any of them.
type SearchArgs struct {
	Keyword                string   `json:"keyword,omitempty"`
	Month                  string   `json:"month,omitempty"`
	Location               string   `json:"location,omitempty"`
	Type                   string   `json:"type,omitempty"`
	RequireAvailableSpaces bool     `json:"require_available_spaces,omitempty"`
	Price                  *float64 `json:"price,omitempty"`
	StartDate              string   `json:"start_date,omitempty"`
	EndDate                string   `json:"end_date,omitempty"`
	AvailableSpaces        *int     `json:"available_spaces,omitempty"`
}

// SearchCall is a searchCourses invocation returned by the model.
type SearchCall struct {
	Args SearchArgs
	// Malformed is set when the raw arguments could not be decoded; Args
	// then holds whatever fields survived (usually none).
	Malformed bool
	Raw       string
}

// Completion is the model's answer to one turn: a function call, free text,
// or neither.
type Completion struct {
	Call    *SearchCall
	Content string
}

// Model is the model collaborator.
type Model interface {
	// Complete sends the conversation and returns the model's answer.
	Complete(ctx context.Context, messages []Message) (*Completion, error)
	// Provider returns the provider type for metrics.
	Provider() Provider
	// Close releases any resources held by the model.
	Close() error
}

// RetryConfig defines retry behavior for LLM API calls.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// ProviderConfig holds configuration for a single LLM provider.
type ProviderConfig struct {
	APIKey string
	// Models is tried in order; the first is primary.
	Models []string
	// BaseURL overrides ProviderEndpoint for OpenAI-compatible providers.
	BaseURL string
}

// LLMConfig holds configuration for all LLM providers.
type LLMConfig struct {
	// Providers is the fallback order. Providers without an API key are
	// skipped.
	Providers []Provider

	OpenAI ProviderConfig
	Groq   ProviderConfig
	Gemini ProviderConfig

	Temperature float64
	MaxTokens   int

	RetryConfig RetryConfig
}

// Default model chains. The first element is primary.
var (
	DefaultOpenAIModels = []string{"gpt-4o-mini", "gpt-3.5-turbo"}
	DefaultGroqModels   = []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"}
	DefaultGeminiModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}

	DefaultProviders = []Provider{ProviderOpenAI, ProviderGroq, ProviderGemini}
)

// Retry and generation defaults.
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second

	DefaultTemperature = 0.2
	DefaultMaxTokens   = 512
)

// HasAnyProvider returns true if at least one provider has an API key.
func (c *LLMConfig) HasAnyProvider() bool {
	return c.OpenAI.APIKey != "" || c.Groq.APIKey != "" || c.Gemini.APIKey != ""
}

// GetProviderConfig returns the configuration for p, or nil.
func (c *LLMConfig) GetProviderConfig(p Provider) *ProviderConfig {
	switch p {
	case ProviderOpenAI:
		return &c.OpenAI
	case ProviderGroq:
		return &c.Groq
	case ProviderGemini:
		return &c.Gemini
	default:
		return nil
	}
}

// ConfiguredProviders returns the providers with API keys, in c.Providers
// order.
func (c *LLMConfig) ConfiguredProviders() []Provider {
	result := make([]Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		if pc := c.GetProviderConfig(p); pc != nil && pc.APIKey != "" {
			result = append(result, p)
		}
	}
	return result
}
