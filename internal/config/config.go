// Package config loads application configuration from environment
// variables, after reading an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/targetzero/coursebot/internal/genai"
)

// Config holds all application configuration.
type Config struct {
	// Server
	Port            string
	LogLevel        string
	Environment     string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	// Turn log
	DataDir          string
	TurnLogRetention time.Duration
	CleanupInterval  time.Duration

	// Course catalog
	CatalogURL        string
	CatalogTimeout    time.Duration
	CatalogMaxRetries int
	CatalogCacheTTL   time.Duration
	RedisURL          string // empty keeps the cache in process

	// CodesFile replaces the embedded course-code catalog.
	CodesFile string

	// Dialogue
	HistoryWindow int
	MaxResults    int // 0 lists every match

	LLM genai.LLMConfig

	// Per-client limits for /api/ask
	APIRateRPS   float64
	APIRateBurst int
	APIRateDaily int

	// LINE channel; disabled unless both are set
	LineChannelToken     string
	LineChannelSecret    string
	LineChatRateRPS      float64
	LineChatRateBurst    int
	LineGlobalRateRPS    float64
	LineConversationTTL  time.Duration
	LineMaxConversations int

	// R2 course-code override; disabled unless every field is set
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2CodesKey        string

	// Error reporting
	SentryDSN        string
	SentryToken      string
	SentryHost       string
	SentrySampleRate float64

	BetterStackToken string

	// Metrics basic auth; empty password leaves /metrics open
	MetricsUsername string
	MetricsPassword string
}

// Load reads configuration from the environment and validates it.
// Missing model credentials are not an error here: each request reports
// them instead.
func Load() (*Config, error) {
	cfg := Read()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Read reads configuration without validating it. Tools that need only
// part of it, such as the course-code commands, use it directly.
func Read() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv(EnvPort, "8080"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		Environment:     getEnv(EnvEnvironment, "production"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, ShutdownGrace),
		RequestTimeout:  getDurationEnv(EnvRequestTimeout, RequestProcessing),

		DataDir:          getEnv(EnvDataDir, "./data"),
		TurnLogRetention: getDurationEnv(EnvTurnLogRetention, TurnLogRetention),
		CleanupInterval:  getDurationEnv(EnvCleanupInterval, CleanupInterval),

		CatalogURL:        getEnv(EnvCatalogURL, ""),
		CatalogTimeout:    getDurationEnv(EnvCatalogTimeout, CatalogRequest),
		CatalogMaxRetries: getIntEnv(EnvCatalogMaxRetries, 2),
		CatalogCacheTTL:   getDurationEnv(EnvCatalogCacheTTL, CatalogCacheTTL),
		RedisURL:          getEnv(EnvRedisURL, ""),
		CodesFile:         getEnv(EnvCodesFile, ""),

		HistoryWindow: getIntEnv(EnvHistoryWindow, 6),
		MaxResults:    getIntEnv(EnvMaxResults, 0),

		LLM: loadLLMConfig(),

		APIRateRPS:   getFloatEnv(EnvAPIRateRPS, 1),
		APIRateBurst: getIntEnv(EnvAPIRateBurst, 10),
		APIRateDaily: getIntEnv(EnvAPIRateDaily, 500),

		LineChannelToken:     getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret:    getEnv(EnvLineChannelSecret, ""),
		LineChatRateRPS:      getFloatEnv(EnvLineChatRateRPS, 0.2),
		LineChatRateBurst:    getIntEnv(EnvLineChatRateBurst, 10),
		LineGlobalRateRPS:    getFloatEnv(EnvLineGlobalRateRPS, 100),
		LineConversationTTL:  getDurationEnv(EnvLineConversationTTL, ConversationIdle),
		LineMaxConversations: getIntEnv(EnvLineMaxConversations, 10000),

		R2AccountID:       getEnv(EnvR2AccountID, ""),
		R2AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:      getEnv(EnvR2BucketName, ""),
		R2CodesKey:        getEnv(EnvR2CodesKey, "courses.yaml"),

		SentryDSN:        getEnv(EnvSentryDSN, ""),
		SentryToken:      getEnv(EnvSentryToken, ""),
		SentryHost:       getEnv(EnvSentryHost, ""),
		SentrySampleRate: getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackToken: getEnv(EnvBetterStackToken, ""),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),
	}
}

func loadLLMConfig() genai.LLMConfig {
	llm := genai.DefaultLLMConfig()
	if providers := getListEnv(EnvLLMProviders); len(providers) > 0 {
		llm.Providers = nil
		for _, name := range providers {
			if p, ok := genai.ParseProvider(strings.ToLower(name)); ok {
				llm.Providers = append(llm.Providers, p)
			}
		}
	}

	llm.OpenAI.APIKey = getEnv(EnvOpenAIAPIKey, "")
	llm.OpenAI.BaseURL = getEnv(EnvOpenAIBaseURL, "")
	llm.Groq.APIKey = getEnv(EnvGroqAPIKey, "")
	llm.Gemini.APIKey = getEnv(EnvGeminiAPIKey, "")
	if models := getListEnv(EnvOpenAIModels); len(models) > 0 {
		llm.OpenAI.Models = models
	}
	if models := getListEnv(EnvGroqModels); len(models) > 0 {
		llm.Groq.Models = models
	}
	if models := getListEnv(EnvGeminiModels); len(models) > 0 {
		llm.Gemini.Models = models
	}

	llm.Temperature = getFloatEnv(EnvLLMTemperature, llm.Temperature)
	llm.MaxTokens = getIntEnv(EnvLLMMaxTokens, llm.MaxTokens)
	llm.RetryConfig.MaxAttempts = getIntEnv(EnvLLMMaxAttempts, llm.RetryConfig.MaxAttempts)
	return llm
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
	}
	if c.CatalogURL == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvCatalogURL))
	}
	if c.CatalogTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvCatalogTimeout, c.CatalogTimeout))
	}
	if c.CatalogMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvCatalogMaxRetries, c.CatalogMaxRetries))
	}
	if c.CatalogCacheTTL <= 0 || c.CatalogCacheTTL > 5*time.Minute {
		errs = append(errs, fmt.Errorf("%s must be between 0 and 5m, got %v", EnvCatalogCacheTTL, c.CatalogCacheTTL))
	}
	if c.HistoryWindow <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvHistoryWindow, c.HistoryWindow))
	}
	if c.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvMaxResults, c.MaxResults))
	}
	if c.APIRateRPS <= 0 || c.APIRateBurst <= 0 {
		errs = append(errs, fmt.Errorf("%s and %s must be positive", EnvAPIRateRPS, EnvAPIRateBurst))
	}
	if (c.LineChannelToken == "") != (c.LineChannelSecret == "") {
		errs = append(errs, fmt.Errorf("%s and %s must be set together", EnvLineChannelAccessToken, EnvLineChannelSecret))
	}
	if r2 := []string{c.R2AccountID, c.R2AccessKeyID, c.R2SecretAccessKey, c.R2BucketName}; anySet(r2) && !allSet(r2) {
		errs = append(errs, errors.New("R2 needs account ID, access key ID, secret access key and bucket name"))
	}
	if c.SentryToken != "" && c.SentryHost == "" {
		errs = append(errs, fmt.Errorf("%s is required with %s", EnvSentryHost, EnvSentryToken))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be between 0 and 1, got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}

	return errors.Join(errs...)
}

// SQLitePath returns the turn log database file.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "turns.db")
}

// LineEnabled reports whether the LINE channel is configured.
func (c *Config) LineEnabled() bool {
	return c.LineChannelToken != "" && c.LineChannelSecret != ""
}

// R2Enabled reports whether course codes are loaded from R2.
func (c *Config) R2Enabled() bool {
	return allSet([]string{c.R2AccountID, c.R2AccessKeyID, c.R2SecretAccessKey, c.R2BucketName})
}

// R2Endpoint returns the account's S3-compatible endpoint.
func (c *Config) R2Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2AccountID)
}

func anySet(vals []string) bool {
	for _, v := range vals {
		if v != "" {
			return true
		}
	}
	return false
}

func allSet(vals []string) bool {
	for _, v := range vals {
		if v == "" {
			return false
		}
	}
	return true
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated value, dropping empty items.
func getListEnv(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
