package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/targetzero/coursebot/internal/genai"
)

// Tests use t.Setenv and so cannot run in parallel.

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvCatalogURL, "https://example.com/wp-json/courses")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 6, cfg.HistoryWindow)
	assert.Equal(t, 60*time.Second, cfg.CatalogCacheTTL)
	assert.Equal(t, genai.DefaultProviders, cfg.LLM.Providers)
	assert.False(t, cfg.LLM.HasAnyProvider(), "missing keys are reported per request")
	assert.False(t, cfg.LineEnabled())
	assert.False(t, cfg.R2Enabled())
	assert.Equal(t, "data/turns.db", filepathSlash(cfg.SQLitePath()))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvCatalogURL, "https://example.com/courses")
	t.Setenv(EnvPort, "9000")
	t.Setenv(EnvLLMProviders, "Gemini, bogus ,groq")
	t.Setenv(EnvGeminiAPIKey, "g-key")
	t.Setenv(EnvGeminiModels, "gemini-2.5-pro, gemini-2.5-flash")
	t.Setenv(EnvCatalogCacheTTL, "2m")
	t.Setenv(EnvHistoryWindow, "not-a-number")
	t.Setenv(EnvLineChannelAccessToken, "token")
	t.Setenv(EnvLineChannelSecret, "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []genai.Provider{genai.ProviderGemini, genai.ProviderGroq}, cfg.LLM.Providers)
	assert.Equal(t, []string{"gemini-2.5-pro", "gemini-2.5-flash"}, cfg.LLM.Gemini.Models)
	assert.True(t, cfg.LLM.HasAnyProvider())
	assert.Equal(t, 2*time.Minute, cfg.CatalogCacheTTL)
	assert.Equal(t, 6, cfg.HistoryWindow, "unparsable values fall back to the default")
	assert.True(t, cfg.LineEnabled())
}

func TestRead_SkipsValidation(t *testing.T) {
	t.Setenv(EnvCatalogURL, "")
	t.Setenv(EnvCodesFile, "codes.yaml")

	_, err := Load()
	require.Error(t, err)

	cfg := Read()
	assert.Equal(t, "codes.yaml", cfg.CodesFile)
	assert.Empty(t, cfg.CatalogURL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:             "8080",
			DataDir:          "./data",
			CatalogURL:       "https://example.com/courses",
			CatalogTimeout:   time.Second,
			CatalogCacheTTL:  time.Minute,
			HistoryWindow:    6,
			APIRateRPS:       1,
			APIRateBurst:     1,
			SentrySampleRate: 1,
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"missing catalog URL", func(c *Config) { c.CatalogURL = "" }, EnvCatalogURL},
		{"cache TTL above five minutes", func(c *Config) { c.CatalogCacheTTL = 10 * time.Minute }, EnvCatalogCacheTTL},
		{"negative retries", func(c *Config) { c.CatalogMaxRetries = -1 }, EnvCatalogMaxRetries},
		{"zero history window", func(c *Config) { c.HistoryWindow = 0 }, EnvHistoryWindow},
		{"LINE secret without token", func(c *Config) { c.LineChannelSecret = "s" }, EnvLineChannelAccessToken},
		{"partial R2", func(c *Config) { c.R2BucketName = "codes" }, "R2 needs"},
		{"sentry token without host", func(c *Config) { c.SentryToken = "t" }, EnvSentryHost},
		{"sample rate out of range", func(c *Config) { c.SentrySampleRate = 2 }, EnvSentrySampleRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	cfg := valid()
	cfg.Port, cfg.DataDir = "", ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvPort)
	assert.Contains(t, err.Error(), EnvDataDir, "errors are aggregated")
}

func TestR2(t *testing.T) {
	cfg := &Config{R2AccountID: "acc", R2AccessKeyID: "id", R2SecretAccessKey: "secret", R2BucketName: "codes"}
	assert.True(t, cfg.R2Enabled())
	assert.Equal(t, "https://acc.r2.cloudflarestorage.com", cfg.R2Endpoint())
}

func filepathSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
