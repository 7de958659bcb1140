package config

// Environment variable keys. Every key carries the COURSEBOT_ prefix.
//
//nolint:gosec // Keys, not credentials.
const (
	// Server
	EnvPort            = "COURSEBOT_PORT"
	EnvLogLevel        = "COURSEBOT_LOG_LEVEL"
	EnvShutdownTimeout = "COURSEBOT_SHUTDOWN_TIMEOUT"
	EnvRequestTimeout  = "COURSEBOT_REQUEST_TIMEOUT"
	EnvEnvironment     = "COURSEBOT_ENVIRONMENT"

	// Turn log
	EnvDataDir          = "COURSEBOT_DATA_DIR"
	EnvTurnLogRetention = "COURSEBOT_TURN_LOG_RETENTION"
	EnvCleanupInterval  = "COURSEBOT_CLEANUP_INTERVAL"

	// Course catalog
	EnvCatalogURL        = "COURSEBOT_CATALOG_URL"
	EnvCatalogTimeout    = "COURSEBOT_CATALOG_TIMEOUT"
	EnvCatalogMaxRetries = "COURSEBOT_CATALOG_MAX_RETRIES"
	EnvCatalogCacheTTL   = "COURSEBOT_CATALOG_CACHE_TTL"
	EnvRedisURL          = "COURSEBOT_REDIS_URL"

	// Course codes
	EnvCodesFile = "COURSEBOT_CODES_FILE"

	// Dialogue
	EnvHistoryWindow = "COURSEBOT_HISTORY_WINDOW"
	EnvMaxResults    = "COURSEBOT_MAX_RESULTS"

	// Model
	EnvLLMProviders   = "COURSEBOT_LLM_PROVIDERS"
	EnvOpenAIAPIKey   = "COURSEBOT_OPENAI_API_KEY"
	EnvOpenAIModels   = "COURSEBOT_OPENAI_MODELS"
	EnvOpenAIBaseURL  = "COURSEBOT_OPENAI_BASE_URL"
	EnvGroqAPIKey     = "COURSEBOT_GROQ_API_KEY"
	EnvGroqModels     = "COURSEBOT_GROQ_MODELS"
	EnvGeminiAPIKey   = "COURSEBOT_GEMINI_API_KEY"
	EnvGeminiModels   = "COURSEBOT_GEMINI_MODELS"
	EnvLLMTemperature = "COURSEBOT_LLM_TEMPERATURE"
	EnvLLMMaxTokens   = "COURSEBOT_LLM_MAX_TOKENS"
	EnvLLMMaxAttempts = "COURSEBOT_LLM_MAX_ATTEMPTS"

	// Rate limits
	EnvAPIRateRPS   = "COURSEBOT_API_RATE_RPS"
	EnvAPIRateBurst = "COURSEBOT_API_RATE_BURST"
	EnvAPIRateDaily = "COURSEBOT_API_RATE_DAILY"

	// LINE channel
	EnvLineChannelAccessToken = "COURSEBOT_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "COURSEBOT_LINE_CHANNEL_SECRET"
	EnvLineChatRateRPS        = "COURSEBOT_LINE_CHAT_RATE_RPS"
	EnvLineChatRateBurst      = "COURSEBOT_LINE_CHAT_RATE_BURST"
	EnvLineGlobalRateRPS      = "COURSEBOT_LINE_GLOBAL_RATE_RPS"
	EnvLineConversationTTL    = "COURSEBOT_LINE_CONVERSATION_TTL"
	EnvLineMaxConversations   = "COURSEBOT_LINE_MAX_CONVERSATIONS"

	// R2 course-code override
	EnvR2AccountID       = "COURSEBOT_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "COURSEBOT_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "COURSEBOT_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "COURSEBOT_R2_BUCKET_NAME"
	EnvR2CodesKey        = "COURSEBOT_R2_CODES_KEY"

	// Error reporting
	EnvSentryDSN        = "COURSEBOT_SENTRY_DSN"
	EnvSentryToken      = "COURSEBOT_SENTRY_TOKEN"
	EnvSentryHost       = "COURSEBOT_SENTRY_HOST"
	EnvSentrySampleRate = "COURSEBOT_SENTRY_SAMPLE_RATE"

	// Better Stack logs
	EnvBetterStackToken = "COURSEBOT_BETTERSTACK_TOKEN"

	// Metrics basic auth
	EnvMetricsUsername = "COURSEBOT_METRICS_USERNAME"
	EnvMetricsPassword = "COURSEBOT_METRICS_PASSWORD"
)
