package config

import "time"

// Server timeouts.
const (
	// RequestProcessing bounds one dialogue turn: a model call with its
	// retries and fallbacks plus a catalog fetch.
	RequestProcessing = 60 * time.Second

	HTTPRead  = 10 * time.Second
	HTTPWrite = RequestProcessing + 5*time.Second
	HTTPIdle  = 120 * time.Second

	// ShutdownGrace is how long in-flight requests get after a signal.
	ShutdownGrace = 30 * time.Second
)

// Catalog timeouts.
const (
	// CatalogRequest is the timeout for one catalog HTTP request.
	CatalogRequest = 15 * time.Second

	// CatalogCacheTTL is how long a fetched catalog is served. The catalog
	// holds live availability, so it is never served past five minutes.
	CatalogCacheTTL = 60 * time.Second
)

// Background jobs.
const (
	// TurnLogRetention is how long turn log rows are kept.
	TurnLogRetention = 30 * 24 * time.Hour

	CleanupInterval = 6 * time.Hour

	ConversationIdle = 30 * time.Minute
)
