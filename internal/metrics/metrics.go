package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
// A nil *Metrics is valid and records nothing, which keeps tests and the CLI
// free of registry plumbing.
type Metrics struct {
	// Dialogue metrics
	TurnsTotal          *prometheus.CounterVec
	TurnDurationSeconds *prometheus.HistogramVec
	UnresolvedTotal     prometheus.Counter

	// LLM metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMDurationSeconds *prometheus.HistogramVec
	LLMFallbackTotal   *prometheus.CounterVec

	// Catalog metrics
	CatalogFetchTotal   *prometheus.CounterVec
	CatalogFetchSeconds prometheus.Histogram

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec

	// Webhook metrics
	WebhookRequestsTotal   *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterKeys    *prometheus.GaugeVec

	// Conversations held in memory by chat channels
	ActiveConversations *prometheus.GaugeVec

	// Background job metrics
	JobDurationSeconds *prometheus.HistogramVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursebot_turns_total",
				Help: "Total number of dialogue turns by outcome",
			},
			[]string{"outcome"}, // outcome: results, clarify, umbrella, confirm, ...
		),

		TurnDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coursebot_turn_duration_seconds",
				Help:    "Dialogue turn duration in seconds by outcome",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"outcome"},
		),

		UnresolvedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "coursebot_unresolved_phrases_total",
				Help: "Total number of turns that ended without a course code",
			},
		),

		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursebot_llm_requests_total",
				Help: "Total number of model requests by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error, retry
		),

		LLMDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coursebot_llm_duration_seconds",
				Help:    "Model request duration in seconds by provider",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"provider"},
		),

		LLMFallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursebot_llm_fallback_total",
				Help: "Total number of provider fallbacks",
			},
			[]string{"from", "to"},
		),

		CatalogFetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursebot_catalog_fetch_total",
				Help: "Total number of catalog fetches by status",
			},
			[]string{"status"}, // status: success, error
		),

		CatalogFetchSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coursebot_catalog_fetch_duration_seconds",
				Help:    "Catalog fetch duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursebot_cache_hits_total",
				Help: "Total number of cache hits by cache",
			},
			[]string{"cache"}, // cache: memory, redis
		),

		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursebot_cache_misses_total",
				Help: "Total number of cache misses by cache",
			},
			[]string{"cache"},
		),

		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursebot_singleflight_dedup_total",
				Help: "Total number of requests that waited on an in-flight fetch instead of executing",
			},
			[]string{"module"},
		),

		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursebot_webhook_requests_total",
				Help: "Total number of webhook events by event type and status",
			},
			[]string{"event_type", "status"},
		),

		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coursebot_webhook_duration_seconds",
				Help:    "Webhook event processing duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"event_type"},
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursebot_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter"}, // limiter: api, webhook
		),

		RateLimiterKeys: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coursebot_rate_limiter_active_keys",
				Help: "Number of clients currently tracked by a rate limiter",
			},
			[]string{"limiter"},
		),

		ActiveConversations: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coursebot_active_conversations",
				Help: "Number of conversations held in memory",
			},
			[]string{"channel"},
		),

		JobDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coursebot_job_duration_seconds",
				Help:    "Background job duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"job"}, // job: turn_cleanup, conversation_sweep
		),
	}
}

// RecordTurn records a finished dialogue turn
func (m *Metrics) RecordTurn(outcome string, duration float64) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	m.TurnDurationSeconds.WithLabelValues(outcome).Observe(duration)
}

// RecordUnresolved records a turn that ended without a course code
func (m *Metrics) RecordUnresolved() {
	if m == nil {
		return
	}
	m.UnresolvedTotal.Inc()
}

// RecordLLM records a model request
func (m *Metrics) RecordLLM(provider, status string, duration float64) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMDurationSeconds.WithLabelValues(provider).Observe(duration)
}

// RecordLLMFallback records a switch from one provider to the next
func (m *Metrics) RecordLLMFallback(from, to string) {
	if m == nil {
		return
	}
	m.LLMFallbackTotal.WithLabelValues(from, to).Inc()
}

// RecordCatalogFetch records a catalog fetch
func (m *Metrics) RecordCatalogFetch(status string, duration float64) {
	if m == nil {
		return
	}
	m.CatalogFetchTotal.WithLabelValues(status).Inc()
	m.CatalogFetchSeconds.Observe(duration)
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(module string) {
	if m == nil {
		return
	}
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

// RecordWebhook records a webhook event
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// SetRateLimiterKeys sets the number of tracked clients
func (m *Metrics) SetRateLimiterKeys(limiter string, n int) {
	if m == nil {
		return
	}
	m.RateLimiterKeys.WithLabelValues(limiter).Set(float64(n))
}

// SetActiveConversations sets the number of conversations held in memory
func (m *Metrics) SetActiveConversations(channel string, n int) {
	if m == nil {
		return
	}
	m.ActiveConversations.WithLabelValues(channel).Set(float64(n))
}

// RecordJob records one run of a background job
func (m *Metrics) RecordJob(job string, duration float64) {
	if m == nil {
		return
	}
	m.JobDurationSeconds.WithLabelValues(job).Observe(duration)
}
