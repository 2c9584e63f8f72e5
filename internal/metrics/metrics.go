// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rerank outcomes used as the "outcome" label of RerankRequests.
const (
	OutcomeReordered        = "reordered"
	OutcomeDisabled         = "disabled"
	OutcomeNoConfig         = "no_config"
	OutcomeWindowSkipped    = "window_skipped"
	OutcomeBelowMinHits     = "below_min_hits"
	OutcomeUpstreamError    = "upstream_error"
	OutcomeUpstreamNon2xx   = "upstream_non_2xx"
	OutcomeRetried          = "retried"
	OutcomeReorderFailed    = "reorder_failed"
	OutcomeConfigInvalid    = "config_invalid"
	OutcomeResponseRejected = "response_rejected"
)

var (
	// Rerank pipeline metrics
	RerankRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynarank_rerank_requests_total",
			Help: "Search requests handled by the rerank pipeline",
		},
		[]string{"outcome"},
	)

	RerankDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dynarank_rerank_duration_seconds",
			Help:    "Time spent reordering one rerank window",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"engine"},
	)

	RerankWindowSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dynarank_rerank_window_hits",
			Help:    "Number of hits in each rerank window",
			Buckets: []float64{1, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)

	WindowExpansions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dynarank_window_expansions_total",
			Help: "Searches whose from/size were widened to the rerank window",
		},
	)

	RerankRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dynarank_rerank_retries_total",
			Help: "Searches re-issued with a rewritten query after an engine asked for a retry",
		},
	)

	DiversityBuckets = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dynarank_diversity_buckets",
			Help:    "Buckets formed per diversity pass",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100},
		},
	)

	// Cache Metrics (General)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (expiry, invalidation, failed refresh)",
		},
		[]string{"cache_type"},
	)

	ConfigLookupErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynarank_config_lookup_errors_total",
			Help: "Failed rerank config lookups against the configured source",
		},
		[]string{"source"},
	)

	// Reaper metrics
	ReaperCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynarank_reaper_entries_total",
			Help: "Cache entries processed by the reaper, by result",
		},
		[]string{"result"}, // refreshed, evicted, failed
	)

	ReaperDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dynarank_reaper_duration_seconds",
			Help:    "Duration of one reaper cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Upstream metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dynarank_upstream_request_duration_seconds",
			Help:    "Duration of calls to the search cluster",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "status_code"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynarank_upstream_retries_total",
			Help: "Upstream calls retried after 429 or 503",
		},
		[]string{"operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	AuthzDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_authz_denied_total",
			Help: "Admin API requests denied by the authorization policy",
		},
		[]string{"role", "action"},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_login_attempts_total",
			Help: "Admin API login attempts",
		},
		[]string{"result"}, // success, failure, locked
	)

	// Cache invalidation events
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynarank_events_published_total",
			Help: "Cache invalidation events published",
		},
		[]string{"result"}, // success, failure
	)

	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynarank_events_received_total",
			Help: "Cache invalidation events received from other replicas",
		},
		[]string{"action"}, // invalidate, clear, ignored, malformed
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordRerank records the outcome of one search. engine and duration are
// only observed when the window was actually reordered.
func RecordRerank(outcome, engine string, windowHits int, duration time.Duration) {
	RerankRequests.WithLabelValues(outcome).Inc()
	if outcome == OutcomeReordered || outcome == OutcomeRetried {
		RerankDuration.WithLabelValues(engine).Observe(duration.Seconds())
		RerankWindowSize.Observe(float64(windowHits))
	}
}

// RecordReap records one reaper cycle.
func RecordReap(refreshed, evicted, failed int, duration time.Duration) {
	ReaperCycles.WithLabelValues("refreshed").Add(float64(refreshed))
	ReaperCycles.WithLabelValues("evicted").Add(float64(evicted))
	ReaperCycles.WithLabelValues("failed").Add(float64(failed))
	ReaperDuration.Observe(duration.Seconds())
}

// RecordUpstream records one upstream call. statusCode 0 means the call
// failed before a response arrived.
func RecordUpstream(operation string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	UpstreamRequestDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordEventPublish records the result of publishing one invalidation event.
func RecordEventPublish(err error) {
	if err != nil {
		EventsPublished.WithLabelValues("failure").Inc()
		return
	}
	EventsPublished.WithLabelValues("success").Inc()
}
