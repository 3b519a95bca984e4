// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for production observability:
// - Cache tier efficiency (hits, misses, evictions, size per tier)
// - External resolver latency and failures
// - Circuit breaker state
// - API endpoint latency and throughput

var (
	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"tier"}, // "long", "short"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"tier"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"tier"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (capacity pressure or TTL expiry)",
		},
		[]string{"tier"},
	)

	// Resolution Pipeline Metrics
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolutions_total",
			Help: "Total number of resolution requests by outcome",
		},
		[]string{"outcome"}, // "hit", "resolved", "failure"
	)

	// External Resolver Metrics
	ResolverCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resolver_call_duration_seconds",
			Help:    "Duration of external geolocation resolver calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	ResolverErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_errors_total",
			Help: "Total number of external resolver failures",
		},
		[]string{"error_type"}, // "transport", "no_location", "breaker_open", "status"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
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

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Auth Metrics
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Total number of authentication failures",
		},
		[]string{"reason"}, // "credentials", "token"
	)
)

// RecordCacheHit increments the hit counter for a tier.
func RecordCacheHit(tier string) {
	CacheHits.WithLabelValues(tier).Inc()
}

// RecordCacheMiss increments the miss counter for a tier.
func RecordCacheMiss(tier string) {
	CacheMisses.WithLabelValues(tier).Inc()
}

// RecordCacheEviction adds to the eviction counter for a tier.
func RecordCacheEviction(tier string, n int) {
	if n > 0 {
		CacheEvictions.WithLabelValues(tier).Add(float64(n))
	}
}

// SetCacheSize updates the entry-count gauge for a tier.
func SetCacheSize(tier string, size int) {
	CacheSize.WithLabelValues(tier).Set(float64(size))
}

// RecordResolverCall observes the duration of one resolver call.
func RecordResolverCall(start time.Time) {
	ResolverCallDuration.Observe(time.Since(start).Seconds())
}

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
