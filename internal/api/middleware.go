// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/tomtom215/locus/internal/config"
	"github.com/tomtom215/locus/internal/logging"
	"github.com/tomtom215/locus/internal/metrics"
)

// statusResponseWriter captures the status code written by a handler.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// ChiMiddleware bundles the router's middleware constructors so they share
// one config.
type ChiMiddleware struct {
	cfg *config.Config
}

// NewChiMiddleware creates the middleware bundle.
func NewChiMiddleware(cfg *config.Config) *ChiMiddleware {
	return &ChiMiddleware{cfg: cfg}
}

// CORS returns the CORS middleware configured from security.cors_origins.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   m.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// RateLimitResolve limits resolution requests per client IP. Disabled
// entirely when security.rate_limit_disabled is set.
func (m *ChiMiddleware) RateLimitResolve() func(http.Handler) http.Handler {
	if m.cfg.Security.RateLimitDisabled {
		return passthrough
	}
	return httprate.Limit(
		m.cfg.Security.RateLimitReqs,
		m.cfg.Security.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitHandler("resolve")),
	)
}

// RateLimitAuth limits token requests per client IP. Kept tight so
// credential guessing stays expensive even with rate limiting otherwise
// disabled.
func (m *ChiMiddleware) RateLimitAuth() func(http.Handler) http.Handler {
	return httprate.Limit(
		5,
		5*time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitHandler("auth")),
	)
}

// rateLimitHandler records the rejection and answers 429.
func rateLimitHandler(endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.APIRateLimitHits.WithLabelValues(endpoint).Inc()
		respondFailure(w, http.StatusTooManyRequests, "rate limit exceeded")
	}
}

// passthrough is the identity middleware.
func passthrough(next http.Handler) http.Handler {
	return next
}

// SecurityHeaders sets baseline security headers on every response.
func (m *ChiMiddleware) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// RequestIDWithLogging assigns a request ID and logs request completion
// with method, path, status, and duration.
func (m *ChiMiddleware) RequestIDWithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		sw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(sw, r)

		logging.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Int("status", sw.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("Request completed")
	})
}

// PrometheusMetrics records per-endpoint request counts and latencies.
// The route pattern keeps label cardinality bounded.
func (m *ChiMiddleware) PrometheusMetrics(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(sw, r)

			metrics.RecordAPIRequest(r.Method, endpoint, sw.statusCode, time.Since(start))
		})
	}
}
