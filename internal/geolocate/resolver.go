// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

package geolocate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/locus/internal/logging"
	"github.com/tomtom215/locus/internal/metrics"
	"github.com/tomtom215/locus/internal/models"
)

// ErrNoLocation indicates the resolver answered but could not produce a
// position for the submitted scan. This is a definitive failure and is never
// retried.
var ErrNoLocation = errors.New("resolver returned no location")

// maxResolverResponseBytes bounds how much of a resolver response is read.
const maxResolverResponseBytes = 1 << 20 // 1 MiB

// Resolver resolves a set of observed access points to a position.
type Resolver interface {
	Resolve(ctx context.Context, req models.ResolverRequest) (models.GeoResult, error)
}

// HTTPResolver calls an external HTTP geolocation service. Calls are paced
// by an outbound rate limiter so the upstream quota is never reached, and
// guarded by a circuit breaker so a failing upstream sheds load fast.
type HTTPResolver struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[models.GeoResult]
}

// HTTPResolverConfig configures an HTTPResolver.
type HTTPResolverConfig struct {
	URL string

	// Timeout bounds a single call including connection setup.
	Timeout time.Duration

	// RateLimit is the outbound calls-per-second budget.
	RateLimit float64
}

// NewHTTPResolver creates a resolver client for the given endpoint.
func NewHTTPResolver(cfg HTTPResolverConfig) *HTTPResolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 45
	}

	settings := gobreaker.Settings{
		Name:        "geolocation-resolver",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			// A definitive no-location answer is an upstream decision, not an
			// upstream failure, and must not trip the breaker.
			return err == nil || errors.Is(err, ErrNoLocation)
		},
	}

	return &HTTPResolver{
		url:     cfg.URL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(limit), 1),
		breaker: gobreaker.NewCircuitBreaker[models.GeoResult](settings),
	}
}

// Resolve submits the scan to the external service. A missing location in
// the response maps to ErrNoLocation; transport and status errors surface
// as-is. There is no retry at this layer.
func (r *HTTPResolver) Resolve(ctx context.Context, req models.ResolverRequest) (models.GeoResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		metrics.ResolverErrors.WithLabelValues("transport").Inc()
		return models.GeoResult{}, fmt.Errorf("resolver rate limiter: %w", err)
	}

	result, err := r.breaker.Execute(func() (models.GeoResult, error) {
		return r.doCall(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.ResolverErrors.WithLabelValues("breaker_open").Inc()
		}
		return models.GeoResult{}, err
	}
	return result, nil
}

// doCall performs one HTTP round trip against the resolver endpoint.
func (r *HTTPResolver) doCall(ctx context.Context, req models.ResolverRequest) (models.GeoResult, error) {
	start := time.Now()
	defer metrics.RecordResolverCall(start)

	body, err := json.Marshal(req)
	if err != nil {
		return models.GeoResult{}, fmt.Errorf("failed to encode resolver request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return models.GeoResult{}, fmt.Errorf("failed to build resolver request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		metrics.ResolverErrors.WithLabelValues("transport").Inc()
		return models.GeoResult{}, fmt.Errorf("resolver call failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResolverResponseBytes))
	if err != nil {
		metrics.ResolverErrors.WithLabelValues("transport").Inc()
		return models.GeoResult{}, fmt.Errorf("failed to read resolver response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.ResolverErrors.WithLabelValues("status").Inc()
		return models.GeoResult{}, fmt.Errorf("resolver returned status %d", resp.StatusCode)
	}

	var decoded models.ResolverResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		metrics.ResolverErrors.WithLabelValues("transport").Inc()
		return models.GeoResult{}, fmt.Errorf("failed to decode resolver response: %w", err)
	}

	if decoded.Location == nil {
		metrics.ResolverErrors.WithLabelValues("no_location").Inc()
		return models.GeoResult{}, ErrNoLocation
	}

	return models.GeoResult{
		Location: *decoded.Location,
		Accuracy: decoded.Accuracy,
	}, nil
}

// breakerStateValue maps a breaker state to its gauge value.
func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// StaticResolver returns a fixed position for every scan. It backs the test
// harness so end-to-end cache behavior can be exercised without network
// access.
type StaticResolver struct {
	Result models.GeoResult
}

// NewStaticResolver creates a resolver with the canned harness fixture.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		Result: models.GeoResult{
			Location: models.Location{Lat: -26.2707593, Lng: 28.1122679},
			Accuracy: 1,
		},
	}
}

// Resolve returns the fixed result.
func (r *StaticResolver) Resolve(_ context.Context, _ models.ResolverRequest) (models.GeoResult, error) {
	return r.Result, nil
}
