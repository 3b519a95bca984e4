// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

package geolocate

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/locus/internal/cache"
	"github.com/tomtom215/locus/internal/logging"
	"github.com/tomtom215/locus/internal/metrics"
	"github.com/tomtom215/locus/internal/models"
)

// ErrMalformedScan indicates the scan payload carried no usable access points.
var ErrMalformedScan = errors.New("scan contains no access points")

// Orchestrator runs the resolution pipeline for one scan: pacing delay,
// long-tier cache lookup, resolver call on miss, then the staged dual write.
type Orchestrator struct {
	store    *cache.TieredStore
	resolver Resolver
	pacing   time.Duration

	// testMode gates the per-request TTL override and the cached annotation.
	// Production responses never expose either.
	testMode bool
}

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	PacingDelay time.Duration
	TestMode    bool
}

// NewOrchestrator creates the resolution orchestrator.
func NewOrchestrator(store *cache.TieredStore, resolver Resolver, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		store:    store,
		resolver: resolver,
		pacing:   cfg.PacingDelay,
		testMode: cfg.TestMode,
	}
}

// TestMode reports whether the harness fork is active.
func (o *Orchestrator) TestMode() bool {
	return o.testMode
}

// Resolve processes one scan. On a cache hit the stored result is returned
// without touching the resolver. On a miss the resolver is called once; a
// success is staged into the cache before being returned, a failure of any
// kind surfaces as an error with nothing cached.
func (o *Orchestrator) Resolve(ctx context.Context, scan *models.ScanRequest) (models.GeoResult, error) {
	if scan == nil || len(scan.APScanData) == 0 {
		return models.GeoResult{}, ErrMalformedScan
	}

	ids := make([]string, len(scan.APScanData))
	resolverAPs := make([]models.ResolverAccessPoint, len(scan.APScanData))
	for i, ap := range scan.APScanData {
		ids[i] = ap.BSSID
		resolverAPs[i] = models.ResolverAccessPoint{MACAddress: ap.BSSID}
	}
	key := Key(ids)

	// Pacing applies to every request, hit or miss
	if err := o.pace(ctx); err != nil {
		return models.GeoResult{}, err
	}

	if result, found := o.store.Get(key); found {
		metrics.ResolutionsTotal.WithLabelValues("hit").Inc()
		o.annotate(&result, true)
		logging.Debug().
			Str("key", key).
			Int("access_points", len(ids)).
			Msg("Resolution served from cache")
		return result, nil
	}

	result, err := o.resolver.Resolve(ctx, models.ResolverRequest{APScanData: resolverAPs})
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues("failure").Inc()
		logging.Debug().
			Err(err).
			Str("key", key).
			Msg("Resolution failed")
		return models.GeoResult{}, err
	}

	o.store.Put(key, result, o.ttlOverride(scan))

	metrics.ResolutionsTotal.WithLabelValues("resolved").Inc()
	o.annotate(&result, false)
	logging.Debug().
		Str("key", key).
		Int("access_points", len(ids)).
		Msg("Resolution resolved and cached")
	return result, nil
}

// pace imposes the configured delay, honoring context cancellation.
func (o *Orchestrator) pace(ctx context.Context) error {
	if o.pacing <= 0 {
		return nil
	}

	timer := time.NewTimer(o.pacing)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ttlOverride extracts the per-request TTL, honored only in test mode.
func (o *Orchestrator) ttlOverride(scan *models.ScanRequest) *time.Duration {
	if !o.testMode || scan.TTL == nil {
		return nil
	}
	d := time.Duration(*scan.TTL * float64(time.Second))
	return &d
}

// annotate sets the cached flag, exposed only in test mode.
func (o *Orchestrator) annotate(result *models.GeoResult, cached bool) {
	if !o.testMode {
		result.Cached = nil
		return
	}
	result.Cached = &cached
}
