// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

package cache

import (
	"time"

	"github.com/tomtom215/locus/internal/logging"
	"github.com/tomtom215/locus/internal/metrics"
	"github.com/tomtom215/locus/internal/models"
)

// Tier labels used in metrics.
const (
	TierLong  = "long"
	TierShort = "short"
)

// TieredStore coordinates the two cache tiers.
//
// Reads consult only the long tier. The short tier is a write-staging area:
// every successful resolution is written there first with its TTL, then read
// back, and only a live read-back is copied into the long tier. A write that
// lands already expired (a zero TTL override) therefore never reaches the
// long tier, and subsequent identical lookups miss.
type TieredStore struct {
	long  *InsertionCache
	short *ExpiringCache
}

// StoreConfig configures the two tiers.
type StoreConfig struct {
	LongCapacity int
	LongTTL      time.Duration
	ShortTTL     time.Duration
}

// NewTieredStore creates a store with both tiers.
func NewTieredStore(cfg StoreConfig) *TieredStore {
	return &TieredStore{
		long:  NewInsertionCache(cfg.LongCapacity, cfg.LongTTL),
		short: NewExpiringCache(cfg.ShortTTL),
	}
}

// Get looks up a result in the long tier. The short tier is never consulted
// on the read path.
func (s *TieredStore) Get(key string) (models.GeoResult, bool) {
	result, found := s.long.Get(key)
	if found {
		metrics.RecordCacheHit(TierLong)
		return result, true
	}

	metrics.RecordCacheMiss(TierLong)
	return models.GeoResult{}, false
}

// Put stages a result in the short tier, then promotes it to the long tier
// only if the staged entry reads back live. ttlOverride, when non-nil,
// replaces the short tier's default TTL for this write.
func (s *TieredStore) Put(key string, result models.GeoResult, ttlOverride *time.Duration) {
	// Promoted values never carry the per-request cached annotation
	result.Cached = nil

	if ttlOverride != nil {
		s.short.SetWithTTL(key, result, *ttlOverride)
	} else {
		s.short.Set(key, result)
	}

	staged, live := s.short.Get(key)
	if !live {
		metrics.RecordCacheMiss(TierShort)
		logging.Debug().
			Str("key", key).
			Msg("Staged cache entry expired before promotion, long tier unchanged")
		return
	}

	metrics.RecordCacheHit(TierShort)
	s.long.Add(key, staged)
	s.publishSizes()
}

// CleanupExpired sweeps both tiers and returns the total removed.
func (s *TieredStore) CleanupExpired() int {
	longRemoved := s.long.CleanupExpired()
	shortRemoved := s.short.CleanupExpired()

	metrics.RecordCacheEviction(TierLong, longRemoved)
	metrics.RecordCacheEviction(TierShort, shortRemoved)
	s.publishSizes()

	if longRemoved+shortRemoved > 0 {
		logging.Debug().
			Int("long_removed", longRemoved).
			Int("short_removed", shortRemoved).
			Msg("Swept expired cache entries")
	}

	return longRemoved + shortRemoved
}

// Len returns the entry counts of both tiers.
func (s *TieredStore) Len() (long, short int) {
	return s.long.Len(), s.short.Len()
}

// publishSizes updates the per-tier size gauges.
func (s *TieredStore) publishSizes() {
	metrics.SetCacheSize(TierLong, s.long.Len())
	metrics.SetCacheSize(TierShort, s.short.Len())
}
