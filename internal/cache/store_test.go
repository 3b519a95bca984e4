// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

package cache

import (
	"testing"
	"time"
)

func newTestStore() *TieredStore {
	return NewTieredStore(StoreConfig{
		LongCapacity: 5,
		LongTTL:      time.Hour,
		ShortTTL:     time.Hour,
	})
}

func TestTieredStorePutThenGet(t *testing.T) {
	s := newTestStore()

	s.Put("key", geoResult(1, 2), nil)

	got, found := s.Get("key")
	if !found {
		t.Fatal("Expected hit after Put")
	}
	if got.Location.Lat != 1 || got.Location.Lng != 2 {
		t.Errorf("Got wrong value: %+v", got)
	}
}

func TestTieredStoreGetMiss(t *testing.T) {
	s := newTestStore()

	if _, found := s.Get("missing"); found {
		t.Error("Expected miss for missing key")
	}
}

func TestTieredStoreZeroTTLOverrideNeverPromotes(t *testing.T) {
	s := newTestStore()

	zero := time.Duration(0)
	s.Put("key", geoResult(1, 2), &zero)

	// The staged entry expired before read-back, so the long tier was never
	// written and every subsequent lookup misses.
	if _, found := s.Get("key"); found {
		t.Error("Zero-TTL write must not reach the read path")
	}
	if _, found := s.Get("key"); found {
		t.Error("Repeated lookups must keep missing")
	}
}

func TestTieredStoreZeroTTLDoesNotClobberExisting(t *testing.T) {
	s := newTestStore()

	s.Put("key", geoResult(1, 2), nil)

	zero := time.Duration(0)
	s.Put("key", geoResult(9, 9), &zero)

	got, found := s.Get("key")
	if !found {
		t.Fatal("Earlier promoted entry should survive a failed staging write")
	}
	if got.Location.Lat != 1 {
		t.Errorf("Expected earlier value to survive, got lat %v", got.Location.Lat)
	}
}

func TestTieredStorePositiveTTLOverridePromotes(t *testing.T) {
	s := newTestStore()

	ttl := time.Minute
	s.Put("key", geoResult(3, 4), &ttl)

	if _, found := s.Get("key"); !found {
		t.Error("Positive TTL override should promote to the long tier")
	}
}

func TestTieredStorePutStripsCachedAnnotation(t *testing.T) {
	s := newTestStore()

	cached := true
	result := geoResult(1, 2)
	result.Cached = &cached
	s.Put("key", result, nil)

	got, found := s.Get("key")
	if !found {
		t.Fatal("Expected hit after Put")
	}
	if got.Cached != nil {
		t.Error("Stored results must not carry the per-request cached annotation")
	}
}

func TestTieredStoreReadsDoNotRefreshRetention(t *testing.T) {
	s := NewTieredStore(StoreConfig{
		LongCapacity: 2,
		LongTTL:      time.Hour,
		ShortTTL:     time.Hour,
	})

	s.Put("first", geoResult(1, 1), nil)
	s.Put("second", geoResult(2, 2), nil)

	// Heavy reads on the oldest entry must not protect it
	for i := 0; i < 5; i++ {
		s.Get("first")
	}

	s.Put("third", geoResult(3, 3), nil)

	if _, found := s.Get("first"); found {
		t.Error("Oldest-inserted entry should have been evicted despite reads")
	}
	if _, found := s.Get("second"); !found {
		t.Error("Expected second to survive")
	}
	if _, found := s.Get("third"); !found {
		t.Error("Expected third to survive")
	}
}

func TestTieredStoreCleanupExpired(t *testing.T) {
	s := NewTieredStore(StoreConfig{
		LongCapacity: 5,
		LongTTL:      time.Hour,
		ShortTTL:     time.Hour,
	})

	ttl := 10 * time.Millisecond
	s.Put("ephemeral", geoResult(1, 1), &ttl)
	s.Put("stable", geoResult(2, 2), nil)

	time.Sleep(20 * time.Millisecond)

	// The ephemeral entry was promoted (it read back live) and sits in the
	// long tier with the long TTL; only its short-tier copy has expired.
	removed := s.CleanupExpired()
	if removed != 1 {
		t.Errorf("Expected 1 expired entry swept, got %d", removed)
	}

	long, short := s.Len()
	if long != 2 {
		t.Errorf("Expected 2 long-tier entries, got %d", long)
	}
	if short != 1 {
		t.Errorf("Expected 1 short-tier entry, got %d", short)
	}
}
