// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

package cache

import (
	"sync"
	"time"

	"github.com/tomtom215/locus/internal/models"
)

// expiringEntry is a value with an expiry timestamp.
type expiringEntry struct {
	value     models.GeoResult
	expiresAt time.Time
}

// ExpiringCache is a thread-safe unbounded cache with per-entry TTLs.
// Entries expire lazily on read and can be swept in bulk with CleanupExpired.
type ExpiringCache struct {
	mu sync.RWMutex

	// defaultTTL applies when Set is used without an explicit TTL
	defaultTTL time.Duration

	items map[string]expiringEntry

	// stats
	hits   int64
	misses int64
}

// NewExpiringCache creates an expiring cache with the given default TTL.
func NewExpiringCache(defaultTTL time.Duration) *ExpiringCache {
	if defaultTTL <= 0 {
		defaultTTL = 30 * 24 * time.Hour
	}

	return &ExpiringCache{
		defaultTTL: defaultTTL,
		items:      make(map[string]expiringEntry),
	}
}

// Get retrieves an entry. Expired entries are removed and reported as misses.
func (c *ExpiringCache) Get(key string) (models.GeoResult, bool) {
	c.mu.RLock()
	entry, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return models.GeoResult{}, false
	}

	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it
		if cur, ok := c.items[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.items, key)
		}
		c.misses++
		c.mu.Unlock()
		return models.GeoResult{}, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return entry.value, true
}

// Set stores an entry with the default TTL.
func (c *ExpiringCache) Set(key string, value models.GeoResult) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores an entry with an explicit TTL. A zero or negative TTL
// produces an entry that is already expired, so it will never be readable.
func (c *ExpiringCache) SetWithTTL(key string, value models.GeoResult, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = expiringEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Remove removes an entry. Returns true if it was present.
func (c *ExpiringCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		delete(c.items, key)
		return true
	}
	return false
}

// Len returns the current number of entries, including not-yet-swept
// expired ones.
func (c *ExpiringCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *ExpiringCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]expiringEntry)
}

// CleanupExpired removes all expired entries and returns how many were removed.
func (c *ExpiringCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range c.items {
		if now.After(entry.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Stats returns hit/miss counters and the current size.
func (c *ExpiringCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.items)
}
