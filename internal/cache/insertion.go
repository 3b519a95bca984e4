// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

// Package cache implements the two cooperating tiers behind the resolution
// pipeline: a bounded long-lived tier evicted in insertion order, and an
// unbounded short-lived tier that stages every write before promotion.
package cache

import (
	"sync"
	"time"

	"github.com/tomtom215/locus/internal/models"
)

// insertionEntry is a node in the InsertionCache's doubly-linked list.
type insertionEntry struct {
	key       string
	value     models.GeoResult
	prev      *insertionEntry
	next      *insertionEntry
	expiresAt time.Time
}

// InsertionCache is a thread-safe bounded cache evicted in insertion order.
// It uses a doubly-linked list for ordering and a hashmap for lookups, giving
// O(1) Get, Add, and eviction.
//
// Unlike an LRU, reads do not refresh an entry's position or retention:
// once the capacity is exceeded, the oldest-inserted entry goes first no
// matter how often it was read. Re-adding an existing key re-stamps it as
// newest-inserted.
type InsertionCache struct {
	mu sync.RWMutex

	// capacity is the maximum number of entries
	capacity int

	// ttl is the per-entry retention, counted from insertion
	ttl time.Duration

	// items maps keys to linked list nodes for O(1) lookup
	items map[string]*insertionEntry

	// head and tail are sentinel nodes for the doubly-linked list.
	// head.next is the newest insertion, tail.prev is the oldest.
	head *insertionEntry
	tail *insertionEntry

	// stats
	hits      int64
	misses    int64
	evictions int64
}

// NewInsertionCache creates a bounded insertion-order cache.
func NewInsertionCache(capacity int, ttl time.Duration) *InsertionCache {
	if capacity <= 0 {
		capacity = 200
	}
	if ttl <= 0 {
		ttl = 365 * 24 * time.Hour
	}

	c := &InsertionCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*insertionEntry, capacity),
		head:     &insertionEntry{},
		tail:     &insertionEntry{},
	}

	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get retrieves an entry without refreshing its retention or position.
// Expired entries are removed lazily and reported as misses.
func (c *InsertionCache) Get(key string) (models.GeoResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists {
		c.misses++
		return models.GeoResult{}, false
	}

	if time.Now().After(entry.expiresAt) {
		c.removeEntry(entry)
		c.evictions++
		c.misses++
		return models.GeoResult{}, false
	}

	c.hits++
	return entry.value, true
}

// Contains reports whether a live entry exists for key.
func (c *InsertionCache) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if entry, exists := c.items[key]; exists {
		return !time.Now().After(entry.expiresAt)
	}
	return false
}

// Add inserts or replaces an entry. An existing key is re-stamped as the
// newest insertion with a fresh retention window. If the cache is over
// capacity, the oldest-inserted entry is silently evicted.
func (c *InsertionCache) Add(key string, value models.GeoResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if entry, exists := c.items[key]; exists {
		entry.value = value
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return
	}

	entry := &insertionEntry{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	}

	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

// Remove removes an entry. Returns true if it was present.
func (c *InsertionCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[key]; exists {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Len returns the current number of entries.
func (c *InsertionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *InsertionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*insertionEntry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// CleanupExpired removes all expired entries and returns how many were removed.
func (c *InsertionCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	// Walk from tail (oldest) to head (newest)
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if now.After(entry.expiresAt) {
			c.removeEntry(entry)
			removed++
		}
		entry = prev
	}

	c.evictions += int64(removed)
	return removed
}

// Stats returns hit/miss/eviction counters and the current size.
func (c *InsertionCache) Stats() (hits, misses, evictions int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, c.evictions, len(c.items)
}

// Internal methods (must be called with lock held)

// addToFront adds an entry at the newest-insertion end of the list.
func (c *InsertionCache) addToFront(entry *insertionEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

// moveToFront re-stamps an existing entry as the newest insertion.
func (c *InsertionCache) moveToFront(entry *insertionEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

// removeEntry removes an entry from both the list and the map.
func (c *InsertionCache) removeEntry(entry *insertionEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

// evictOldest removes the oldest-inserted entry.
func (c *InsertionCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return // List is empty
	}
	c.removeEntry(oldest)
	c.evictions++
}
