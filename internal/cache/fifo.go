// Package cache provides the bounded, insertion-ordered lookup tables
// backing the redirect resolver and the content fetcher.
package cache

import "sync"

// FIFO is a bounded map with first-in-first-out eviction. When an insert
// pushes the size past capacity, the oldest entry is dropped. Updating an
// existing key replaces the value but keeps its original insertion slot.
// Safe for concurrent use.
type FIFO[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	order    []K
	entries  map[K]V
}

// NewFIFO creates a FIFO with the given capacity. Capacity must be > 0.
func NewFIFO[K comparable, V any](capacity int) *FIFO[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &FIFO[K, V]{
		capacity: capacity,
		order:    make([]K, 0, capacity),
		entries:  make(map[K]V, capacity),
	}
}

// Get returns the cached value for key and whether it was present.
func (c *FIFO[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores value under key, evicting the oldest entry if the cache would
// exceed capacity.
func (c *FIFO[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		c.entries[key] = value
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.order = append(c.order, key)
	c.entries[key] = value
}

// Len returns the number of cached entries.
func (c *FIFO[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports whether key is cached without touching its value.
func (c *FIFO[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}
