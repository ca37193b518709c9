// Package cache provides a bounded, mutex-guarded cache of city
// neighborhood lists. It replaces ambient per-process state: callers
// construct one and inject it wherever neighborhood lookups happen.
package cache

import (
	"strings"
	"sync"

	"dscr-analyzer/internal/domain"
)

// DefaultMaxEntries bounds the cache when no explicit limit is given.
const DefaultMaxEntries = 128

// NeighborhoodCache maps "city,state" to the provider's neighborhood
// list. Entries are immutable once written; when full, the oldest entry
// is evicted.
type NeighborhoodCache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string][]domain.Neighborhood
	order      []string // insertion order for eviction
}

// NewNeighborhoodCache creates a cache holding at most maxEntries cities.
// A non-positive limit falls back to DefaultMaxEntries.
func NewNeighborhoodCache(maxEntries int) *NeighborhoodCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &NeighborhoodCache{
		maxEntries: maxEntries,
		entries:    make(map[string][]domain.Neighborhood),
	}
}

// Get returns the cached neighborhoods for a city, if present.
func (c *NeighborhoodCache) Get(city, state string) ([]domain.Neighborhood, bool) {
	key := cacheKey(city, state)

	c.mu.Lock()
	defer c.mu.Unlock()

	hoods, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	// Return a copy so callers cannot mutate the cached slice.
	out := make([]domain.Neighborhood, len(hoods))
	copy(out, hoods)
	return out, true
}

// Put stores the neighborhood list for a city if absent. Concurrent
// writers for the same city keep the first entry; a full cache evicts
// its oldest entry.
func (c *NeighborhoodCache) Put(city, state string, hoods []domain.Neighborhood) {
	key := cacheKey(city, state)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		return
	}

	if len(c.order) >= c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	stored := make([]domain.Neighborhood, len(hoods))
	copy(stored, hoods)
	c.entries[key] = stored
	c.order = append(c.order, key)
}

// Len returns the number of cached cities.
func (c *NeighborhoodCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cacheKey(city, state string) string {
	return strings.ToLower(strings.TrimSpace(city)) + "," + strings.ToLower(strings.TrimSpace(state))
}
