// Package cache holds the competitor price cache. Entries carry a strict
// TTL: anything past its expiry is a miss and is evicted on read, never
// served stale. There is no background eviction.
package cache

import (
	"context"
	"sync"
	"time"

	"repricer-service/internal/models"
)

// PriceCache stores the last fetched competitor price set per key. The
// gateway consults it before making an external search call.
type PriceCache interface {
	Get(ctx context.Context, key string) (models.CompetitorPriceSet, bool)
	Set(ctx context.Context, set models.CompetitorPriceSet)
}

// MemoryCache is the in-process PriceCache implementation. Eviction is
// check-on-read.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]models.CompetitorPriceSet
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]models.CompetitorPriceSet),
		now:     time.Now,
	}
}

// Get returns the entry for key, treating expired entries as misses and
// removing them.
func (c *MemoryCache) Get(ctx context.Context, key string) (models.CompetitorPriceSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, ok := c.entries[key]
	if !ok {
		return models.CompetitorPriceSet{}, false
	}
	if set.Expired(c.now()) {
		delete(c.entries, key)
		return models.CompetitorPriceSet{}, false
	}
	return set, true
}

// Set stores or overwrites the entry under its key.
func (c *MemoryCache) Set(ctx context.Context, set models.CompetitorPriceSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[set.Key] = set
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
