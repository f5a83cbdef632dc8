package cache

import (
	"time"

	"github.com/grocerwatch/backend/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SearchCache is a size-bounded, TTL-expiring cache of resolved search
// previews. Pricing goes stale quickly, so entries live minutes, not days.
type SearchCache struct {
	lru *expirable.LRU[string, *domain.SearchResult]
}

// NewSearchCache creates a cache holding at most size entries for ttl each.
func NewSearchCache(size int, ttl time.Duration) *SearchCache {
	if size <= 0 {
		size = 128
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SearchCache{
		lru: expirable.NewLRU[string, *domain.SearchResult](size, nil, ttl),
	}
}

// Get returns the cached result for key, if present and not expired.
func (c *SearchCache) Get(key string) (*domain.SearchResult, bool) {
	return c.lru.Get(key)
}

// Add stores a result under key, evicting the least recently used entry if
// the cache is full.
func (c *SearchCache) Add(key string, result *domain.SearchResult) {
	c.lru.Add(key, result)
}

// Len returns the current number of cached entries.
func (c *SearchCache) Len() int {
	return c.lru.Len()
}
