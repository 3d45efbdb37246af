package metadata

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Cache is a bounded in-memory cache for remote lookups. Entries are evicted
// least-recently-used once MaxItems is exceeded and expire TTL after they
// were stored, regardless of how often they are read.
type Cache struct {
	lru *expirable.LRU[string, any]

	flightMu sync.Mutex
	flights  map[string]*singleflight.Group
}

// CacheConfig holds cache configuration.
type CacheConfig struct {
	TTL      time.Duration
	MaxItems int
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:      15 * time.Minute,
		MaxItems: 1000,
	}
}

// NewCache creates a new cache with the given configuration.
func NewCache(cfg CacheConfig) *Cache {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = def.MaxItems
	}

	return &Cache{
		lru:     expirable.NewLRU[string, any](cfg.MaxItems, nil, cfg.TTL),
		flights: make(map[string]*singleflight.Group),
	}
}

// Get retrieves an item from the cache and marks it as recently used.
func (c *Cache) Get(key string) (any, bool) {
	return c.lru.Get(key)
}

// Set stores an item in the cache, restarting its TTL.
func (c *Cache) Set(key string, value any) {
	c.lru.Add(key, value)
}

// Delete removes an item from the cache.
func (c *Cache) Delete(key string) {
	c.lru.Remove(key)
}

// Clear removes all items from the cache.
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Len returns the number of live items in the cache.
func (c *Cache) Len() int {
	return len(c.lru.Keys())
}

// Close drops every cached item.
func (c *Cache) Close() {
	c.Clear()
}

func (c *Cache) group(category string) *singleflight.Group {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()

	g, ok := c.flights[category]
	if !ok {
		g = &singleflight.Group{}
		c.flights[category] = g
	}
	return g
}

// Load returns the cached value for key within category, calling fn on a
// miss. Concurrent misses for the same key share a single call to fn.
// Errors are not cached. A nil cache calls fn directly.
func Load[T any](c *Cache, category, key string, fn func() (T, error)) (T, error) {
	if c == nil {
		return fn()
	}
	cacheKey := category + ":" + key
	if v, ok := c.Get(cacheKey); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err, _ := c.group(category).Do(key, func() (any, error) {
		if v, ok := c.Get(cacheKey); ok {
			return v, nil
		}
		value, err := fn()
		if err != nil {
			return nil, err
		}
		c.Set(cacheKey, value)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	typed, _ := v.(T)
	return typed, nil
}
