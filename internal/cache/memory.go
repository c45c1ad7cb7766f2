package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache is a thread-safe in-memory cache implementation.
type MemoryCache struct {
	data       sync.Map
	defaultTTL time.Duration
	stopCh     chan struct{}
	closed     atomic.Bool

	// Statistics
	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// memoryCacheEntry holds a cached value with its expiration time.
type memoryCacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a new memory cache with the given default TTL.
// A background goroutine removes expired entries every minute until Close.
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	c := &MemoryCache{
		defaultTTL: defaultTTL,
		stopCh:     make(chan struct{}),
	}
	go c.cleanupLoop(time.Minute)
	return c
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	val, ok := c.data.Load(key)
	if !ok {
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}

	entry := val.(*memoryCacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.data.Delete(key)
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}

	c.hits.Add(1)
	// Return a copy to prevent mutation
	result := make([]byte, len(entry.value))
	copy(result, entry.value)
	return result, nil
}

// Set stores a value in the cache with the specified TTL.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	// Copy the value to prevent external mutation
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c.data.Store(key, &memoryCacheEntry{
		value:     valueCopy,
		expiresAt: time.Now().Add(ttl),
	})
	c.sets.Add(1)
	return nil
}

// Delete removes a key from the cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.data.Delete(key)
	return nil
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear(_ context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.data.Range(func(key, value any) bool {
		c.data.Delete(key)
		return true
	})
	return nil
}

// Close stops the cleanup goroutine and releases resources.
func (c *MemoryCache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
	return nil
}

// Stats returns current cache statistics.
func (c *MemoryCache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	items := 0
	c.data.Range(func(_, _ any) bool {
		items++
		return true
	})

	return Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		Items:   items,
		HitRate: hitRate,
	}
}


// cleanupLoop periodically removes expired entries.
func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.data.Range(func(key, value any) bool {
				entry := value.(*memoryCacheEntry)
				if now.After(entry.expiresAt) {
					c.data.Delete(key)
				}
				return true
			})
		case <-c.stopCh:
			return
		}
	}
}
