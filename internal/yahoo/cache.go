package yahoo

import (
	"sync"
	"time"
)

type cacheItem struct {
	value      string
	expiration time.Time
}

// Cache is a minimal in-memory TTL cache safe for concurrent access. The
// client keeps its session crumb here; quote data is never cached.
type Cache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	now   func() time.Time
}

// NewCache constructs an empty Cache instance.
func NewCache() *Cache { return &Cache{items: make(map[string]cacheItem), now: time.Now} }

// Set stores a value with a time-to-live for the given key.
func (c *Cache) Set(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem{value: value, expiration: c.now().Add(ttl)}
}

// Get retrieves a non-expired value for the key, returning false if missing or expired.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if c.now().After(it.expiration) {
		c.evictExpired(key)
		return "", false
	}
	return it.value, true
}

// evictExpired deletes key only if it is still expired under the write lock,
// so a value Set after the read in Get survives.
func (c *Cache) evictExpired(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.items[key]; ok && c.now().After(it.expiration) {
		delete(c.items, key)
	}
}

// Delete drops the key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}
