package cache

import (
	"sync"
	"time"
)

// Item is one cached value with its expiration.
type Item struct {
	Value      interface{}
	Expiration int64
}

// Expired reports whether the item's TTL has passed.
func (item Item) Expired() bool {
	if item.Expiration == 0 {
		return false
	}
	return time.Now().UnixNano() > item.Expiration
}

// Cache is a thread-safe in-memory TTL cache. The chat engine uses it to
// keep the active chatbot rule set hot between catalog reads.
type Cache struct {
	mu                sync.RWMutex
	items             map[string]Item
	defaultExpiration time.Duration
}

// New creates a cache; cleanupInterval <= 0 disables the background sweep
// (expired items are then dropped lazily on Get).
func New(defaultExpiration, cleanupInterval time.Duration) *Cache {
	c := &Cache{
		items:             make(map[string]Item),
		defaultExpiration: defaultExpiration,
	}
	if cleanupInterval > 0 {
		go c.sweep(cleanupInterval)
	}
	return c
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithExpiration(key, value, c.defaultExpiration)
}

// SetWithExpiration stores a value with an explicit TTL.
func (c *Cache) SetWithExpiration(key string, value interface{}, d time.Duration) {
	var exp int64
	if d > 0 {
		exp = time.Now().Add(d).UnixNano()
	}

	c.mu.Lock()
	c.items[key] = Item{Value: value, Expiration: exp}
	c.mu.Unlock()
}

// Get retrieves a live value.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	item, found := c.items[key]
	c.mu.RUnlock()

	if !found || item.Expired() {
		return nil, false
	}
	return item.Value, true
}

// Delete removes a key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Flush empties the cache.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.items = make(map[string]Item)
	c.mu.Unlock()
}

// Count returns the number of stored items, including expired ones not yet
// swept.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now().UnixNano()
		c.mu.Lock()
		for k, v := range c.items {
			if v.Expiration > 0 && now > v.Expiration {
				delete(c.items, k)
			}
		}
		c.mu.Unlock()
	}
}
