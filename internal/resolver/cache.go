package resolver

import (
	"sync"
	"time"
)

type cacheEntry struct {
	uri     string
	expires time.Time
}

// uriCache remembers resolved URIs for a fixed TTL. A zero TTL disables it.
type uriCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

func newURICache(ttl time.Duration, now func() time.Time) *uriCache {
	return &uriCache{ttl: ttl, now: now, entries: make(map[string]cacheEntry)}
}

func (c *uriCache) get(key string) (string, bool) {
	if c.ttl <= 0 {
		return "", false
	}
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return "", false
	}
	return e.uri, true
}

func (c *uriCache) put(key, uri string) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{uri: uri, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// purge drops every entry, or only the expired ones.
func (c *uriCache) purge(expiredOnly bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !expiredOnly {
		n := len(c.entries)
		c.entries = make(map[string]cacheEntry)
		return n
	}
	now := c.now()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *uriCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
