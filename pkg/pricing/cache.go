package pricing

import (
	"sync"
	"time"
)

// CachedProvider memoizes another provider's lookups with a TTL. It
// exists for assumption sources backed by remote catalogs; the cache is
// explicit and injected, never ambient module state.
type CachedProvider struct {
	inner Provider
	ttl   time.Duration

	mutex sync.RWMutex
	data  map[string]cacheEntry
}

type cacheEntry struct {
	assumptions Assumptions
	expiresAt   time.Time
}

// NewCachedProvider wraps inner with a TTL cache.
func NewCachedProvider(inner Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		ttl:   ttl,
		data:  make(map[string]cacheEntry),
	}
}

// Assumptions returns cached assumptions when fresh, otherwise consults
// the inner provider and refreshes the entry.
func (c *CachedProvider) Assumptions(provider string) Assumptions {
	c.mutex.RLock()
	entry, exists := c.data[provider]
	c.mutex.RUnlock()

	if exists && time.Now().Before(entry.expiresAt) {
		return entry.assumptions
	}

	a := c.inner.Assumptions(provider)

	c.mutex.Lock()
	c.data[provider] = cacheEntry{
		assumptions: a,
		expiresAt:   time.Now().Add(c.ttl),
	}
	c.mutex.Unlock()

	return a
}

// Name identifies the provider implementation.
func (c *CachedProvider) Name() string {
	return c.inner.Name() + "+cache"
}

// Clear drops all cached entries.
func (c *CachedProvider) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]cacheEntry)
}
