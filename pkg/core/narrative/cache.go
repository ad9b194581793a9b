package narrative

import (
	"sync"

	"saas_stack/pkg/core/projection"
)

// Cache holds the narrative for a single parameter tuple and provider.
// Any other pair misses; storing a new entry replaces the old one.
type Cache struct {
	mu     sync.Mutex
	key    string
	result Result
	valid  bool
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{}
}

func cacheKey(p projection.Parameters, provider string) string {
	return p.Fingerprint() + "|" + provider
}

// Lookup returns the cached result if it was produced for exactly p by provider.
func (c *Cache) Lookup(p projection.Parameters, provider string) (Result, bool) {
	key := cacheKey(p, provider)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || c.key != key {
		return Result{}, false
	}
	return c.result, true
}

// Store replaces the cache entry with r for p and provider.
func (c *Cache) Store(p projection.Parameters, provider string, r Result) {
	key := cacheKey(p, provider)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = key
	c.result = r
	c.valid = true
}

// Invalidate drops the entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.result = Result{}
	c.key = ""
}
