package noise

import (
	"sync"

	"github.com/gogpu/lic"
)

// Cache keeps recently generated textures so that unchanged parameters do
// not regenerate them. Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[Params]*cacheEntry
	limit   int
	tick    int64

	hits, misses uint64
}

type cacheEntry struct {
	field *lic.NoiseField
	atime int64
}

// CacheStats are cumulative cache counters.
type CacheStats struct {
	Len          int
	Hits, Misses uint64
}

// NewCache creates a cache holding at most limit textures. A limit below 1
// is treated as 1.
func NewCache(limit int) *Cache {
	if limit < 1 {
		limit = 1
	}
	return &Cache{entries: make(map[Params]*cacheEntry), limit: limit}
}

// Get returns the texture for p, generating it on a miss. The texture is
// shared between callers and must not be modified. Failed generations are
// not cached.
func (c *Cache) Get(p Params) (*lic.NoiseField, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	if e, ok := c.entries[p]; ok {
		e.atime = c.tick
		c.hits++
		return e.field, nil
	}
	c.misses++

	field, err := Generate(p)
	if err != nil {
		return nil, err
	}
	if len(c.entries) >= c.limit {
		c.evictOldest()
	}
	c.entries[p] = &cacheEntry{field: field, atime: c.tick}
	return field, nil
}

// Clear drops every texture.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Params]*cacheEntry)
}

// Stats returns the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Len: len(c.entries), Hits: c.hits, Misses: c.misses}
}

// evictOldest removes the least recently used entry. Caller must hold c.mu.
func (c *Cache) evictOldest() {
	var (
		oldest Params
		atime  int64 = -1
	)
	for p, e := range c.entries {
		if atime < 0 || e.atime < atime {
			oldest, atime = p, e.atime
		}
	}
	if atime >= 0 {
		delete(c.entries, oldest)
	}
}
