package store

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTimeout is how long a cached value is served without going
// back to the durable backend.
const DefaultCacheTimeout = 5 * time.Minute

type cacheEntry struct {
	data     []byte
	storedAt time.Time
	version  uint64
}

// CacheStats is a point-in-time view of the cache.
type CacheStats struct {
	Size    int      `json:"size"`
	Keys    []string `json:"keys"`
	Version uint64   `json:"version"`
}

// cache is a TTL map keyed by store key. Expiry is lazy: an entry older
// than ttl is dropped the next time it is read.
type cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
	version uint64
}

func newCache(ttl time.Duration, now func() time.Time) *cache {
	return &cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

func (c *cache) fresh(e cacheEntry) bool {
	return c.now().Sub(e.storedAt) < c.ttl
}

// get returns a fresh entry, deleting it if it has expired.
func (c *cache) get(key string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return cacheEntry{}, false
	}
	if !c.fresh(e) {
		delete(c.entries, key)
		return cacheEntry{}, false
	}
	return e, true
}

func (c *cache) put(key string, data []byte) cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.version++
	e := cacheEntry{data: data, storedAt: c.now(), version: c.version}
	c.entries[key] = e
	return e
}

func (c *cache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// removeMatching deletes every entry whose key satisfies match and returns
// the deleted keys.
func (c *cache) removeMatching(match func(key string) bool) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	for key := range c.entries {
		if match(key) {
			delete(c.entries, key)
			removed = append(removed, key)
		}
	}
	sort.Strings(removed)
	return removed
}

// fresh entries under prefix, keyed by store key.
func (c *cache) withPrefix(prefix string) map[string]cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]cacheEntry)
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) && c.fresh(e) {
			out[key] = e
		}
	}
	return out
}

func (c *cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *cache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return CacheStats{Size: len(c.entries), Keys: keys, Version: c.version}
}
