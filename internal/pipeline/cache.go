package pipeline

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultCacheTTL keeps results fresh enough for an interactive session
	// while absorbing repeated identical searches.
	DefaultCacheTTL        = 5 * time.Minute
	DefaultCacheMaxEntries = 200
)

type cacheEntry struct {
	key      string
	result   *SearchResult
	storedAt time.Time
}

// ResultCache is a TTL cache over completed scans with an LRU bound on entry
// count. Concurrent writers for the same key are last-write-wins.
type ResultCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List // front = most recently used

	hits   int64
	misses int64
}

// NewResultCache builds a cache; non-positive arguments fall back to the
// defaults.
func NewResultCache(ttl time.Duration, maxEntries int) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	return &ResultCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// cacheKey canonicalizes a request. Coordinates are rounded to 4 decimals
// (about 11 meters) so jittery client coordinates still hit.
func cacheKey(req SearchRequest) string {
	return fmt.Sprintf("%.4f|%.4f|%.1f|%s|%s",
		req.Latitude, req.Longitude, req.RadiusMiles, req.Filters.Key(), req.Bounds.Key())
}

// Get returns the cached result for the request, or nil on a miss. Expired
// entries count as misses and are dropped.
func (c *ResultCache) Get(req SearchRequest) *SearchResult {
	key := cacheKey(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}
	entry := el.Value.(*cacheEntry)
	if time.Since(entry.storedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		c.misses++
		return nil
	}
	c.order.MoveToFront(el)
	c.hits++
	return entry.result
}

// Put stores a result, evicting the least recently used entry when full.
func (c *ResultCache) Put(req SearchRequest, result *SearchResult) {
	key := cacheKey(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.result = result
		entry.storedAt = time.Now()
		c.order.MoveToFront(el)
		return
	}

	for len(c.entries) >= c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}

	el := c.order.PushFront(&cacheEntry{key: key, result: result, storedAt: time.Now()})
	c.entries[key] = el
}

// Clear drops every entry.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// CacheStats is a point-in-time view of cache effectiveness.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
	TTLSeconds float64 `json:"ttl_seconds"`
}

// Stats reports cache counters.
func (c *ResultCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Entries:    len(c.entries),
		MaxEntries: c.maxEntries,
		Hits:       c.hits,
		Misses:     c.misses,
		TTLSeconds: c.ttl.Seconds(),
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}
