package pipeline

import (
	"testing"
	"time"

	"github.com/neildahan/realdeal/internal/models"
)

func reqAt(lat, lng float64) SearchRequest {
	return SearchRequest{Latitude: lat, Longitude: lng, RadiusMiles: 5}
}

func TestCacheHitWithinTTL(t *testing.T) {
	cache := NewResultCache(time.Minute, 10)
	result := &SearchResult{Total: 3}

	cache.Put(reqAt(33.749, -84.388), result)

	got := cache.Get(reqAt(33.749, -84.388))
	if got != result {
		t.Fatal("expected a cache hit for the identical request")
	}
}

func TestCacheKeyRoundsCoordinates(t *testing.T) {
	cache := NewResultCache(time.Minute, 10)
	cache.Put(reqAt(33.74901, -84.38799), &SearchResult{Total: 1})

	// Within 4-decimal rounding of the stored key.
	if cache.Get(reqAt(33.74903, -84.38801)) == nil {
		t.Error("nearby coordinates within rounding distance should hit")
	}
	// Clearly elsewhere.
	if cache.Get(reqAt(33.76, -84.38799)) != nil {
		t.Error("different coordinates should miss")
	}
}

func TestCacheDistinguishesFilters(t *testing.T) {
	cache := NewResultCache(time.Minute, 10)

	plain := reqAt(33.749, -84.388)
	filtered := reqAt(33.749, -84.388)
	filtered.Filters = models.SearchFilters{Distress: models.DistressLien}

	cache.Put(plain, &SearchResult{Total: 10})

	if cache.Get(filtered) != nil {
		t.Error("a different filter set must not share a cache entry")
	}
}

func TestCacheDistinguishesBounds(t *testing.T) {
	cache := NewResultCache(time.Minute, 10)

	plain := reqAt(33.749, -84.388)
	bounded := reqAt(33.749, -84.388)
	bounded.Bounds = &models.Bounds{MinLat: 33.7, MaxLat: 33.8, MinLng: -84.4, MaxLng: -84.3}

	cache.Put(plain, &SearchResult{Total: 10})

	if cache.Get(bounded) != nil {
		t.Error("a bounded request must not share a cache entry with an unbounded one")
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := NewResultCache(10*time.Millisecond, 10)
	cache.Put(reqAt(33.749, -84.388), &SearchResult{Total: 1})

	time.Sleep(25 * time.Millisecond)

	if cache.Get(reqAt(33.749, -84.388)) != nil {
		t.Error("expired entry must miss")
	}
	if stats := cache.Stats(); stats.Entries != 0 {
		t.Errorf("expired entry should be dropped, have %d entries", stats.Entries)
	}
}

func TestCacheEvictsLRU(t *testing.T) {
	cache := NewResultCache(time.Minute, 2)

	a, b, c := reqAt(33.1, -84.1), reqAt(33.2, -84.2), reqAt(33.3, -84.3)
	cache.Put(a, &SearchResult{Total: 1})
	cache.Put(b, &SearchResult{Total: 2})

	// Touch a so b becomes least recently used.
	cache.Get(a)
	cache.Put(c, &SearchResult{Total: 3})

	if cache.Get(a) == nil {
		t.Error("recently used entry was evicted")
	}
	if cache.Get(b) != nil {
		t.Error("least recently used entry was not evicted")
	}
	if cache.Get(c) == nil {
		t.Error("newest entry missing")
	}
}

func TestCacheLastWriteWins(t *testing.T) {
	cache := NewResultCache(time.Minute, 10)
	req := reqAt(33.749, -84.388)

	cache.Put(req, &SearchResult{Total: 1})
	cache.Put(req, &SearchResult{Total: 2})

	got := cache.Get(req)
	if got == nil || got.Total != 2 {
		t.Errorf("expected the second write to win, got %+v", got)
	}
	if stats := cache.Stats(); stats.Entries != 1 {
		t.Errorf("same-key writes must not duplicate entries, have %d", stats.Entries)
	}
}

func TestCacheStats(t *testing.T) {
	cache := NewResultCache(time.Minute, 10)
	req := reqAt(33.749, -84.388)

	cache.Get(req) // miss
	cache.Put(req, &SearchResult{})
	cache.Get(req) // hit

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("hits=%d misses=%d, want 1/1", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("hit rate = %v, want 0.5", stats.HitRate)
	}
}
