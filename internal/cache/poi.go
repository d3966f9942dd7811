package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prix-carburants/backend-go/internal/config"
	"github.com/prix-carburants/backend-go/internal/models"
)

// poiEntry wraps a cached Overpass response with its expiry.
type poiEntry struct {
	pois      []models.POI
	expiresAt time.Time
}

// POICache is an LRU of raw Overpass responses keyed by rounded center and
// radius. Entries live for the configured TTL (24h by default). Lookups run
// from per-search enrichment goroutines, so the counters are atomic.
type POICache struct {
	lru     *lru.Cache[string, *poiEntry]
	ttl     time.Duration
	clock   clock
	metrics Metrics
	hits    atomic.Uint64
	misses  atomic.Uint64
}

func NewPOICache(cfg *config.CacheConfig) (*POICache, error) {
	if cfg == nil {
		cfg = config.GetCacheConfig()
	}

	lruCache, err := lru.New[string, *poiEntry](cfg.POICacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating POI cache: %w", err)
	}

	return &POICache{
		lru:   lruCache,
		ttl:   cfg.GetPOICacheTTL(),
		clock: realClock{},
	}, nil
}

// WithMetrics reports hit/miss events to m alongside the local counters.
func (c *POICache) WithMetrics(m Metrics) *POICache {
	c.metrics = m
	return c
}

// Get returns the cached POIs for the key, or nil on a miss or expired entry.
func (c *POICache) Get(lat, lon float64, radiusM int) []models.POI {
	key := POIKey(lat, lon, radiusM)
	if entry, ok := c.lru.Get(key); ok {
		if c.clock.Now().Before(entry.expiresAt) {
			c.hits.Add(1)
			if c.metrics != nil {
				c.metrics.CacheHit("poi")
			}
			return entry.pois
		}
		// Entry expired, remove it
		c.lru.Remove(key)
	}
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMiss("poi")
	}
	return nil
}

func (c *POICache) Set(lat, lon float64, radiusM int, pois []models.POI) {
	c.lru.Add(POIKey(lat, lon, radiusM), &poiEntry{
		pois:      pois,
		expiresAt: c.clock.Now().Add(c.ttl),
	})
}

// Stats returns hit/miss counts since startup.
func (c *POICache) Stats() map[string]uint64 {
	return map[string]uint64{
		"hits":   c.hits.Load(),
		"misses": c.misses.Load(),
	}
}

// Clear removes all entries.
func (c *POICache) Clear() {
	c.lru.Purge()
}
