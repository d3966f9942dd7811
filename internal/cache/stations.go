package cache

import (
	"sync"
	"time"

	"github.com/prix-carburants/backend-go/internal/config"
	"github.com/prix-carburants/backend-go/internal/models"
)

// StationCache holds the full parsed station feed in memory. The feed is a
// single document covering all of France, so one slice with a TTL is enough.
type StationCache struct {
	stations    []models.Station
	lastUpdated time.Time
	ttl         time.Duration
	mu          sync.RWMutex
}

func NewStationCache(cfg *config.CacheConfig) *StationCache {
	if cfg == nil {
		cfg = config.GetCacheConfig()
	}
	return &StationCache{
		stations:    make([]models.Station, 0),
		lastUpdated: time.Time{}, // Zero time to ensure first fetch
		ttl:         cfg.GetStationListTTL(),
	}
}

func (c *StationCache) GetStations() []models.Station {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.isExpired() {
		return nil
	}
	return c.stations
}

func (c *StationCache) SetStations(stations []models.Station) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stations = stations
	c.lastUpdated = time.Now()
}

func (c *StationCache) isExpired() bool {
	return time.Since(c.lastUpdated) > c.ttl
}
