package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prix-carburants/backend-go/internal/config"
	"github.com/prix-carburants/backend-go/internal/models"
)

// historyEntry wraps the cached record with its expiry
type historyEntry struct {
	record    *models.PriceRecord
	expiresAt time.Time
}

// HistoryCacheService provides a two-layer price history cache using LRU and
// DynamoDB. The LRU layer absorbs repeated trend requests for the same
// station; DynamoDB persists records across process restarts. Concurrent
// trend requests share one instance, so the counters are atomic.
type HistoryCacheService struct {
	lru          *lru.Cache[string, *historyEntry]
	dynamoCache  *DynamoHistoryCache
	ttl          time.Duration
	clock        clock
	metrics      Metrics
	lruHits      atomic.Uint64
	lruMisses    atomic.Uint64
	dynamoHits   atomic.Uint64
	dynamoMisses atomic.Uint64
}

// NewHistoryCacheService creates a cache service with both LRU and DynamoDB
// layers. When the DynamoDB layer is disabled by configuration the service
// runs LRU-only.
func NewHistoryCacheService(ctx context.Context, cfg *config.CacheConfig) (*HistoryCacheService, error) {
	if cfg == nil {
		cfg = config.GetCacheConfig()
	}
	if !cfg.EnableDynamoCache {
		return NewHistoryCacheServiceWithClient(nil, cfg)
	}

	dynamoClient, err := NewDynamoClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating DynamoDB client: %w", err)
	}
	return NewHistoryCacheServiceWithClient(dynamoClient, cfg)
}

// NewHistoryCacheServiceWithClient creates a cache service on an existing
// DynamoDB client. A nil client leaves the service LRU-only.
func NewHistoryCacheServiceWithClient(dynamoClient DynamoDBClient, cfg *config.CacheConfig) (*HistoryCacheService, error) {
	if cfg == nil {
		cfg = config.GetCacheConfig()
	}

	lruCache, err := lru.New[string, *historyEntry](cfg.HistoryLRUSize)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}

	svc := &HistoryCacheService{
		lru:   lruCache,
		ttl:   cfg.GetHistoryLRUTTL(),
		clock: realClock{},
	}
	if dynamoClient != nil {
		svc.dynamoCache = NewDynamoHistoryCache(dynamoClient, cfg)
	}
	return svc, nil
}

// WithMetrics reports hit/miss events to m alongside the local counters.
func (c *HistoryCacheService) WithMetrics(m Metrics) *HistoryCacheService {
	c.metrics = m
	return c
}

// getCacheKey generates a unique cache key for a station and date
func getCacheKey(stationID string, date time.Time) string {
	return fmt.Sprintf("%s:%s", stationID, date.Format("2006-01-02"))
}

// GetRecord tries the LRU cache first, then DynamoDB
func (c *HistoryCacheService) GetRecord(ctx context.Context, stationID string, date time.Time) (*models.PriceRecord, error) {
	key := getCacheKey(stationID, date)
	if entry, ok := c.lru.Get(key); ok {
		if c.clock.Now().Before(entry.expiresAt) {
			c.lruHits.Add(1)
			if c.metrics != nil {
				c.metrics.CacheHit("history_lru")
			}
			return entry.record, nil
		}
		// Entry expired, remove it
		c.lru.Remove(key)
	}
	c.lruMisses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMiss("history_lru")
	}

	if c.dynamoCache == nil {
		return nil, nil
	}

	record, err := c.dynamoCache.GetRecord(ctx, stationID, date)
	if err != nil {
		return nil, fmt.Errorf("getting price record from DynamoDB: %w", err)
	}

	if record != nil {
		c.dynamoHits.Add(1)
		if c.metrics != nil {
			c.metrics.CacheHit("history_dynamo")
		}
		// Cache hit in DynamoDB, store in LRU cache
		c.lru.Add(key, &historyEntry{
			record:    record,
			expiresAt: c.clock.Now().Add(c.ttl),
		})
		return record, nil
	}
	c.dynamoMisses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMiss("history_dynamo")
	}

	return nil, nil
}

// SaveRecord saves a price record to both layers
func (c *HistoryCacheService) SaveRecord(ctx context.Context, record models.PriceRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	date, err := time.Parse("2006-01-02", record.Date)
	if err != nil {
		return fmt.Errorf("parsing date: %w", err)
	}

	key := getCacheKey(record.StationID, date)
	c.lru.Add(key, &historyEntry{
		record:    &record,
		expiresAt: c.clock.Now().Add(c.ttl),
	})

	if c.dynamoCache == nil {
		return nil
	}
	if err := c.dynamoCache.SaveRecord(ctx, record); err != nil {
		return fmt.Errorf("saving price record to DynamoDB: %w", err)
	}

	return nil
}

// SaveRecordsBatch saves multiple price records to both layers
func (c *HistoryCacheService) SaveRecordsBatch(ctx context.Context, records []models.PriceRecord) error {
	for _, record := range records {
		recordCopy := record

		date, err := time.Parse("2006-01-02", record.Date)
		if err != nil {
			return fmt.Errorf("parsing date: %w", err)
		}

		key := getCacheKey(record.StationID, date)
		c.lru.Add(key, &historyEntry{
			record:    &recordCopy,
			expiresAt: c.clock.Now().Add(c.ttl),
		})
	}

	if c.dynamoCache == nil {
		return nil
	}
	if err := c.dynamoCache.SaveRecordsBatch(ctx, records); err != nil {
		return fmt.Errorf("saving price records batch to DynamoDB: %w", err)
	}

	return nil
}

// GetCacheStats returns statistics about cache hits and misses
func (c *HistoryCacheService) GetCacheStats() map[string]uint64 {
	return map[string]uint64{
		"lru_hits":      c.lruHits.Load(),
		"lru_misses":    c.lruMisses.Load(),
		"dynamo_hits":   c.dynamoHits.Load(),
		"dynamo_misses": c.dynamoMisses.Load(),
	}
}

// Clear removes all entries from the LRU cache
func (c *HistoryCacheService) Clear() {
	c.lru.Purge()
}
