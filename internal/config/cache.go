package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// CacheConfig holds all cache-related configuration
type CacheConfig struct {
	// Station feed settings
	StationListTTLHours int

	// Overpass POI cache settings
	POICacheSize    int
	POICacheTTLHour int

	// Geocode cache settings
	GeocodeTTLHours int

	// Price history settings
	HistoryLRUSize       int
	HistoryLRUTTLMinutes int
	HistoryDynamoTTLDays int

	// Batch processing settings
	BatchSize       int
	MaxBatchRetries int

	// General settings
	EnableDynamoCache bool
	S3BucketName      string
}

const (
	// Default values
	defaultStationListTTLHours = 24
	defaultPOICacheSize        = 256
	defaultPOICacheTTLHours    = 24
	defaultGeocodeTTLHours     = 24
	defaultHistoryLRUSize      = 1000
	defaultHistoryTTLMinutes   = 60
	defaultHistoryDynamoDays   = 7
	defaultBatchSize           = 25
	defaultMaxBatchRetries     = 3
)

// GetCacheConfig returns the cache configuration from environment variables or defaults
func GetCacheConfig() *CacheConfig {
	config := &CacheConfig{
		StationListTTLHours:  getEnvInt("CACHE_STATION_LIST_TTL_HOURS", defaultStationListTTLHours),
		POICacheSize:         getEnvInt("CACHE_POI_LRU_SIZE", defaultPOICacheSize),
		POICacheTTLHour:      getEnvInt("CACHE_POI_TTL_HOURS", defaultPOICacheTTLHours),
		GeocodeTTLHours:      getEnvInt("CACHE_GEOCODE_TTL_HOURS", defaultGeocodeTTLHours),
		HistoryLRUSize:       getEnvInt("CACHE_HISTORY_LRU_SIZE", defaultHistoryLRUSize),
		HistoryLRUTTLMinutes: getEnvInt("CACHE_HISTORY_LRU_TTL_MINUTES", defaultHistoryTTLMinutes),
		HistoryDynamoTTLDays: getEnvInt("CACHE_HISTORY_DYNAMO_TTL_DAYS", defaultHistoryDynamoDays),
		BatchSize:            getEnvInt("CACHE_BATCH_SIZE", defaultBatchSize),
		MaxBatchRetries:      getEnvInt("CACHE_MAX_BATCH_RETRIES", defaultMaxBatchRetries),
		EnableDynamoCache:    getEnvBool("CACHE_ENABLE_DYNAMO", true),
		S3BucketName:         os.Getenv("STATION_CACHE_BUCKET"),
	}

	log.Debug().
		Int("StationListTTLHours", config.StationListTTLHours).
		Int("POICacheSize", config.POICacheSize).
		Int("POICacheTTLHours", config.POICacheTTLHour).
		Int("GeocodeTTLHours", config.GeocodeTTLHours).
		Int("HistoryLRUSize", config.HistoryLRUSize).
		Int("HistoryLRUTTLMinutes", config.HistoryLRUTTLMinutes).
		Int("HistoryDynamoTTLDays", config.HistoryDynamoTTLDays).
		Int("BatchSize", config.BatchSize).
		Int("MaxBatchRetries", config.MaxBatchRetries).
		Bool("EnableDynamoCache", config.EnableDynamoCache).
		Msg("Cache configuration loaded")

	return config
}

// Helper methods for the CacheConfig struct
func (c *CacheConfig) GetStationListTTL() time.Duration {
	return time.Duration(c.StationListTTLHours) * time.Hour
}

func (c *CacheConfig) GetPOICacheTTL() time.Duration {
	return time.Duration(c.POICacheTTLHour) * time.Hour
}

func (c *CacheConfig) GetGeocodeTTL() time.Duration {
	return time.Duration(c.GeocodeTTLHours) * time.Hour
}

func (c *CacheConfig) GetHistoryLRUTTL() time.Duration {
	return time.Duration(c.HistoryLRUTTLMinutes) * time.Minute
}

func (c *CacheConfig) GetHistoryDynamoTTL() time.Duration {
	return time.Duration(c.HistoryDynamoTTLDays) * 24 * time.Hour
}

// Helper functions to get environment variables with defaults
func getEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Msg("Invalid integer value in environment variable, using default")
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, exists := os.LookupEnv(key); exists {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
