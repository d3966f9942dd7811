package cache

// Metrics receives hit and miss events per cache layer. Implementations must
// be safe for concurrent use.
type Metrics interface {
	CacheHit(layer string)
	CacheMiss(layer string)
}
