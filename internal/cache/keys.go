package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// POIKey builds the cache key for an Overpass lookup. Coordinates are rounded
// to three decimals (roughly 100 m) so nearby searches share one entry; the
// xxhash suffix keeps keys short and uniform.
func POIKey(lat, lon float64, radiusM int) string {
	plain := fmt.Sprintf("%.3f:%.3f:%d", lat, lon, radiusM)
	return fmt.Sprintf("poi:%s:%016x", plain, xxhash.Sum64String(plain))
}
