// Package enrich fills in missing station brands from OpenStreetMap data.
package enrich

import (
	"context"

	"github.com/prix-carburants/backend-go/internal/cache"
	"github.com/prix-carburants/backend-go/internal/config"
	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/prix-carburants/backend-go/internal/ranking"
	"github.com/rs/zerolog/log"
)

const (
	// poiRadiusM is how far around the search center POIs are requested.
	poiRadiusM = 10000
	// maxMatchDistanceM is the strict upper bound for accepting a POI as the
	// same physical station.
	maxMatchDistanceM = 100.0
)

// Metrics receives enrichment outcomes. Implementations must be safe for
// concurrent use.
type Metrics interface {
	EnrichmentMatched(count int)
	UpstreamError(upstream string)
}

// Enricher annotates ranked stations with brand names from nearby POIs.
// Failures are logged and the input list is returned untouched.
type Enricher struct {
	source   POISource
	poiCache *cache.POICache
	metrics  Metrics
}

func NewEnricher(source POISource, poiCache *cache.POICache) (*Enricher, error) {
	if poiCache == nil {
		var err error
		poiCache, err = cache.NewPOICache(config.GetCacheConfig())
		if err != nil {
			return nil, err
		}
	}
	return &Enricher{
		source:   source,
		poiCache: poiCache,
	}, nil
}

// WithMetrics reports enrichment outcomes to m.
func (e *Enricher) WithMetrics(m Metrics) *Enricher {
	e.metrics = m
	return e
}

// Enrich returns a copy of stations with brands filled in where a POI sits
// within maxMatchDistanceM of the station. Brands already present are kept.
func (e *Enricher) Enrich(ctx context.Context, center models.Coordinates, stations []models.Station) []models.Station {
	if len(stations) == 0 {
		return stations
	}

	pois, err := e.poisAround(ctx, center)
	if err != nil {
		log.Warn().Err(err).
			Float64("lat", center.Latitude).
			Float64("lon", center.Longitude).
			Msg("POI lookup failed, returning stations unenriched")
		if e.metrics != nil {
			e.metrics.UpstreamError("overpass")
		}
		return stations
	}
	if len(pois) == 0 {
		return stations
	}

	enriched := make([]models.Station, len(stations))
	copy(enriched, stations)

	matched := 0
	for i := range enriched {
		if enriched[i].Brand != nil {
			continue
		}
		coords, ok := ranking.StationCoordinates(enriched[i])
		if !ok {
			continue
		}
		if name, ok := nearestBrand(coords, pois); ok {
			brand := name
			source := models.BrandSourceOSM
			enriched[i].Brand = &brand
			enriched[i].BrandSource = &source
			matched++
		}
	}

	if matched > 0 && e.metrics != nil {
		e.metrics.EnrichmentMatched(matched)
	}
	log.Debug().
		Int("poi_count", len(pois)).
		Int("matched", matched).
		Msg("Brand enrichment complete")
	return enriched
}

func (e *Enricher) poisAround(ctx context.Context, center models.Coordinates) ([]models.POI, error) {
	if pois := e.poiCache.Get(center.Latitude, center.Longitude, poiRadiusM); pois != nil {
		log.Debug().Msg("POI cache HIT")
		return pois, nil
	}
	log.Debug().Msg("POI cache MISS")

	pois, err := e.source.FuelStationsAround(ctx, center.Latitude, center.Longitude, poiRadiusM)
	if err != nil {
		return nil, err
	}
	if pois == nil {
		pois = []models.POI{}
	}
	e.poiCache.Set(center.Latitude, center.Longitude, poiRadiusM, pois)
	return pois, nil
}

// nearestBrand resolves the single closest POI strictly within the match
// bound, then reads its name. A nameless nearest POI yields no brand even
// when a named one sits farther away.
func nearestBrand(coords models.Coordinates, pois []models.POI) (string, bool) {
	bestDistance := maxMatchDistanceM
	var nearest *models.POI
	for i := range pois {
		d := ranking.DistanceMeters(coords.Latitude, coords.Longitude, pois[i].Lat, pois[i].Lon)
		if d < bestDistance {
			bestDistance = d
			nearest = &pois[i]
		}
	}
	if nearest == nil {
		return "", false
	}
	name := nearest.DisplayName()
	return name, name != ""
}
