// Package ranking orders fuel stations around a center point by distance,
// with a price tie-break for stations that are roughly equally far away.
package ranking

import (
	"math"
	"sort"
	"strconv"

	"github.com/prix-carburants/backend-go/internal/models"
)

const (
	earthRadiusKm = 6371.0
	earthRadiusM  = 6371000.0

	// The XML feed encodes degrees as integers scaled by 100000.
	fixedPointScale = 100000.0

	// Compatibility constants carried over from the production ranking
	// behavior. Do not tune without re-validating against recorded results.
	searchRadiusKm    = 50.0
	relaxedRadiusKm   = 100.0
	minResults        = 5
	maxResults        = 10
	distanceTieKm     = 5.0
	priceEpsilon      = 0.001
	missingPriceOrder = 999.0
)

// StationCoordinates extracts a station's position, handling both the JSON
// [lat, lon] pair and the XML fixed-point string encoding. ok is false when
// the station carries no usable coordinates.
func StationCoordinates(s models.Station) (models.Coordinates, bool) {
	if len(s.Geom) == 2 {
		return models.Coordinates{Latitude: s.Geom[0], Longitude: s.Geom[1]}, true
	}

	if s.RawLatitude == "" || s.RawLongitude == "" {
		return models.Coordinates{}, false
	}

	lat, err := strconv.ParseFloat(s.RawLatitude, 64)
	if err != nil {
		return models.Coordinates{}, false
	}
	lon, err := strconv.ParseFloat(s.RawLongitude, 64)
	if err != nil {
		return models.Coordinates{}, false
	}

	return models.Coordinates{
		Latitude:  lat / fixedPointScale,
		Longitude: lon / fixedPointScale,
	}, true
}

// DistanceKm computes the great-circle distance between two points in km.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return haversine(lat1, lon1, lat2, lon2, earthRadiusKm)
}

// DistanceMeters computes the great-circle distance in meters, used for
// fine-grained proximity matching during brand enrichment.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return haversine(lat1, lon1, lat2, lon2, earthRadiusM)
}

func haversine(lat1, lon1, lat2, lon2, radius float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return radius * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Rank produces the ordered candidate list for a center point and fuel type.
//
// Stations without parseable coordinates get an infinite distance and never
// survive the radius filter. The 50 km radius is relaxed to 100 km when it
// yields fewer than five candidates; the relaxed set is recomputed from the
// full input, not appended. Stations within 5 km of each other are ordered by
// price instead of distance. At most ten entries are returned, each carrying
// its distance in km.
func Rank(center models.Coordinates, fuel models.FuelType, stations []models.Station) []models.Station {
	withDistance := make([]models.Station, len(stations))
	for i, s := range stations {
		if coords, ok := StationCoordinates(s); ok {
			s.DistanceKm = DistanceKm(center.Latitude, center.Longitude, coords.Latitude, coords.Longitude)
		} else {
			s.DistanceKm = math.Inf(1)
		}
		withDistance[i] = s
	}

	candidates := filterByRadius(withDistance, fuel, searchRadiusKm)
	if len(candidates) < minResults {
		candidates = filterByRadius(withDistance, fuel, relaxedRadiusKm)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := candidates[i].DistanceKm, candidates[j].DistanceKm
		if math.Abs(di-dj) <= distanceTieKm {
			pi, pj := orderingPrice(candidates[i], fuel), orderingPrice(candidates[j], fuel)
			if math.Abs(pi-pj) > priceEpsilon {
				return pi < pj
			}
			return false // equal within epsilon, keep insertion order
		}
		return di < dj
	})

	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	return candidates
}

func filterByRadius(stations []models.Station, fuel models.FuelType, radiusKm float64) []models.Station {
	var out []models.Station
	for _, s := range stations {
		if s.HasPrice(fuel) && s.DistanceKm <= radiusKm {
			out = append(out, s)
		}
	}
	return out
}

// orderingPrice returns the price used for tie-breaking only. The sentinel
// for a missing price keeps such stations last; it is never displayed.
func orderingPrice(s models.Station, fuel models.FuelType) float64 {
	if s.HasPrice(fuel) {
		return s.Price(fuel)
	}
	return missingPriceOrder
}
