// Package geocode resolves a postal code to a center point, preferring a
// station already known at that postal code over an external lookup.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prix-carburants/backend-go/internal/config"
	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/prix-carburants/backend-go/internal/ranking"
	"github.com/prix-carburants/backend-go/pkg/http/client"
	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidPostalCode rejects input before any lookup is made.
	ErrInvalidPostalCode = errors.New("postal code must be exactly 5 digits")
	// ErrNotFound means the geocoding service had no match for the code.
	ErrNotFound = errors.New("postal code not found")
)

var postalCodeRe = regexp.MustCompile(`^\d{5}$`)

type Resolver struct {
	httpClient *client.Client
	cache      *gocache.Cache
}

func NewResolver(httpClient *client.Client, cfg *config.CacheConfig) *Resolver {
	if cfg == nil {
		cfg = config.GetCacheConfig()
	}
	ttl := cfg.GetGeocodeTTL()
	return &Resolver{
		httpClient: httpClient,
		cache:      gocache.New(ttl, 2*ttl),
	}
}

// commune is one administrative area from the geocoding API. The centre is
// GeoJSON, so coordinates arrive in [lon, lat] order.
type commune struct {
	Name   string `json:"nom"`
	Centre struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"centre"`
}

// Resolve turns a postal code into a center point. Stations with a matching
// postal code and usable coordinates short-circuit the external call.
func (r *Resolver) Resolve(ctx context.Context, postalCode string, stations []models.Station) (models.Coordinates, error) {
	if !postalCodeRe.MatchString(postalCode) {
		return models.Coordinates{}, ErrInvalidPostalCode
	}

	for _, station := range stations {
		if station.PostalCode != postalCode {
			continue
		}
		if coords, ok := ranking.StationCoordinates(station); ok {
			log.Debug().Str("postal_code", postalCode).Str("station_id", station.ID).Msg("Resolved postal code from station list")
			return coords, nil
		}
	}

	return r.lookup(ctx, postalCode)
}

func (r *Resolver) lookup(ctx context.Context, postalCode string) (models.Coordinates, error) {
	if cached, found := r.cache.Get(postalCode); found {
		log.Debug().Str("postal_code", postalCode).Msg("Geocode cache HIT")
		return cached.(models.Coordinates), nil
	}

	params := url.Values{}
	params.Set("codePostal", postalCode)
	params.Set("fields", "nom,centre")
	params.Set("format", "json")

	resp, err := r.httpClient.Get(ctx, "/communes?"+params.Encode())
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("calling geocoding service: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.Coordinates{}, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	var communes []commune
	if err := json.Unmarshal(resp.Body, &communes); err != nil {
		return models.Coordinates{}, fmt.Errorf("decoding geocoding response: %w", err)
	}

	for _, c := range communes {
		if len(c.Centre.Coordinates) != 2 {
			continue
		}
		coords := models.Coordinates{
			Latitude:  c.Centre.Coordinates[1],
			Longitude: c.Centre.Coordinates[0],
		}
		r.cache.Set(postalCode, coords, gocache.DefaultExpiration)
		log.Debug().Str("postal_code", postalCode).Str("commune", c.Name).Msg("Resolved postal code via geocoding service")
		return coords, nil
	}

	return models.Coordinates{}, ErrNotFound
}
