// Package search orchestrates the lookup pipeline: resolve a center point,
// rank stations around it, then enrich brands in the background.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prix-carburants/backend-go/internal/enrich"
	"github.com/prix-carburants/backend-go/internal/feed"
	"github.com/prix-carburants/backend-go/internal/geocode"
	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/prix-carburants/backend-go/internal/ranking"
	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidPostalCode mirrors the resolver sentinel for callers that
	// only import this package.
	ErrInvalidPostalCode = geocode.ErrInvalidPostalCode
	// ErrNotFound means the postal code resolved to nothing.
	ErrNotFound = geocode.ErrNotFound
)

// enrichTimeout bounds the background enrichment pass. The caller never
// waits on it.
const enrichTimeout = 30 * time.Second

// Result is the immediate answer to a search. Stations carry feed brands
// only; the enriched list arrives later under the same QueryID.
type Result struct {
	QueryID  uuid.UUID          `json:"queryId"`
	Center   models.Coordinates `json:"center"`
	Fuel     models.FuelType    `json:"fuel"`
	Stations []models.Station   `json:"stations"`
}

// Update carries the enriched station list for an earlier query.
type Update struct {
	QueryID  uuid.UUID        `json:"queryId"`
	Stations []models.Station `json:"stations"`
}

// Service runs searches and owns the enrichment lifecycle.
type Service struct {
	stations feed.StationSource
	resolver *geocode.Resolver
	enricher *enrich.Enricher

	updates chan Update

	mu          sync.Mutex
	lastQueryID uuid.UUID
	enriched    map[uuid.UUID][]models.Station
}

func NewService(stations feed.StationSource, resolver *geocode.Resolver, enricher *enrich.Enricher) *Service {
	return &Service{
		stations: stations,
		resolver: resolver,
		enricher: enricher,
		updates:  make(chan Update, 16),
		enriched: make(map[uuid.UUID][]models.Station),
	}
}

// Updates exposes enriched results as they complete. Only results for the
// most recent query are delivered; stale ones are discarded.
func (s *Service) Updates() <-chan Update {
	return s.updates
}

// SearchByPostalCode resolves the postal code and searches around it.
func (s *Service) SearchByPostalCode(ctx context.Context, postalCode string, fuel models.FuelType) (*Result, error) {
	stations, err := s.stations.Stations(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading stations: %w", err)
	}

	center, err := s.resolver.Resolve(ctx, postalCode, stations)
	if err != nil {
		if errors.Is(err, geocode.ErrInvalidPostalCode) || errors.Is(err, geocode.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resolving postal code %s: %w", postalCode, err)
	}

	return s.searchAround(center, fuel, stations), nil
}

// SearchByLocation searches around explicit coordinates.
func (s *Service) SearchByLocation(ctx context.Context, center models.Coordinates, fuel models.FuelType) (*Result, error) {
	stations, err := s.stations.Stations(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading stations: %w", err)
	}
	return s.searchAround(center, fuel, stations), nil
}

func (s *Service) searchAround(center models.Coordinates, fuel models.FuelType, stations []models.Station) *Result {
	ranked := ranking.Rank(center, fuel, stations)

	queryID := uuid.New()
	s.mu.Lock()
	s.lastQueryID = queryID
	s.mu.Unlock()

	result := &Result{
		QueryID:  queryID,
		Center:   center,
		Fuel:     fuel,
		Stations: ranked,
	}

	log.Debug().
		Str("query_id", queryID.String()).
		Str("fuel", string(fuel)).
		Int("result_count", len(ranked)).
		Msg("Search complete, starting enrichment")

	go s.enrichAsync(queryID, center, ranked)

	return result
}

// enrichAsync runs brand enrichment off the request path. Results for
// superseded queries are dropped so a newer search never sees older data.
func (s *Service) enrichAsync(queryID uuid.UUID, center models.Coordinates, stations []models.Station) {
	ctx, cancel := context.WithTimeout(context.Background(), enrichTimeout)
	defer cancel()

	enriched := s.enricher.Enrich(ctx, center, stations)

	s.mu.Lock()
	stale := s.lastQueryID != queryID
	if !stale {
		s.enriched[queryID] = enriched
		// Drop older entries so the map holds at most the current query.
		for id := range s.enriched {
			if id != queryID {
				delete(s.enriched, id)
			}
		}
	}
	s.mu.Unlock()

	if stale {
		log.Debug().Str("query_id", queryID.String()).Msg("Discarding enrichment for superseded query")
		return
	}

	select {
	case s.updates <- Update{QueryID: queryID, Stations: enriched}:
	default:
		log.Warn().Str("query_id", queryID.String()).Msg("Updates channel full, dropping enrichment notification")
	}
}

// EnrichedResult returns the enriched list for a query once available. The
// second return is false while enrichment is still running or when the query
// was superseded.
func (s *Service) EnrichedResult(queryID uuid.UUID) ([]models.Station, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stations, ok := s.enriched[queryID]
	return stations, ok
}
