package feed

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prix-carburants/backend-go/internal/cache"
	"github.com/prix-carburants/backend-go/internal/config"
	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/prix-carburants/backend-go/pkg/http/client"
	"github.com/rs/zerolog/log"
)

// StationSource is the read interface the search pipeline consumes.
type StationSource interface {
	Stations(ctx context.Context) ([]models.Station, error)
	FindStation(ctx context.Context, stationID string) (*models.Station, error)
}

// Service fetches and caches the full station set from the government feed.
type Service struct {
	archiveClient *client.Client
	searchClient  *client.Client
	cache         *cache.StationCache
	persistent    cache.StationListCacheProvider
	cacheMutex    sync.RWMutex
}

func NewService(archiveClient, searchClient *client.Client, stationCache *cache.StationCache) *Service {
	if stationCache == nil {
		cacheConfig := config.GetCacheConfig()
		stationCache = cache.NewStationCache(cacheConfig)
	}
	return &Service{
		archiveClient: archiveClient,
		searchClient:  searchClient,
		cache:         stationCache,
	}
}

// WithPersistentCache attaches an optional persistent station list cache,
// consulted between the in-memory cache and the upstream download.
func (s *Service) WithPersistentCache(p cache.StationListCacheProvider) *Service {
	s.persistent = p
	return s
}

// FindStation returns the station with the given feed id.
func (s *Service) FindStation(ctx context.Context, stationID string) (*models.Station, error) {
	stations, err := s.Stations(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting station list: %w", err)
	}

	for _, station := range stations {
		if station.ID == stationID {
			log.Trace().Str("station_id", stationID).Msg("FindStation: Found station")
			return &station, nil
		}
	}

	return nil, fmt.Errorf("station not found: %s", stationID)
}

// Stations returns the full station set, fetching the instantaneous archive
// when every cache layer misses.
func (s *Service) Stations(ctx context.Context) ([]models.Station, error) {
	s.cacheMutex.RLock()
	cachedStations := s.cache.GetStations()
	s.cacheMutex.RUnlock()

	if cachedStations != nil {
		log.Debug().Msg("Cache HIT for station list")
		return cachedStations, nil
	}
	log.Debug().Msg("Cache MISS for station list")

	if s.persistent != nil {
		stations, err := s.persistent.GetStations(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Persistent station cache lookup failed")
		} else if stations != nil {
			log.Debug().Int("station_count", len(stations)).Msg("Persistent cache HIT for station list")
			s.cacheMutex.Lock()
			s.cache.SetStations(stations)
			s.cacheMutex.Unlock()
			return stations, nil
		}
	}

	stations, err := s.fetchArchive(ctx)
	if err != nil {
		return nil, err
	}

	log.Debug().Int("station_count", len(stations)).Msgf("Caching list of %d stations", len(stations))

	s.cacheMutex.Lock()
	s.cache.SetStations(stations)
	s.cacheMutex.Unlock()

	if s.persistent != nil {
		if err := s.persistent.SaveStations(ctx, stations); err != nil {
			log.Warn().Err(err).Msg("Persistent station cache save failed")
		}
	}

	return stations, nil
}

func (s *Service) fetchArchive(ctx context.Context) ([]models.Station, error) {
	resp, err := s.archiveClient.Get(ctx, "")
	if err != nil {
		return nil, NewAPIError("fetching price archive", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewAPIError(fmt.Sprintf("price archive returned status %d", resp.StatusCode), nil)
	}

	stations, err := ParseArchive(resp.Body)
	if err != nil {
		return nil, NewAPIError("parsing price archive", err)
	}
	return stations, nil
}
