package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prix-carburants/backend-go/internal/cache"
	"github.com/prix-carburants/backend-go/internal/config"
	"github.com/prix-carburants/backend-go/internal/enrich"
	"github.com/prix-carburants/backend-go/internal/geocode"
	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/prix-carburants/backend-go/pkg/http/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paris = models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}

type fakeStationSource struct {
	stations []models.Station
	err      error
}

func (f *fakeStationSource) Stations(_ context.Context) ([]models.Station, error) {
	return f.stations, f.err
}

func (f *fakeStationSource) FindStation(_ context.Context, stationID string) (*models.Station, error) {
	for _, s := range f.stations {
		if s.ID == stationID {
			return &s, nil
		}
	}
	return nil, errors.New("station not found")
}

// blockingPOISource holds every lookup until release is closed.
type blockingPOISource struct {
	release chan struct{}
	pois    []models.POI
}

func (b *blockingPOISource) FuelStationsAround(ctx context.Context, _, _ float64, _ int) ([]models.POI, error) {
	select {
	case <-b.release:
		return b.pois, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func testStation(id string, lat, lon float64) models.Station {
	return models.Station{
		ID:         id,
		PostalCode: "75001",
		Geom:       []float64{lat, lon},
		Prices: map[models.FuelType]models.FuelPrice{
			models.FuelGazole: {Value: 1.8},
		},
	}
}

func newTestService(t *testing.T, stations []models.Station, source enrich.POISource) *Service {
	t.Helper()

	poiCache, err := cache.NewPOICache(&config.CacheConfig{POICacheSize: 8, POICacheTTLHour: 24})
	require.NoError(t, err)

	enricher, err := enrich.NewEnricher(source, poiCache)
	require.NoError(t, err)

	resolver := geocode.NewResolver(client.New(client.Options{}), &config.CacheConfig{GeocodeTTLHours: 24})

	return NewService(&fakeStationSource{stations: stations}, resolver, enricher)
}

func TestSearchByLocationReturnsImmediately(t *testing.T) {
	t.Parallel()

	// Enrichment is blocked for the whole test; the search must not wait on it.
	source := &blockingPOISource{release: make(chan struct{})}
	svc := newTestService(t, []models.Station{
		testStation("near", paris.Latitude+0.09, paris.Longitude),
		testStation("far", paris.Latitude+0.27, paris.Longitude),
	}, source)

	result, err := svc.SearchByLocation(context.Background(), paris, models.FuelGazole)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, result.QueryID)
	require.Len(t, result.Stations, 2)
	assert.Equal(t, "near", result.Stations[0].ID)
	assert.Equal(t, "far", result.Stations[1].ID)

	// Brands are absent until enrichment completes.
	assert.Nil(t, result.Stations[0].Brand)
	_, ready := svc.EnrichedResult(result.QueryID)
	assert.False(t, ready)
}

func TestSearchDeliversEnrichedUpdate(t *testing.T) {
	t.Parallel()

	stationLat := paris.Latitude + 0.009
	release := make(chan struct{})
	source := &blockingPOISource{
		release: release,
		pois: []models.POI{
			{ID: 1, Lat: stationLat, Lon: paris.Longitude, Tags: map[string]string{"brand": "Esso"}},
		},
	}
	svc := newTestService(t, []models.Station{testStation("s1", stationLat, paris.Longitude)}, source)

	result, err := svc.SearchByLocation(context.Background(), paris, models.FuelGazole)
	require.NoError(t, err)

	close(release)

	select {
	case update := <-svc.Updates():
		assert.Equal(t, result.QueryID, update.QueryID)
		require.Len(t, update.Stations, 1)
		require.NotNil(t, update.Stations[0].Brand)
		assert.Equal(t, "Esso", *update.Stations[0].Brand)
	case <-time.After(2 * time.Second):
		t.Fatal("no enrichment update received")
	}

	enriched, ready := svc.EnrichedResult(result.QueryID)
	require.True(t, ready)
	require.Len(t, enriched, 1)
	assert.NotNil(t, enriched[0].Brand)
}

func TestSearchDiscardsStaleEnrichment(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	source := &blockingPOISource{release: release}
	svc := newTestService(t, []models.Station{testStation("s1", paris.Latitude+0.009, paris.Longitude)}, source)

	ctx := context.Background()

	first, err := svc.SearchByLocation(ctx, paris, models.FuelGazole)
	require.NoError(t, err)

	// A second query supersedes the first before enrichment finishes.
	second, err := svc.SearchByLocation(ctx, models.Coordinates{Latitude: 45.764, Longitude: 4.8357}, models.FuelGazole)
	require.NoError(t, err)

	close(release)

	select {
	case update := <-svc.Updates():
		assert.Equal(t, second.QueryID, update.QueryID)
	case <-time.After(2 * time.Second):
		t.Fatal("no enrichment update received")
	}

	// The superseded query never surfaces.
	select {
	case update := <-svc.Updates():
		t.Fatalf("unexpected update for query %s", update.QueryID)
	case <-time.After(200 * time.Millisecond):
	}

	_, ready := svc.EnrichedResult(first.QueryID)
	assert.False(t, ready)

	require.Eventually(t, func() bool {
		_, ok := svc.EnrichedResult(second.QueryID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSearchByPostalCode(t *testing.T) {
	t.Parallel()

	t.Run("invalid postal code", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t, nil, &blockingPOISource{release: make(chan struct{})})

		_, err := svc.SearchByPostalCode(context.Background(), "123", models.FuelGazole)
		assert.ErrorIs(t, err, ErrInvalidPostalCode)
	})

	t.Run("resolves center from station list", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		close(release)
		svc := newTestService(t, []models.Station{
			testStation("anchor", paris.Latitude, paris.Longitude),
			testStation("nearby", paris.Latitude+0.018, paris.Longitude),
		}, &blockingPOISource{release: release})

		result, err := svc.SearchByPostalCode(context.Background(), "75001", models.FuelGazole)
		require.NoError(t, err)
		require.Len(t, result.Stations, 2)
		assert.Equal(t, "anchor", result.Stations[0].ID)
	})
}

func TestSearchPropagatesFeedErrors(t *testing.T) {
	t.Parallel()

	poiCache, err := cache.NewPOICache(&config.CacheConfig{POICacheSize: 8, POICacheTTLHour: 24})
	require.NoError(t, err)
	enricher, err := enrich.NewEnricher(&blockingPOISource{release: make(chan struct{})}, poiCache)
	require.NoError(t, err)
	resolver := geocode.NewResolver(client.New(client.Options{}), &config.CacheConfig{GeocodeTTLHours: 24})

	svc := NewService(&fakeStationSource{err: errors.New("feed down")}, resolver, enricher)

	_, err = svc.SearchByLocation(context.Background(), paris, models.FuelGazole)
	assert.Error(t, err)

	_, err = svc.SearchByPostalCode(context.Background(), "75001", models.FuelGazole)
	assert.Error(t, err)
}

func TestSearchEmptyResultIsNotAnError(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil, &blockingPOISource{release: make(chan struct{})})

	result, err := svc.SearchByLocation(context.Background(), paris, models.FuelGazole)
	require.NoError(t, err)
	assert.Empty(t, result.Stations)
}
