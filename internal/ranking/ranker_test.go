package ranking

import (
	"fmt"
	"math"
	"testing"

	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Paris city center, used as the search origin in most cases below.
var paris = models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}

func stationAt(id string, lat, lon, price float64) models.Station {
	return models.Station{
		ID:   id,
		Geom: []float64{lat, lon},
		Prices: map[models.FuelType]models.FuelPrice{
			models.FuelGazole: {Value: price},
		},
	}
}

// offsetKm shifts a latitude north by roughly the given number of km.
// One degree of latitude is about 111.19 km at this radius.
func offsetKm(km float64) float64 {
	return km / 111.194926644
}

func TestStationCoordinates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		station models.Station
		want    models.Coordinates
		wantOK  bool
	}{
		{
			name:    "geom pair",
			station: models.Station{Geom: []float64{48.85, 2.35}},
			want:    models.Coordinates{Latitude: 48.85, Longitude: 2.35},
			wantOK:  true,
		},
		{
			name:    "fixed point strings",
			station: models.Station{RawLatitude: "4885660", RawLongitude: "235220"},
			want:    models.Coordinates{Latitude: 48.8566, Longitude: 2.3522},
			wantOK:  true,
		},
		{
			name:    "negative fixed point",
			station: models.Station{RawLatitude: "-2112345", RawLongitude: "5554321"},
			want:    models.Coordinates{Latitude: -21.12345, Longitude: 55.54321},
			wantOK:  true,
		},
		{
			name:    "missing everything",
			station: models.Station{},
			wantOK:  false,
		},
		{
			name:    "unparseable latitude",
			station: models.Station{RawLatitude: "not-a-number", RawLongitude: "235220"},
			wantOK:  false,
		},
		{
			name:    "empty longitude",
			station: models.Station{RawLatitude: "4885660", RawLongitude: ""},
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := StationCoordinates(tt.station)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want.Latitude, got.Latitude, 1e-9)
				assert.InDelta(t, tt.want.Longitude, got.Longitude, 1e-9)
			}
		})
	}
}

func TestDistanceKm(t *testing.T) {
	t.Parallel()

	t.Run("same point is zero", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 0, DistanceKm(paris.Latitude, paris.Longitude, paris.Latitude, paris.Longitude), 1e-9)
	})

	t.Run("paris to lyon", func(t *testing.T) {
		t.Parallel()
		// Great-circle distance Paris-Lyon is just under 400 km.
		d := DistanceKm(48.8566, 2.3522, 45.7640, 4.8357)
		assert.InDelta(t, 392, d, 5)
	})

	t.Run("symmetry", func(t *testing.T) {
		t.Parallel()
		d1 := DistanceKm(48.8566, 2.3522, 45.7640, 4.8357)
		d2 := DistanceKm(45.7640, 4.8357, 48.8566, 2.3522)
		assert.InDelta(t, d1, d2, 1e-9)
	})

	t.Run("meters matches km", func(t *testing.T) {
		t.Parallel()
		km := DistanceKm(48.8566, 2.3522, 48.8570, 2.3530)
		m := DistanceMeters(48.8566, 2.3522, 48.8570, 2.3530)
		assert.InDelta(t, km*1000, m, 0.001)
	})
}

func TestRankOrdersByDistance(t *testing.T) {
	t.Parallel()

	stations := []models.Station{
		stationAt("far", paris.Latitude+offsetKm(30), paris.Longitude, 1.5),
		stationAt("near", paris.Latitude+offsetKm(10), paris.Longitude, 1.9),
		stationAt("mid", paris.Latitude+offsetKm(20), paris.Longitude, 1.7),
	}

	got := Rank(paris, models.FuelGazole, stations)

	require.Len(t, got, 3)
	assert.Equal(t, "near", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, "far", got[2].ID)

	for _, s := range got {
		assert.Greater(t, s.DistanceKm, 0.0)
	}
}

func TestRankPriceTieBreak(t *testing.T) {
	t.Parallel()

	t.Run("close stations ordered by price", func(t *testing.T) {
		t.Parallel()

		// 2 km apart, well inside the 5 km tie window.
		stations := []models.Station{
			stationAt("closer-but-pricier", paris.Latitude+offsetKm(10), paris.Longitude, 1.95),
			stationAt("farther-but-cheaper", paris.Latitude+offsetKm(12), paris.Longitude, 1.75),
		}

		got := Rank(paris, models.FuelGazole, stations)

		require.Len(t, got, 2)
		assert.Equal(t, "farther-but-cheaper", got[0].ID)
		assert.Equal(t, "closer-but-pricier", got[1].ID)
	})

	t.Run("distant stations keep distance order regardless of price", func(t *testing.T) {
		t.Parallel()

		stations := []models.Station{
			stationAt("far-cheap", paris.Latitude+offsetKm(40), paris.Longitude, 1.50),
			stationAt("near-expensive", paris.Latitude+offsetKm(10), paris.Longitude, 2.10),
		}

		got := Rank(paris, models.FuelGazole, stations)

		require.Len(t, got, 2)
		assert.Equal(t, "near-expensive", got[0].ID)
	})

	t.Run("prices within epsilon keep insertion order", func(t *testing.T) {
		t.Parallel()

		stations := []models.Station{
			stationAt("first", paris.Latitude+offsetKm(10), paris.Longitude, 1.8590),
			stationAt("second", paris.Latitude+offsetKm(11), paris.Longitude, 1.8592),
		}

		got := Rank(paris, models.FuelGazole, stations)

		require.Len(t, got, 2)
		assert.Equal(t, "first", got[0].ID)
		assert.Equal(t, "second", got[1].ID)
	})
}

func TestRankRadiusRelaxation(t *testing.T) {
	t.Parallel()

	t.Run("enough results inside 50km keeps tight radius", func(t *testing.T) {
		t.Parallel()

		var stations []models.Station
		for i := 0; i < 5; i++ {
			stations = append(stations, stationAt(fmt.Sprintf("in-%d", i), paris.Latitude+offsetKm(float64(10+i)), paris.Longitude, 1.8))
		}
		stations = append(stations, stationAt("outside", paris.Latitude+offsetKm(70), paris.Longitude, 1.2))

		got := Rank(paris, models.FuelGazole, stations)

		require.Len(t, got, 5)
		for _, s := range got {
			assert.NotEqual(t, "outside", s.ID)
		}
	})

	t.Run("sparse area relaxes to 100km", func(t *testing.T) {
		t.Parallel()

		stations := []models.Station{
			stationAt("in-tight", paris.Latitude+offsetKm(20), paris.Longitude, 1.8),
			stationAt("in-relaxed", paris.Latitude+offsetKm(70), paris.Longitude, 1.7),
			stationAt("beyond-relaxed", paris.Latitude+offsetKm(120), paris.Longitude, 1.5),
		}

		got := Rank(paris, models.FuelGazole, stations)

		require.Len(t, got, 2)
		assert.Equal(t, "in-tight", got[0].ID)
		assert.Equal(t, "in-relaxed", got[1].ID)
	})
}

func TestRankTruncatesToTen(t *testing.T) {
	t.Parallel()

	var stations []models.Station
	for i := 0; i < 25; i++ {
		stations = append(stations, stationAt(fmt.Sprintf("s-%d", i), paris.Latitude+offsetKm(float64(i)+1), paris.Longitude, 1.8))
	}

	got := Rank(paris, models.FuelGazole, stations)

	assert.Len(t, got, 10)
}

func TestRankFilters(t *testing.T) {
	t.Parallel()

	t.Run("station without the requested fuel is dropped", func(t *testing.T) {
		t.Parallel()

		noGazole := stationAt("sp95-only", paris.Latitude+offsetKm(10), paris.Longitude, 0)
		noGazole.Prices = map[models.FuelType]models.FuelPrice{
			models.FuelSP95: {Value: 1.9},
		}
		stations := []models.Station{
			noGazole,
			stationAt("has-gazole", paris.Latitude+offsetKm(12), paris.Longitude, 1.8),
		}

		got := Rank(paris, models.FuelGazole, stations)

		require.Len(t, got, 1)
		assert.Equal(t, "has-gazole", got[0].ID)
	})

	t.Run("station without coordinates is dropped", func(t *testing.T) {
		t.Parallel()

		broken := models.Station{
			ID: "no-coords",
			Prices: map[models.FuelType]models.FuelPrice{
				models.FuelGazole: {Value: 1.2},
			},
		}
		stations := []models.Station{
			broken,
			stationAt("ok", paris.Latitude+offsetKm(10), paris.Longitude, 1.8),
		}

		got := Rank(paris, models.FuelGazole, stations)

		require.Len(t, got, 1)
		assert.Equal(t, "ok", got[0].ID)
	})

	t.Run("no candidates yields empty list", func(t *testing.T) {
		t.Parallel()

		stations := []models.Station{
			stationAt("too-far", paris.Latitude+offsetKm(200), paris.Longitude, 1.5),
		}

		got := Rank(paris, models.FuelGazole, stations)
		assert.Empty(t, got)
	})
}

func TestRankIsDeterministic(t *testing.T) {
	t.Parallel()

	stations := []models.Station{
		stationAt("a", paris.Latitude+offsetKm(10), paris.Longitude, 1.85),
		stationAt("b", paris.Latitude+offsetKm(11), paris.Longitude, 1.75),
		stationAt("c", paris.Latitude+offsetKm(30), paris.Longitude, 1.65),
		stationAt("d", paris.Latitude+offsetKm(31), paris.Longitude, 1.95),
	}

	first := Rank(paris, models.FuelGazole, stations)
	second := Rank(paris, models.FuelGazole, stations)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	stations := []models.Station{
		stationAt("a", paris.Latitude+offsetKm(10), paris.Longitude, 1.85),
	}

	_ = Rank(paris, models.FuelGazole, stations)

	assert.True(t, math.Abs(stations[0].DistanceKm) < 1e-12)
}
