package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		params    map[string]string
		wantLat   float64
		wantLon   float64
		wantFound bool
		wantErr   bool
	}{
		{
			name:      "valid coordinates",
			params:    map[string]string{"lat": "48.8566", "lon": "2.3522"},
			wantLat:   48.8566,
			wantLon:   2.3522,
			wantFound: true,
		},
		{
			name:      "missing both",
			params:    map[string]string{},
			wantFound: false,
		},
		{
			name:      "missing lon",
			params:    map[string]string{"lat": "48.8566"},
			wantFound: false,
		},
		{
			name:    "unparseable lat",
			params:  map[string]string{"lat": "north", "lon": "2.3522"},
			wantErr: true,
		},
		{
			name:    "latitude out of range",
			params:  map[string]string{"lat": "91.0", "lon": "2.3522"},
			wantErr: true,
		},
		{
			name:    "longitude out of range",
			params:  map[string]string{"lat": "48.8566", "lon": "-181.0"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lat, lon, found, err := ParseCoordinates(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.InDelta(t, tt.wantLat, lat, 1e-9)
				assert.InDelta(t, tt.wantLon, lon, 1e-9)
			}
		})
	}
}

func TestParseFuelTypeParam(t *testing.T) {
	t.Parallel()

	fuel, err := ParseFuelType(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, models.FuelGazole, fuel)

	fuel, err = ParseFuelType(map[string]string{"fuel": "sp98"})
	require.NoError(t, err)
	assert.Equal(t, models.FuelSP98, fuel)

	_, err = ParseFuelType(map[string]string{"fuel": "kerosene"})
	assert.Error(t, err)
}

func TestNewStationsResponse(t *testing.T) {
	t.Parallel()

	queryID := uuid.New()

	t.Run("with results", func(t *testing.T) {
		t.Parallel()

		resp := NewStationsResponse(queryID, []models.Station{{ID: "1000001"}})
		assert.Equal(t, "stations", resp.ResponseType)
		assert.Equal(t, queryID.String(), resp.QueryID)
		assert.Len(t, resp.Stations, 1)
	})

	t.Run("empty results", func(t *testing.T) {
		t.Parallel()

		resp := NewStationsResponse(queryID, nil)
		assert.Equal(t, "no_results", resp.ResponseType)
		assert.NotNil(t, resp.Stations)
		assert.Empty(t, resp.Stations)
	})

	t.Run("nil query id omitted", func(t *testing.T) {
		t.Parallel()

		resp := NewStationsResponse(uuid.Nil, []models.Station{{ID: "1000001"}})
		assert.Empty(t, resp.QueryID)
	})
}

func TestSuccessAndError(t *testing.T) {
	t.Parallel()

	resp, err := Success(NewStationsResponse(uuid.Nil, []models.Station{{ID: "1000001"}}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])

	var parsed StationsResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &parsed))
	assert.Equal(t, "stations", parsed.ResponseType)

	resp, err = Error("boom", http.StatusBadGateway)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var parsedErr ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &parsedErr))
	assert.Equal(t, "error", parsedErr.ResponseType)
	assert.Equal(t, "boom", parsedErr.Error)
}
