package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prix-carburants/backend-go/internal/api"
	"github.com/prix-carburants/backend-go/internal/geocode"
	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/prix-carburants/backend-go/internal/trends"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Encoding response failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.NewErrorResponse(message))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseFuel(r *http.Request) (models.FuelType, error) {
	raw := r.URL.Query().Get("fuel")
	if raw == "" {
		return models.FuelGazole, nil
	}
	fuel, ok := models.ParseFuelType(raw)
	if !ok {
		return "", api.InvalidFuelTypeError{Value: raw}
	}
	return fuel, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	fuel, err := parseFuel(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	postalCode := r.URL.Query().Get("cp")
	result, err := s.searcher.SearchByPostalCode(r.Context(), postalCode, fuel)
	if err != nil {
		switch {
		case errors.Is(err, geocode.ErrInvalidPostalCode):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, geocode.ErrNotFound):
			writeError(w, http.StatusNotFound, "Postal code not found")
		default:
			log.Error().Err(err).Str("postal_code", postalCode).Msg("Search failed")
			s.metrics.UpstreamError("feed")
			writeError(w, http.StatusBadGateway, "Error finding stations")
		}
		return
	}

	s.metrics.SearchDuration.WithLabelValues("postal_code").Observe(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, api.NewStationsResponse(result.QueryID, result.Stations))
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	fuel, err := parseFuel(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := map[string]string{
		"lat": r.URL.Query().Get("lat"),
		"lon": r.URL.Query().Get("lon"),
	}
	lat, lon, hasCoords, err := api.ParseCoordinates(params)
	if err != nil || !hasCoords {
		writeError(w, http.StatusBadRequest, "Invalid coordinates")
		return
	}

	result, err := s.searcher.SearchByLocation(r.Context(), models.Coordinates{Latitude: lat, Longitude: lon}, fuel)
	if err != nil {
		log.Error().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("Nearby search failed")
		s.metrics.UpstreamError("feed")
		writeError(w, http.StatusBadGateway, "Error finding stations")
		return
	}

	s.metrics.SearchDuration.WithLabelValues("location").Observe(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, api.NewStationsResponse(result.QueryID, result.Stations))
}

// handleEnriched serves the brand-enriched list once background enrichment
// finishes. 202 means still running, unknown, or superseded.
func (s *Server) handleEnriched(w http.ResponseWriter, r *http.Request) {
	queryID, err := uuid.Parse(chi.URLParam(r, "queryID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query id")
		return
	}

	stations, ok := s.searcher.EnrichedResult(queryID)
	if !ok {
		writeJSON(w, http.StatusAccepted, api.APIResponse{ResponseType: "pending"})
		return
	}

	writeJSON(w, http.StatusOK, api.NewStationsResponse(queryID, stations))
}

type trendResponse struct {
	api.APIResponse
	StationID string               `json:"stationId"`
	Records   []models.PriceRecord `json:"records"`
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationID")

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid days parameter")
			return
		}
		days = parsed
	}

	if _, err := s.stations.FindStation(r.Context(), stationID); err != nil {
		writeError(w, http.StatusNotFound, "Station not found")
		return
	}

	records, err := s.trends.PriceHistory(r.Context(), stationID, days)
	if err != nil {
		if errors.Is(err, trends.ErrInvalidDays) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("station_id", stationID).Msg("Trend lookup failed")
		s.metrics.UpstreamError("search_api")
		writeError(w, http.StatusBadGateway, "Error fetching price history")
		return
	}
	if records == nil {
		records = []models.PriceRecord{}
	}

	writeJSON(w, http.StatusOK, trendResponse{
		APIResponse: api.APIResponse{ResponseType: "trend"},
		StationID:   stationID,
		Records:     records,
	})
}

type regionsResponse struct {
	api.APIResponse
	Regions []models.Facet `json:"regions"`
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	facets, err := s.regions.Regions(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Region facet lookup failed")
		s.metrics.UpstreamError("search_api")
		writeError(w, http.StatusBadGateway, "Error fetching regions")
		return
	}
	if facets == nil {
		facets = []models.Facet{}
	}

	writeJSON(w, http.StatusOK, regionsResponse{
		APIResponse: api.APIResponse{ResponseType: "regions"},
		Regions:     facets,
	})
}
