package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/prix-carburants/backend-go/internal/api"
	"github.com/prix-carburants/backend-go/internal/geocode"
	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/prix-carburants/backend-go/internal/search"
)

// Searcher is the slice of the search service the Lambda handler needs.
type Searcher interface {
	SearchByPostalCode(ctx context.Context, postalCode string, fuel models.FuelType) (*search.Result, error)
	SearchByLocation(ctx context.Context, center models.Coordinates, fuel models.FuelType) (*search.Result, error)
}

type StationsHandler struct {
	searcher Searcher
}

func NewStationsHandler(searcher Searcher) *StationsHandler {
	return &StationsHandler{
		searcher: searcher,
	}
}

func (h *StationsHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	params := request.QueryStringParameters

	fuel, err := api.ParseFuelType(params)
	if err != nil {
		return api.Error(err.Error(), http.StatusBadRequest)
	}

	// Coordinates take precedence over a postal code when both are present.
	lat, lon, hasCoords, err := api.ParseCoordinates(params)
	if err != nil {
		var invalidCoordErr api.InvalidCoordinatesError
		if errors.As(err, &invalidCoordErr) {
			return api.Error(err.Error(), http.StatusBadRequest)
		}
		return api.Error("Invalid parameters", http.StatusBadRequest)
	}

	var result *search.Result
	if hasCoords {
		result, err = h.searcher.SearchByLocation(ctx, models.Coordinates{Latitude: lat, Longitude: lon}, fuel)
	} else if postalCode, ok := params["cp"]; ok {
		result, err = h.searcher.SearchByPostalCode(ctx, postalCode, fuel)
	} else {
		return api.Error("Missing cp or lat/lon parameters", http.StatusBadRequest)
	}

	if err != nil {
		switch {
		case errors.Is(err, geocode.ErrInvalidPostalCode):
			return api.Error(err.Error(), http.StatusBadRequest)
		case errors.Is(err, geocode.ErrNotFound):
			return api.Error("Postal code not found", http.StatusNotFound)
		default:
			return api.Error("Error finding stations", http.StatusBadGateway)
		}
	}

	return api.Success(api.NewStationsResponse(result.QueryID, result.Stations))
}
