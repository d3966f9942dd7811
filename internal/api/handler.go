package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/prix-carburants/backend-go/internal/models"
)

type APIResponse struct {
	ResponseType string `json:"responseType"`
}

type StationsResponse struct {
	APIResponse
	QueryID  string           `json:"queryId,omitempty"`
	Stations []models.Station `json:"stations"`
}

type ErrorResponse struct {
	APIResponse
	Error string `json:"error"`
}

func NewStationsResponse(queryID uuid.UUID, stations []models.Station) *StationsResponse {
	responseType := "stations"
	if len(stations) == 0 {
		responseType = "no_results"
	}
	id := ""
	if queryID != uuid.Nil {
		id = queryID.String()
	}
	if stations == nil {
		stations = []models.Station{}
	}
	return &StationsResponse{
		APIResponse: APIResponse{ResponseType: responseType},
		QueryID:     id,
		Stations:    stations,
	}
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		APIResponse: APIResponse{ResponseType: "error"},
		Error:       message,
	}
}

// Response helpers
func Success(body interface{}) (events.APIGatewayProxyResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Error("Internal Server Error", http.StatusInternalServerError)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(jsonBody),
	}, nil
}

func Error(message string, statusCode int) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(NewErrorResponse(message))

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}, nil
}

// Parameter parsing helpers
func ParseCoordinates(params map[string]string) (float64, float64, bool, error) {
	latStr, hasLat := params["lat"]
	lonStr, hasLon := params["lon"]

	if !hasLat || !hasLon {
		return 0, 0, false, nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, false, err
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, false, err
	}

	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false, InvalidCoordinatesError{}
	}

	return lat, lon, true, nil
}

// ParseFuelType reads the fuel parameter, defaulting to Gazole.
func ParseFuelType(params map[string]string) (models.FuelType, error) {
	raw, ok := params["fuel"]
	if !ok || raw == "" {
		return models.FuelGazole, nil
	}
	fuel, ok := models.ParseFuelType(raw)
	if !ok {
		return "", InvalidFuelTypeError{Value: raw}
	}
	return fuel, nil
}

type InvalidCoordinatesError struct{}

func (e InvalidCoordinatesError) Error() string {
	return "Invalid coordinates"
}

type InvalidFuelTypeError struct {
	Value string
}

func (e InvalidFuelTypeError) Error() string {
	return "Invalid fuel type: " + e.Value
}
