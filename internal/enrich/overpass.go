package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/prix-carburants/backend-go/pkg/http/client"
)

// POISource returns fuel points-of-interest around a center point.
type POISource interface {
	FuelStationsAround(ctx context.Context, lat, lon float64, radiusM int) ([]models.POI, error)
}

// OverpassClient queries the Overpass API for fuel amenities.
type OverpassClient struct {
	httpClient *client.Client
}

func NewOverpassClient(httpClient *client.Client) *OverpassClient {
	return &OverpassClient{httpClient: httpClient}
}

type overpassResponse struct {
	Elements []models.POI `json:"elements"`
}

func (c *OverpassClient) FuelStationsAround(ctx context.Context, lat, lon float64, radiusM int) ([]models.POI, error) {
	query := fmt.Sprintf(`[out:json][timeout:25];node["amenity"="fuel"](around:%d,%f,%f);out;`, radiusM, lat, lon)

	form := url.Values{}
	form.Set("data", query)

	resp, err := c.httpClient.PostForm(ctx, "", form)
	if err != nil {
		return nil, fmt.Errorf("querying overpass: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass returned status %d", resp.StatusCode)
	}

	var parsed overpassResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding overpass response: %w", err)
	}
	return parsed.Elements, nil
}
