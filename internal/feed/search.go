package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prix-carburants/backend-go/internal/models"
)

// Opendatasoft search API over the same dataset. Used for single-station and
// per-day lookups plus facet aggregations; the full set comes from the
// archive instead (see Stations).

const (
	datasetInstantaneous = "prix-carburants-fichier-instantane-test-ods-copie"
	datasetDaily         = "prix-carburants-fichier-quotidien-test-ods"
)

type searchResponse struct {
	NHits   int `json:"nhits"`
	Records []struct {
		Fields stationFields `json:"fields"`
	} `json:"records"`
	FacetGroups []struct {
		Name   string `json:"name"`
		Facets []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"facets"`
	} `json:"facet_groups"`
}

type stationFields struct {
	ID          json.Number      `json:"id"`
	Address     string           `json:"adresse"`
	City        string           `json:"ville"`
	PostalCode  string           `json:"cp"`
	Region      string           `json:"region"`
	Department  string           `json:"departement"`
	Geom        []float64        `json:"geom"`
	Day         string           `json:"jour"`
	GazolePrix  models.FlexFloat `json:"gazole_prix"`
	GazoleMaj   string           `json:"gazole_maj"`
	SP95Prix    models.FlexFloat `json:"sp95_prix"`
	SP95Maj     string           `json:"sp95_maj"`
	SP98Prix    models.FlexFloat `json:"sp98_prix"`
	SP98Maj     string           `json:"sp98_maj"`
	E85Prix     models.FlexFloat `json:"e85_prix"`
	E85Maj      string           `json:"e85_maj"`
	GPLcPrix    models.FlexFloat `json:"gplc_prix"`
	GPLcMaj     string           `json:"gplc_maj"`
	Carburants  string           `json:"carburants_disponibles"`
	Brand       string           `json:"marque"`
	BrandSource string           `json:"marque_source"`
}

func (f stationFields) prices() map[models.FuelType]models.FuelPrice {
	out := make(map[models.FuelType]models.FuelPrice)
	add := func(fuel models.FuelType, value models.FlexFloat, maj string) {
		if value <= 0 {
			return
		}
		out[fuel] = models.FuelPrice{Value: float64(value), UpdatedAt: parsePriceTime(maj)}
	}
	add(models.FuelGazole, f.GazolePrix, f.GazoleMaj)
	add(models.FuelSP95, f.SP95Prix, f.SP95Maj)
	add(models.FuelSP98, f.SP98Prix, f.SP98Maj)
	add(models.FuelE85, f.E85Prix, f.E85Maj)
	add(models.FuelGPLc, f.GPLcPrix, f.GPLcMaj)
	return out
}

func (f stationFields) toStation() models.Station {
	station := models.Station{
		ID:         f.ID.String(),
		Address:    f.Address,
		City:       f.City,
		PostalCode: f.PostalCode,
		Geom:       f.Geom,
		Prices:     f.prices(),
	}
	if f.Region != "" {
		region := f.Region
		station.Region = &region
	}
	if f.Department != "" {
		department := f.Department
		station.Department = &department
	}
	if f.Brand != "" {
		brand := f.Brand
		source := models.BrandSourceFeed
		station.Brand = &brand
		station.BrandSource = &source
	}
	for _, fuel := range models.AllFuelTypes {
		if _, ok := station.Prices[fuel]; ok {
			station.Available = append(station.Available, fuel)
		}
	}
	return station
}

func (s *Service) search(ctx context.Context, params url.Values) (*searchResponse, error) {
	resp, err := s.searchClient.Get(ctx, "/search/?"+params.Encode())
	if err != nil {
		return nil, NewAPIError("querying search API", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewAPIError(fmt.Sprintf("search API returned status %d", resp.StatusCode), nil)
	}

	var parsed searchResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, NewAPIError("decoding search response", err)
	}
	return &parsed, nil
}

// SearchStation looks up a single station through the search API.
func (s *Service) SearchStation(ctx context.Context, stationID string) (*models.Station, error) {
	params := url.Values{}
	params.Set("dataset", datasetInstantaneous)
	params.Set("rows", "1")
	params.Set("refine.id", stationID)

	parsed, err := s.search(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(parsed.Records) == 0 {
		return nil, fmt.Errorf("station not found: %s", stationID)
	}

	station := parsed.Records[0].Fields.toStation()
	return &station, nil
}

// StationDay returns the daily price snapshot for a station, or nil when the
// dataset has no row for that day.
func (s *Service) StationDay(ctx context.Context, stationID string, date time.Time) (*models.PriceRecord, error) {
	params := url.Values{}
	params.Set("dataset", datasetDaily)
	params.Set("rows", "1")
	params.Set("refine.id", stationID)
	params.Set("refine.jour", date.Format("2006-01-02"))

	parsed, err := s.search(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(parsed.Records) == 0 {
		return nil, nil
	}

	fields := parsed.Records[0].Fields
	record := models.PriceRecord{
		StationID: stationID,
		Date:      date.Format("2006-01-02"),
		Prices:    make(map[models.FuelType]float64),
	}
	for fuel, price := range fields.prices() {
		record.Prices[fuel] = price.Value
	}
	return &record, nil
}

// Regions returns the distinct region facet with station counts.
func (s *Service) Regions(ctx context.Context) ([]models.Facet, error) {
	params := url.Values{}
	params.Set("dataset", datasetInstantaneous)
	params.Set("rows", "0")
	params.Set("facet", "region")

	parsed, err := s.search(ctx, params)
	if err != nil {
		return nil, err
	}

	var facets []models.Facet
	for _, group := range parsed.FacetGroups {
		if group.Name != "region" {
			continue
		}
		for _, f := range group.Facets {
			facets = append(facets, models.Facet{Name: f.Name, Count: f.Count})
		}
	}
	return facets, nil
}
