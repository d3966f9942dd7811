package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type FuelType string

const (
	FuelGazole FuelType = "Gazole"
	FuelSP95   FuelType = "SP95"
	FuelSP98   FuelType = "SP98"
	FuelE85    FuelType = "E85"
	FuelGPLc   FuelType = "GPLc"
)

// AllFuelTypes lists every fuel code the government feed publishes.
var AllFuelTypes = []FuelType{FuelGazole, FuelSP95, FuelSP98, FuelE85, FuelGPLc}

// ParseFuelType maps a user-supplied fuel identifier to a known FuelType.
func ParseFuelType(s string) (FuelType, bool) {
	for _, ft := range AllFuelTypes {
		if strings.EqualFold(string(ft), s) {
			return ft, true
		}
	}
	return "", false
}

type BrandSource string

const (
	BrandSourceFeed BrandSource = "feed"
	BrandSourceOSM  BrandSource = "osm"
)

// FuelPrice is a price in EUR with the feed's last-update timestamp when known.
type FuelPrice struct {
	Value     float64    `json:"value"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Coordinates is a WGS84 point in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Station is one fuel point-of-sale from the government feed.
//
// Coordinates come in two shapes depending on the upstream document: the JSON
// search API provides Geom as a [lat, lon] pair, while the XML archive carries
// fixed-point strings scaled by 100000 in RawLatitude/RawLongitude. Consumers
// go through ranking.StationCoordinates rather than reading these directly.
type Station struct {
	ID           string                 `json:"id"`
	Address      string                 `json:"address"`
	City         string                 `json:"city"`
	PostalCode   string                 `json:"postalCode"`
	Region       *string                `json:"region,omitempty"`
	Department   *string                `json:"department,omitempty"`
	Geom         []float64              `json:"geom,omitempty"`
	RawLatitude  string                 `json:"rawLatitude,omitempty"`
	RawLongitude string                 `json:"rawLongitude,omitempty"`
	Prices       map[FuelType]FuelPrice `json:"prices"`
	Available    []FuelType             `json:"available,omitempty"`
	Brand        *string                `json:"brand,omitempty"`
	BrandSource  *BrandSource           `json:"brandSource,omitempty"`
	DistanceKm   float64                `json:"distanceKm"`
}

// HasPrice reports whether the station exposes a usable price for the fuel.
func (s *Station) HasPrice(fuel FuelType) bool {
	p, ok := s.Prices[fuel]
	return ok && p.Value > 0
}

// Price returns the price for the fuel, or 0 when absent.
func (s *Station) Price(fuel FuelType) float64 {
	if p, ok := s.Prices[fuel]; ok {
		return p.Value
	}
	return 0
}

// FlexFloat unmarshals a JSON number that some upstream documents encode as a
// quoted string ("1.859") and others as a bare number.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

var _ json.Unmarshaler = (*FlexFloat)(nil)

// Facet is an aggregated count for a search-API field value, e.g. one region.
type Facet struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
