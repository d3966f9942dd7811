package models

import "fmt"

// PriceRecord is a per-station, per-day snapshot of fuel prices used by the
// trend service and its DynamoDB cache.
type PriceRecord struct {
	StationID   string               `json:"stationId" dynamodbav:"stationId"`
	Date        string               `json:"date" dynamodbav:"date"`
	Prices      map[FuelType]float64 `json:"prices" dynamodbav:"prices"`
	LastUpdated int64                `json:"lastUpdated" dynamodbav:"lastUpdated"`
	TTL         int64                `json:"ttl" dynamodbav:"ttl"`
}

func (r PriceRecord) Validate() error {
	if r.StationID == "" {
		return fmt.Errorf("price record missing station id")
	}
	if r.Date == "" {
		return fmt.Errorf("price record missing date")
	}
	return nil
}
