package models

// POI is one element from an Overpass points-of-interest response.
type POI struct {
	ID   int64             `json:"id"`
	Type string            `json:"type"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// DisplayName picks the attribute used for brand enrichment, preferring
// brand over operator over name. Empty string when none is tagged.
func (p POI) DisplayName() string {
	for _, key := range []string{"brand", "operator", "name"} {
		if v, ok := p.Tags[key]; ok && v != "" {
			return v
		}
	}
	return ""
}
