package feed

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prix-carburants/backend-go/internal/models"
)

// The instantaneous archive is a ZIP holding one XML document of <pdv>
// elements. Coordinates are fixed-point integers scaled by 100000 and the
// document is ISO-8859-1 encoded.

type pdvList struct {
	XMLName xml.Name `xml:"pdv_liste"`
	PDVs    []pdv    `xml:"pdv"`
}

type pdv struct {
	ID        string    `xml:"id,attr"`
	Latitude  string    `xml:"latitude,attr"`
	Longitude string    `xml:"longitude,attr"`
	CP        string    `xml:"cp,attr"`
	Address   string    `xml:"adresse"`
	City      string    `xml:"ville"`
	Prices    []pdvPrix `xml:"prix"`
}

type pdvPrix struct {
	Name    string `xml:"nom,attr"`
	Value   string `xml:"valeur,attr"`
	Updated string `xml:"maj,attr"`
}

// ParseArchive extracts and parses the price document from the ZIP archive.
func ParseArchive(data []byte) ([]models.Station, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening price archive: %w", err)
	}

	for _, file := range reader.File {
		if !strings.HasSuffix(strings.ToLower(file.Name), ".xml") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", file.Name, err)
		}
		stations, err := ParsePriceDocument(rc)
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", file.Name, closeErr)
		}
		if err != nil {
			return nil, err
		}
		return stations, nil
	}

	return nil, fmt.Errorf("no XML document in price archive")
}

// ParsePriceDocument parses the raw XML price document.
func ParsePriceDocument(r io.Reader) ([]models.Station, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader

	var doc pdvList
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding price document: %w", err)
	}

	stations := make([]models.Station, 0, len(doc.PDVs))
	for _, p := range doc.PDVs {
		station := models.Station{
			ID:           p.ID,
			Address:      p.Address,
			City:         p.City,
			PostalCode:   p.CP,
			RawLatitude:  p.Latitude,
			RawLongitude: p.Longitude,
			Prices:       make(map[models.FuelType]models.FuelPrice, len(p.Prices)),
		}
		for _, price := range p.Prices {
			fuel, ok := models.ParseFuelType(price.Name)
			if !ok {
				continue
			}
			var value models.FlexFloat
			if err := value.UnmarshalJSON([]byte(price.Value)); err != nil || value <= 0 {
				continue
			}
			station.Prices[fuel] = models.FuelPrice{
				Value:     float64(value),
				UpdatedAt: parsePriceTime(price.Updated),
			}
			station.Available = append(station.Available, fuel)
		}
		stations = append(stations, station)
	}

	return stations, nil
}

func parsePriceTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// charsetReader handles the feed's ISO-8859-1 declaration. Latin-1 bytes map
// 1:1 to the corresponding Unicode code points.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "iso-8859-1", "latin1", "windows-1252":
		return &latin1Reader{r: input}, nil
	case "utf-8", "":
		return input, nil
	}
	return nil, fmt.Errorf("unsupported charset: %s", charset)
}

type latin1Reader struct {
	r io.Reader
}

func (l *latin1Reader) Read(p []byte) (int, error) {
	// Read at most half the buffer so every byte fits even when it expands
	// to a two-byte UTF-8 sequence.
	buf := make([]byte, len(p)/2)
	n, err := l.r.Read(buf)
	written := 0
	for _, b := range buf[:n] {
		if b < 0x80 {
			p[written] = b
			written++
		} else {
			p[written] = 0xC0 | b>>6
			p[written+1] = 0x80 | b&0x3F
			written += 2
		}
	}
	return written, err
}
