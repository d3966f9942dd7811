package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/gominatim"
	"github.com/prix-carburants/backend-go/internal/cache"
	"github.com/prix-carburants/backend-go/internal/config"
	"github.com/prix-carburants/backend-go/internal/enrich"
	"github.com/prix-carburants/backend-go/internal/feed"
	"github.com/prix-carburants/backend-go/internal/geocode"
	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/prix-carburants/backend-go/internal/search"
	"github.com/prix-carburants/backend-go/internal/trends"
	"github.com/prix-carburants/backend-go/pkg/http/client"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// enrichWait is how long the CLI waits for brand enrichment before printing
// whatever it has.
const enrichWait = 5 * time.Second

func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "carbu",
		Usage: "Find cheap fuel stations in France",
		Commands: []*cli.Command{
			{
				Name:  "nearby",
				Usage: "List the cheapest stations around a postal code or location",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "cp",
						Usage: "Postal code to search around",
					},
					&cli.Float64Flag{
						Name:  "lat",
						Usage: "Latitude of the location",
					},
					&cli.Float64Flag{
						Name:  "long",
						Usage: "Longitude of the location",
					},
					&cli.StringFlag{
						Name:  "location",
						Usage: "Free-text location to search around",
					},
					&cli.StringFlag{
						Name:  "fuel",
						Usage: "Fuel type (Gazole, SP95, SP98, E85, GPLc)",
						Value: "Gazole",
					},
				},
				Action: runNearby,
			},
			{
				Name:  "trend",
				Usage: "Show recent price history for a station",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "station",
						Usage:    "Station id",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "days",
						Usage: "Number of days of history (1-30)",
						Value: 7,
					},
				},
				Action: runTrend,
			},
			{
				Name:  "regions",
				Usage: "List regions present in the live dataset",
				Action: func(c *cli.Context) error {
					svc := newSearchDeps().feed
					facets, err := svc.Regions(c.Context)
					if err != nil {
						return err
					}
					for _, facet := range facets {
						fmt.Printf("%s (%d stations)\n", facet.Name, facet.Count)
					}
					return nil
				},
			},
		},
	}
}

type deps struct {
	feed     *feed.Service
	searcher *search.Service
}

func newSearchDeps() *deps {
	cfg := config.LoadFromEnv()
	cacheConfig := config.GetCacheConfig()

	archiveClient := client.New(client.Options{BaseURL: cfg.FeedArchiveURL, Timeout: cfg.HTTPTimeout})
	searchClient := client.New(client.Options{BaseURL: cfg.SearchBaseURL, Timeout: cfg.HTTPTimeout})
	geocodeClient := client.New(client.Options{BaseURL: cfg.GeocodeBaseURL, Timeout: cfg.HTTPTimeout})
	overpassClient := client.New(client.Options{BaseURL: cfg.OverpassBaseURL, Timeout: cfg.HTTPTimeout})

	feedService := feed.NewService(archiveClient, searchClient, cache.NewStationCache(cacheConfig))
	resolver := geocode.NewResolver(geocodeClient, cacheConfig)

	enricher, err := enrich.NewEnricher(enrich.NewOverpassClient(overpassClient), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	return &deps{
		feed:     feedService,
		searcher: search.NewService(feedService, resolver, enricher),
	}
}

func runNearby(c *cli.Context) error {
	fuel, ok := models.ParseFuelType(c.String("fuel"))
	if !ok {
		return fmt.Errorf("unknown fuel type: %s", c.String("fuel"))
	}

	d := newSearchDeps()

	var result *search.Result
	var err error
	switch {
	case c.String("cp") != "":
		result, err = d.searcher.SearchByPostalCode(c.Context, c.String("cp"), fuel)
	case c.String("location") != "":
		var center models.Coordinates
		center, err = resolveFreeText(c.String("location"))
		if err != nil {
			return err
		}
		result, err = d.searcher.SearchByLocation(c.Context, center, fuel)
	case c.Float64("lat") != 0 || c.Float64("long") != 0:
		center := models.Coordinates{Latitude: c.Float64("lat"), Longitude: c.Float64("long")}
		result, err = d.searcher.SearchByLocation(c.Context, center, fuel)
	default:
		return errors.New("cp, location or lat/long are required")
	}
	if err != nil {
		return err
	}

	stations := waitForEnrichment(c.Context, d.searcher, result)

	if len(stations) == 0 {
		fmt.Println("No stations found.")
		return nil
	}

	for i, station := range stations {
		name := station.Address
		if station.Brand != nil {
			name = *station.Brand + ", " + station.Address
		}
		fmt.Printf("%d. %s\n", i+1, name)
		fmt.Printf("   %s %s\n", station.PostalCode, station.City)
		fmt.Printf("   Distance: %.2f km\n", station.DistanceKm)
		if price, ok := station.Prices[fuel]; ok {
			fmt.Printf("   %s: %.3f EUR\n", fuel, price.Value)
		}
		fmt.Println()
	}

	return nil
}

func runTrend(c *cli.Context) error {
	d := newSearchDeps()

	// The CLI keeps history in-process only.
	cacheConfig := config.GetCacheConfig()
	cacheConfig.EnableDynamoCache = false
	history, err := cache.NewHistoryCacheService(c.Context, cacheConfig)
	if err != nil {
		return err
	}

	records, err := trends.NewService(d.feed, history).PriceHistory(c.Context, c.String("station"), c.Int("days"))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No price history found.")
		return nil
	}

	fmt.Print(formatTrend(records))
	return nil
}

// formatTrend renders one line per day with prices in a stable fuel order.
func formatTrend(records []models.PriceRecord) string {
	var b strings.Builder
	for _, record := range records {
		fuels := make([]models.FuelType, 0, len(record.Prices))
		for fuel := range record.Prices {
			fuels = append(fuels, fuel)
		}
		sort.Slice(fuels, func(i, j int) bool { return fuels[i] < fuels[j] })

		fmt.Fprintf(&b, "%s", record.Date)
		for _, fuel := range fuels {
			fmt.Fprintf(&b, "  %s %.3f", fuel, record.Prices[fuel])
		}
		b.WriteString("\n")
	}
	return b.String()
}

// waitForEnrichment blocks briefly for the brand-enriched list, falling back
// to the immediate result.
func waitForEnrichment(ctx context.Context, searcher *search.Service, result *search.Result) []models.Station {
	timer := time.NewTimer(enrichWait)
	defer timer.Stop()

	for {
		select {
		case update := <-searcher.Updates():
			if update.QueryID == result.QueryID {
				return update.Stations
			}
		case <-timer.C:
			return result.Stations
		case <-ctx.Done():
			return result.Stations
		}
	}
}

func resolveFreeText(location string) (models.Coordinates, error) {
	gominatim.SetServer("https://nominatim.openstreetmap.org/")
	qry := gominatim.SearchQuery{
		Q: location,
	}

	results, err := qry.Get()
	if err != nil {
		return models.Coordinates{}, err
	}
	if len(results) == 0 {
		return models.Coordinates{}, fmt.Errorf("location not found: %s", location)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Coordinates{}, err
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Coordinates{}, err
	}
	return models.Coordinates{Latitude: lat, Longitude: lon}, nil
}
