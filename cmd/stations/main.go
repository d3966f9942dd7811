package main

import (
	"os"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prix-carburants/backend-go/internal/cache"
	"github.com/prix-carburants/backend-go/internal/config"
	"github.com/prix-carburants/backend-go/internal/enrich"
	"github.com/prix-carburants/backend-go/internal/feed"
	"github.com/prix-carburants/backend-go/internal/geocode"
	"github.com/prix-carburants/backend-go/internal/handler"
	"github.com/prix-carburants/backend-go/internal/search"
	"github.com/prix-carburants/backend-go/pkg/http/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	stationsHandler *handler.StationsHandler
	setupOnce       sync.Once
)

func init() {
	setupOnce.Do(func() {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		levelStr := os.Getenv("LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
		level, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)

		env := os.Getenv("ENV")
		if env == "local" || env == "development" {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
		} else {
			log.Logger = zerolog.New(os.Stdout).
				With().
				Timestamp().
				Logger()
		}

		log.Info().Str("env", env).Msg("Environment")

		cfg := config.LoadFromEnv()
		cacheConfig := config.GetCacheConfig()

		archiveClient := client.New(client.Options{
			BaseURL: cfg.FeedArchiveURL,
			Timeout: 30 * time.Second,
		})
		searchClient := client.New(client.Options{
			BaseURL: cfg.SearchBaseURL,
			Timeout: 30 * time.Second,
		})
		geocodeClient := client.New(client.Options{
			BaseURL: cfg.GeocodeBaseURL,
			Timeout: 30 * time.Second,
		})
		overpassClient := client.New(client.Options{
			BaseURL: cfg.OverpassBaseURL,
			Timeout: 30 * time.Second,
		})

		feedService := feed.NewService(archiveClient, searchClient, cache.NewStationCache(cacheConfig))
		resolver := geocode.NewResolver(geocodeClient, cacheConfig)

		enricher, err := enrich.NewEnricher(enrich.NewOverpassClient(overpassClient), nil)
		if err != nil {
			log.Fatal().Err(err).Msg("Creating enricher")
		}

		searchService := search.NewService(feedService, resolver, enricher)
		stationsHandler = handler.NewStationsHandler(searchService)
	})
}

func main() {
	lambda.Start(stationsHandler.HandleRequest)
}
