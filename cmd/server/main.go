package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prix-carburants/backend-go/internal/cache"
	"github.com/prix-carburants/backend-go/internal/config"
	"github.com/prix-carburants/backend-go/internal/enrich"
	"github.com/prix-carburants/backend-go/internal/feed"
	"github.com/prix-carburants/backend-go/internal/geocode"
	"github.com/prix-carburants/backend-go/internal/metrics"
	"github.com/prix-carburants/backend-go/internal/search"
	"github.com/prix-carburants/backend-go/internal/server"
	"github.com/prix-carburants/backend-go/internal/trends"
	"github.com/prix-carburants/backend-go/pkg/http/client"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheConfig := config.GetCacheConfig()
	provider := metrics.Init()

	archiveClient := client.New(client.Options{
		BaseURL: cfg.FeedArchiveURL,
		Timeout: cfg.HTTPTimeout,
	})
	searchClient := client.New(client.Options{
		BaseURL: cfg.SearchBaseURL,
		Timeout: cfg.HTTPTimeout,
	})
	geocodeClient := client.New(client.Options{
		BaseURL: cfg.GeocodeBaseURL,
		Timeout: cfg.HTTPTimeout,
	})
	overpassClient := client.New(client.Options{
		BaseURL: cfg.OverpassBaseURL,
		Timeout: cfg.HTTPTimeout,
	})

	feedService := feed.NewService(archiveClient, searchClient, cache.NewStationCache(cacheConfig))
	if cacheConfig.S3BucketName != "" {
		s3Cache, err := cache.NewS3StationCache(ctx, cacheConfig)
		if err != nil {
			log.Warn().Err(err).Msg("S3 station cache unavailable, continuing without it")
		} else {
			feedService = feedService.WithPersistentCache(s3Cache)
		}
	}

	resolver := geocode.NewResolver(geocodeClient, cacheConfig)

	poiCache, err := cache.NewPOICache(cacheConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating POI cache")
	}
	enricher, err := enrich.NewEnricher(enrich.NewOverpassClient(overpassClient), poiCache.WithMetrics(provider))
	if err != nil {
		log.Fatal().Err(err).Msg("Creating enricher")
	}
	enricher.WithMetrics(provider)

	searchService := search.NewService(feedService, resolver, enricher)

	historyCache, err := cache.NewHistoryCacheService(ctx, cacheConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating history cache")
	}
	historyCache.WithMetrics(provider)
	trendService := trends.NewService(feedService, historyCache)

	srv := server.New(searchService, feedService, feedService, trendService, provider)
	if err := srv.Run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("HTTP server failed")
	}
}
