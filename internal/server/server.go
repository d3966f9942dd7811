// Package server wires the HTTP surface: station search, enrichment polling,
// price trends, region facets, health and metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prix-carburants/backend-go/internal/config"
	"github.com/prix-carburants/backend-go/internal/feed"
	"github.com/prix-carburants/backend-go/internal/metrics"
	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/prix-carburants/backend-go/internal/search"
	"github.com/prix-carburants/backend-go/internal/trends"
	"github.com/rs/zerolog/log"
)

type Server struct {
	searcher *search.Service
	stations feed.StationSource
	regions  RegionSource
	trends   *trends.Service
	metrics  *metrics.Provider
}

// RegionSource lists the region facets of the live dataset.
type RegionSource interface {
	Regions(ctx context.Context) ([]models.Facet, error)
}

func New(searcher *search.Service, stations feed.StationSource, regions RegionSource, trendService *trends.Service, provider *metrics.Provider) *Server {
	return &Server{
		searcher: searcher,
		stations: stations,
		regions:  regions,
		trends:   trendService,
		metrics:  provider,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.metrics.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/regions", s.handleRegions)
		r.Route("/stations", func(r chi.Router) {
			r.Get("/search", s.handleSearch)
			r.Get("/nearby", s.handleNearby)
			r.Get("/enriched/{queryID}", s.handleEnriched)
			r.Get("/{stationID}/trend", s.handleTrend)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, cfg *config.Config) error {
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
