// Package metrics exposes Prometheus metrics for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Provider struct {
	reg *prometheus.Registry

	SearchDuration    *prometheus.HistogramVec
	CacheHits         *prometheus.CounterVec
	CacheMisses       *prometheus.CounterVec
	EnrichmentMatches prometheus.Counter
	UpstreamErrors    *prometheus.CounterVec
}

func Init() *Provider {
	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := &Provider{
		reg: reg,
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "station_search_duration_seconds",
				Help:    "Duration of station searches by query kind.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Cache hits by layer.",
			},
			[]string{"layer"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Cache misses by layer.",
			},
			[]string{"layer"},
		),
		EnrichmentMatches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "brand_enrichment_matches_total",
				Help: "Stations whose brand was filled from OpenStreetMap data.",
			},
		),
		UpstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_errors_total",
				Help: "Errors talking to upstream services.",
			},
			[]string{"upstream"},
		),
	}

	reg.MustRegister(
		p.SearchDuration,
		p.CacheHits,
		p.CacheMisses,
		p.EnrichmentMatches,
		p.UpstreamErrors,
	)

	return p
}

// CacheHit records a hit on the named cache layer.
func (p *Provider) CacheHit(layer string) {
	p.CacheHits.WithLabelValues(layer).Inc()
}

// CacheMiss records a miss on the named cache layer.
func (p *Provider) CacheMiss(layer string) {
	p.CacheMisses.WithLabelValues(layer).Inc()
}

// EnrichmentMatched records count stations whose brand was filled in.
func (p *Provider) EnrichmentMatched(count int) {
	p.EnrichmentMatches.Add(float64(count))
}

// UpstreamError records a failed call to the named upstream.
func (p *Provider) UpstreamError(upstream string) {
	p.UpstreamErrors.WithLabelValues(upstream).Inc()
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *Provider) Register(cs ...prometheus.Collector) {
	for _, c := range cs {
		p.reg.MustRegister(c)
	}
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }
