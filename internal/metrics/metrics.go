// Package metrics exposes Prometheus collectors for the tile pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchAttemptsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmterrain_fetch_attempts_total",
		Help: "Tile fetch-and-parse attempts",
	})
	FetchFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmterrain_fetch_failures_total",
		Help: "Tile fetch-and-parse attempts that failed",
	})
	FetchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "osmterrain_fetch_duration_ms",
		Help:    "Duration of a single fetch-and-parse attempt in milliseconds",
		Buckets: []float64{5, 20, 50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000},
	})
	TilesCompiledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmterrain_tiles_compiled_total",
		Help: "Tiles fetched, indexed and inserted into the cache",
	})
	TilesFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "osmterrain_tiles_failed_total",
		Help: "Tile lookups answered with a failure, by kind",
	}, []string{"kind"})
	TilesEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmterrain_tiles_evicted_total",
		Help: "Tiles evicted from the cache",
	})
	ResponseCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmterrain_response_cache_hits_total",
		Help: "Overpass responses served from the byte cache",
	})
	ResponseCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmterrain_response_cache_misses_total",
		Help: "Overpass responses that required a network request",
	})
	DispatchQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "osmterrain_dispatch_queue_depth",
		Help: "Tile requests waiting in the dispatcher queue",
	})
)

func init() {
	prometheus.MustRegister(FetchAttemptsTotal)
	prometheus.MustRegister(FetchFailuresTotal)
	prometheus.MustRegister(FetchDurationMs)
	prometheus.MustRegister(TilesCompiledTotal)
	prometheus.MustRegister(TilesFailedTotal)
	prometheus.MustRegister(TilesEvictedTotal)
	prometheus.MustRegister(ResponseCacheHitsTotal)
	prometheus.MustRegister(ResponseCacheMissesTotal)
	prometheus.MustRegister(DispatchQueueDepth)
}

// Handler serves the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
