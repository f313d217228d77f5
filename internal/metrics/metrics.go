// Package metrics exposes Prometheus collectors for the game engine.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttemptsTotal   *prometheus.CounterVec
	fetchRetriesTotal    prometheus.Counter
	fetchDurationSeconds *prometheus.HistogramVec
	cacheEventsTotal     *prometheus.CounterVec
	navigationsTotal     *prometheus.CounterVec
	matchesTotal         prometheus.Counter
	winsTotal            prometheus.Counter
	replacementsTotal    *prometheus.CounterVec
	resolveFallbackTotal prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call multiple
// times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikibingo_fetch_attempts_total",
				Help: "Total content fetch attempts, labeled by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		)

		fetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "wikibingo_fetch_retries_total",
				Help: "Total scheduled content fetch retries.",
			},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wikibingo_fetch_duration_seconds",
				Help:    "Histogram of content fetch latencies, labeled by endpoint.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"endpoint"},
		)

		cacheEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikibingo_cache_events_total",
				Help: "Cache lookups, labeled by cache (redirect, content) and result (hit, miss).",
			},
			[]string{"cache", "result"},
		)

		navigationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikibingo_navigations_total",
				Help: "Navigation requests, labeled by outcome (completed, deduped, dropped, failed).",
			},
			[]string{"outcome"},
		)

		matchesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "wikibingo_matches_total",
				Help: "Total newly matched grid cells.",
			},
		)

		winsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "wikibingo_wins_total",
				Help: "Total games won.",
			},
		)

		replacementsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikibingo_replacements_total",
				Help: "Replacement titles applied, labeled by slot (cell, current).",
			},
			[]string{"slot"},
		)

		resolveFallbackTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "wikibingo_resolve_fallback_total",
				Help: "Redirect resolutions that fell back to the normalized input.",
			},
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetchAttempt records one attempt against an endpoint.
func ObserveFetchAttempt(endpoint, outcome string, dur time.Duration) {
	if fetchAttemptsTotal == nil {
		return
	}
	fetchAttemptsTotal.WithLabelValues(endpoint, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(endpoint).Observe(dur.Seconds())
}

// ObserveFetchRetry records one scheduled retry.
func ObserveFetchRetry() {
	if fetchRetriesTotal == nil {
		return
	}
	fetchRetriesTotal.Inc()
}

// ObserveCache records a cache lookup result.
func ObserveCache(cache string, hit bool) {
	if cacheEventsTotal == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheEventsTotal.WithLabelValues(cache, result).Inc()
}

// ObserveNavigation records a navigation outcome.
func ObserveNavigation(outcome string) {
	if navigationsTotal == nil {
		return
	}
	navigationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveMatches records newly matched cells.
func ObserveMatches(n int) {
	if matchesTotal == nil || n <= 0 {
		return
	}
	matchesTotal.Add(float64(n))
}

// ObserveWin records a completed game.
func ObserveWin() {
	if winsTotal == nil {
		return
	}
	winsTotal.Inc()
}

// ObserveReplacement records a replacement applied for the given slot.
func ObserveReplacement(slot string) {
	if replacementsTotal == nil {
		return
	}
	replacementsTotal.WithLabelValues(slot).Inc()
}

// ObserveResolveFallback records a redirect resolution fallback.
func ObserveResolveFallback() {
	if resolveFallbackTotal == nil {
		return
	}
	resolveFallbackTotal.Inc()
}
