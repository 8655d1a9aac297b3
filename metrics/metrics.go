// Package metrics exposes Prometheus collectors for the analysis pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcomes.
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeFresh    = "fresh"
	OutcomeFallback = "fallback"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	analyses      *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	scores        prometheus.Histogram
	cacheErrors   prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metalyz",
			Name:      "analyses_total",
			Help:      "Analyses served, by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "metalyz",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching analyzed pages.",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.8, 1.5, 2.5, 4, 6, 10},
		}, []string{"status"}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "metalyz",
			Name:      "seo_score",
			Help:      "Distribution of computed SEO scores.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		cacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metalyz",
			Name:      "cache_errors_total",
			Help:      "Cache store reads or writes that failed.",
		}),
	}
	reg.MustRegister(m.analyses, m.fetchDuration, m.scores, m.cacheErrors)
	return m
}

// ObserveAnalysis counts one served analysis.
func (m *Metrics) ObserveAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
}

// ObserveFetch records a page fetch.
func (m *Metrics) ObserveFetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.fetchDuration.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveScore records a freshly computed total score.
func (m *Metrics) ObserveScore(score int) {
	if m == nil {
		return
	}
	m.scores.Observe(float64(score))
}

// CacheError counts a failed cache store operation.
func (m *Metrics) CacheError() {
	if m == nil {
		return
	}
	m.cacheErrors.Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
