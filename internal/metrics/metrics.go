// Package metrics exposes Prometheus collectors for ingestion and matching.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. A nil *Metrics is a valid no-op so library
// callers embedding the core do not have to care about observability.
type Metrics struct {
	registry *prometheus.Registry

	PostingsFetched  *prometheus.CounterVec
	PostingsUpserted *prometheus.CounterVec
	PostingsRejected *prometheus.CounterVec
	SourceFailures   *prometheus.CounterVec
	ScorerRequests   *prometheus.CounterVec
	MatchDuration    prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		PostingsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobsift_postings_fetched_total",
			Help: "Raw postings fetched per source.",
		}, []string{"source"}),
		PostingsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobsift_postings_upserted_total",
			Help: "Canonical postings written, by outcome.",
		}, []string{"source", "outcome"}),
		PostingsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobsift_postings_rejected_total",
			Help: "Raw postings rejected during normalization.",
		}, []string{"source"}),
		SourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobsift_source_failures_total",
			Help: "Source fetches that failed after retries.",
		}, []string{"source"}),
		ScorerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobsift_scorer_requests_total",
			Help: "Matching invocations by scorer path.",
		}, []string{"path"}),
		MatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobsift_match_duration_seconds",
			Help:    "Latency of matching invocations.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		m.PostingsFetched,
		m.PostingsUpserted,
		m.PostingsRejected,
		m.SourceFailures,
		m.ScorerRequests,
		m.MatchDuration,
	)

	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
