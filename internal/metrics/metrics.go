// Package metrics holds the Prometheus collectors for probing, discovery and
// the result cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ProbesTotal         *prometheus.CounterVec
	ProbeDuration       *prometheus.HistogramVec
	ProbeRetries        *prometheus.CounterVec
	DiscoveryCandidates *prometheus.CounterVec
	DiscoveryDropped    *prometheus.CounterVec
	SearchQueries       *prometheus.CounterVec
	CacheRequests       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. Passing nil keeps
// them unregistered, which is what most tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geo_probes_total",
			Help: "Visibility probes by platform and outcome (mentioned, not_mentioned, degraded, failed).",
		}, []string{"platform", "outcome"}),
		ProbeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geo_probe_duration_seconds",
			Help:    "Wall time of a single probe including retries.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"platform"}),
		ProbeRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geo_probe_retries_total",
			Help: "Retried upstream calls by platform.",
		}, []string{"platform"}),
		DiscoveryCandidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geo_discovery_candidates_total",
			Help: "Candidate URLs produced per discovery stage.",
		}, []string{"stage"}),
		DiscoveryDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geo_discovery_dropped_total",
			Help: "Candidates dropped during validation by reason.",
		}, []string{"reason"}),
		SearchQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geo_search_queries_total",
			Help: "Web search queries by provider and outcome.",
		}, []string{"provider", "outcome"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geo_cache_requests_total",
			Help: "Cache lookups by result (hit, miss, expired, corrupt).",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ProbesTotal,
			m.ProbeDuration,
			m.ProbeRetries,
			m.DiscoveryCandidates,
			m.DiscoveryDropped,
			m.SearchQueries,
			m.CacheRequests,
		)
	}
	return m
}

// Nop returns unregistered collectors
func Nop() *Metrics {
	return New(nil)
}
