// Package metrics defines the Prometheus collectors for the serving and
// build paths and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	QueriesTotal          *prometheus.CounterVec
	QueryDuration         prometheus.Histogram
	QueryResultCount      prometheus.Histogram
	BuildsTotal           *prometheus.CounterVec
	BuildDuration         prometheus.Histogram
	SnapshotInstallsTotal prometheus.Counter
	ActiveSnapshotVersion prometheus.Gauge
	ActiveTermCount       prometheus.Gauge
}

// New creates and registers all collectors on reg; pass a fresh
// prometheus.NewRegistry in tests to avoid global registration clashes.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termserve_queries_total",
				Help: "Total completion queries by outcome (ok, empty, not_ready, invalid).",
			},
			[]string{"outcome"},
		),
		QueryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "termserve_query_duration_seconds",
				Help:    "Completion query latency in seconds.",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
		),
		QueryResultCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "termserve_query_results",
				Help:    "Number of completions returned per query.",
				Buckets: []float64{0, 1, 2, 5, 10, 25},
			},
		),
		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termserve_builds_total",
				Help: "Total build cycles by status (ok, failed, cancelled).",
			},
			[]string{"status"},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "termserve_build_duration_seconds",
				Help:    "Snapshot build cycle duration in seconds.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
		),
		SnapshotInstallsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "termserve_snapshot_installs_total",
				Help: "Total snapshots installed as active.",
			},
		),
		ActiveSnapshotVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "termserve_active_snapshot_version",
				Help: "Version of the currently serving snapshot.",
			},
		),
		ActiveTermCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "termserve_active_term_count",
				Help: "Number of terms in the currently serving snapshot.",
			},
		),
	}

	reg.MustRegister(
		m.QueriesTotal,
		m.QueryDuration,
		m.QueryResultCount,
		m.BuildsTotal,
		m.BuildDuration,
		m.SnapshotInstallsTotal,
		m.ActiveSnapshotVersion,
		m.ActiveTermCount,
	)
	return m
}

// Handler returns the scrape handler for a registry created with New.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
