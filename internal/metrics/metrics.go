// Package metrics exposes Prometheus collectors for the load pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts pipeline actions by action and outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripcharts_runs_total",
			Help: "Total number of pipeline actions",
		},
		[]string{"action", "status"},
	)
	// StageDuration is the latency of each pipeline stage.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tripcharts_stage_duration_seconds",
			Help:    "Pipeline stage latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	// QueryRows is the number of trips returned by the most recent query.
	QueryRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tripcharts_query_rows",
			Help: "Trips returned by the most recent query",
		},
	)
	// DatasetLoads counts dataset registrations by outcome.
	DatasetLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripcharts_dataset_loads_total",
			Help: "Total number of dataset registrations",
		},
		[]string{"status"},
	)
)

// Status returns the outcome label for err
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
