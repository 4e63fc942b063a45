// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/starford/graphlens/internal/apperr"
)

var (
	// HTTPRequestsTotal counts requests by method, route pattern and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphlens_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures server response time.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphlens_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// QueriesTotal counts engine operations by outcome.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphlens_queries_total",
			Help: "Total number of entity queries by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// DatasetImportsTotal counts dataset file changes by kind
	// (imported, removed, failed).
	DatasetImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphlens_dataset_imports_total",
			Help: "Total number of dataset file changes applied",
		},
		[]string{"kind"},
	)

	// Entities tracks the number of distinct entities in the graph store.
	Entities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphlens_entities",
			Help: "Number of distinct entities in the graph store",
		},
	)

	// EventStreams tracks open /api/events connections.
	EventStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphlens_event_streams",
			Help: "Number of connected event stream clients",
		},
	)
)

// Outcome classifies an engine error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// ObserveQuery records one engine operation.
func ObserveQuery(operation string, err error) {
	QueriesTotal.WithLabelValues(operation, Outcome(err)).Inc()
}
