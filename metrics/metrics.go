// Package metrics provides Prometheus instrumentation for extraction and
// the ledger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ExtractionPasses counts pass outcomes by pass name and outcome
	// (ok, rejected, kept_suspicious).
	ExtractionPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradebook_extraction_passes_total",
		Help: "Extraction pass outcomes",
	}, []string{"pass", "outcome"})

	// ExtractionFailures counts screenshots no pass could read.
	ExtractionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradebook_extraction_failures_total",
		Help: "Screenshots whose text was unusable",
	})

	// TradesCommitted counts trades written to the journal by source
	// (submit, confirm, batch).
	TradesCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradebook_trades_committed_total",
		Help: "Trades written to the journal",
	}, []string{"source"})

	// Duplicates counts submissions parked for confirmation.
	Duplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradebook_duplicates_total",
		Help: "Submissions that collided with an existing trade",
	})

	// Decisions counts confirmation decisions by outcome
	// (yes, no, missing).
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradebook_confirmation_decisions_total",
		Help: "Duplicate confirmation decisions",
	}, []string{"outcome"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradebook_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradebook_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
