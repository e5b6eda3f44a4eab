// Package metrics holds the Prometheus instruments of the storage client.
// They are registered on the default registry and exposed by the serve
// command next to its HTTP transports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// requestsTotal counts API requests by operation and outcome.
	// code is the HTTP status, or "error" when no response arrived.
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultctl_requests_total",
			Help: "Storage API requests issued by the client",
		},
		[]string{"op", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vaultctl_request_duration_seconds",
			Help:    "Latency of storage API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	uploadOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultctl_upload_outcomes_total",
			Help: "Per-file upload outcomes",
		},
		[]string{"outcome"},
	)

	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultctl_upload_batches_total",
			Help: "Completed upload batches by overall result",
		},
		[]string{"result"},
	)
)

// ObserveRequest records one API call. status 0 means a transport failure.
func ObserveRequest(op string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	requestsTotal.WithLabelValues(op, code).Inc()
	requestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveUpload records a single file outcome ("success", "network",
// "server", "malformed", "local").
func ObserveUpload(outcome string) {
	uploadOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveBatch records a finished batch ("success", "partial", "failure").
func ObserveBatch(result string) {
	batchesTotal.WithLabelValues(result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
