// Package metrics provides Prometheus metrics for the docshelf server.
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
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docshelf_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docshelf_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docshelf_uploads_total",
			Help: "File uploads by outcome",
		},
		[]string{"outcome"},
	)

	uploadedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docshelf_uploaded_bytes_total",
			Help: "Total bytes admitted through uploads",
		},
	)

	blobOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docshelf_blob_operation_duration_seconds",
			Help:    "Blob store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	blobOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docshelf_blob_operations_total",
			Help: "Total blob store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	sweepRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docshelf_sweep_removed_total",
			Help: "Items reconciled by the background sweeper",
		},
		[]string{"kind"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric. route is the
// registered route pattern, not the raw path.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordUpload records the outcome of an upload attempt. outcome is one of
// "success", "rejected" or "error".
func RecordUpload(outcome string, bytes int64) {
	uploadsTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		uploadedBytes.Add(float64(bytes))
	}
}

// RecordBlobOperation records a blob store call.
func RecordBlobOperation(backend, operation string, duration time.Duration, success bool) {
	blobOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	blobOperationsTotal.WithLabelValues(backend, operation, status).Inc()
}

// RecordSweep records items removed by a sweep cycle.
func RecordSweep(kind string, n int) {
	sweepRemovedTotal.WithLabelValues(kind).Add(float64(n))
}
