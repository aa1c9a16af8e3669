package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portfolio"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// PhotoResolutions counts image requests by how they were answered:
	// direct, legacy or placeholder.
	PhotoResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "photo_resolutions_total",
		Help:      "Photo image requests by resolution outcome.",
	}, []string{"outcome"})

	BlobRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blob_retries_total",
		Help:      "Blob store calls retried after a transport failure.",
	}, []string{"op"})

	PartialFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "partial_failures_total",
		Help:      "Upload or delete requests that left blob store and metadata out of step.",
	}, []string{"op"})
)

// BlobRetry is the retry hook handed to blob.NewRetrying.
func BlobRetry(op string) {
	BlobRetries.WithLabelValues(op).Inc()
}
