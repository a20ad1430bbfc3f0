package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the binspect service
type Metrics struct {
	// Decode metrics
	Decodes        *prometheus.CounterVec
	DecodeErrors   *prometheus.CounterVec
	DecodeDuration *prometheus.HistogramVec
	NodesDecoded   prometheus.Counter
	InputBytes     prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		Decodes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "binspect_decodes_total",
			Help: "Total number of decode calls",
		}, []string{"grammar", "status"}),
		DecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "binspect_decode_errors_total",
			Help: "Total number of decode errors by kind",
		}, []string{"kind"}),
		DecodeDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "binspect_decode_duration_seconds",
			Help:    "Duration of decode calls",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
		}, []string{"grammar"}),
		NodesDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "binspect_nodes_decoded_total",
			Help: "Total number of nodes produced across all decodes",
		}),
		InputBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "binspect_input_bytes",
			Help:    "Size of decoded input buffers in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 12), // 64B to ~1GB
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "binspect_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "binspect_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "binspect_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordDecodeSuccess records a completed decode call
func (m *Metrics) RecordDecodeSuccess(grammar string, durationSeconds float64, nodes, inputBytes int) {
	m.Decodes.WithLabelValues(grammar, "ok").Inc()
	m.DecodeDuration.WithLabelValues(grammar).Observe(durationSeconds)
	m.NodesDecoded.Add(float64(nodes))
	m.InputBytes.Observe(float64(inputBytes))
}

// RecordDecodeError records a failed decode call with its error kind
func (m *Metrics) RecordDecodeError(grammar, kind string, durationSeconds float64) {
	m.Decodes.WithLabelValues(grammar, "error").Inc()
	m.DecodeErrors.WithLabelValues(kind).Inc()
	m.DecodeDuration.WithLabelValues(grammar).Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
