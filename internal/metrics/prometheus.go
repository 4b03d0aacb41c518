// Package metrics exposes Prometheus collectors for the password service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the password service
type Metrics struct {
	// UDP datagram metrics
	DatagramsReceived prometheus.Counter
	RateLimited       prometheus.Counter
	SendErrors        prometheus.Counter
	QueueSize         prometheus.Gauge

	// Request metrics
	Requests           *prometheus.CounterVec
	PasswordsGenerated *prometheus.CounterVec
	GenerationDuration prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DatagramsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "passwdgen_datagrams_received_total",
			Help: "Total number of UDP datagrams received",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "passwdgen_datagrams_rate_limited_total",
			Help: "Total number of datagrams dropped by the per-peer rate limiter",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "passwdgen_send_errors_total",
			Help: "Total number of replies that could not be sent",
		}),
		QueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "passwdgen_queue_size",
			Help: "Current number of datagrams waiting for a worker",
		}),

		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passwdgen_requests_total",
			Help: "Total number of requests by outcome",
		}, []string{"transport", "outcome"}),
		PasswordsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passwdgen_passwords_generated_total",
			Help: "Total number of passwords generated by type",
		}, []string{"type"}),
		GenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "passwdgen_request_duration_seconds",
			Help:    "Time spent answering a request",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10), // 1us to ~0.26s
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passwdgen_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "passwdgen_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passwdgen_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordDatagramReceived increments the datagrams received counter
func (m *Metrics) RecordDatagramReceived() {
	m.DatagramsReceived.Inc()
}

// RecordRateLimited increments the rate limited counter
func (m *Metrics) RecordRateLimited() {
	m.RateLimited.Inc()
}

// RecordSendError increments the send errors counter
func (m *Metrics) RecordSendError() {
	m.SendErrors.Inc()
}

// SetQueueSize sets the current queue size
func (m *Metrics) SetQueueSize(size int) {
	m.QueueSize.Set(float64(size))
}

// RecordRequest records an answered request. passwordType is empty unless a
// password was generated.
func (m *Metrics) RecordRequest(transport, outcome, passwordType string, durationSeconds float64) {
	m.Requests.WithLabelValues(transport, outcome).Inc()
	if passwordType != "" {
		m.PasswordsGenerated.WithLabelValues(passwordType).Inc()
	}
	m.GenerationDuration.Observe(durationSeconds)
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
