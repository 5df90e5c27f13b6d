// Package metrics provides Prometheus metrics for the chat service
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Conversation metrics
	ChatMessagesTotal     *prometheus.CounterVec
	SessionRotationsTotal prometheus.Counter
	SessionResetsTotal    prometheus.Counter

	// Gateway metrics
	GatewayRequestsTotal   *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec

	// Log sink metrics
	LogWriteFailuresTotal *prometheus.CounterVec
}

// New creates and registers all collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{}

	m.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groqchat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groqchat_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.ChatMessagesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groqchat_chat_messages_total",
			Help: "Messages appended to sessions by role",
		},
		[]string{"role"},
	)

	m.SessionRotationsTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "groqchat_session_rotations_total",
		Help: "Sessions discarded because they outlived the retention window",
	})

	m.SessionResetsTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "groqchat_session_resets_total",
		Help: "Sessions reset on user request",
	})

	m.GatewayRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groqchat_gateway_requests_total",
			Help: "Completion requests by provider and status",
		},
		[]string{"provider", "status"},
	)

	m.GatewayRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groqchat_gateway_request_duration_seconds",
			Help:    "Latency of completion requests in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	m.LogWriteFailuresTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groqchat_chatlog_write_failures_total",
			Help: "Failed transcript writes by sink",
		},
		[]string{"sink"},
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordGatewayRequest records a completion call
func (m *Metrics) RecordGatewayRequest(provider string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.GatewayRequestsTotal.WithLabelValues(provider, status).Inc()
	m.GatewayRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordMessage counts a message appended to a session
func (m *Metrics) RecordMessage(role string) {
	if m == nil {
		return
	}
	m.ChatMessagesTotal.WithLabelValues(role).Inc()
}

// RecordRotation counts a lazy rotation
func (m *Metrics) RecordRotation() {
	if m == nil {
		return
	}
	m.SessionRotationsTotal.Inc()
}

// RecordReset counts an explicit reset
func (m *Metrics) RecordReset() {
	if m == nil {
		return
	}
	m.SessionResetsTotal.Inc()
}

// RecordLogFailure counts a failed transcript write
func (m *Metrics) RecordLogFailure(sink string) {
	if m == nil {
		return
	}
	m.LogWriteFailuresTotal.WithLabelValues(sink).Inc()
}
