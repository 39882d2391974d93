package bps

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records provider call outcomes. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

// NewMetrics creates the provider collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stadatax",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "BPS WebAPI requests by endpoint, model and HTTP status (\"error\" when no response).",
		}, []string{"endpoint", "model", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stadatax",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "BPS WebAPI request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stadatax",
			Subsystem: "provider",
			Name:      "rate_limit_retries_total",
			Help:      "Retries scheduled after HTTP 429 responses.",
		}, []string{"operation"}),
	}
	reg.MustRegister(m.requests, m.duration, m.retries)
	return m
}

func (m *Metrics) observe(endpoint, model, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, model, code).Inc()
	m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveRetry counts one rate-limit retry of operation.
func (m *Metrics) ObserveRetry(operation string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}
