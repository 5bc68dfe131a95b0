package rpc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "nearrpc"

// Call outcomes used as the "outcome" label
const (
	outcomeSuccess        = "success"
	outcomeRPCError       = "rpc_error"
	outcomeTransportError = "transport_error"
	outcomeCacheHit       = "cache_hit"
)

// Metrics holds the client's prometheus collectors
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "JSON-RPC calls by method and outcome",
		}, []string{"method", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "JSON-RPC call latency including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "retries_total",
			Help:      "Retried JSON-RPC attempts by endpoint",
		}, []string{"endpoint"}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.latency, m.retries)
	}
	return m
}

func (m *Metrics) observe(method, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	if outcome != outcomeCacheHit {
		m.latency.WithLabelValues(method).Observe(took.Seconds())
	}
}

func (m *Metrics) retried(endpoint string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(endpoint).Inc()
}
