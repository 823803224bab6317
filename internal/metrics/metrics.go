// Package metrics exposes Prometheus instrumentation for the ledger and HTTP layers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered on one registry.
type Metrics struct {
	registry           *prometheus.Registry
	Transitions        *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	WithdrawalConflict prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invest",
			Name:      "transitions_total",
			Help:      "Admin decisions applied to deposits and withdrawals.",
		}, []string{"kind", "status"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invest",
			Name:      "submissions_total",
			Help:      "Deposits and withdrawals accepted into pending.",
		}, []string{"kind"}),
		WithdrawalConflict: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "invest",
			Name:      "withdrawal_conflicts_total",
			Help:      "Withdrawal commits that lost the ledger version compare-and-swap.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "invest",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		m.Transitions,
		m.Submissions,
		m.WithdrawalConflict,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
