// Package metrics holds the Prometheus collectors for the booking backend.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the backend registers.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	StepAdvancesTotal   *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge
}

// New registers the collectors on a registry and returns the bundle.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		UpstreamRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Calls to remote services by service and outcome",
		}, []string{"service", "outcome"}),

		UpstreamRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Remote service call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),

		StepAdvancesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "wizard",
			Name:      "step_advances_total",
			Help:      "Wizard step transitions by source step and outcome",
		}, []string{"from", "outcome"}),

		PersistenceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "wizard",
			Name:      "persistence_failures_total",
			Help:      "Failed incremental persistence calls by stage",
		}, []string{"stage"}),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "booking",
			Subsystem: "wizard",
			Name:      "active_sessions",
			Help:      "Wizard sessions currently held in memory",
		}),
	}
}

// ObserveUpstream records one remote service call.
func (m *Metrics) ObserveUpstream(service string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequestsTotal.WithLabelValues(service, outcome).Inc()
	m.UpstreamRequestDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
}
