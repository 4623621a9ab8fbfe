// Package metrics holds the Prometheus instruments for advice resolution.
//
// Instruments register on a caller-supplied registry rather than the global
// default, so tests and multiple servers in one process do not collide.
// All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lunacare"

// Metrics groups the advice pipeline counters.
type Metrics struct {
	// Resolutions counts finished resolutions.
	// Labels: outcome (cache-hit, remote-success, remote-failure-fallback, offline-fallback)
	Resolutions *prometheus.CounterVec

	// CacheLookups counts response cache reads.
	// Labels: kind (query, tip), result (hit, miss)
	CacheLookups *prometheus.CounterVec

	// RemoteAttempts counts individual remote generation attempts.
	// Labels: result (success, transient, auth, quota, malformed)
	RemoteAttempts *prometheus.CounterVec
}

// New creates the instruments and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "advice",
				Name:      "resolutions_total",
				Help:      "Advice resolutions by outcome",
			},
			[]string{"outcome"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Response cache lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
		RemoteAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "remote",
				Name:      "attempts_total",
				Help:      "Remote generation attempts by result",
			},
			[]string{"result"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Resolutions, m.CacheLookups, m.RemoteAttempts)
	}
	return m
}

// ObserveResolution records one resolution outcome.
func (m *Metrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome).Inc()
}

// ObserveCacheLookup records a cache read.
func (m *Metrics) ObserveCacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

// ObserveRemoteAttempt records one remote attempt.
func (m *Metrics) ObserveRemoteAttempt(result string) {
	if m == nil {
		return
	}
	m.RemoteAttempts.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
