// Package metrics defines the Prometheus collectors of the service. A nil
// *Metrics is valid and records nothing, so components need no guard.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "resume_optimizer"

// Attempt outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the collectors and the registry they are registered with.
type Metrics struct {
	registry *prometheus.Registry

	reconcile      *prometheus.CounterVec
	oracleAttempts *prometheus.CounterVec
	requests       *prometheus.CounterVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		reconcile: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Score reconciliations by terminal stage.",
		}, []string{"stage"}),
		oracleAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_attempts_total",
			Help:      "Oracle calls by oracle and outcome.",
		}, []string{"oracle", "outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Analyze and optimize requests by operation and result.",
		}, []string{"operation", "result"}),
	}
	reg.MustRegister(
		m.reconcile,
		m.oracleAttempts,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TrackTokens exposes the stored token count through a gauge backed by count.
func (m *Metrics) TrackTokens(count func() int) {
	if m == nil || count == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tokens_stored",
		Help:      "Token entries currently held by the in-process store.",
	}, func() float64 { return float64(count()) }))
}

// ReconcileStage counts one reconciliation ending in stage.
func (m *Metrics) ReconcileStage(stage string) {
	if m == nil {
		return
	}
	m.reconcile.WithLabelValues(stage).Inc()
}

// OracleAttempt counts one oracle call.
func (m *Metrics) OracleAttempt(oracle string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.oracleAttempts.WithLabelValues(oracle, outcome).Inc()
}

// Request counts one caller-facing request.
func (m *Metrics) Request(operation, result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, result).Inc()
}

// Registry returns the underlying registry, for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
