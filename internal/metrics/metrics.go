package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AnuragDani/gateway-decider/internal/telemetry"
)

// Metrics holds the decider's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	checkpoints    *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	decisionTime   *prometheus.HistogramVec
	functionalSize prometheus.Histogram
	outcomes       *prometheus.CounterVec
	outcomeErrors  prometheus.Counter
	reloads        *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		checkpoints: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "decider_checkpoints_total",
			Help: "Scoring checkpoints emitted, by stage",
		}, []string{"stage"}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "decider_decisions_total",
			Help: "Gateway decisions, by approach and downtime classification",
		}, []string{"approach", "downtime"}),
		decisionTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "decider_decision_duration_seconds",
			Help:    "Time taken to filter and score one transaction",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"approach"}),
		functionalSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "decider_functional_gateways",
			Help:    "Size of the functional gateway set after filtering",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "decider_outcomes_total",
			Help: "Transaction outcomes fed back into the score cache",
		}, []string{"gateway", "success"}),
		outcomeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "decider_outcome_errors_total",
			Help: "Outcomes whose score cache update partly failed",
		}),
		reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "decider_config_reloads_total",
			Help: "Decider configuration reloads, by result",
		}, []string{"result"}),
	}
}

// Emit implements telemetry.Emitter
func (m *Metrics) Emit(_ context.Context, msg telemetry.MessageFormat) {
	m.checkpoints.WithLabelValues(msg.Stage).Inc()
}

// ObserveDecision records one completed decision
func (m *Metrics) ObserveDecision(approach, downtime string, functional int, elapsed time.Duration) {
	m.decisions.WithLabelValues(approach, downtime).Inc()
	m.decisionTime.WithLabelValues(approach).Observe(elapsed.Seconds())
	m.functionalSize.Observe(float64(functional))
}

// ObserveOutcome records one outcome update
func (m *Metrics) ObserveOutcome(gateway string, success bool, err error) {
	m.outcomes.WithLabelValues(gateway, strconv.FormatBool(success)).Inc()
	if err != nil {
		m.outcomeErrors.Inc()
	}
}

// ObserveReload records a configuration reload attempt
func (m *Metrics) ObserveReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloads.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
