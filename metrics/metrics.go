// Package metrics exposes prometheus counters for operations, outcomes and
// contract events.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lotto"

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	registry *prometheus.Registry

	submitted       *prometheus.CounterVec
	confirmed       *prometheus.CounterVec
	failed          *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	duplicates      *prometheus.CounterVec
	events          *prometheus.CounterVec
	outcomeTimeouts prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_submitted_total",
			Help:      "Operations handed to the wallet and accepted.",
		}, []string{"kind"}),
		confirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_confirmed_total",
			Help:      "Operations confirmed on chain.",
		}, []string{"kind"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_failed_total",
			Help:      "Operations rejected, reverted or failed to submit.",
		}, []string{"kind"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spin_outcomes_installed_total",
			Help:      "Spin outcomes installed by source.",
		}, []string{"source"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spin_outcomes_duplicate_total",
			Help:      "Spin outcomes discarded because one was already installed.",
		}, []string{"source"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_events_total",
			Help:      "Contract events dispatched by event name.",
		}, []string{"event"}),
		outcomeTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spin_outcome_timeouts_total",
			Help:      "Spins rolled back because no outcome arrived in time.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.submitted, m.confirmed, m.failed, m.outcomes, m.duplicates, m.events, m.outcomeTimeouts,
	)
	return m
}

// Registry returns the registry the counters are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Submitted(kind string) {
	if m != nil {
		m.submitted.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Confirmed(kind string) {
	if m != nil {
		m.confirmed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Failed(kind string) {
	if m != nil {
		m.failed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) OutcomeInstalled(source string) {
	if m != nil {
		m.outcomes.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) OutcomeDuplicate(source string) {
	if m != nil {
		m.duplicates.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) Event(name string) {
	if m != nil {
		m.events.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) OutcomeTimeout() {
	if m != nil {
		m.outcomeTimeouts.Inc()
	}
}
