// Package metrics exposes Prometheus collectors for request admission,
// decisions and schema steps.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Submissions *prometheus.CounterVec
	Decisions   *prometheus.CounterVec
	SchemaSteps *prometheus.CounterVec
	Retries     prometheus.Counter
}

// New registers the collectors on reg. A nil reg leaves them unregistered,
// which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hr",
			Name:      "request_submissions_total",
			Help:      "Submitted requests by kind and outcome code.",
		}, []string{"kind", "outcome"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hr",
			Name:      "request_decisions_total",
			Help:      "Decisions by requested status and outcome code.",
		}, []string{"decision", "outcome"}),
		SchemaSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hr",
			Name:      "schema_steps_total",
			Help:      "Schema steps by outcome.",
		}, []string{"outcome"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hr",
			Name:      "request_tx_retries_total",
			Help:      "Transactions replayed after a retryable conflict.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Submissions, m.Decisions, m.SchemaSteps, m.Retries)
	}
	return m
}

func (m *Metrics) ObserveSubmission(kind, outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveDecision(decision, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision, outcome).Inc()
}

func (m *Metrics) ObserveSchemaStep(outcome string) {
	if m == nil {
		return
	}
	m.SchemaSteps.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}
