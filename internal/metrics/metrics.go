// Package metrics holds the Prometheus collectors for the approval workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's collectors.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	Decisions       *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
}

// New creates collectors and registers them on reg. A nil reg skips registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "approvals",
			Name:      "transitions_total",
			Help:      "Approval state transitions by action and result.",
		}, []string{"action", "result"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "approvals",
			Name:      "authorization_decisions_total",
			Help:      "Authorization decisions by action and reason (allowed when granted).",
		}, []string{"action", "reason"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "approvals",
			Name:      "events_published_total",
			Help:      "Approval events handed to the event sink by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.Decisions, m.EventsPublished)
	}
	return m
}

// Noop returns unregistered collectors, for tests and tools.
func Noop() *Metrics {
	return New(nil)
}
