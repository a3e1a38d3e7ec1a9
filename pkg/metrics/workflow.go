package metrics

import "github.com/prometheus/client_golang/prometheus"

// WorkflowMetrics counts client-side polling activity and server-side transitions.
type WorkflowMetrics struct {
	pollTicks   *prometheus.CounterVec
	pollErrors  *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	pollTicks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "workflow",
		Name:      "poll_ticks_total",
		Help:      "Listing poll requests issued while awaiting completion.",
	}, []string{"awaiting"})
	pollErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "workflow",
		Name:      "poll_errors_total",
		Help:      "Listing poll requests that failed and were retried on the next tick.",
	}, []string{"awaiting"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "listing",
		Name:      "transitions_total",
		Help:      "Listing status transitions committed by the store.",
	}, []string{"from", "to"})
	reg.MustRegister(pollTicks, pollErrors, transitions)
	return &WorkflowMetrics{pollTicks: pollTicks, pollErrors: pollErrors, transitions: transitions}
}

func (m *WorkflowMetrics) IncPollTick(awaiting string) {
	if m == nil || m.pollTicks == nil {
		return
	}
	m.pollTicks.WithLabelValues(normalizeLabel(awaiting)).Inc()
}

func (m *WorkflowMetrics) IncPollError(awaiting string) {
	if m == nil || m.pollErrors == nil {
		return
	}
	m.pollErrors.WithLabelValues(normalizeLabel(awaiting)).Inc()
}

func (m *WorkflowMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}
