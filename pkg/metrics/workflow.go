package metrics

import "github.com/prometheus/client_golang/prometheus"

// WorkflowMetrics counts table and requisition status transitions.
type WorkflowMetrics struct {
	transitions *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow transition counter.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Status transitions by entity and target status.",
	}, []string{"entity", "status"})
	reg.MustRegister(transitions)
	return &WorkflowMetrics{transitions: transitions}
}

// IncTransition records that entity moved into status.
func (w *WorkflowMetrics) IncTransition(entity, status string) {
	if w == nil || w.transitions == nil {
		return
	}
	w.transitions.WithLabelValues(normalizeLabel(entity), normalizeLabel(status)).Inc()
}
