package metrics

import "github.com/prometheus/client_golang/prometheus"

// AssignmentMetrics tracks auto-assignment decisions by outcome and strategy.
type AssignmentMetrics struct {
	decisions *prometheus.CounterVec
	skips     *prometheus.CounterVec
}

// NewAssignmentMetrics registers the assignment decision counters. A nil
// registerer yields a no-op instance.
func NewAssignmentMetrics(reg prometheus.Registerer) *AssignmentMetrics {
	if reg == nil {
		return &AssignmentMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_decisions_total",
		Help: "Orders assigned to an operator, by strategy.",
	}, []string{"strategy"})
	skips := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_skips_total",
		Help: "Orders left unassigned, by reason.",
	}, []string{"reason"})
	reg.MustRegister(decisions, skips)
	return &AssignmentMetrics{decisions: decisions, skips: skips}
}

// IncAssigned increments the assigned counter for the strategy that produced
// the decision.
func (a *AssignmentMetrics) IncAssigned(strategy string) {
	if a == nil || a.decisions == nil {
		return
	}
	a.decisions.WithLabelValues(strategy).Inc()
}

// IncSkipped increments the skip counter for the given reason.
func (a *AssignmentMetrics) IncSkipped(reason string) {
	if a == nil || a.skips == nil {
		return
	}
	a.skips.WithLabelValues(reason).Inc()
}
