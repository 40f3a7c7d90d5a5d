package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the approval engine.
type Metrics struct {
	VotesCast         *prometheus.CounterVec
	Outcomes          *prometheus.CounterVec
	ExecutionFailures *prometheus.CounterVec
	ExecuteLatency    prometheus.Histogram
}

// New registers approval metrics with reg. A nil reg skips registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VotesCast: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeharbour_approval_votes_total",
			Help: "Approval votes recorded by action type and decision",
		}, []string{"action", "decision"}),

		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeharbour_approval_outcomes_total",
			Help: "Approval requests settled by action type and final status",
		}, []string{"action", "status"}),

		ExecutionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeharbour_approval_execution_failures_total",
			Help: "Executor failures after quorum, by action type",
		}, []string{"action"}),

		ExecuteLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "safeharbour_approval_execute_duration_seconds",
			Help:    "Duration of the transition plus executor transaction",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncrementVote(action, decision string) {
	if m != nil {
		m.VotesCast.WithLabelValues(action, decision).Inc()
	}
}

func (m *Metrics) IncrementOutcome(action, status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(action, status).Inc()
	}
}

func (m *Metrics) IncrementExecutionFailure(action string) {
	if m != nil {
		m.ExecutionFailures.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) ObserveExecuteLatency(d time.Duration) {
	if m != nil {
		m.ExecuteLatency.Observe(d.Seconds())
	}
}
