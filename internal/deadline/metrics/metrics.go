package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for deadline scheduling and alert delivery.
type Metrics struct {
	AlertOutcomes   *prometheus.CounterVec
	EnqueueFailures prometheus.Counter
	JobRetries      prometheus.Counter
	JobFailures     *prometheus.CounterVec
	Extensions      *prometheus.CounterVec
	JobsClaimed     prometheus.Counter
}

// New registers deadline metrics with reg. A nil reg skips registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AlertOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeharbour_alert_outcomes_total",
			Help: "Alert jobs handled by kind and outcome",
		}, []string{"kind", "outcome"}),

		EnqueueFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "safeharbour_alert_enqueue_failures_total",
			Help: "Alerts persisted but not enqueued at scheduling time",
		}),

		JobRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "safeharbour_alert_job_retries_total",
			Help: "Transient failures retried by the alert worker",
		}),

		JobFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeharbour_alert_job_failures_total",
			Help: "Alert jobs reported failed after exhausting retries, by kind",
		}, []string{"kind"}),

		Extensions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeharbour_deadline_extensions_total",
			Help: "Deadline extension attempts by result",
		}, []string{"result"}), // result: "extended", "policy_limit"

		JobsClaimed: f.NewCounter(prometheus.CounterOpts{
			Name: "safeharbour_alert_jobs_claimed_total",
			Help: "Due alert jobs claimed from the queue",
		}),
	}
}

func (m *Metrics) IncrementOutcome(kind, outcome string) {
	if m != nil {
		m.AlertOutcomes.WithLabelValues(kind, outcome).Inc()
	}
}

func (m *Metrics) IncrementEnqueueFailure() {
	if m != nil {
		m.EnqueueFailures.Inc()
	}
}

func (m *Metrics) IncrementRetry() {
	if m != nil {
		m.JobRetries.Inc()
	}
}

func (m *Metrics) IncrementJobFailure(kind string) {
	if m != nil {
		m.JobFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncrementExtension(result string) {
	if m != nil {
		m.Extensions.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) AddClaimed(n int) {
	if m != nil {
		m.JobsClaimed.Add(float64(n))
	}
}
