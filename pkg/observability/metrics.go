package observability

import (
	"context"

	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the session collectors.
type Metrics struct {
	Submissions prometheus.Counter
	Entries     *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratlab_submissions_total",
			Help: "Total number of accepted submissions",
		}),
		Entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratlab_entries_total",
				Help: "Total number of result entries by kind",
			},
			[]string{"kind"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ratlab_evaluation_duration_seconds",
				Help:    "Duration of evaluations by result kind",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"kind"},
		),
	}
	for _, c := range []prometheus.Collector{m.Submissions, m.Entries, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSubmit: func(ctx context.Context, e *domain.SubmitEvent) {
			m.Submissions.Inc()
		},
		OnEvaluated: func(ctx context.Context, e *domain.EvaluationEvent) {
			kind := string(e.Entry.Kind)
			m.Entries.WithLabelValues(kind).Inc()
			m.Duration.WithLabelValues(kind).Observe(e.Duration.Seconds())
		},
	}
}
