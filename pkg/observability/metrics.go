package observability

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by engine hooks.
// One Metrics serves every flow; the flow name is a label.
type Metrics struct {
	StepViews   *prometheus.CounterVec
	Commits     *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Completions *prometheus.CounterVec
	Submissions *prometheus.CounterVec
	Attempts    *prometheus.HistogramVec
	Notices     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered, which tests use with testutil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepwise",
			Name:      "step_views_total",
			Help:      "Number of times a step was entered.",
		}, []string{"flow", "step", "direction"}),
		Commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepwise",
			Name:      "answers_committed_total",
			Help:      "Answers that passed validation and were committed.",
		}, []string{"flow", "step"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepwise",
			Name:      "answers_rejected_total",
			Help:      "Candidates rejected by the validation gate.",
		}, []string{"flow", "step", "reason"}),
		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepwise",
			Name:      "flows_completed_total",
			Help:      "Flows that reached the end of their effective path.",
		}, []string{"flow"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepwise",
			Name:      "submissions_total",
			Help:      "Submission attempts by result.",
		}, []string{"flow", "result"}),
		Attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stepwise",
			Name:      "submission_attempts",
			Help:      "Attempts needed until a submission succeeded.",
			Buckets:   []float64{1, 2, 3, 5, 10},
		}, []string{"flow"}),
		Notices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepwise",
			Name:      "notices_total",
			Help:      "Notices raised or cleared by observers.",
		}, []string{"flow", "kind", "op"}),
	}

	if reg != nil {
		reg.MustRegister(m.StepViews, m.Commits, m.Rejections, m.Completions, m.Submissions, m.Attempts, m.Notices)
	}
	return m
}

// Hooks returns lifecycle hooks recording into m under the given flow name.
func (m *Metrics) Hooks(flow string) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			m.StepViews.WithLabelValues(flow, e.StepID, e.Direction.String()).Inc()
		},
		OnCommit: func(_ context.Context, e *domain.AnswerEvent) {
			m.Commits.WithLabelValues(flow, e.StepID).Inc()
		},
		OnReject: func(_ context.Context, e *domain.AnswerEvent) {
			reason := "unknown"
			if e.Error != nil {
				reason = e.Error.Reason
			}
			m.Rejections.WithLabelValues(flow, e.StepID, reason).Inc()
		},
		OnComplete: func(_ context.Context, _ *domain.FlowEvent) {
			m.Completions.WithLabelValues(flow).Inc()
		},
		OnSubmit: func(_ context.Context, e *domain.FlowEvent) {
			if e.Error != "" {
				m.Submissions.WithLabelValues(flow, "failure").Inc()
				return
			}
			m.Submissions.WithLabelValues(flow, "success").Inc()
			m.Attempts.WithLabelValues(flow).Observe(float64(e.Attempt))
		},
		OnNotice: func(_ context.Context, e *domain.NoticeEvent) {
			m.Notices.WithLabelValues(flow, string(e.Effect.Notice.Kind), string(e.Effect.Op)).Inc()
		},
	}
}
