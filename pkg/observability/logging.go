package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/stepwise/pkg/domain"
)

// LogHooks returns lifecycle hooks writing one structured record per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step_enter",
				"flow_id", e.FlowID,
				"step_id", e.StepID,
				"kind", e.Kind,
				"index", e.Index,
				"direction", e.Direction.String(),
			)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_leave", "flow_id", e.FlowID, "step_id", e.StepID)
		},
		OnCommit: func(ctx context.Context, e *domain.AnswerEvent) {
			logger.InfoContext(ctx, "answer_commit",
				"flow_id", e.FlowID,
				"step_id", e.StepID,
				"answer_type", e.Answer.Type,
			)
		},
		OnReject: func(ctx context.Context, e *domain.AnswerEvent) {
			attrs := []any{"flow_id", e.FlowID, "step_id", e.StepID}
			if e.Error != nil {
				attrs = append(attrs, "reason", e.Error.Reason)
			}
			logger.InfoContext(ctx, "answer_reject", attrs...)
		},
		OnComplete: func(ctx context.Context, e *domain.FlowEvent) {
			logger.InfoContext(ctx, "flow_complete", "flow_id", e.FlowID, "answers", e.Answers)
		},
		OnSubmit: func(ctx context.Context, e *domain.FlowEvent) {
			if e.Error != "" {
				logger.WarnContext(ctx, "flow_submit",
					"flow_id", e.FlowID,
					"attempt", e.Attempt,
					"err", e.Error,
				)
				return
			}
			logger.InfoContext(ctx, "flow_submit", "flow_id", e.FlowID, "attempt", e.Attempt)
		},
		OnNotice: func(ctx context.Context, e *domain.NoticeEvent) {
			logger.InfoContext(ctx, "notice",
				"flow_id", e.FlowID,
				"kind", e.Effect.Notice.Kind,
				"op", e.Effect.Op,
				"step_id", e.Effect.Notice.StepID,
			)
		},
	}
}
