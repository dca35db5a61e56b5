package ports

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
)

// AnswerSink receives the answers of a completed flow.
// A returned error keeps the answers in the flow so the host can retry.
type AnswerSink interface {
	Submit(ctx context.Context, flowID string, answers domain.AnswerStore) error
}

// SinkFunc adapts a function to the AnswerSink interface.
type SinkFunc func(ctx context.Context, flowID string, answers domain.AnswerStore) error

// Submit calls f.
func (f SinkFunc) Submit(ctx context.Context, flowID string, answers domain.AnswerStore) error {
	return f(ctx, flowID, answers)
}
