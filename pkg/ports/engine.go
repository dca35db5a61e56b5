package ports

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
)

// FlowEngine defines the stateless flow core.
// Every operation takes a state and returns the next one; the input is never mutated.
// Adapters (HTTP, MCP) that keep state in a StateStore use this interface.
type FlowEngine interface {
	// Start creates a state positioned at the first effective step.
	Start(ctx context.Context, flowID string) (*domain.FlowState, error)

	// Render calculates the presentation of a state without changing it.
	Render(ctx context.Context, state *domain.FlowState) (*domain.View, error)

	// Stage validates a candidate answer and holds it without committing.
	Stage(state *domain.FlowState, candidate any) (*domain.FlowState, domain.ValidationResult)

	// Toggle flips one option of a multiple_choice selection.
	Toggle(state *domain.FlowState, optionID string) (*domain.FlowState, domain.ValidationResult)

	// Select stages a candidate and advances immediately for auto-advance kinds.
	Select(ctx context.Context, state *domain.FlowState, candidate any) (*domain.FlowState, domain.TransitionResult)

	Next(ctx context.Context, state *domain.FlowState) (*domain.FlowState, domain.TransitionResult)
	Previous(ctx context.Context, state *domain.FlowState) (*domain.FlowState, domain.TransitionResult)
	Skip(ctx context.Context, state *domain.FlowState) (*domain.FlowState, domain.TransitionResult)
	Abandon(ctx context.Context, state *domain.FlowState) (*domain.FlowState, domain.TransitionResult)

	// Submit hands the answers of a completed flow to the sink.
	Submit(ctx context.Context, state *domain.FlowState, sink AnswerSink) (*domain.FlowState, error)

	// Steps returns the registry in canonical order.
	Steps() []domain.Step
}
