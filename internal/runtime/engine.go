package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/registry"
)

// Engine is the stateless flow controller.
// Every operation takes a FlowState and returns the next one without mutating its input.
type Engine struct {
	registry  *registry.Registry
	resolver  *Resolver
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	observers []domain.Observer
	now       func() time.Time
}

// EngineOption configures the runtime engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithObservers registers side-effect observers, run in order after each commit.
func WithObservers(observers ...domain.Observer) EngineOption {
	return func(e *Engine) {
		e.observers = append(e.observers, observers...)
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a runtime engine over a registry.
func NewEngine(reg *registry.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: reg,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = NewResolver(reg, e.logger)
	return e
}

// Registry returns the step registry the engine runs.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Resolver returns the inclusion resolver bound to the registry.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// Steps returns the registry in canonical order.
func (e *Engine) Steps() []domain.Step {
	return e.registry.Steps()
}

// Start creates a state positioned at the first effective step.
func (e *Engine) Start(ctx context.Context, flowID string) (*domain.FlowState, error) {
	first := e.resolver.FirstEffectiveIndex(nil)
	if first == Terminal {
		return nil, fmt.Errorf("registry %q has no effective step: %w", e.registry.Name(), domain.ErrNoStep)
	}

	state := domain.NewFlowState(flowID, first)
	state.StartedAt = e.now().UTC()
	state.ProgressMark = e.rawProgress(state)

	step, _ := e.registry.Step(first)
	e.logger.Debug("flow started", "flow", flowID, "step", step.ID)
	e.emitStepEnter(ctx, state, step)
	return state, nil
}

// CurrentStep returns the descriptor at the state's cursor.
func (e *Engine) CurrentStep(state *domain.FlowState) (domain.Step, error) {
	step, ok := e.registry.Step(state.StepIndex)
	if !ok {
		return domain.Step{}, fmt.Errorf("flow %s at index %d: %w", state.FlowID, state.StepIndex, domain.ErrNoStep)
	}
	return step, nil
}

// Render calculates the host-facing view of a state without changing it.
func (e *Engine) Render(ctx context.Context, state *domain.FlowState) (*domain.View, error) {
	view := &domain.View{
		FlowID:    state.FlowID,
		Status:    state.Status,
		Index:     state.StepIndex,
		Position:  state.Position,
		Direction: state.Direction,
		Progress:  e.Progress(state),
		Notices:   append([]domain.Notice(nil), state.Notices...),
		Terminal:  !state.Active(),
	}
	if !state.Active() {
		return view, nil
	}

	step, err := e.CurrentStep(state)
	if err != nil {
		return nil, err
	}
	view.Step = &step
	view.Terminal = step.Kind == domain.KindSummary
	view.AutoAdvance = step.Kind.AutoAdvance()
	view.Skippable = step.Kind == domain.KindMediaCapture || step.Optional

	if state.Staged != nil {
		staged := state.Staged.Clone()
		view.Staged = &staged
	}
	if committed, ok := state.Answers.Get(step.ID); ok {
		c := committed.Clone()
		view.Committed = &c
	}
	return view, nil
}

// Progress reports completion in [0,1].
// While active it is the high-water mark recorded by forward moves, so it
// never decreases as the user advances; it is 1 once the flow completed.
func (e *Engine) Progress(state *domain.FlowState) float64 {
	switch state.Status {
	case domain.StatusCompleted, domain.StatusSubmitted:
		return 1
	}
	return clamp01(state.ProgressMark)
}

// rawProgress is (position+1)/(position+1+remaining) under the current answers.
// Steps whose predicates depend on unanswered steps are counted as the
// predicate decides for the answers so far.
func (e *Engine) rawProgress(state *domain.FlowState) float64 {
	done := float64(state.Position + 1)
	total := done + float64(e.resolver.Remaining(state.StepIndex, state.Answers))
	if total <= 0 {
		return 0
	}
	return clamp01(done / total)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// checkActive rejects navigation on flows that already left the active status.
func checkActive(state *domain.FlowState) error {
	switch state.Status {
	case domain.StatusActive:
		return nil
	case domain.StatusAbandoned:
		return domain.ErrFlowAbandoned
	}
	return domain.ErrFlowCompleted
}

func cloneState(state *domain.FlowState) *domain.FlowState {
	next := state.Snapshot()
	if next.Answers == nil {
		next.Answers = make(domain.AnswerStore)
	}
	return next
}
