package stepwise

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/stepwise/internal/runtime"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// Flow is the stateful controller of one flow instance.
// It owns the Answer Store; hosts only read it through Snapshot.
// A Flow is not safe for concurrent use; hosts serving several requests for
// the same flow should go through session.Manager.
type Flow struct {
	engine *Engine
	state  *domain.FlowState
	sink   ports.AnswerSink
}

// ID returns the flow instance ID.
func (f *Flow) ID() string {
	return f.state.FlowID
}

// CurrentStep returns the step at the cursor.
// It returns false once the flow is no longer active.
func (f *Flow) CurrentStep() (domain.Step, bool) {
	if !f.state.Active() {
		return domain.Step{}, false
	}
	step, err := f.engine.runtime.CurrentStep(f.state)
	return step, err == nil
}

// Stage validates a typed candidate for the current step without committing it.
func (f *Flow) Stage(candidate domain.Answer) domain.ValidationResult {
	return f.StageInput(candidate)
}

// StageInput converts raw host input to an answer and stages it.
func (f *Flow) StageInput(raw any) domain.ValidationResult {
	next, res := f.engine.runtime.Stage(f.state, raw)
	f.state = next
	return res
}

// Toggle flips one option of the current multiple_choice step.
func (f *Flow) Toggle(optionID string) domain.ValidationResult {
	next, res := f.engine.runtime.Toggle(f.state, optionID)
	f.state = next
	return res
}

// Select stages a candidate; single_choice, mood_selection and yes_no steps
// then advance immediately.
func (f *Flow) Select(ctx context.Context, candidate any) domain.TransitionResult {
	next, res := f.engine.runtime.Select(ctx, f.state, candidate)
	return f.apply(ctx, next, res)
}

// Next commits the staged (or previously committed) answer and advances.
// Reaching the end completes the flow and submits the answers to the sink.
func (f *Flow) Next(ctx context.Context) domain.TransitionResult {
	next, res := f.engine.runtime.Next(ctx, f.state)
	return f.apply(ctx, next, res)
}

// Previous moves back one effective step. From the first step it exits the flow.
func (f *Flow) Previous(ctx context.Context) domain.TransitionResult {
	next, res := f.engine.runtime.Previous(ctx, f.state)
	return f.apply(ctx, next, res)
}

// Skip commits the skipped sentinel on skippable steps and advances.
func (f *Flow) Skip(ctx context.Context) domain.TransitionResult {
	next, res := f.engine.runtime.Skip(ctx, f.state)
	return f.apply(ctx, next, res)
}

// Exit abandons the flow. Answers are discarded and nothing is submitted.
func (f *Flow) Exit(ctx context.Context) domain.TransitionResult {
	next, res := f.engine.runtime.Abandon(ctx, f.state)
	return f.apply(ctx, next, res)
}

// OnComplete sets the sink that receives the answers when the flow completes.
func (f *Flow) OnComplete(sink ports.AnswerSink) {
	f.sink = sink
}

// Submit retries handing the answers of a completed flow to the sink.
// It returns a *domain.SubmissionError when the sink fails again.
func (f *Flow) Submit(ctx context.Context) error {
	next, err := f.engine.runtime.Submit(ctx, f.state, f.sink)
	f.state = next
	if perr := f.persist(ctx); perr != nil {
		return errors.Join(err, perr)
	}
	return err
}

// Progress reports completion in [0,1]; it never decreases while moving forward.
func (f *Flow) Progress() float64 {
	return f.engine.runtime.Progress(f.state)
}

// Snapshot returns a copy of the committed answers.
func (f *Flow) Snapshot() domain.AnswerStore {
	return f.state.Answers.Clone()
}

// Notices returns the side-effect notices currently raised.
func (f *Flow) Notices() []domain.Notice {
	return append([]domain.Notice(nil), f.state.Notices...)
}

// State returns a deep copy of the live cursor.
func (f *Flow) State() *domain.FlowState {
	return f.state.Snapshot()
}

// Record returns the minimal persisted layout for host-side resume.
func (f *Flow) Record() domain.Record {
	return f.state.Record()
}

// View renders the current position for a host UI.
func (f *Flow) View(ctx context.Context) (*domain.View, error) {
	return f.engine.runtime.Render(ctx, f.state)
}

// IsTerminal reports whether the cursor is on a summary step or the flow has ended.
func (f *Flow) IsTerminal() bool {
	if !f.state.Active() {
		return true
	}
	step, ok := f.CurrentStep()
	return ok && step.Kind == domain.KindSummary
}

// apply stores the new state, submits on completion and persists.
func (f *Flow) apply(ctx context.Context, next *domain.FlowState, res domain.TransitionResult) domain.TransitionResult {
	f.state = next

	if res.Outcome == domain.OutcomeCompleted && f.sink != nil {
		submitted, err := f.engine.runtime.Submit(ctx, f.state, f.sink)
		f.state = submitted
		if err != nil {
			res.Err = err
		}
	}

	if err := f.persist(ctx); err != nil && res.Err == nil {
		res.Err = err
	}
	return res
}

// persist mirrors the state into the store. Finished flows are removed,
// except completed flows whose submission is still pending.
func (f *Flow) persist(ctx context.Context) error {
	store := f.engine.store
	if store == nil {
		return nil
	}

	switch f.state.Status {
	case domain.StatusSubmitted, domain.StatusAbandoned:
		if err := store.Delete(ctx, f.state.FlowID); err != nil {
			return fmt.Errorf("failed to delete flow %s: %w", f.state.FlowID, err)
		}
		return nil
	}

	if err := store.Save(ctx, f.state.FlowID, f.state); err != nil {
		f.engine.logger.Warn("failed to persist flow", "flow", f.state.FlowID, "err", err)
		return fmt.Errorf("failed to persist flow %s: %w", f.state.FlowID, err)
	}
	return nil
}

// Terminal is the To index reported by transitions that leave the flow.
const Terminal = runtime.Terminal
