package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

var _ ports.FlowEngine = (*Engine)(nil)

// Stage validates a candidate for the current step and holds it as the staged answer.
// The Answer Store is never touched; staging the same candidate twice yields the same result.
// Invalid candidates are staged too, so a following Next reports the same error.
func (e *Engine) Stage(state *domain.FlowState, candidate any) (*domain.FlowState, domain.ValidationResult) {
	step, err := e.CurrentStep(state)
	if err != nil || !state.Active() {
		return state, domain.ValidationResult{StepID: step.ID, Valid: false, Error: inactiveError(step, state)}
	}

	answer, verr := Coerce(step, candidate)
	if verr != nil {
		return state, domain.ValidationResult{StepID: step.ID, Error: verr}
	}

	next := cloneState(state)
	if answer.IsZero() {
		next.Staged = nil
	} else {
		staged := answer.Clone()
		next.Staged = &staged
	}

	verr = CanAdvance(step, answer)
	return next, domain.ValidationResult{StepID: step.ID, Valid: verr == nil, Error: verr}
}

// Toggle flips one option of the multiple_choice selection staged for the current step.
// The selection starts from the staged candidate, else from the committed answer.
func (e *Engine) Toggle(state *domain.FlowState, optionID string) (*domain.FlowState, domain.ValidationResult) {
	step, err := e.CurrentStep(state)
	if err != nil || !state.Active() {
		return state, domain.ValidationResult{StepID: step.ID, Error: inactiveError(step, state)}
	}

	var current []string
	if cand := e.candidate(state, step); cand.Type == domain.AnswerChoices {
		current = cand.Choices
	}

	selection, verr := ToggleChoice(step, current, optionID)
	if verr != nil {
		return state, domain.ValidationResult{StepID: step.ID, Error: verr}
	}

	next := cloneState(state)
	staged := domain.ChoicesAnswer(selection...)
	next.Staged = &staged

	verr = CanAdvance(step, staged)
	return next, domain.ValidationResult{StepID: step.ID, Valid: verr == nil, Error: verr}
}

// Select stages a candidate and, for auto-advance kinds, commits and moves on
// immediately. Other kinds stay with OutcomeStaged until an explicit Next.
func (e *Engine) Select(ctx context.Context, state *domain.FlowState, candidate any) (*domain.FlowState, domain.TransitionResult) {
	next, res := e.Stage(state, candidate)
	if !res.Valid {
		return next, e.rejected(state, res.Error, nil)
	}

	step, _ := e.CurrentStep(next)
	if !step.Kind.AutoAdvance() {
		return next, domain.TransitionResult{
			Outcome:   domain.OutcomeStaged,
			From:      state.StepIndex,
			To:        state.StepIndex,
			Direction: state.Direction,
		}
	}
	return e.Next(ctx, next)
}

// Next commits the candidate for the current step and moves to the next effective step.
// The candidate is the staged answer, else the answer committed on an earlier visit.
func (e *Engine) Next(ctx context.Context, state *domain.FlowState) (*domain.FlowState, domain.TransitionResult) {
	if err := checkActive(state); err != nil {
		return state, e.rejected(state, nil, err)
	}
	step, err := e.CurrentStep(state)
	if err != nil {
		return state, e.rejected(state, nil, err)
	}
	logger := e.logger.With("flow", state.FlowID, "step", step.ID)

	if step.Kind == domain.KindSummary {
		next := cloneState(state)
		next.Staged = nil
		e.emitStepLeave(ctx, next, step)
		return e.complete(ctx, next, state.StepIndex)
	}

	candidate := e.candidate(state, step)
	if verr := CanAdvance(step, candidate); verr != nil {
		logger.Debug("answer rejected", "reason", verr.Reason)
		e.emitReject(ctx, state, step, candidate, verr)
		return state, e.rejected(state, verr, nil)
	}

	next := cloneState(state)
	next.Answers[step.ID] = candidate.Clone()
	next.Staged = nil
	logger.Debug("answer committed", "type", candidate.Type)
	e.emitCommit(ctx, next, step, candidate)

	// Observers see the committed store before the next step is resolved.
	e.runObservers(ctx, next, step, candidate)

	e.emitStepLeave(ctx, next, step)

	to := e.resolver.NextEffectiveIndex(state.StepIndex, domain.Forward, next.Answers)
	if to == Terminal {
		return e.complete(ctx, next, state.StepIndex)
	}

	next.StepIndex = to
	next.Direction = domain.Forward
	next.Position = e.resolver.PositionOf(to, next.Answers)
	next.ProgressMark = max(next.ProgressMark, e.rawProgress(next))

	target, _ := e.registry.Step(to)
	e.emitStepEnter(ctx, next, target)

	return next, domain.TransitionResult{
		Outcome:   domain.OutcomeAdvanced,
		From:      state.StepIndex,
		To:        to,
		Direction: domain.Forward,
	}
}

// Previous moves to the previous effective step without validation or commit.
// The staged candidate of the current step is dropped. From the first
// effective step the flow is abandoned and the host should leave the wizard.
func (e *Engine) Previous(ctx context.Context, state *domain.FlowState) (*domain.FlowState, domain.TransitionResult) {
	if err := checkActive(state); err != nil {
		return state, e.rejected(state, nil, err)
	}
	step, err := e.CurrentStep(state)
	if err != nil {
		return state, e.rejected(state, nil, err)
	}

	if e.resolver.PositionOf(state.StepIndex, state.Answers) == 0 {
		e.emitStepLeave(ctx, state, step)
		return e.Abandon(ctx, state)
	}

	to := e.resolver.NextEffectiveIndex(state.StepIndex, domain.Backward, state.Answers)

	next := cloneState(state)
	next.Staged = nil
	next.StepIndex = to
	next.Direction = domain.Backward
	next.Position = e.resolver.PositionOf(to, next.Answers)
	next.ProgressMark = e.rawProgress(next)

	e.emitStepLeave(ctx, state, step)
	target, _ := e.registry.Step(to)
	e.emitStepEnter(ctx, next, target)

	return next, domain.TransitionResult{
		Outcome:   domain.OutcomeRetreated,
		From:      state.StepIndex,
		To:        to,
		Direction: domain.Backward,
	}
}

// Skip commits the skipped sentinel and advances.
// Only media_capture and optional steps can be skipped.
func (e *Engine) Skip(ctx context.Context, state *domain.FlowState) (*domain.FlowState, domain.TransitionResult) {
	if err := checkActive(state); err != nil {
		return state, e.rejected(state, nil, err)
	}
	step, err := e.CurrentStep(state)
	if err != nil {
		return state, e.rejected(state, nil, err)
	}
	if step.Kind != domain.KindMediaCapture && !step.Optional {
		verr := domain.NewValidationError(step.ID, domain.ReasonNotSkippable, "This step can't be skipped")
		return state, e.rejected(state, verr, nil)
	}

	next := cloneState(state)
	skipped := domain.SkippedAnswer()
	next.Staged = &skipped
	return e.Next(ctx, next)
}

// Abandon exits the flow. The Answer Store is discarded and nothing is submitted.
func (e *Engine) Abandon(ctx context.Context, state *domain.FlowState) (*domain.FlowState, domain.TransitionResult) {
	switch state.Status {
	case domain.StatusAbandoned:
		return state, domain.TransitionResult{Outcome: domain.OutcomeExited, From: state.StepIndex, To: Terminal}
	case domain.StatusCompleted, domain.StatusSubmitted:
		return state, e.rejected(state, nil, domain.ErrFlowCompleted)
	}

	next := cloneState(state)
	next.Status = domain.StatusAbandoned
	next.Answers = make(domain.AnswerStore)
	next.Staged = nil
	next.Notices = nil
	next.Direction = domain.Backward

	e.logger.Debug("flow abandoned", "flow", state.FlowID, "step_index", state.StepIndex)
	return next, domain.TransitionResult{
		Outcome:   domain.OutcomeExited,
		From:      state.StepIndex,
		To:        Terminal,
		Direction: domain.Backward,
	}
}

// Submit hands the answers of a completed flow to the sink.
// On success the answers are cleared and the flow is marked submitted. On
// failure the answers are kept, the flow stays completed and a
// *domain.SubmissionError is returned so the host can retry.
func (e *Engine) Submit(ctx context.Context, state *domain.FlowState, sink ports.AnswerSink) (*domain.FlowState, error) {
	switch state.Status {
	case domain.StatusSubmitted:
		return state, nil
	case domain.StatusActive:
		return state, domain.ErrFlowNotCompleted
	case domain.StatusAbandoned:
		return state, domain.ErrFlowAbandoned
	}

	next := cloneState(state)
	next.SubmitAttempts++
	attempt := next.SubmitAttempts
	answers := state.Answers.Clone()

	var err error
	if sink == nil {
		err = fmt.Errorf("no answer sink configured")
	} else {
		err = submitSafely(ctx, sink, state.FlowID, answers)
	}

	if err != nil {
		next.LastSubmitError = err.Error()
		e.logger.Warn("submission failed", "flow", state.FlowID, "attempt", attempt, "err", err)
		e.emitSubmit(ctx, next, len(answers), attempt, err)
		return next, &domain.SubmissionError{FlowID: state.FlowID, Attempt: attempt, Cause: err}
	}

	next.Status = domain.StatusSubmitted
	next.Answers = make(domain.AnswerStore)
	next.Staged = nil
	next.LastSubmitError = ""

	e.logger.Info("flow submitted", "flow", state.FlowID, "attempt", attempt, "answers", len(answers))
	e.emitSubmit(ctx, next, len(answers), attempt, nil)
	return next, nil
}

func submitSafely(ctx context.Context, sink ports.AnswerSink, flowID string, answers domain.AnswerStore) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("answer sink panicked: %v", r)
		}
	}()
	return sink.Submit(ctx, flowID, answers)
}

func (e *Engine) complete(ctx context.Context, next *domain.FlowState, from int) (*domain.FlowState, domain.TransitionResult) {
	at := e.now().UTC()
	next.Status = domain.StatusCompleted
	next.CompletedAt = &at
	next.Direction = domain.Forward
	next.ProgressMark = 1

	e.logger.Info("flow completed", "flow", next.FlowID, "answers", len(next.Answers))
	e.emitComplete(ctx, next)

	return next, domain.TransitionResult{
		Outcome:   domain.OutcomeCompleted,
		From:      from,
		To:        Terminal,
		Direction: domain.Forward,
	}
}

// candidate returns the staged answer, else the committed one, else the zero Answer.
func (e *Engine) candidate(state *domain.FlowState, step domain.Step) domain.Answer {
	if state.Staged != nil {
		return state.Staged.Clone()
	}
	if committed, ok := state.Answers.Get(step.ID); ok {
		return committed.Clone()
	}
	return domain.Answer{}
}

func (e *Engine) rejected(state *domain.FlowState, verr *domain.ValidationError, err error) domain.TransitionResult {
	return domain.TransitionResult{
		Outcome:   domain.OutcomeRejected,
		From:      state.StepIndex,
		To:        state.StepIndex,
		Direction: state.Direction,
		Error:     verr,
		Err:       err,
	}
}

func inactiveError(step domain.Step, state *domain.FlowState) *domain.ValidationError {
	msg := "This check-in has already finished"
	if state.Status == domain.StatusAbandoned {
		msg = "This check-in was closed; start a new one to continue"
	}
	if state.Active() {
		msg = "This step is no longer available"
	}
	return domain.NewValidationError(step.ID, domain.ReasonFlowClosed, msg)
}
