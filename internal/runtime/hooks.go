package runtime

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
)

// runObservers feeds a committed answer to every observer and applies the
// resulting side effects to the state's notices. A panicking observer is
// logged and skipped; observers never influence the transition.
func (e *Engine) runObservers(ctx context.Context, state *domain.FlowState, step domain.Step, answer domain.Answer) {
	for _, obs := range e.observers {
		effects := e.observe(obs, state, step, answer)
		if len(effects) == 0 {
			continue
		}
		state.Notices = domain.ApplyEffects(state.Notices, effects)
		for _, eff := range effects {
			e.logger.Debug("side effect", "flow", state.FlowID, "step", step.ID, "op", eff.Op, "notice", eff.Notice.Kind)
			e.emitNotice(ctx, state, eff)
		}
	}
}

func (e *Engine) observe(obs domain.Observer, state *domain.FlowState, step domain.Step, answer domain.Answer) (effects []domain.SideEffect) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("observer panicked", "flow", state.FlowID, "step", step.ID, "panic", r)
			effects = nil
		}
	}()
	return obs.OnAnswerCommitted(step, answer.Clone(), state.Answers.Clone())
}

func (e *Engine) base(state *domain.FlowState, typ domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: typ, FlowID: state.FlowID}
}

func (e *Engine) emitStepEnter(ctx context.Context, state *domain.FlowState, step domain.Step) {
	if e.hooks.OnStepEnter == nil {
		return
	}
	e.hooks.OnStepEnter(ctx, &domain.StepEvent{
		EventBase: e.base(state, domain.EventStepEnter),
		StepID:    step.ID,
		Kind:      step.Kind,
		Index:     state.StepIndex,
		Direction: state.Direction,
	})
}

func (e *Engine) emitStepLeave(ctx context.Context, state *domain.FlowState, step domain.Step) {
	if e.hooks.OnStepLeave == nil {
		return
	}
	e.hooks.OnStepLeave(ctx, &domain.StepEvent{
		EventBase: e.base(state, domain.EventStepLeave),
		StepID:    step.ID,
		Kind:      step.Kind,
		Index:     state.StepIndex,
		Direction: state.Direction,
	})
}

func (e *Engine) emitCommit(ctx context.Context, state *domain.FlowState, step domain.Step, answer domain.Answer) {
	if e.hooks.OnCommit == nil {
		return
	}
	e.hooks.OnCommit(ctx, &domain.AnswerEvent{
		EventBase: e.base(state, domain.EventCommit),
		StepID:    step.ID,
		Kind:      step.Kind,
		Answer:    answer.Clone(),
	})
}

func (e *Engine) emitReject(ctx context.Context, state *domain.FlowState, step domain.Step, answer domain.Answer, verr *domain.ValidationError) {
	if e.hooks.OnReject == nil {
		return
	}
	e.hooks.OnReject(ctx, &domain.AnswerEvent{
		EventBase: e.base(state, domain.EventReject),
		StepID:    step.ID,
		Kind:      step.Kind,
		Answer:    answer.Clone(),
		Error:     verr,
	})
}

func (e *Engine) emitComplete(ctx context.Context, state *domain.FlowState) {
	if e.hooks.OnComplete == nil {
		return
	}
	e.hooks.OnComplete(ctx, &domain.FlowEvent{
		EventBase: e.base(state, domain.EventComplete),
		Answers:   len(state.Answers),
	})
}

func (e *Engine) emitSubmit(ctx context.Context, state *domain.FlowState, answers, attempt int, err error) {
	if e.hooks.OnSubmit == nil {
		return
	}
	evt := &domain.FlowEvent{
		EventBase: e.base(state, domain.EventSubmit),
		Answers:   answers,
		Attempt:   attempt,
	}
	if err != nil {
		evt.Error = err.Error()
	}
	e.hooks.OnSubmit(ctx, evt)
}

func (e *Engine) emitNotice(ctx context.Context, state *domain.FlowState, eff domain.SideEffect) {
	if e.hooks.OnNotice == nil {
		return
	}
	e.hooks.OnNotice(ctx, &domain.NoticeEvent{
		EventBase: e.base(state, domain.EventNotice),
		Effect:    eff,
	})
}
