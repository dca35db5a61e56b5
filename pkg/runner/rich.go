package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// Action names a host command on a flow.
type Action string

const (
	ActionView     Action = "view"
	ActionStage    Action = "stage"
	ActionToggle   Action = "toggle"
	ActionSelect   Action = "select"
	ActionAnswer   Action = "answer" // select, then continue when the step does not auto-advance
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionSkip     Action = "skip"
	ActionExit     Action = "exit"
	ActionSubmit   Action = "submit"
)

// Actions lists every command understood by Dispatch.
var Actions = []Action{
	ActionView, ActionStage, ActionToggle, ActionSelect, ActionAnswer,
	ActionNext, ActionPrevious, ActionSkip, ActionExit, ActionSubmit,
}

var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrInvalidCommand = errors.New("invalid command")
)

// Command is one host interaction with a flow.
type Command struct {
	Action Action `json:"action"`
	Value  any    `json:"value,omitempty"`
}

// Response combines the outcome of a command with the view of the resulting
// state, so rich clients (HTTP, MCP, JSON lines) always receive what to show next.
type Response struct {
	View       *domain.View             `json:"view"`
	Validation *domain.ValidationResult `json:"validation,omitempty"`
	Transition *domain.TransitionResult `json:"transition,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// Dispatch applies cmd to state through the stateless engine and renders the result.
// When the command completes the flow and sink is non-nil, the answers are
// submitted immediately.
//
// The returned error carries failures that are not validation errors, such as
// a closed flow or a failed submission. The next state and response are
// returned alongside it so the caller can persist and report them.
// Input that fails sanitization is rejected before the engine sees it.
func Dispatch(ctx context.Context, engine ports.FlowEngine, state *domain.FlowState, cmd Command, sink ports.AnswerSink) (*domain.FlowState, *Response, error) {
	value, err := SanitizeValue(cmd.Value)
	if err != nil {
		return state, nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	next := state
	resp := &Response{}
	var opErr error

	validated := func(s *domain.FlowState, res domain.ValidationResult) {
		next, resp.Validation = s, &res
	}
	moved := func(s *domain.FlowState, res domain.TransitionResult) {
		next, resp.Transition = s, &res
		opErr = res.Err
	}

	switch cmd.Action {
	case ActionView:
	case ActionStage:
		validated(engine.Stage(state, value))
	case ActionToggle:
		id, ok := value.(string)
		if !ok || id == "" {
			return state, nil, fmt.Errorf("%w: toggle requires an option id", ErrInvalidCommand)
		}
		validated(engine.Toggle(state, id))
	case ActionSelect:
		moved(engine.Select(ctx, state, value))
	case ActionAnswer:
		s, res := engine.Select(ctx, state, value)
		if res.Outcome == domain.OutcomeStaged {
			s, res = engine.Next(ctx, s)
		}
		moved(s, res)
	case ActionNext:
		moved(engine.Next(ctx, state))
	case ActionPrevious:
		moved(engine.Previous(ctx, state))
	case ActionSkip:
		moved(engine.Skip(ctx, state))
	case ActionExit:
		moved(engine.Abandon(ctx, state))
	case ActionSubmit:
		next, opErr = engine.Submit(ctx, state, sink)
	default:
		return state, nil, fmt.Errorf("%w %q", ErrUnknownAction, cmd.Action)
	}

	if resp.Transition != nil && resp.Transition.Outcome == domain.OutcomeCompleted && sink != nil {
		next, opErr = engine.Submit(ctx, next, sink)
	}

	view, err := engine.Render(ctx, next)
	if err != nil {
		return next, resp, errors.Join(opErr, err)
	}
	resp.View = view
	if opErr != nil {
		resp.Error = opErr.Error()
	}
	return next, resp, opErr
}
