package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
)

// Runner drives a flow from a terminal or a pipe until it is submitted,
// abandoned or the input runs out.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdin/stdout.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Interrupts enables SIGINT/SIGTERM handling.
	Interrupts bool
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	return r
}

// Run executes the interaction loop.
// Running out of input or being interrupted pauses the flow and returns nil;
// with a state store configured the flow can be resumed later.
func (r *Runner) Run(ctx context.Context, flow *stepwise.Flow) error {
	if r.Interrupts {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}
	logger := r.Logger.With("flow", flow.ID())

	var last *Response
	for {
		view, err := flow.View(ctx)
		if err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		if err := r.Handler.Output(ctx, view); err != nil {
			return fmt.Errorf("output error: %w", err)
		}

		switch view.Status {
		case domain.StatusSubmitted, domain.StatusAbandoned:
			logger.Debug("flow finished", "status", view.Status)
			return nil
		case domain.StatusCompleted:
			// Nothing left to retry without a failed submission.
			if last == nil || last.Error == "" {
				return nil
			}
		}

		cmd, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				logger.Info("flow paused", "status", view.Status)
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		last = Apply(ctx, flow, cmd)
		if err := r.Handler.Feedback(ctx, last); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
}

// Apply runs a command against a stateful flow.
// Store and sink handling are those of the flow itself.
func Apply(ctx context.Context, flow *stepwise.Flow, cmd Command) *Response {
	resp := &Response{}
	value, err := SanitizeValue(cmd.Value)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	moved := func(res domain.TransitionResult) {
		resp.Transition = &res
		if res.Err != nil {
			resp.Error = res.Err.Error()
		}
	}

	switch cmd.Action {
	case ActionView:
	case ActionStage:
		res := flow.StageInput(value)
		resp.Validation = &res
	case ActionToggle:
		id, _ := value.(string)
		res := flow.Toggle(id)
		resp.Validation = &res
	case ActionSelect:
		moved(flow.Select(ctx, value))
	case ActionAnswer:
		res := flow.Select(ctx, value)
		if res.Outcome == domain.OutcomeStaged {
			res = flow.Next(ctx)
		}
		moved(res)
	case ActionNext:
		moved(flow.Next(ctx))
	case ActionPrevious:
		moved(flow.Previous(ctx))
	case ActionSkip:
		moved(flow.Skip(ctx))
	case ActionExit:
		moved(flow.Exit(ctx))
	case ActionSubmit:
		if err := flow.Submit(ctx); err != nil {
			resp.Error = err.Error()
		}
	default:
		resp.Error = fmt.Sprintf("%v %q", ErrUnknownAction, cmd.Action)
	}
	return resp
}
