package runner

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (terminal) and JSON (structured) modes.
type IOHandler interface {
	// Output presents the current position of the flow.
	Output(ctx context.Context, view *domain.View) error

	// Input reads the next command from the user.
	// It returns io.EOF when the input source is exhausted.
	Input(ctx context.Context) (Command, error)

	// Feedback presents the outcome of the last command: a validation
	// message, a notice or a submission failure.
	Feedback(ctx context.Context, resp *Response) error
}

// ContentRenderer transforms Markdown prompts before they are printed.
// This allows TUI rendering (markdown to ANSI) without coupling the runner to it.
type ContentRenderer func(string) (string, error)
