package cli

import (
	"context"
	"errors"
	"io"
	"os"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	Flow    string
	FlowID  string
	Fresh   bool
	JSON    bool
	Debug   bool
	Backend BackendOptions

	// In and Out default to os.Stdin and os.Stdout.
	In  io.Reader
	Out io.Writer
}

// Execute handles the 'run' command logic.
func Execute(ctx context.Context, opts RunOptions) error {
	if opts.Fresh && opts.FlowID == "" {
		return errors.New("--fresh requires --flow-id")
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Backend.Output == nil {
		opts.Backend.Output = opts.Out
	}
	return RunSession(ctx, opts)
}
