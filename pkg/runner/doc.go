/*
Package runner drives flows for hosts that are not a UI toolkit: terminals,
pipes and request/response adapters.

# Key Components

  - Dispatch: applies a Command to a stateless FlowState through ports.FlowEngine
    and returns the resulting View. HTTP and MCP adapters use it.
  - Runner: an interactive loop over a stateful *stepwise.Flow.
  - IOHandler: decouples how commands are read and views are shown.
    TextHandler serves terminals, JSONHandler serves JSON-Lines pipes.
  - SanitizeInput: the size and control-character policy applied to every answer.

# Usage

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithInterrupts(true),
	)
	if err := r.Run(ctx, flow); err != nil {
		log.Fatal(err)
	}
*/
package runner
