package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/presentation/tui"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/runner"
)

// RunSession runs one flow in the terminal (or over JSON lines) until it is
// submitted, abandoned or paused.
func RunSession(ctx context.Context, opts RunOptions) error {
	logger := NewLogger(opts.Debug)

	def, err := LoadDefinition(opts.Flow)
	if err != nil {
		return err
	}

	backend, err := OpenBackend(ctx, opts.Backend, def.Name)
	if err != nil {
		return err
	}
	defer backend.Close()

	engine, err := NewEngine(def, EngineOptions{Logger: logger, Debug: opts.Debug, Backend: backend})
	if err != nil {
		return err
	}

	interactive := !opts.JSON && isTerminal(opts.Out)
	if interactive {
		title := engine.Title
		if title == "" {
			title = engine.Name
		}
		tui.PrintBanner(opts.Out, title)
	}

	flow, resumed, err := openFlow(ctx, engine, backend, opts)
	if err != nil {
		return fmt.Errorf("failed to init flow: %w", err)
	}
	logFlowStatus(logger, opts, flow, resumed)

	// A completed flow only comes back from the store when its submission failed.
	if flow.State().Status == domain.StatusCompleted {
		if err := flow.Submit(ctx); err != nil {
			return fmt.Errorf("submission still failing: %w", err)
		}
		if !opts.JSON {
			printSystemMessage(opts.Out, "Pending answers submitted.")
		}
		return nil
	}

	var handler runner.IOHandler
	switch {
	case opts.JSON:
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	case interactive:
		handler = runner.NewTextHandler(opts.In, opts.Out, runner.WithTextHandlerRenderer(tui.NewRenderer()))
	default:
		handler = runner.NewTextHandler(opts.In, opts.Out)
	}

	r := runner.NewRunner(
		runner.WithLogger(logger),
		runner.WithInputHandler(handler),
		runner.WithInterrupts(true),
	)
	if err := r.Run(ctx, flow); err != nil {
		return err
	}

	if !opts.JSON && flow.State().Active() && opts.Backend.Store != StoreMemory {
		printSystemMessage(opts.Out, "Paused. Resume with --flow-id %s", flow.ID())
	}
	return nil
}

// openFlow resumes the flow with the requested ID or starts a new one.
func openFlow(ctx context.Context, engine *stepwise.Engine, backend *Backend, opts RunOptions) (*stepwise.Flow, bool, error) {
	if opts.FlowID == "" {
		flow, err := engine.CreateFlow(ctx, "")
		return flow, false, err
	}

	if opts.Fresh {
		if err := backend.Store.Delete(ctx, opts.FlowID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, false, err
		}
	}

	flow, err := engine.Resume(ctx, opts.FlowID)
	switch {
	case err == nil:
		return flow, true, nil
	case errors.Is(err, domain.ErrSessionNotFound):
		flow, err = engine.CreateFlow(ctx, opts.FlowID)
		return flow, false, err
	}
	return nil, false, err
}

func logFlowStatus(logger *slog.Logger, opts RunOptions, flow *stepwise.Flow, resumed bool) {
	step, _ := flow.CurrentStep()
	if resumed {
		logger.Info("Flow Resumed", "flow_id", flow.ID(), "step", step.ID)
		if !opts.JSON {
			printSystemMessage(opts.Out, "Resuming at '%s' step...", step.ID)
		}
		return
	}
	logger.Info("Flow Created", "flow_id", flow.ID())
	if !opts.JSON && opts.FlowID != "" {
		printSystemMessage(opts.Out, "Flow '%s' active.", flow.ID())
	}
}
