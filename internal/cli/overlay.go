package cli

import (
	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/presentation/graph"
	"github.com/aretw0/stepwise/pkg/domain"
)

// BuildOverlay marks a stored flow's progress on the step graph.
// Answered steps are listed in definition order.
func BuildOverlay(engine *stepwise.Engine, state *domain.FlowState) *graph.GraphOverlay {
	steps := engine.Steps()
	overlay := &graph.GraphOverlay{
		EffectivePath: engine.EffectivePath(state.Answers),
	}
	for _, step := range steps {
		if _, ok := state.Answers[step.ID]; ok {
			overlay.AnsweredSteps = append(overlay.AnsweredSteps, step.ID)
		}
	}
	if state.Status == domain.StatusActive && state.StepIndex >= 0 && state.StepIndex < len(steps) {
		overlay.CurrentStep = steps[state.StepIndex].ID
	}
	return overlay
}
