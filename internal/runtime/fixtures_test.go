package runtime_test

import (
	"slices"
	"testing"

	"github.com/aretw0/stepwise/internal/runtime"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/registry"
	"github.com/stretchr/testify/require"
)

// checkinSteps is the four-step mood check-in used across tests.
func checkinSteps() []domain.Step {
	return []domain.Step{
		{
			ID:     "mood",
			Kind:   domain.KindMoodSelection,
			Prompt: "How are you feeling?",
			Options: []domain.Choice{
				{ID: "happy", Label: "Happy", Emoji: "😊"},
				{ID: "calm", Label: "Calm", Emoji: "😌"},
				{ID: "sad", Label: "Sad", Emoji: "😢"},
				{ID: "anxious", Label: "Anxious", Emoji: "😰"},
			},
			RequiredMessage: "Mood is required to continue",
		},
		{
			ID:     "intensity",
			Kind:   domain.KindNumberInput,
			Prompt: "How intense is it?",
			Bounds: &domain.Bounds{Min: 1, Max: 10},
		},
		{
			ID:     "activities",
			Kind:   domain.KindMultipleChoice,
			Prompt: "What have you been doing?",
			Options: []domain.Choice{
				{ID: "work", Label: "Work"},
				{ID: "exercise", Label: "Exercise"},
				{ID: "social", Label: "Social"},
				{ID: "none", Label: "None of these"},
			},
		},
		{
			ID:     "notes",
			Kind:   domain.KindTextInput,
			Prompt: "Anything else?",
		},
	}
}

// branchingSteps has a medication step only included when a condition was picked.
func branchingSteps() []domain.Step {
	return []domain.Step{
		{
			ID:   "conditions",
			Kind: domain.KindMultipleChoice,
			Options: []domain.Choice{
				{ID: "anxiety", Label: "Anxiety"},
				{ID: "depression", Label: "Depression"},
				{ID: "none", Label: "None"},
			},
		},
		{
			ID:   "medication",
			Kind: domain.KindTextInput,
			Include: func(answers domain.AnswerStore) (bool, error) {
				a, ok := answers.Get("conditions")
				return !ok || !slices.Contains(a.Choices, "none"), nil
			},
		},
		{
			ID:    "sleep",
			Kind:  domain.KindRatingScale,
			Scale: &domain.Scale{Min: 1, Max: 5, Step: 1, Labels: [2]string{"Poor", "Great"}},
		},
	}
}

func newEngine(t *testing.T, steps []domain.Step, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	reg, err := registry.New(steps)
	require.NoError(t, err)
	return runtime.NewEngine(reg, opts...)
}
