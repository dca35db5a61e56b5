package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/registry"
)

func moodStep() domain.Step {
	return domain.Step{
		ID:     "mood",
		Kind:   domain.KindMoodSelection,
		Prompt: "How are you feeling?",
		Options: []domain.Choice{
			{ID: "happy", Label: "Happy", Emoji: "😊"},
			{ID: "sad", Label: "Sad", Emoji: "😢"},
		},
	}
}

func TestRegistry_Lookup(t *testing.T) {
	reg, err := registry.New([]domain.Step{
		moodStep(),
		{ID: "notes", Kind: domain.KindTextInput, Prompt: "Anything else?", Optional: true},
	}, registry.WithName("checkin"))
	require.NoError(t, err)

	assert.Equal(t, "checkin", reg.Name())
	assert.Equal(t, 2, reg.Count())

	step, ok := reg.Step(1)
	require.True(t, ok)
	assert.Equal(t, "notes", step.ID)

	_, ok = reg.Step(2)
	assert.False(t, ok, "out of range must report no step")
	_, ok = reg.Step(-1)
	assert.False(t, ok)

	idx, ok := reg.IndexOf("mood")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestRegistry_StepsIsACopy(t *testing.T) {
	reg := registry.MustNew([]domain.Step{moodStep()})
	steps := reg.Steps()
	steps[0].ID = "changed"

	step, _ := reg.Step(0)
	assert.Equal(t, "mood", step.ID)
}

func TestRegistry_StepsDoNotShareNestedFields(t *testing.T) {
	input := moodStep()
	input.Metadata = map[string]string{"section": "start"}
	reg := registry.MustNew([]domain.Step{
		input,
		{ID: "sleep", Kind: domain.KindRatingScale, Scale: &domain.Scale{Min: 1, Max: 5, Step: 1}},
		{ID: "age", Kind: domain.KindNumberInput, Bounds: &domain.Bounds{Min: 0, Max: 120}},
	})

	// Mutating the descriptors passed to New leaves the catalogue alone.
	input.Options[0].Label = "Changed"
	input.Metadata["section"] = "changed"

	steps := reg.Steps()
	steps[0].Options[1].Label = "Changed"
	steps[0].Metadata["section"] = "changed"
	steps[1].Scale.Max = 99
	steps[2].Bounds.Max = 1

	single, _ := reg.Step(0)
	single.Options[0].ID = "changed"

	mood, _ := reg.Step(0)
	assert.Equal(t, "happy", mood.Options[0].ID)
	assert.Equal(t, "Happy", mood.Options[0].Label)
	assert.Equal(t, "Sad", mood.Options[1].Label)
	assert.Equal(t, "start", mood.Metadata["section"])

	sleep, _ := reg.Step(1)
	assert.Equal(t, 5, sleep.Scale.Max)
	age, _ := reg.Step(2)
	assert.Equal(t, 120.0, age.Bounds.Max)
}

func TestRegistry_Defaults(t *testing.T) {
	reg := registry.MustNew([]domain.Step{
		{ID: "meds", Kind: domain.KindYesNo, Prompt: "Taking medication?"},
		{ID: "sleep", Kind: domain.KindRatingScale, Prompt: "Sleep quality", Scale: &domain.Scale{Min: 1, Max: 5}},
	})

	yesNo, _ := reg.Step(0)
	assert.True(t, yesNo.HasOption("yes"))
	assert.True(t, yesNo.HasOption("no"))

	rating, _ := reg.Step(1)
	assert.Equal(t, 1, rating.Scale.Step)
}

func TestRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		steps []domain.Step
		want  string
	}{
		{"missing id", []domain.Step{{Kind: domain.KindTextInput}}, "id is required"},
		{"unknown kind", []domain.Step{{ID: "x", Kind: "slider"}}, "unknown kind"},
		{"choice without options", []domain.Step{{ID: "x", Kind: domain.KindSingleChoice}}, "requires options"},
		{"duplicate ids", []domain.Step{moodStep(), moodStep()}, "duplicate id"},
		{"duplicate options", []domain.Step{{ID: "x", Kind: domain.KindSingleChoice, Options: []domain.Choice{{ID: "a"}, {ID: "a"}}}}, "duplicate option"},
		{"scale missing", []domain.Step{{ID: "x", Kind: domain.KindRatingScale}}, "requires a scale"},
		{"scale inverted", []domain.Step{{ID: "x", Kind: domain.KindRatingScale, Scale: &domain.Scale{Min: 5, Max: 1, Step: 1}}}, "must be below"},
		{"scale granularity", []domain.Step{{ID: "x", Kind: domain.KindRatingScale, Scale: &domain.Scale{Min: 0, Max: 10, Step: 3}}}, "evenly divide"},
		{"bounds inverted", []domain.Step{{ID: "x", Kind: domain.KindNumberInput, Bounds: &domain.Bounds{Min: 10, Max: 1}}}, "exceeds max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.New(tt.steps)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
