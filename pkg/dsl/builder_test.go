package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eveningFlow() *Builder {
	b := New("evening").Title("Evening check-in")

	b.Add("mood", domain.KindMoodSelection).
		Prompt("How was your day?").
		Mood("good", "Good", "🙂").
		Mood("rough", "Rough", "😣")

	b.Add("why", domain.KindTextInput).
		Prompt("What made it rough?").
		When(`answers.mood == "rough"`).
		Optional()

	b.Add("energy", domain.KindRatingScale).
		Prompt("Energy left?").
		Scale(1, 5, 1, "None", "Plenty")

	b.LowMood("rough")
	return b
}

func TestBuilder_Build(t *testing.T) {
	def, err := eveningFlow().Build()
	require.NoError(t, err)

	assert.Equal(t, "evening", def.Name)
	assert.Equal(t, "Evening check-in", def.Title)
	require.Len(t, def.Steps, 3)
	assert.Equal(t, "mood", def.Steps[0].ID)
	assert.Equal(t, "😣", def.Steps[0].Options[1].Emoji)
	assert.Equal(t, `answers.mood == "rough"`, def.Steps[1].When)
	assert.Equal(t, [2]string{"None", "Plenty"}, def.Steps[2].Scale.Labels)
	require.NotNil(t, def.Effects.LowMood)
}

func TestBuilder_AddReturnsExistingStep(t *testing.T) {
	b := New("repeat")
	b.Add("notes", domain.KindTextInput).Prompt("First")
	b.Add("notes", domain.KindTextInput).Meta("section", "end")

	def, err := b.Build()
	require.NoError(t, err)
	require.Len(t, def.Steps, 1)
	assert.Equal(t, "First", def.Steps[0].Prompt)
	assert.Equal(t, "end", def.Steps[0].Metadata["section"])
}

func TestBuilder_BuildRejectsInvalidFlow(t *testing.T) {
	b := New("broken")
	b.Add("where", domain.Kind("teleport")).Prompt("Where?")

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to build flow "broken"`)
}

func TestBuilder_RunsInEngine(t *testing.T) {
	def, err := eveningFlow().Build()
	require.NoError(t, err)

	eng, err := stepwise.Compile(def)
	require.NoError(t, err)

	ctx := context.Background()
	flow, err := eng.CreateFlow(ctx, "dsl")
	require.NoError(t, err)

	require.NoError(t, flow.Select(ctx, "good").Err)
	step, ok := flow.CurrentStep()
	require.True(t, ok)
	assert.Equal(t, "energy", step.ID, "why is skipped on a good day")
}
