package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOverlay(t *testing.T) {
	def, err := LoadDefinition("mood-checkin")
	require.NoError(t, err)
	engine, err := NewEngine(def, EngineOptions{})
	require.NoError(t, err)

	flow, err := engine.CreateFlow(context.Background(), "g1")
	require.NoError(t, err)
	require.NoError(t, flow.Select(context.Background(), "happy").Err)

	overlay := BuildOverlay(engine, flow.State())
	assert.Equal(t, []string{"mood"}, overlay.AnsweredSteps)
	assert.Equal(t, "intensity", overlay.CurrentStep)
	assert.Contains(t, overlay.EffectivePath, "mood")
	assert.Contains(t, overlay.EffectivePath, "intensity")
}
