package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	flowID := "contract-test-flow-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewFlowState(flowID, 2)
		state.Position = 1
		state.Answers["mood"] = domain.MoodAnswer(domain.Mood{ID: "calm", Emoji: "😌", Label: "Calm"})
		state.Answers["intensity"] = domain.NumberAnswer(7)
		state.Answers["activities"] = domain.ChoicesAnswer("work", "exercise")
		staged := domain.TextAnswer("draft")
		state.Staged = &staged
		state.Notices = []domain.Notice{{Kind: domain.NoticeSupportResources, StepID: "mood", Message: "help"}}

		err := store.Save(ctx, flowID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, flowID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, flowID, loaded.FlowID)
		assert.Equal(t, 2, loaded.StepIndex)
		assert.Equal(t, 1, loaded.Position)
		assert.Equal(t, domain.StatusActive, loaded.Status)
		require.Len(t, loaded.Answers, 3)
		assert.True(t, state.Answers["mood"].Equal(loaded.Answers["mood"]))
		assert.True(t, state.Answers["intensity"].Equal(loaded.Answers["intensity"]))
		assert.True(t, state.Answers["activities"].Equal(loaded.Answers["activities"]))
		require.NotNil(t, loaded.Staged)
		assert.Equal(t, "draft", loaded.Staged.Text)
		assert.Len(t, loaded.Notices, 1)
	})

	t.Run("Saved State Is Isolated", func(t *testing.T) {
		state := domain.NewFlowState(flowID, 0)
		state.Answers["notes"] = domain.TextAnswer("before")
		require.NoError(t, store.Save(ctx, flowID, state))

		state.Answers["notes"] = domain.TextAnswer("after")

		loaded, err := store.Load(ctx, flowID)
		require.NoError(t, err)
		assert.Equal(t, "before", loaded.Answers["notes"].Text)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+flowID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, flowID, domain.NewFlowState(flowID, 0))
		require.NoError(t, err)

		err = store.Delete(ctx, flowID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, flowID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := flowID + "-1"
		id2 := flowID + "-2"
		_ = store.Save(ctx, id1, domain.NewFlowState(id1, 0))
		_ = store.Save(ctx, id2, domain.NewFlowState(id2, 0))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		flows, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, flows, id1)
		assert.Contains(t, flows, id2)
	})
}
