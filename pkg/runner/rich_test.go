package runner

import (
	"context"
	"testing"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/definitions"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkinEngine(t *testing.T) *stepwise.Engine {
	t.Helper()
	def, err := definitions.Load("mood-checkin")
	require.NoError(t, err)
	eng, err := stepwise.Compile(def)
	require.NoError(t, err)
	return eng
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	eng := checkinEngine(t)
	sink := memory.NewSink()

	state, err := eng.Start(ctx, "flow-1")
	require.NoError(t, err)

	t.Run("View", func(t *testing.T) {
		next, resp, err := Dispatch(ctx, eng, state, Command{Action: ActionView}, sink)
		require.NoError(t, err)
		assert.Same(t, state, next)
		assert.Equal(t, "mood", resp.View.Step.ID)
		assert.True(t, resp.View.AutoAdvance)
	})

	t.Run("Rejected", func(t *testing.T) {
		next, resp, err := Dispatch(ctx, eng, state, Command{Action: ActionNext}, sink)
		require.NoError(t, err)
		assert.Equal(t, 0, next.StepIndex)
		require.NotNil(t, resp.Transition)
		assert.Equal(t, domain.OutcomeRejected, resp.Transition.Outcome)
		assert.Equal(t, domain.ReasonRequired, resp.Transition.Error.Reason)
	})

	t.Run("Flow", func(t *testing.T) {
		steps := []Command{
			{Action: ActionSelect, Value: "sad"},
			{Action: ActionStage, Value: "6"},
			{Action: ActionNext},
			{Action: ActionToggle, Value: "work"},
			{Action: ActionToggle, Value: "none"},
			{Action: ActionNext},
			{Action: ActionAnswer, Value: "long day"},
		}
		s := state
		var resp *Response
		for _, cmd := range steps {
			var err error
			s, resp, err = Dispatch(ctx, eng, s, cmd, sink)
			require.NoError(t, err, "action %s", cmd.Action)
		}

		assert.Equal(t, domain.StatusSubmitted, s.Status)
		assert.Equal(t, domain.OutcomeCompleted, resp.Transition.Outcome)
		assert.Nil(t, resp.View.Step)

		subs := sink.Submissions()
		require.Len(t, subs, 1)
		assert.Equal(t, []string{"none"}, subs[0].Answers["activities"].Choices, "none clears other selections")
		assert.Equal(t, "sad", subs[0].Answers["mood"].Mood.ID)
	})

	t.Run("Input Is Immutable", func(t *testing.T) {
		_, _, err := Dispatch(ctx, eng, state, Command{Action: ActionSelect, Value: "happy"}, nil)
		require.NoError(t, err)
		assert.Empty(t, state.Answers)
		assert.Equal(t, 0, state.StepIndex)
	})

	t.Run("Submit Failure", func(t *testing.T) {
		failing := memory.NewSink()
		failing.FailNext(assert.AnError)

		s := state
		for _, cmd := range []Command{
			{Action: ActionSelect, Value: "calm"},
			{Action: ActionAnswer, Value: 2},
			{Action: ActionAnswer, Value: []string{"rest"}},
		} {
			var err error
			s, _, err = Dispatch(ctx, eng, s, cmd, failing)
			require.NoError(t, err)
		}

		s, resp, err := Dispatch(ctx, eng, s, Command{Action: ActionSkip}, failing)
		var subErr *domain.SubmissionError
		require.ErrorAs(t, err, &subErr)
		assert.Equal(t, domain.StatusCompleted, s.Status)
		assert.NotEmpty(t, resp.Error)

		s, resp, err = Dispatch(ctx, eng, s, Command{Action: ActionSubmit}, failing)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSubmitted, s.Status)
		assert.Empty(t, resp.Error)
	})

	t.Run("Invalid Commands", func(t *testing.T) {
		_, _, err := Dispatch(ctx, eng, state, Command{Action: "jump"}, nil)
		assert.ErrorIs(t, err, ErrUnknownAction)

		_, _, err = Dispatch(ctx, eng, state, Command{Action: ActionToggle}, nil)
		assert.ErrorIs(t, err, ErrInvalidCommand)

		t.Setenv(EnvMaxInputSize, "4")
		_, _, err = Dispatch(ctx, eng, state, Command{Action: ActionStage, Value: "too long"}, nil)
		assert.ErrorIs(t, err, ErrInputTooLarge)
	})
}
