package runner

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/definitions"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkinFlow(t *testing.T, opts ...stepwise.Option) *stepwise.Flow {
	t.Helper()
	def, err := definitions.Load("mood-checkin")
	require.NoError(t, err)
	eng, err := stepwise.Compile(def, opts...)
	require.NoError(t, err)
	flow, err := eng.CreateFlow(context.Background(), "")
	require.NoError(t, err)
	return flow
}

func runWithInput(t *testing.T, flow *stepwise.Flow, input string) string {
	t.Helper()
	out := &bytes.Buffer{}
	r := NewRunner(WithInputHandler(NewTextHandler(strings.NewReader(input), out)))

	done := make(chan error)
	go func() {
		done <- r.Run(t.Context(), flow)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner timed out")
	}
	return out.String()
}

func TestRunner_Run_CompletesAndSubmits(t *testing.T) {
	sink := memory.NewSink()
	flow := checkinFlow(t, stepwise.WithSink(sink))

	// calm, intensity 7, work + social, a note
	out := runWithInput(t, flow, "2\n7\n1,3\nslept well\n")

	subs := sink.Submissions()
	require.Len(t, subs, 1)
	answers := subs[0].Answers
	assert.Equal(t, "calm", answers["mood"].Mood.ID)
	n, _ := answers["intensity"].Float()
	assert.Equal(t, 7.0, n)
	assert.Equal(t, []string{"work", "social"}, answers["activities"].Choices)
	assert.Equal(t, "slept well", answers["notes"].Text)

	assert.Contains(t, out, "How are you feeling right now?")
	assert.Contains(t, out, "Thanks, your answers were saved.")
}

func TestRunner_Run_ValidationFeedback(t *testing.T) {
	flow := checkinFlow(t)

	out := runWithInput(t, flow, "\n2\n42\n")

	assert.Contains(t, out, "! Mood is required to continue")
	step, ok := flow.CurrentStep()
	require.True(t, ok)
	assert.Equal(t, "intensity", step.ID, "out-of-range intensity should keep the cursor")
}

func TestRunner_Run_BackAndExit(t *testing.T) {
	sink := memory.NewSink()
	flow := checkinFlow(t, stepwise.WithSink(sink))

	out := runWithInput(t, flow, "1\n"+CommandBack+"\n"+CommandBack+"\n")

	assert.Equal(t, domain.StatusAbandoned, flow.State().Status)
	assert.Empty(t, sink.Submissions())
	assert.Contains(t, out, "Nothing was saved.")
}

func TestRunner_Run_SubmitRetry(t *testing.T) {
	sink := memory.NewSink()
	sink.FailNext(assert.AnError)
	flow := checkinFlow(t, stepwise.WithSink(sink))

	out := runWithInput(t, flow, "happy\n3\nnone\n\n"+CommandSubmit+"\n")

	assert.Contains(t, out, CommandSubmit+" to retry")
	assert.Equal(t, 2, sink.Attempts())
	assert.Len(t, sink.Submissions(), 1)
	assert.Equal(t, domain.StatusSubmitted, flow.State().Status)
}

func TestRunner_Run_PausesOnEOF(t *testing.T) {
	flow := checkinFlow(t)

	runWithInput(t, flow, "anxious\n")

	assert.Equal(t, domain.StatusActive, flow.State().Status)
	assert.Equal(t, "anxious", flow.Snapshot()["mood"].Mood.ID)
	assert.NotEmpty(t, flow.Notices(), "low mood should raise a support notice")
}

func TestApply_UnknownAction(t *testing.T) {
	flow := checkinFlow(t)
	resp := Apply(context.Background(), flow, Command{Action: "dance"})
	assert.Contains(t, resp.Error, "unknown action")
}
