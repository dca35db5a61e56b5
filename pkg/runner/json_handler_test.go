package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONHandler_Input(t *testing.T) {
	input := strings.Join([]string{
		`{"action":"toggle","value":"work"}`,
		`"calm"`,
		``,
		`plain words`,
		`{"action":"answer","value":["work","rest"]}`,
	}, "\n") + "\n"
	h := NewJSONHandler(strings.NewReader(input), io.Discard)

	want := []Command{
		{Action: ActionToggle, Value: "work"},
		{Action: ActionAnswer, Value: "calm"},
		{Action: ActionAnswer, Value: "plain words"},
		{Action: ActionAnswer, Value: []any{"work", "rest"}},
	}
	for _, w := range want {
		got, err := h.Input(context.Background())
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}

	_, err := h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestJSONHandler_Output(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewJSONHandler(strings.NewReader(""), out)

	require.NoError(t, h.Output(context.Background(), &domain.View{FlowID: "f1", Status: domain.StatusActive}))
	require.NoError(t, h.Feedback(context.Background(), &Response{
		View:  &domain.View{FlowID: "f1"},
		Error: "boom",
	}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var first, second Message
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "view", first.Type)
	assert.Equal(t, "f1", first.View.FlowID)
	assert.Equal(t, "result", second.Type)
	assert.Equal(t, "boom", second.Response.Error)
	assert.Nil(t, second.Response.View)
}

func TestJSONHandler_DrivesRunner(t *testing.T) {
	sink := memory.NewSink()
	flow := checkinFlow(t, stepwise.WithSink(sink))

	input := strings.Join([]string{
		`{"action":"select","value":{"id":"tired"}}`,
		`{"action":"answer","value":4}`,
		`{"action":"toggle","value":"rest"}`,
		`{"action":"next"}`,
		`{"action":"skip"}`,
	}, "\n") + "\n"
	out := &bytes.Buffer{}
	r := NewRunner(WithInputHandler(NewJSONHandler(strings.NewReader(input), out)))

	require.NoError(t, r.Run(context.Background(), flow))

	subs := sink.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, []string{"rest"}, subs[0].Answers["activities"].Choices)
	assert.True(t, subs[0].Answers["notes"].IsSentinel(domain.SentinelSkipped))
	assert.Contains(t, out.String(), `"status":"submitted"`)
}
