package runtime_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/stepwise/internal/runtime"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	steps := checkinSteps()
	mood, intensity, activities, notes := steps[0], steps[1], steps[2], steps[3]
	yesNo := domain.Step{ID: "therapy", Kind: domain.KindYesNo, Options: []domain.Choice{{ID: "yes"}, {ID: "no"}}}
	media := domain.Step{ID: "voice", Kind: domain.KindMediaCapture}

	tests := []struct {
		name string
		step domain.Step
		raw  any
		want domain.Answer
	}{
		{"Nil", notes, nil, domain.Answer{}},
		{"Answer Passthrough", notes, domain.TextAnswer("x"), domain.TextAnswer("x")},
		{"Mood ID Fills Presentation", mood, "calm", domain.MoodAnswer(domain.Mood{ID: "calm", Emoji: "😌", Label: "Calm"})},
		{"Mood Map", mood, map[string]any{"id": "sad", "label": "Down"}, domain.MoodAnswer(domain.Mood{ID: "sad", Emoji: "😢", Label: "Down"})},
		{"Mood Empty", mood, "  ", domain.Answer{}},
		{"Number String", intensity, " 7 ", domain.NumberAnswer(7)},
		{"Number Int", intensity, 3, domain.NumberAnswer(3)},
		{"Number JSON", intensity, json.Number("4.5"), domain.NumberAnswer(4.5)},
		{"Number Blank", intensity, "", domain.Answer{}},
		{"Choices Slice", activities, []any{"work", " social "}, domain.ChoicesAnswer("work", "social")},
		{"Choices CSV", activities, "work,exercise", domain.ChoicesAnswer("work", "exercise")},
		{"Text", notes, "hello", domain.TextAnswer("hello")},
		{"Yes Bool", yesNo, true, domain.ChoiceAnswer("yes")},
		{"Yes Short", yesNo, "Y", domain.ChoiceAnswer("yes")},
		{"No Word", yesNo, "false", domain.ChoiceAnswer("no")},
		{"Media Done", media, "done", domain.CapturedAnswer()},
		{"Media Skip", media, "skip", domain.SkippedAnswer()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, verr := runtime.Coerce(tt.step, tt.raw)
			require.Nil(t, verr)
			assert.True(t, tt.want.Equal(got), "want %+v, got %+v", tt.want, got)
		})
	}
}

func TestCoerce_Errors(t *testing.T) {
	steps := checkinSteps()

	_, verr := runtime.Coerce(steps[1], "seven")
	require.NotNil(t, verr)
	assert.Equal(t, domain.ReasonNotANumber, verr.Reason)

	_, verr = runtime.Coerce(steps[3], 42)
	require.NotNil(t, verr)
	assert.Equal(t, domain.ReasonWrongType, verr.Reason)

	_, verr = runtime.Coerce(steps[2], map[string]any{"work": true})
	require.NotNil(t, verr)
	assert.Equal(t, domain.ReasonWrongType, verr.Reason)
}
