package effects_test

import (
	"testing"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/effects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrisisDetector(t *testing.T) {
	d, err := effects.NewCrisisDetector(effects.CrisisConfig{})
	require.NoError(t, err)
	step := domain.Step{ID: "notes", Kind: domain.KindTextInput}

	tests := []struct {
		text  string
		match bool
	}{
		{"I want to hurt myself", true},
		{"I WANT TO HURT MYSELF", true},
		{"thinking about suicide lately", true},
		{"Some days I feel like I want to die", true},
		{"I had a good day at work", false},
		{"my friend hurt her knee", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.match, d.Matches(tt.text))
		})
	}

	t.Run("Raise Then Clear", func(t *testing.T) {
		notices := domain.ApplyEffects(nil, d.OnAnswerCommitted(step, domain.TextAnswer("I want to hurt myself"), nil))
		require.Len(t, notices, 1)
		assert.Equal(t, domain.NoticeCrisisResources, notices[0].Kind)
		assert.Equal(t, "notes", notices[0].StepID)
		assert.NotEmpty(t, notices[0].Resources)

		notices = domain.ApplyEffects(notices, d.OnAnswerCommitted(step, domain.TextAnswer("feeling better now"), nil))
		assert.Empty(t, notices)
	})

	t.Run("Skip Clears", func(t *testing.T) {
		notices := domain.ApplyEffects(nil, d.OnAnswerCommitted(step, domain.TextAnswer("I want to hurt myself"), nil))
		require.Len(t, notices, 1)

		notices = domain.ApplyEffects(notices, d.OnAnswerCommitted(step, domain.SkippedAnswer(), nil))
		assert.Empty(t, notices)
	})

	t.Run("Ignores Non Text Steps", func(t *testing.T) {
		rating := domain.Step{ID: "stress", Kind: domain.KindRatingScale}
		assert.Nil(t, d.OnAnswerCommitted(rating, domain.NumberAnswer(3), nil))
	})
}

func TestCrisisDetector_CustomPatterns(t *testing.T) {
	d, err := effects.NewCrisisDetector(effects.CrisisConfig{
		Patterns:  []string{"overdose", `\bgive up\b`},
		Message:   "Please reach out",
		Resources: []domain.Resource{{Name: "Hotline", Contact: "123"}},
	})
	require.NoError(t, err)

	assert.True(t, d.Matches("Thinking about an Overdose"))
	assert.False(t, d.Matches("I want to hurt myself"))

	effs := d.OnAnswerCommitted(domain.Step{ID: "t"}, domain.TextAnswer("I just want to give up"), nil)
	require.Len(t, effs, 1)
	assert.Equal(t, "Please reach out", effs[0].Notice.Message)
	assert.Equal(t, "Hotline", effs[0].Notice.Resources[0].Name)

	_, err = effects.NewCrisisDetector(effects.CrisisConfig{Patterns: []string{"("}})
	assert.Error(t, err)
}

func TestLowMoodSuggester(t *testing.T) {
	s := effects.NewLowMoodSuggester(effects.LowMoodConfig{})
	step := domain.Step{ID: "mood", Kind: domain.KindMoodSelection}

	notices := domain.ApplyEffects(nil, s.OnAnswerCommitted(step, domain.MoodAnswer(domain.Mood{ID: "sad"}), nil))
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeSupportResources, notices[0].Kind)

	notices = domain.ApplyEffects(notices, s.OnAnswerCommitted(step, domain.MoodAnswer(domain.Mood{ID: "Anxious"}), nil))
	assert.Len(t, notices, 1, "raising again replaces the notice")

	notices = domain.ApplyEffects(notices, s.OnAnswerCommitted(step, domain.MoodAnswer(domain.Mood{ID: "happy"}), nil))
	assert.Empty(t, notices)

	assert.Nil(t, s.OnAnswerCommitted(domain.Step{ID: "notes", Kind: domain.KindTextInput}, domain.TextAnswer("sad"), nil))
}

func TestLowMoodSuggester_CustomMoods(t *testing.T) {
	s := effects.NewLowMoodSuggester(effects.LowMoodConfig{Moods: []string{"exhausted"}})
	assert.True(t, s.IsLow("exhausted"))
	assert.False(t, s.IsLow("sad"))
}

func TestDefaults(t *testing.T) {
	assert.Len(t, effects.Defaults(), 2)
}
