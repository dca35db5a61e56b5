package definition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/stepwise/pkg/definition"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/expression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
name: sample
steps:
  - id: 1
    kind: multiple_choice
    prompt: Conditions
    options:
      - {id: anxiety, label: Anxiety}
      - {id: none, label: None}
  - id: 2
    kind: text_input
    prompt: Medication
    when: '!("none" in (answers["1"] ?? []))'
  - id: 3
    kind: rating_scale
    prompt: Sleep
    scale: {min: 1, max: 5, labels: [Poor, Great]}
  - id: 4
    kind: number_input
    prompt: Hours
    bounds: {min: 0, max: 24}
    validator: whole_number
effects:
  crisis:
    patterns: [overdose]
  low_mood: {}
`

func TestParseAndCompile(t *testing.T) {
	def, err := definition.Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "sample", def.Name)
	require.Len(t, def.Steps, 4)
	assert.Equal(t, "1", def.Steps[0].ID, "integer ids become strings")

	compiled, err := def.Compile()
	require.NoError(t, err)
	assert.Equal(t, 4, compiled.Registry.Count())
	assert.Equal(t, "sample", compiled.Registry.Name())
	assert.Len(t, compiled.Observers, 2)

	medication, ok := compiled.Registry.Step(1)
	require.True(t, ok)
	require.NotNil(t, medication.Include)
	included, err := medication.Include(domain.AnswerStore{"1": domain.ChoicesAnswer("none")})
	require.NoError(t, err)
	assert.False(t, included)
	included, err = medication.Include(domain.AnswerStore{"1": domain.ChoicesAnswer("anxiety")})
	require.NoError(t, err)
	assert.True(t, included)

	sleep, _ := compiled.Registry.Step(2)
	assert.Equal(t, [2]string{"Poor", "Great"}, sleep.Scale.Labels)
	assert.Equal(t, 1, sleep.Scale.Step, "default granularity")

	hours, _ := compiled.Registry.Step(3)
	require.NotNil(t, hours.Validate)
	assert.NotNil(t, hours.Validate(hours, domain.NumberAnswer(7.5)))
	assert.Nil(t, hours.Validate(hours, domain.NumberAnswer(7)))
}

func TestCompile_CEL(t *testing.T) {
	def, err := definition.Parse([]byte(`
name: cel
expressions: cel
steps:
  - {id: mood, kind: mood_selection, options: [{id: sad}, {id: happy}]}
  - {id: support, kind: yes_no, when: 'has(answers.mood) && answers.mood == "sad"'}
`))
	require.NoError(t, err)

	compiled, err := def.Compile()
	require.NoError(t, err)
	support, _ := compiled.Registry.Step(1)
	ok, err := support.Include(domain.AnswerStore{"mood": domain.MoodAnswer(domain.Mood{ID: "sad"})})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompile_Errors(t *testing.T) {
	def, err := definition.Parse([]byte(`
name: broken
steps:
  - {id: a, kind: text_input, when: 'answers.x =='}
  - {id: b, kind: text_input, validator: does_not_exist}
  - {id: c, kind: warp_drive}
effects:
  crisis:
    patterns: ["("]
`))
	require.NoError(t, err)

	_, err = def.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `step "a"`)
	assert.Contains(t, err.Error(), "validator not found: does_not_exist")
	assert.Contains(t, err.Error(), "crisis pattern")

	_, err = definition.Parse([]byte("name: empty\nsteps: []\n"))
	assert.Error(t, err)

	_, err = definition.Parse([]byte("name: x\nstepz: []\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestCompile_UnknownKind(t *testing.T) {
	def, err := definition.Parse([]byte("name: x\nsteps:\n  - {id: c, kind: warp_drive}\n"))
	require.NoError(t, err)
	_, err = def.Compile()
	assert.ErrorContains(t, err, "unknown kind")
}

func TestCompile_Options(t *testing.T) {
	def, err := definition.Parse([]byte(`
name: custom
expressions: lua
steps:
  - {id: a, kind: text_input, validator: shout, when: 'true'}
`))
	require.NoError(t, err)

	_, err = def.Compile()
	assert.ErrorIs(t, err, expression.ErrUnknownEngine)

	validators := definition.NewValidatorRegistry()
	validators.Register("shout", func(step domain.Step, c domain.Answer) *domain.ValidationError {
		return nil
	})
	compiled, err := def.Compile(
		definition.WithValidators(validators),
		definition.WithExpressionEngine(expression.NewExprEngine()),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"shout"}, validators.Names())
	assert.Empty(t, compiled.Observers)
}

func TestLoadFileAndMarshal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	def, err := definition.LoadFile(path)
	require.NoError(t, err)

	out, err := def.Marshal()
	require.NoError(t, err)
	again, err := definition.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, def.Steps, again.Steps)

	_, err = definition.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultValidators(t *testing.T) {
	v := definition.DefaultValidators()
	assert.Equal(t, []string{"non_negative", "short_text", "whole_number"}, v.Names())

	short, err := v.Lookup("short_text")
	require.NoError(t, err)
	step := domain.Step{ID: "t", Kind: domain.KindTextInput}
	assert.NotNil(t, short(step, domain.TextAnswer("  ")))
	assert.Nil(t, short(step, domain.TextAnswer("fine")))

	nonNeg, _ := v.Lookup("non_negative")
	assert.NotNil(t, nonNeg(step, domain.NumberAnswer(-1)))
}
