package validator

import (
	"testing"

	"github.com/aretw0/stepwise/definitions"
	"github.com/aretw0/stepwise/pkg/definition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *definition.Definition {
	t.Helper()
	def, err := definition.Parse([]byte(src))
	require.NoError(t, err)
	return def
}

func TestValidateDefinition_BuiltIns(t *testing.T) {
	for _, name := range definitions.Names() {
		t.Run(name, func(t *testing.T) {
			def, err := definitions.Load(name)
			require.NoError(t, err)
			report := ValidateDefinition(def)
			assert.NoError(t, report.Err())
			assert.Empty(t, report.Warnings())
		})
	}
}

func TestValidateDefinition_References(t *testing.T) {
	def := parse(t, `
name: refs
steps:
  - id: early
    kind: yes_no
    prompt: Early?
    when: answers.late == "yes"
  - id: late
    kind: yes_no
    prompt: Late?
  - id: ghost
    kind: text_input
    prompt: Ghost?
    when: answers["missing"] != nil
  - id: fine
    kind: text_input
    prompt: Fine?
    when: answers.late == "no"
`)

	report := ValidateDefinition(def)
	errs := report.Errors()
	require.Len(t, errs, 2, report.Err())
	assert.Equal(t, "early", errs[0].StepID)
	assert.Contains(t, errs[0].Message, `"late"`)
	assert.Equal(t, "ghost", errs[1].StepID)
	assert.Contains(t, errs[1].Message, `unknown step "missing"`)

	warnings := report.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "early", warnings[0].StepID)
	assert.Contains(t, warnings[0].String(), "first step is conditional")
}

func TestValidateDefinition_CompileErrors(t *testing.T) {
	def := parse(t, `
name: broken
steps:
  - id: mood
    kind: mood_selection
    prompt: Mood?
  - id: mood
    kind: teleport
    prompt: Where?
`)

	report := ValidateDefinition(def)
	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "found")
	assert.GreaterOrEqual(t, len(report.Errors()), 1)
}

func TestValidateDefinition_Warnings(t *testing.T) {
	def := parse(t, `
name: warn
steps:
  - id: mood
    kind: mood_selection
    prompt: Mood?
    options:
      - {id: happy, label: Happy}
      - {id: sad, label: Sad}
  - id: activities
    kind: multiple_choice
    prompt: Doing?
    exclusive_option: nothing
    options:
      - {id: work, label: Work}
effects:
  low_mood:
    moods: [sad, gloomy]
`)

	report := ValidateDefinition(def)
	require.NoError(t, report.Err())
	warnings := report.Warnings()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0].Message, `exclusive option "nothing"`)
	assert.Contains(t, warnings[1].Message, `"gloomy"`)
}
