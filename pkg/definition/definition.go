// Package definition loads flow definitions from YAML and compiles them into
// a step registry plus the side-effect observers they configure.
//
// A definition carries everything that would otherwise be a literal in host
// code: numeric bounds, rating scales, crisis patterns and the low-mood set.
//
//	name: mood-checkin
//	expressions: expr
//	steps:
//	  - id: mood
//	    kind: mood_selection
//	    prompt: How are you feeling?
//	    required_message: Mood is required to continue
//	    options:
//	      - {id: happy, label: Happy, emoji: "😊"}
//	      - {id: sad, label: Sad, emoji: "😢"}
//	  - id: support
//	    kind: yes_no
//	    when: answers.mood == "sad"
//	effects:
//	  low_mood:
//	    moods: [sad]
package definition

import (
	"bytes"
	"fmt"
	"os"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/effects"
	"gopkg.in/yaml.v3"
)

// Definition is the declarative form of a flow.
type Definition struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title,omitempty"`
	Description string `yaml:"description,omitempty"`
	// Expressions selects the engine for when: clauses ("expr" or "cel").
	Expressions string      `yaml:"expressions,omitempty"`
	Steps       []StepSpec  `yaml:"steps"`
	Effects     EffectsSpec `yaml:"effects,omitempty"`
}

// StepSpec is the declarative form of a domain.Step.
type StepSpec struct {
	ID              string            `yaml:"id" mapstructure:"id"`
	Kind            domain.Kind       `yaml:"kind" mapstructure:"kind"`
	Prompt          string            `yaml:"prompt" mapstructure:"prompt"`
	Subtitle        string            `yaml:"subtitle,omitempty" mapstructure:"subtitle"`
	Options         []domain.Choice   `yaml:"options,omitempty" mapstructure:"options"`
	Scale           *domain.Scale     `yaml:"scale,omitempty" mapstructure:"scale"`
	Bounds          *domain.Bounds    `yaml:"bounds,omitempty" mapstructure:"bounds"`
	Optional        bool              `yaml:"optional,omitempty" mapstructure:"optional"`
	ExclusiveOption string            `yaml:"exclusive_option,omitempty" mapstructure:"exclusive_option"`
	RequiredMessage string            `yaml:"required_message,omitempty" mapstructure:"required_message"`
	When            string            `yaml:"when,omitempty" mapstructure:"when"`
	Validator       string            `yaml:"validator,omitempty" mapstructure:"validator"`
	Metadata        map[string]string `yaml:"metadata,omitempty" mapstructure:"metadata"`
}

// EffectsSpec enables the built-in observers. A nil section disables the observer.
type EffectsSpec struct {
	Crisis  *effects.CrisisConfig  `yaml:"crisis,omitempty"`
	LowMood *effects.LowMoodConfig `yaml:"low_mood,omitempty"`
}

// Parse decodes a YAML definition. Unknown fields are rejected.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse flow definition: %w", err)
	}
	if len(def.Steps) == 0 {
		return nil, fmt.Errorf("flow definition %q declares no steps", def.Name)
	}
	return &def, nil
}

// LoadFile reads and parses a YAML definition from disk.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow definition: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Marshal encodes the definition back to YAML.
func (d *Definition) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
