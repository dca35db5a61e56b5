package dsl

import (
	"github.com/aretw0/stepwise/pkg/definition"
	"github.com/aretw0/stepwise/pkg/domain"
)

// StepBuilder provides a fluent API for configuring a step.
type StepBuilder struct {
	spec definition.StepSpec
}

// Prompt sets the question shown to the person.
func (s *StepBuilder) Prompt(text string) *StepBuilder {
	s.spec.Prompt = text
	return s
}

// Subtitle sets the secondary text under the prompt.
func (s *StepBuilder) Subtitle(text string) *StepBuilder {
	s.spec.Subtitle = text
	return s
}

// Option appends a choice.
func (s *StepBuilder) Option(id, label string) *StepBuilder {
	s.spec.Options = append(s.spec.Options, domain.Choice{ID: id, Label: label})
	return s
}

// Mood appends a choice with an emoji, as mood_selection steps show them.
func (s *StepBuilder) Mood(id, label, emoji string) *StepBuilder {
	s.spec.Options = append(s.spec.Options, domain.Choice{ID: id, Label: label, Emoji: emoji})
	return s
}

// Exclusive sets the multiple_choice option that clears every other selection.
func (s *StepBuilder) Exclusive(optionID string) *StepBuilder {
	s.spec.ExclusiveOption = optionID
	return s
}

// Scale configures a rating_scale step.
func (s *StepBuilder) Scale(min, max, step int, low, high string) *StepBuilder {
	s.spec.Scale = &domain.Scale{Min: min, Max: max, Step: step, Labels: [2]string{low, high}}
	return s
}

// Bounds limits a number_input step to an inclusive range.
func (s *StepBuilder) Bounds(min, max float64) *StepBuilder {
	s.spec.Bounds = &domain.Bounds{Min: min, Max: max}
	return s
}

// Optional allows a text_input step to be committed empty.
func (s *StepBuilder) Optional() *StepBuilder {
	s.spec.Optional = true
	return s
}

// Required sets the message shown when nothing is staged.
func (s *StepBuilder) Required(message string) *StepBuilder {
	s.spec.RequiredMessage = message
	return s
}

// When makes the step conditional on earlier answers.
func (s *StepBuilder) When(expr string) *StepBuilder {
	s.spec.When = expr
	return s
}

// Validator replaces the kind's default rule with a named validator.
func (s *StepBuilder) Validator(name string) *StepBuilder {
	s.spec.Validator = name
	return s
}

// Meta attaches host metadata to the step.
func (s *StepBuilder) Meta(key, value string) *StepBuilder {
	if s.spec.Metadata == nil {
		s.spec.Metadata = make(map[string]string)
	}
	s.spec.Metadata[key] = value
	return s
}
