package domain

import (
	"maps"
	"slices"
)

// Kind defines the answer shape and the default validation rule of a step.
type Kind string

const (
	KindSingleChoice   Kind = "single_choice"
	KindMultipleChoice Kind = "multiple_choice"
	KindNumberInput    Kind = "number_input"
	KindTextInput      Kind = "text_input"
	KindRatingScale    Kind = "rating_scale"
	KindMoodSelection  Kind = "mood_selection"
	KindYesNo          Kind = "yes_no"
	KindMediaCapture   Kind = "media_capture"
	KindSummary        Kind = "summary"
)

// Kinds lists every supported kind in declaration order.
var Kinds = []Kind{
	KindSingleChoice,
	KindMultipleChoice,
	KindNumberInput,
	KindTextInput,
	KindRatingScale,
	KindMoodSelection,
	KindYesNo,
	KindMediaCapture,
	KindSummary,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// AutoAdvance reports whether selecting an answer commits and advances immediately.
func (k Kind) AutoAdvance() bool {
	switch k {
	case KindSingleChoice, KindMoodSelection, KindYesNo:
		return true
	}
	return false
}

// ChoiceLike reports whether the kind is answered by picking declared options.
func (k Kind) ChoiceLike() bool {
	switch k {
	case KindSingleChoice, KindMultipleChoice, KindMoodSelection, KindYesNo:
		return true
	}
	return false
}

// DefaultExclusiveOption is the multiple-choice option that cannot be combined with others.
const DefaultExclusiveOption = "none"

// Choice is one selectable item of a choice-like step.
type Choice struct {
	ID    string `json:"id" yaml:"id" mapstructure:"id"`
	Label string `json:"label" yaml:"label" mapstructure:"label"`
	Icon  string `json:"icon,omitempty" yaml:"icon,omitempty" mapstructure:"icon"`
	Color string `json:"color,omitempty" yaml:"color,omitempty" mapstructure:"color"`
	Emoji string `json:"emoji,omitempty" yaml:"emoji,omitempty" mapstructure:"emoji"`
}

// Scale configures a rating_scale step.
type Scale struct {
	Min    int       `json:"min" yaml:"min" mapstructure:"min"`
	Max    int       `json:"max" yaml:"max" mapstructure:"max"`
	Step   int       `json:"step" yaml:"step" mapstructure:"step"`
	Labels [2]string `json:"labels" yaml:"labels" mapstructure:"labels"`
}

// Bounds is an optional inclusive numeric range for number_input steps.
type Bounds struct {
	Min float64 `json:"min" yaml:"min" mapstructure:"min"`
	Max float64 `json:"max" yaml:"max" mapstructure:"max"`
}

// Predicate decides whether a step belongs to the effective path.
// It must be a pure function of previously committed answers.
type Predicate func(answers AnswerStore) (bool, error)

// Validator overrides the per-kind validation of a step.
// It returns nil when the candidate may be committed.
type Validator func(step Step, candidate Answer) *ValidationError

// Step is the immutable descriptor of one unit of a flow.
type Step struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Prompt   string `json:"prompt"`
	Subtitle string `json:"subtitle,omitempty"`

	Options []Choice `json:"options,omitempty"`
	Scale   *Scale   `json:"scale,omitempty"`
	Bounds  *Bounds  `json:"bounds,omitempty"`

	// Optional allows text_input steps to be committed empty.
	Optional bool `json:"optional,omitempty"`

	// ExclusiveOption is cleared by (and clears) every other multiple_choice selection.
	// Empty means DefaultExclusiveOption.
	ExclusiveOption string `json:"exclusive_option,omitempty"`

	// RequiredMessage replaces the default message shown when nothing is staged.
	RequiredMessage string `json:"required_message,omitempty"`

	// When is the source expression of Include, kept for introspection.
	When string `json:"when,omitempty"`

	// Include is nil for steps that are always part of the flow.
	Include Predicate `json:"-"`

	// Validate, when set, replaces the per-kind default rule.
	Validate Validator `json:"-"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Clone returns a copy that shares no options, scale, bounds or metadata with s.
// Include and Validate are functions and are shared.
func (s Step) Clone() Step {
	out := s
	out.Options = slices.Clone(s.Options)
	if s.Scale != nil {
		scale := *s.Scale
		out.Scale = &scale
	}
	if s.Bounds != nil {
		bounds := *s.Bounds
		out.Bounds = &bounds
	}
	out.Metadata = maps.Clone(s.Metadata)
	return out
}

// Exclusive returns the effective exclusive option for multiple_choice steps.
func (s Step) Exclusive() string {
	if s.ExclusiveOption != "" {
		return s.ExclusiveOption
	}
	return DefaultExclusiveOption
}

// HasOption reports whether id is one of the declared options.
func (s Step) HasOption(id string) bool {
	_, ok := s.Option(id)
	return ok
}

// Option looks up a declared option by ID.
func (s Step) Option(id string) (Choice, bool) {
	for _, opt := range s.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Choice{}, false
}

// Conditional reports whether the step carries an inclusion predicate.
func (s Step) Conditional() bool {
	return s.Include != nil
}
