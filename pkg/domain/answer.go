package domain

import (
	"math"
	"slices"
)

// AnswerType tags the shape of an Answer.
type AnswerType string

const (
	AnswerChoice   AnswerType = "choice"
	AnswerChoices  AnswerType = "choices"
	AnswerNumber   AnswerType = "number"
	AnswerText     AnswerType = "text"
	AnswerMood     AnswerType = "mood"
	AnswerSentinel AnswerType = "sentinel"
)

// Sentinel stands in for normal data when a step has no conventional answer.
type Sentinel string

const (
	SentinelSkipped  Sentinel = "skipped"
	SentinelCaptured Sentinel = "analysis_completed"
)

// Mood is the structured answer of a mood_selection step.
type Mood struct {
	ID    string `json:"id" mapstructure:"id"`
	Emoji string `json:"emoji,omitempty" mapstructure:"emoji"`
	Label string `json:"label,omitempty" mapstructure:"label"`
}

// Answer is the value recorded for one step.
// Exactly one payload field is meaningful, selected by Type.
type Answer struct {
	Type     AnswerType `json:"type"`
	Choice   string     `json:"choice,omitempty"`
	Choices  []string   `json:"choices,omitempty"`
	Number   *float64   `json:"number,omitempty"`
	Text     string     `json:"text,omitempty"`
	Mood     *Mood      `json:"mood,omitempty"`
	Sentinel Sentinel   `json:"sentinel,omitempty"`
}

// ChoiceAnswer records a single selected option.
func ChoiceAnswer(id string) Answer {
	return Answer{Type: AnswerChoice, Choice: id}
}

// ChoicesAnswer records a set of selected options.
func ChoicesAnswer(ids ...string) Answer {
	return Answer{Type: AnswerChoices, Choices: slices.Clone(ids)}
}

// NumberAnswer records a numeric value.
func NumberAnswer(v float64) Answer {
	return Answer{Type: AnswerNumber, Number: &v}
}

// TextAnswer records free text.
func TextAnswer(s string) Answer {
	return Answer{Type: AnswerText, Text: s}
}

// MoodAnswer records a selected mood.
func MoodAnswer(m Mood) Answer {
	return Answer{Type: AnswerMood, Mood: &m}
}

// SkippedAnswer records an explicit skip.
func SkippedAnswer() Answer {
	return Answer{Type: AnswerSentinel, Sentinel: SentinelSkipped}
}

// CapturedAnswer records that a capture/analysis step finished.
func CapturedAnswer() Answer {
	return Answer{Type: AnswerSentinel, Sentinel: SentinelCaptured}
}

// IsZero reports whether the answer carries no value at all.
func (a Answer) IsZero() bool {
	return a.Type == ""
}

// IsSentinel reports whether the answer is the given sentinel.
func (a Answer) IsSentinel(s Sentinel) bool {
	return a.Type == AnswerSentinel && a.Sentinel == s
}

// Float returns the numeric payload.
func (a Answer) Float() (float64, bool) {
	if a.Type != AnswerNumber || a.Number == nil {
		return 0, false
	}
	return *a.Number, true
}

// Value returns the plain Go value used by expression predicates:
// string for choices, text, moods (the mood ID) and sentinels; a list of IDs
// for multi-selections; float64 for numbers.
func (a Answer) Value() any {
	switch a.Type {
	case AnswerChoice:
		return a.Choice
	case AnswerChoices:
		out := make([]any, len(a.Choices))
		for i, c := range a.Choices {
			out[i] = c
		}
		return out
	case AnswerNumber:
		if a.Number == nil {
			return nil
		}
		return *a.Number
	case AnswerText:
		return a.Text
	case AnswerMood:
		if a.Mood == nil {
			return nil
		}
		return a.Mood.ID
	case AnswerSentinel:
		return string(a.Sentinel)
	}
	return nil
}

// Equal compares two answers by value.
func (a Answer) Equal(b Answer) bool {
	if a.Type != b.Type || a.Choice != b.Choice || a.Text != b.Text || a.Sentinel != b.Sentinel {
		return false
	}
	if !slices.Equal(a.Choices, b.Choices) {
		return false
	}
	switch {
	case a.Number == nil && b.Number == nil:
	case a.Number == nil || b.Number == nil:
		return false
	case *a.Number != *b.Number && !(math.IsNaN(*a.Number) && math.IsNaN(*b.Number)):
		return false
	}
	switch {
	case a.Mood == nil && b.Mood == nil:
		return true
	case a.Mood == nil || b.Mood == nil:
		return false
	}
	return *a.Mood == *b.Mood
}

// Clone returns a deep copy of the answer.
func (a Answer) Clone() Answer {
	out := a
	if a.Choices != nil {
		out.Choices = slices.Clone(a.Choices)
	}
	if a.Number != nil {
		n := *a.Number
		out.Number = &n
	}
	if a.Mood != nil {
		m := *a.Mood
		out.Mood = &m
	}
	return out
}

// AnswerStore maps step IDs to committed answers.
// A key exists only once the step has been committed.
type AnswerStore map[string]Answer

// Get returns the committed answer for a step.
func (s AnswerStore) Get(stepID string) (Answer, bool) {
	a, ok := s[stepID]
	return a, ok
}

// Clone returns a deep copy safe to hand to hosts.
func (s AnswerStore) Clone() AnswerStore {
	out := make(AnswerStore, len(s))
	for k, v := range s {
		out[k] = v.Clone()
	}
	return out
}

// Values flattens the store into plain values keyed by step ID.
func (s AnswerStore) Values() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = v.Value()
	}
	return out
}
