package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
)

// CanAdvance decides whether a candidate answer may be committed for a step.
// It returns nil when forward navigation is permitted.
// A step-level Validate override replaces the per-kind rule, but an optional
// step always accepts the skipped sentinel.
func CanAdvance(step domain.Step, candidate domain.Answer) *domain.ValidationError {
	if step.Optional && candidate.IsSentinel(domain.SentinelSkipped) {
		return nil
	}
	if step.Validate != nil {
		verr := step.Validate(step, candidate)
		if verr != nil && verr.StepID == "" {
			verr.StepID = step.ID
		}
		return verr
	}
	return defaultRule(step, candidate)
}

func defaultRule(step domain.Step, c domain.Answer) *domain.ValidationError {
	if step.Kind == domain.KindSummary {
		return nil
	}
	if step.Optional && c.IsSentinel(domain.SentinelSkipped) {
		return nil
	}
	if c.IsZero() {
		if step.Kind == domain.KindTextInput && step.Optional {
			return nil
		}
		return required(step)
	}

	switch step.Kind {
	case domain.KindSingleChoice, domain.KindYesNo:
		if c.Type != domain.AnswerChoice {
			return wrongType(step)
		}
		return checkOption(step, c.Choice)

	case domain.KindMoodSelection:
		switch c.Type {
		case domain.AnswerMood:
			if c.Mood == nil || c.Mood.ID == "" {
				return required(step)
			}
			return checkOption(step, c.Mood.ID)
		case domain.AnswerChoice:
			return checkOption(step, c.Choice)
		}
		return wrongType(step)

	case domain.KindMultipleChoice:
		if c.Type != domain.AnswerChoices {
			return wrongType(step)
		}
		return checkChoices(step, c.Choices)

	case domain.KindNumberInput:
		v, ok := c.Float()
		if !ok {
			return notANumber(step)
		}
		return checkNumber(step, v)

	case domain.KindTextInput:
		if c.Type != domain.AnswerText {
			return wrongType(step)
		}
		if strings.TrimSpace(c.Text) == "" && !step.Optional {
			return required(step)
		}
		return nil

	case domain.KindRatingScale:
		v, ok := c.Float()
		if !ok {
			return notANumber(step)
		}
		return checkRating(step, v)

	case domain.KindMediaCapture:
		if c.IsSentinel(domain.SentinelCaptured) || c.IsSentinel(domain.SentinelSkipped) {
			return nil
		}
		return required(step)
	}

	return wrongType(step)
}

func checkOption(step domain.Step, id string) *domain.ValidationError {
	if id == "" {
		return required(step)
	}
	if !step.HasOption(id) {
		return domain.NewValidationError(step.ID, domain.ReasonUnknownOption,
			"Choose one of the listed options to continue")
	}
	return nil
}

func checkChoices(step domain.Step, ids []string) *domain.ValidationError {
	if len(ids) == 0 {
		return required(step)
	}
	exclusive := step.Exclusive()
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !step.HasOption(id) {
			return domain.NewValidationError(step.ID, domain.ReasonUnknownOption,
				"Choose only from the listed options")
		}
		seen[id] = true
	}
	if seen[exclusive] && len(seen) > 1 {
		label := exclusive
		if opt, ok := step.Option(exclusive); ok && opt.Label != "" {
			label = opt.Label
		}
		return domain.NewValidationError(step.ID, domain.ReasonExclusive,
			fmt.Sprintf("%q can't be combined with other options", label))
	}
	return nil
}

func checkNumber(step domain.Step, v float64) *domain.ValidationError {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notANumber(step)
	}
	if b := step.Bounds; b != nil && (v < b.Min || v > b.Max) {
		return domain.NewValidationError(step.ID, domain.ReasonOutOfRange,
			fmt.Sprintf("Answer must be between %s and %s", formatNumber(b.Min), formatNumber(b.Max)))
	}
	return nil
}

func checkRating(step domain.Step, v float64) *domain.ValidationError {
	sc := step.Scale
	if sc == nil {
		return checkNumber(step, v)
	}
	outOfRange := domain.NewValidationError(step.ID, domain.ReasonOutOfRange,
		fmt.Sprintf("Choose a rating between %d and %d", sc.Min, sc.Max))

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notANumber(step)
	}
	if v != math.Trunc(v) {
		return outOfRange
	}
	n := int(v)
	if n < sc.Min || n > sc.Max {
		return outOfRange
	}
	if sc.Step > 1 && (n-sc.Min)%sc.Step != 0 {
		return domain.NewValidationError(step.ID, domain.ReasonGranularity,
			fmt.Sprintf("Choose a rating in steps of %d starting at %d", sc.Step, sc.Min))
	}
	return nil
}

func required(step domain.Step) *domain.ValidationError {
	msg := step.RequiredMessage
	if msg == "" {
		msg = requiredMessages[step.Kind]
	}
	if msg == "" {
		msg = "Answer this step to continue"
	}
	return domain.NewValidationError(step.ID, domain.ReasonRequired, msg)
}

var requiredMessages = map[domain.Kind]string{
	domain.KindSingleChoice:   "Select an option to continue",
	domain.KindMultipleChoice: "Select at least one option to continue",
	domain.KindNumberInput:    "Enter a number to continue",
	domain.KindTextInput:      "Enter a response to continue",
	domain.KindRatingScale:    "Choose a rating to continue",
	domain.KindMoodSelection:  "Select a mood to continue",
	domain.KindYesNo:          "Answer yes or no to continue",
	domain.KindMediaCapture:   "Finish the recording or skip this step to continue",
}

func notANumber(step domain.Step) *domain.ValidationError {
	return domain.NewValidationError(step.ID, domain.ReasonNotANumber, "Enter a valid number to continue")
}

func wrongType(step domain.Step) *domain.ValidationError {
	return domain.NewValidationError(step.ID, domain.ReasonWrongType,
		fmt.Sprintf("This answer doesn't fit a %s step", strings.ReplaceAll(string(step.Kind), "_", " ")))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ToggleChoice flips one option in a multiple_choice selection.
// Selecting the exclusive option clears every other selection; selecting any
// other option clears the exclusive one. The result follows declaration order.
func ToggleChoice(step domain.Step, current []string, id string) ([]string, *domain.ValidationError) {
	if step.Kind != domain.KindMultipleChoice {
		return current, wrongType(step)
	}
	if !step.HasOption(id) {
		return current, domain.NewValidationError(step.ID, domain.ReasonUnknownOption,
			"Choose only from the listed options")
	}

	exclusive := step.Exclusive()
	selected := make(map[string]bool, len(current)+1)
	for _, c := range current {
		selected[c] = true
	}

	switch {
	case selected[id]:
		delete(selected, id)
	case id == exclusive:
		selected = map[string]bool{id: true}
	default:
		delete(selected, exclusive)
		selected[id] = true
	}

	out := make([]string, 0, len(selected))
	for _, opt := range step.Options {
		if selected[opt.ID] {
			out = append(out, opt.ID)
		}
	}
	return out, nil
}
