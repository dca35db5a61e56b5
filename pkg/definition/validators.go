package definition

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/aretw0/stepwise/pkg/domain"
)

// ValidatorRegistry maps the names used in "validator:" fields to overrides.
type ValidatorRegistry struct {
	mu         sync.RWMutex
	validators map[string]domain.Validator
}

// NewValidatorRegistry creates an empty registry.
func NewValidatorRegistry() *ValidatorRegistry {
	return &ValidatorRegistry{
		validators: make(map[string]domain.Validator),
	}
}

// DefaultValidators returns a registry preloaded with the built-in validators:
//
//   - whole_number: a number without a fractional part, within bounds if declared.
//   - short_text: non-blank text of at most 280 characters.
//   - non_negative: a number greater than or equal to zero.
func DefaultValidators() *ValidatorRegistry {
	r := NewValidatorRegistry()
	r.Register("whole_number", wholeNumber)
	r.Register("short_text", shortText(280))
	r.Register("non_negative", nonNegative)
	return r
}

// Register adds a validator. An existing name is overwritten.
func (r *ValidatorRegistry) Register(name string, fn domain.Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[name] = fn
}

// Lookup returns the validator registered under name.
func (r *ValidatorRegistry) Lookup(name string) (domain.Validator, error) {
	r.mu.RLock()
	fn, ok := r.validators[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("validator not found: %s", name)
	}
	return fn, nil
}

// Names lists registered validators in sorted order.
func (r *ValidatorRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.validators))
	for name := range r.validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func wholeNumber(step domain.Step, c domain.Answer) *domain.ValidationError {
	v, ok := c.Float()
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.NewValidationError(step.ID, domain.ReasonNotANumber, "Enter a whole number to continue")
	}
	if v != math.Trunc(v) {
		return domain.NewValidationError(step.ID, domain.ReasonGranularity, "Enter a whole number without decimals")
	}
	if b := step.Bounds; b != nil && (v < b.Min || v > b.Max) {
		return domain.NewValidationError(step.ID, domain.ReasonOutOfRange,
			fmt.Sprintf("Answer must be between %g and %g", b.Min, b.Max))
	}
	return nil
}

func nonNegative(step domain.Step, c domain.Answer) *domain.ValidationError {
	v, ok := c.Float()
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.NewValidationError(step.ID, domain.ReasonNotANumber, "Enter a number to continue")
	}
	if v < 0 {
		return domain.NewValidationError(step.ID, domain.ReasonOutOfRange, "Answer can't be negative")
	}
	return nil
}

func shortText(limit int) domain.Validator {
	return func(step domain.Step, c domain.Answer) *domain.ValidationError {
		if c.Type != domain.AnswerText && !c.IsZero() {
			return domain.NewValidationError(step.ID, domain.ReasonWrongType, "Enter a text response to continue")
		}
		text := strings.TrimSpace(c.Text)
		if text == "" && !step.Optional {
			return domain.NewValidationError(step.ID, domain.ReasonRequired, "Enter a response to continue")
		}
		if utf8.RuneCountInString(text) > limit {
			return domain.NewValidationError(step.ID, domain.ReasonOutOfRange,
				fmt.Sprintf("Keep your answer under %d characters", limit))
		}
		return nil
	}
}
