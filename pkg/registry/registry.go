package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Registry is the ordered, immutable catalogue of steps of one flow.
// Registry order is the canonical step order.
type Registry struct {
	name  string
	steps []domain.Step
	index map[string]int
}

// Option configures a Registry.
type Option func(*Registry)

// WithName labels the registry (used as the flow name by hosts and loggers).
func WithName(name string) Option {
	return func(r *Registry) {
		r.name = name
	}
}

// New builds a registry after checking every step descriptor.
func New(steps []domain.Step, opts ...Option) (*Registry, error) {
	r := &Registry{
		steps: make([]domain.Step, 0, len(steps)),
		index: make(map[string]int, len(steps)),
	}
	for _, opt := range opts {
		opt(r)
	}

	var errs []error
	for i, step := range steps {
		step = normalize(step.Clone())
		if err := check(step); err != nil {
			errs = append(errs, fmt.Errorf("step %d (%q): %w", i, step.ID, err))
			continue
		}
		if prev, dup := r.index[step.ID]; dup {
			errs = append(errs, fmt.Errorf("step %d: duplicate id %q (first declared at %d)", i, step.ID, prev))
			continue
		}
		r.index[step.ID] = len(r.steps)
		r.steps = append(r.steps, step)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// MustNew is like New but panics on an invalid catalogue.
// Intended for registries declared in code.
func MustNew(steps []domain.Step, opts ...Option) *Registry {
	r, err := New(steps, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Name returns the registry label.
func (r *Registry) Name() string {
	return r.name
}

// Step returns the step at index, or false when the index is out of range.
func (r *Registry) Step(index int) (domain.Step, bool) {
	if index < 0 || index >= len(r.steps) {
		return domain.Step{}, false
	}
	return r.steps[index].Clone(), true
}

// Count returns the number of steps.
func (r *Registry) Count() int {
	return len(r.steps)
}

// IndexOf returns the registry index of a step ID.
func (r *Registry) IndexOf(id string) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Steps returns a deep copy of the catalogue.
func (r *Registry) Steps() []domain.Step {
	out := make([]domain.Step, len(r.steps))
	for i, step := range r.steps {
		out[i] = step.Clone()
	}
	return out
}

func normalize(step domain.Step) domain.Step {
	step.ID = strings.TrimSpace(step.ID)
	if step.Kind == domain.KindYesNo && len(step.Options) == 0 {
		step.Options = []domain.Choice{
			{ID: "yes", Label: "Yes"},
			{ID: "no", Label: "No"},
		}
	}
	if step.Kind == domain.KindRatingScale && step.Scale != nil && step.Scale.Step == 0 {
		scale := *step.Scale
		scale.Step = 1
		step.Scale = &scale
	}
	return step
}

func check(step domain.Step) error {
	if step.ID == "" {
		return errors.New("id is required")
	}
	if !step.Kind.Valid() {
		return fmt.Errorf("unknown kind %q", step.Kind)
	}

	if step.Kind.ChoiceLike() {
		if len(step.Options) == 0 {
			return fmt.Errorf("%s step requires options", step.Kind)
		}
		seen := make(map[string]bool, len(step.Options))
		for _, opt := range step.Options {
			if opt.ID == "" {
				return errors.New("option id is required")
			}
			if seen[opt.ID] {
				return fmt.Errorf("duplicate option %q", opt.ID)
			}
			seen[opt.ID] = true
		}
	}

	switch step.Kind {
	case domain.KindRatingScale:
		if step.Scale == nil {
			return errors.New("rating_scale step requires a scale")
		}
		if step.Scale.Min >= step.Scale.Max {
			return fmt.Errorf("scale min %d must be below max %d", step.Scale.Min, step.Scale.Max)
		}
		if step.Scale.Step <= 0 || (step.Scale.Max-step.Scale.Min)%step.Scale.Step != 0 {
			return fmt.Errorf("scale step %d must evenly divide [%d, %d]", step.Scale.Step, step.Scale.Min, step.Scale.Max)
		}
	case domain.KindNumberInput:
		if step.Bounds != nil && step.Bounds.Min > step.Bounds.Max {
			return fmt.Errorf("bounds min %v exceeds max %v", step.Bounds.Min, step.Bounds.Max)
		}
	}

	return nil
}
