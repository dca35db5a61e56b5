package definition

import (
	"errors"
	"fmt"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/effects"
	"github.com/aretw0/stepwise/pkg/expression"
	"github.com/aretw0/stepwise/pkg/registry"
)

// Compiled is a definition ready to run.
type Compiled struct {
	Name      string
	Title     string
	Registry  *registry.Registry
	Observers []domain.Observer
}

type compileConfig struct {
	validators *ValidatorRegistry
	engine     expression.Engine
}

// CompileOption configures Compile.
type CompileOption func(*compileConfig)

// WithValidators replaces the default validator table.
func WithValidators(v *ValidatorRegistry) CompileOption {
	return func(c *compileConfig) {
		c.validators = v
	}
}

// WithExpressionEngine overrides the engine selected by the definition.
func WithExpressionEngine(eng expression.Engine) CompileOption {
	return func(c *compileConfig) {
		c.engine = eng
	}
}

// Compile resolves when: clauses and validator names, builds the registry and
// instantiates the configured observers. All problems are reported together.
func (d *Definition) Compile(opts ...CompileOption) (*Compiled, error) {
	cfg := &compileConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.validators == nil {
		cfg.validators = DefaultValidators()
	}
	if cfg.engine == nil {
		eng, err := expression.ByName(d.Expressions)
		if err != nil {
			return nil, err
		}
		cfg.engine = eng
	}

	var errs []error
	steps := make([]domain.Step, 0, len(d.Steps))
	for _, spec := range d.Steps {
		step, err := spec.build(cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("step %q: %w", spec.ID, err))
			continue
		}
		steps = append(steps, step)
	}

	observers, err := d.Effects.observers()
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	reg, err := registry.New(steps, registry.WithName(d.Name))
	if err != nil {
		return nil, err
	}

	return &Compiled{
		Name:      d.Name,
		Title:     d.Title,
		Registry:  reg,
		Observers: observers,
	}, nil
}

func (s StepSpec) build(cfg *compileConfig) (domain.Step, error) {
	step := domain.Step{
		ID:              s.ID,
		Kind:            s.Kind,
		Prompt:          s.Prompt,
		Subtitle:        s.Subtitle,
		Options:         s.Options,
		Scale:           s.Scale,
		Bounds:          s.Bounds,
		Optional:        s.Optional,
		ExclusiveOption: s.ExclusiveOption,
		RequiredMessage: s.RequiredMessage,
		When:            s.When,
		Metadata:        s.Metadata,
	}

	if s.When != "" {
		pred, err := expression.Predicate(cfg.engine, s.When)
		if err != nil {
			return step, err
		}
		step.Include = pred
	}

	if s.Validator != "" {
		fn, err := cfg.validators.Lookup(s.Validator)
		if err != nil {
			return step, err
		}
		step.Validate = fn
	}
	return step, nil
}

func (e EffectsSpec) observers() ([]domain.Observer, error) {
	var out []domain.Observer
	if e.Crisis != nil {
		d, err := effects.NewCrisisDetector(*e.Crisis)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if e.LowMood != nil {
		out = append(out, effects.NewLowMoodSuggester(*e.LowMood))
	}
	return out, nil
}

// Spec converts a step back to its declarative form.
// Predicates and validators are not recoverable; When is kept as written.
func Spec(step domain.Step) StepSpec {
	return StepSpec{
		ID:              step.ID,
		Kind:            step.Kind,
		Prompt:          step.Prompt,
		Subtitle:        step.Subtitle,
		Options:         step.Options,
		Scale:           step.Scale,
		Bounds:          step.Bounds,
		Optional:        step.Optional,
		ExclusiveOption: step.ExclusiveOption,
		RequiredMessage: step.RequiredMessage,
		When:            step.When,
		Metadata:        step.Metadata,
	}
}
