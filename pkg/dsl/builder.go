package dsl

import (
	"fmt"

	"github.com/aretw0/stepwise/pkg/definition"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/effects"
)

// Builder manages the definition construction.
type Builder struct {
	def   definition.Definition
	steps []*StepBuilder
	index map[string]*StepBuilder
}

// New creates a new definition builder for the named flow.
func New(name string) *Builder {
	return &Builder{
		def:   definition.Definition{Name: name},
		index: make(map[string]*StepBuilder),
	}
}

// Title sets the flow title.
func (b *Builder) Title(title string) *Builder {
	b.def.Title = title
	return b
}

// Description sets the flow description.
func (b *Builder) Description(text string) *Builder {
	b.def.Description = text
	return b
}

// Expressions selects the engine for When clauses ("expr" or "cel").
func (b *Builder) Expressions(engine string) *Builder {
	b.def.Expressions = engine
	return b
}

// Crisis enables crisis detection. A nil cfg uses the defaults.
func (b *Builder) Crisis(cfg *effects.CrisisConfig) *Builder {
	if cfg == nil {
		cfg = &effects.CrisisConfig{}
	}
	b.def.Effects.Crisis = cfg
	return b
}

// LowMood enables low-mood suggestions for the given mood IDs.
func (b *Builder) LowMood(moods ...string) *Builder {
	b.def.Effects.LowMood = &effects.LowMoodConfig{Moods: moods}
	return b
}

// Add appends a step to the flow.
// If the step already exists, it returns the existing builder.
func (b *Builder) Add(id string, kind domain.Kind) *StepBuilder {
	if sb, ok := b.index[id]; ok {
		return sb
	}
	sb := &StepBuilder{spec: definition.StepSpec{ID: id, Kind: kind}}
	b.index[id] = sb
	b.steps = append(b.steps, sb)
	return sb
}

// Build assembles the definition and checks that it compiles.
func (b *Builder) Build(opts ...definition.CompileOption) (*definition.Definition, error) {
	def := b.def
	def.Steps = make([]definition.StepSpec, 0, len(b.steps))
	for _, sb := range b.steps {
		def.Steps = append(def.Steps, sb.spec)
	}

	if _, err := def.Compile(opts...); err != nil {
		return nil, fmt.Errorf("failed to build flow %q: %w", def.Name, err)
	}
	return &def, nil
}
