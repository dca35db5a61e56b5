package stepwise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/internal/runtime"
	loamAdapter "github.com/aretw0/stepwise/pkg/adapters/loam"
	"github.com/aretw0/stepwise/pkg/definition"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/expression"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/registry"
	"github.com/google/uuid"
)

// Engine is the high-level entry point of the library.
// It wraps the stateless runtime and creates stateful Flow controllers.
type Engine struct {
	runtime     *runtime.Engine
	registry    *registry.Registry
	hooks       domain.LifecycleHooks
	observers   []domain.Observer
	store       ports.StateStore
	sink        ports.AnswerSink
	newID       func() string
	logger      *slog.Logger
	validators  *definition.ValidatorRegistry
	expressions expression.Engine
	Name        string
	Title       string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = domain.CombineHooks(e.hooks, hooks)
	}
}

// WithObservers registers side-effect observers (see package effects).
func WithObservers(observers ...domain.Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, observers...)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore persists every flow after each transition so it can be resumed.
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithSink sets the default answer sink for new flows.
func WithSink(sink ports.AnswerSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithIDGenerator overrides the flow ID generator (default: random UUIDs).
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// WithValidators sets the validator table used by Open.
func WithValidators(v *definition.ValidatorRegistry) Option {
	return func(e *Engine) {
		e.validators = v
	}
}

// WithExpressionEngine overrides the when: engine used by Open.
func WithExpressionEngine(eng expression.Engine) Option {
	return func(e *Engine) {
		e.expressions = eng
	}
}

// New initializes an Engine over an existing registry.
func New(reg *registry.Registry, opts ...Option) (*Engine, error) {
	if reg == nil {
		return nil, errors.New("registry is required")
	}
	if reg.Count() == 0 {
		return nil, fmt.Errorf("registry %q is empty: %w", reg.Name(), domain.ErrNoStep)
	}

	eng := &Engine{registry: reg, Name: reg.Name()}
	for _, opt := range opts {
		opt(eng)
	}
	eng.init()
	return eng, nil
}

// Open loads a flow from disk and initializes an Engine for it.
// A directory is read as a Loam catalogue of Markdown steps; a file is read
// as a YAML flow definition. Observers configured by the definition are added
// after those passed with WithObservers.
func Open(path string, opts ...Option) (*Engine, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open flow: %w", err)
	}

	var def *definition.Definition
	if info.IsDir() {
		def, err = loamAdapter.Load(context.Background(), absPath)
	} else {
		def, err = definition.LoadFile(absPath)
	}
	if err != nil {
		return nil, err
	}
	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	}

	return Compile(def, opts...)
}

// Compile initializes an Engine from a parsed definition.
func Compile(def *definition.Definition, opts ...Option) (*Engine, error) {
	cfg := &Engine{}
	for _, opt := range opts {
		opt(cfg)
	}

	var compileOpts []definition.CompileOption
	if cfg.validators != nil {
		compileOpts = append(compileOpts, definition.WithValidators(cfg.validators))
	}
	if cfg.expressions != nil {
		compileOpts = append(compileOpts, definition.WithExpressionEngine(cfg.expressions))
	}

	compiled, err := def.Compile(compileOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile flow %q: %w", def.Name, err)
	}

	opts = append(opts, WithObservers(compiled.Observers...))
	eng, err := New(compiled.Registry, opts...)
	if err != nil {
		return nil, err
	}
	eng.Title = compiled.Title
	return eng, nil
}

func (e *Engine) init() {
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.Name != "" {
		e.logger = e.logger.With("flow_name", e.Name)
	}
	if e.newID == nil {
		e.newID = func() string { return uuid.NewString() }
	}

	e.runtime = runtime.NewEngine(e.registry,
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithObservers(e.observers...),
	)
}

// Registry returns the step catalogue the engine runs.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Store returns the configured state store, or nil.
func (e *Engine) Store() ports.StateStore {
	return e.store
}

// Sink returns the default answer sink, or nil.
func (e *Engine) Sink() ports.AnswerSink {
	return e.sink
}

// EffectivePath lists the step IDs included under the given answers.
func (e *Engine) EffectivePath(answers domain.AnswerStore) []string {
	var ids []string
	for _, i := range e.runtime.Resolver().EffectivePath(answers) {
		step, _ := e.registry.Step(i)
		ids = append(ids, step.ID)
	}
	return ids
}

// CreateFlow starts a new flow instance. An empty flowID is generated.
func (e *Engine) CreateFlow(ctx context.Context, flowID string) (*Flow, error) {
	if flowID == "" {
		flowID = e.newID()
	}
	state, err := e.runtime.Start(ctx, flowID)
	if err != nil {
		return nil, err
	}
	f := e.attach(state)
	if err := f.persist(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// Resume loads a flow from the configured store.
func (e *Engine) Resume(ctx context.Context, flowID string) (*Flow, error) {
	if e.store == nil {
		return nil, errors.New("resume requires a state store (use WithStore)")
	}
	state, err := e.store.Load(ctx, flowID)
	if err != nil {
		return nil, err
	}
	return e.attach(state), nil
}

// Restore rebuilds a flow from the minimal persisted record.
// An index that no longer refers to an included step moves forward to the
// next effective one.
func (e *Engine) Restore(ctx context.Context, rec domain.Record) (*Flow, error) {
	if rec.FlowID == "" {
		return nil, errors.New("record has no flow id")
	}
	answers := rec.Answers.Clone()
	resolver := e.runtime.Resolver()

	index := rec.CurrentIndex
	step, ok := e.registry.Step(index)
	if !ok || !resolver.IsIncluded(step, answers) {
		index = resolver.NextEffectiveIndex(index, domain.Forward, answers)
		if !ok || index == runtime.Terminal {
			index = resolver.FirstEffectiveIndex(answers)
		}
	}
	if index == runtime.Terminal {
		return nil, fmt.Errorf("record %s: %w", rec.FlowID, domain.ErrNoStep)
	}

	state := domain.NewFlowState(rec.FlowID, index)
	state.Answers = answers
	state.Position = resolver.PositionOf(index, answers)
	state.ProgressMark = float64(state.Position+1) / float64(state.Position+1+resolver.Remaining(index, answers))

	f := e.attach(state)
	if err := f.persist(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

func (e *Engine) attach(state *domain.FlowState) *Flow {
	return &Flow{engine: e, state: state, sink: e.sink}
}

// The methods below expose the stateless core so that adapters keeping state
// externally (HTTP, MCP) can drive flows through ports.FlowEngine.

// Start creates a fresh state positioned at the first effective step.
func (e *Engine) Start(ctx context.Context, flowID string) (*domain.FlowState, error) {
	if flowID == "" {
		flowID = e.newID()
	}
	return e.runtime.Start(ctx, flowID)
}

// Render calculates the host-facing view of a state.
func (e *Engine) Render(ctx context.Context, state *domain.FlowState) (*domain.View, error) {
	return e.runtime.Render(ctx, state)
}

// Stage validates and holds a candidate answer.
func (e *Engine) Stage(state *domain.FlowState, candidate any) (*domain.FlowState, domain.ValidationResult) {
	return e.runtime.Stage(state, candidate)
}

// Toggle flips a multiple_choice option.
func (e *Engine) Toggle(state *domain.FlowState, optionID string) (*domain.FlowState, domain.ValidationResult) {
	return e.runtime.Toggle(state, optionID)
}

// Select stages a candidate and advances for auto-advance kinds.
func (e *Engine) Select(ctx context.Context, state *domain.FlowState, candidate any) (*domain.FlowState, domain.TransitionResult) {
	return e.runtime.Select(ctx, state, candidate)
}

// Next commits the candidate and advances.
func (e *Engine) Next(ctx context.Context, state *domain.FlowState) (*domain.FlowState, domain.TransitionResult) {
	return e.runtime.Next(ctx, state)
}

// Previous moves back one effective step, or exits from the first one.
func (e *Engine) Previous(ctx context.Context, state *domain.FlowState) (*domain.FlowState, domain.TransitionResult) {
	return e.runtime.Previous(ctx, state)
}

// Skip commits the skipped sentinel and advances.
func (e *Engine) Skip(ctx context.Context, state *domain.FlowState) (*domain.FlowState, domain.TransitionResult) {
	return e.runtime.Skip(ctx, state)
}

// Abandon exits the flow and discards its answers.
func (e *Engine) Abandon(ctx context.Context, state *domain.FlowState) (*domain.FlowState, domain.TransitionResult) {
	return e.runtime.Abandon(ctx, state)
}

// Submit hands a completed flow's answers to the sink.
func (e *Engine) Submit(ctx context.Context, state *domain.FlowState, sink ports.AnswerSink) (*domain.FlowState, error) {
	return e.runtime.Submit(ctx, state, sink)
}

// Progress reports completion of a state in [0,1].
func (e *Engine) Progress(state *domain.FlowState) float64 {
	return e.runtime.Progress(state)
}

// Steps returns the registry in canonical order.
func (e *Engine) Steps() []domain.Step {
	return e.registry.Steps()
}

var _ ports.FlowEngine = (*Engine)(nil)
