package expression

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// CELEngine evaluates expressions with Google's Common Expression Language.
// The environment declares a single variable, answers: map(string, dyn).
// Reading a key that was never committed is an evaluation error, so
// predicates should guard with has(answers.step_id).
type CELEngine struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewCELEngine creates a CEL engine.
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("answers", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &CELEngine{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string {
	return "cel"
}

// Check compiles the expression and caches the program.
func (e *CELEngine) Check(expression string) error {
	_, err := e.getOrCompile(expression)
	return err
}

// Evaluate runs the expression. A missing answers key defaults to an empty map.
func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	prg, err := e.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	activation := map[string]any{"answers": map[string]any{}}
	if v, ok := data["answers"]; ok && v != nil {
		activation["answers"] = v
	}

	out, _, err := prg.ContextEval(ctx, activation)
	if err != nil {
		return nil, &Error{Engine: e.Name(), Expression: expression, Phase: PhaseEvaluate, Cause: err}
	}
	return out.Value(), nil
}

func (e *CELEngine) getOrCompile(expression string) (cel.Program, error) {
	if expression == "" {
		return nil, &Error{Engine: e.Name(), Phase: PhaseCompile, Cause: errors.New("empty expression")}
	}

	e.mu.RLock()
	if prg, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.cache[expression]; ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, &Error{Engine: e.Name(), Expression: expression, Phase: PhaseCompile, Cause: issues.Err()}
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, &Error{Engine: e.Name(), Expression: expression, Phase: PhaseCompile, Cause: err}
	}

	e.cache[expression] = prg
	return prg, nil
}

var _ Engine = (*CELEngine)(nil)
