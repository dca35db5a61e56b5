// Package expression compiles declarative inclusion predicates ("when:" clauses)
// into domain.Predicate values.
//
// Two engines are provided: expr-lang/expr (the default) and Google's CEL.
// Both expose committed answers under the "answers" variable, keyed by step ID,
// with the plain values produced by domain.Answer.Value.
package expression

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Engine evaluates expressions against a data environment.
type Engine interface {
	// Name returns the engine identifier used in flow definitions.
	Name() string

	// Check compiles the expression without evaluating it.
	Check(expression string) error

	// Evaluate compiles (or fetches from cache) and runs the expression.
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// ErrUnknownEngine is returned by ByName for unsupported engine names.
var ErrUnknownEngine = errors.New("unknown expression engine")

// Phase tells whether an expression failed to compile or to run.
type Phase string

const (
	PhaseCompile  Phase = "compile"
	PhaseEvaluate Phase = "evaluate"
)

// Error describes a failed expression.
type Error struct {
	Engine     string
	Expression string
	Phase      Phase
	Cause      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s error in %q: %v", e.Engine, e.Phase, e.Expression, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ByName returns a fresh engine for "expr" (or empty) and "cel".
func ByName(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "expr":
		return NewExprEngine(), nil
	case "cel":
		return NewCELEngine()
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
}
