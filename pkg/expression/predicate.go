package expression

import (
	"context"
	"fmt"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Predicate compiles a "when:" clause into a domain.Predicate.
// The expression must evaluate to a boolean; anything else is an error,
// which the resolver treats as "include the step".
func Predicate(eng Engine, expression string) (domain.Predicate, error) {
	if err := eng.Check(expression); err != nil {
		return nil, err
	}

	return func(answers domain.AnswerStore) (bool, error) {
		out, err := eng.Evaluate(context.Background(), expression, Env(answers))
		if err != nil {
			return false, err
		}
		b, ok := out.(bool)
		if !ok {
			return false, &Error{
				Engine:     eng.Name(),
				Expression: expression,
				Phase:      PhaseEvaluate,
				Cause:      fmt.Errorf("expected bool, got %T", out),
			}
		}
		return b, nil
	}, nil
}

// Env builds the evaluation environment for a set of answers.
func Env(answers domain.AnswerStore) map[string]any {
	return map[string]any{"answers": answers.Values()}
}
