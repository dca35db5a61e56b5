package runtime

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/registry"
)

// Terminal is returned by NextEffectiveIndex when moving forward past the last step.
const Terminal = -1

// Resolver computes the effective path of a registry under a given Answer Store.
// Inclusion is evaluated lazily: only steps the cursor is about to land on are checked.
type Resolver struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewResolver creates a resolver bound to a registry.
func NewResolver(reg *registry.Registry, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{registry: reg, logger: logger}
}

// IsIncluded evaluates the step's predicate against the answers of earlier steps.
// A predicate that fails or panics includes the step.
func (r *Resolver) IsIncluded(step domain.Step, answers domain.AnswerStore) bool {
	if step.Include == nil {
		return true
	}

	included, err := r.evaluate(step, answers)
	if err != nil {
		perr := &domain.InclusionPredicateError{StepID: step.ID, Cause: err}
		r.logger.Warn("inclusion predicate failed, including step", "step", step.ID, "err", perr)
		return true
	}
	return included
}

func (r *Resolver) evaluate(step domain.Step, answers domain.AnswerStore) (included bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("predicate panicked: %v", rec)
		}
	}()
	return step.Include(r.priorAnswers(step, answers))
}

// priorAnswers copies the answers of steps registered before step.
// Predicates never see their own or later answers, and the copy keeps them
// from mutating committed answers.
func (r *Resolver) priorAnswers(step domain.Step, answers domain.AnswerStore) domain.AnswerStore {
	limit, ok := r.registry.IndexOf(step.ID)
	if !ok {
		limit = 0
	}
	prior := make(domain.AnswerStore, len(answers))
	for id, a := range answers {
		if i, ok := r.registry.IndexOf(id); ok && i < limit {
			prior[id] = a.Clone()
		}
	}
	return prior
}

// NextEffectiveIndex walks from the given registry index in the given direction
// and returns the first included step.
// Forward past the end yields Terminal; backward past the start clamps to the
// first effective step.
func (r *Resolver) NextEffectiveIndex(from int, dir domain.Direction, answers domain.AnswerStore) int {
	if dir != domain.Backward {
		dir = domain.Forward
	}

	for i := from + int(dir); ; i += int(dir) {
		step, ok := r.registry.Step(i)
		if !ok {
			if dir == domain.Forward {
				return Terminal
			}
			return r.FirstEffectiveIndex(answers)
		}
		if r.IsIncluded(step, answers) {
			return i
		}
	}
}

// FirstEffectiveIndex returns the first included step, or Terminal when every
// step is excluded.
func (r *Resolver) FirstEffectiveIndex(answers domain.AnswerStore) int {
	return r.NextEffectiveIndex(-1, domain.Forward, answers)
}

// EffectivePath lists the registry indices included under the answers.
func (r *Resolver) EffectivePath(answers domain.AnswerStore) []int {
	var path []int
	for i := r.FirstEffectiveIndex(answers); i != Terminal; i = r.NextEffectiveIndex(i, domain.Forward, answers) {
		path = append(path, i)
	}
	return path
}

// PositionOf counts the included steps before the registry index.
func (r *Resolver) PositionOf(index int, answers domain.AnswerStore) int {
	pos := 0
	for i := 0; i < index; i++ {
		step, ok := r.registry.Step(i)
		if !ok {
			break
		}
		if r.IsIncluded(step, answers) {
			pos++
		}
	}
	return pos
}

// Remaining counts the included steps after the registry index.
func (r *Resolver) Remaining(index int, answers domain.AnswerStore) int {
	n := 0
	for i := index + 1; i < r.registry.Count(); i++ {
		step, _ := r.registry.Step(i)
		if r.IsIncluded(step, answers) {
			n++
		}
	}
	return n
}
