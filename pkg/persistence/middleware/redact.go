package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// Mask replaces redacted free-text answers.
const Mask = "***"

type redactMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks free-text answers of
// steps whose ID matches one of the patterns. With no patterns every text
// answer is masked. Staged text drafts are always masked. Choices, numbers
// and moods are stored as they are.
//
// Masking is one-way: a resumed flow shows the mask where the text was.
func NewRedactMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactMiddleware) matches(stepID string) bool {
	if len(m.patterns) == 0 {
		return true
	}
	for _, p := range m.patterns {
		if p.MatchString(stepID) {
			return true
		}
	}
	return false
}

func (m *redactMiddleware) Save(ctx context.Context, flowID string, state *domain.FlowState) error {
	// Never touch the in-memory state used by the engine.
	cloned := state.Snapshot()

	for id, a := range cloned.Answers {
		if a.Type == domain.AnswerText && a.Text != "" && m.matches(id) {
			cloned.Answers[id] = domain.TextAnswer(Mask)
		}
	}
	if s := cloned.Staged; s != nil && s.Type == domain.AnswerText && s.Text != "" {
		masked := domain.TextAnswer(Mask)
		cloned.Staged = &masked
	}

	return m.next.Save(ctx, flowID, cloned)
}

func (m *redactMiddleware) Load(ctx context.Context, flowID string) (*domain.FlowState, error) {
	return m.next.Load(ctx, flowID)
}

func (m *redactMiddleware) Delete(ctx context.Context, flowID string) error {
	return m.next.Delete(ctx, flowID)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
