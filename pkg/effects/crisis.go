package effects

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
)

// DefaultCrisisPatterns are matched case-insensitively against free-text answers.
var DefaultCrisisPatterns = []string{
	`\bkill(ing)? myself\b`,
	`\bhurt(ing)? myself\b`,
	`\bharm(ing)? myself\b`,
	`\bself[- ]?harm`,
	`\bsuicid(e|al)\b`,
	`\bend (it all|my life)\b`,
	`\bwant to die\b`,
	`\bno reason to live\b`,
	`\bbetter off dead\b`,
}

// DefaultCrisisMessage is shown with the crisis resources notice.
const DefaultCrisisMessage = "It sounds like you may be going through something really difficult. You don't have to face it alone: reach out to one of these resources right now."

// DefaultCrisisResources are attached to the crisis notice when none are configured.
var DefaultCrisisResources = []domain.Resource{
	{Name: "Emergency services", Contact: "911"},
	{Name: "988 Suicide & Crisis Lifeline", Contact: "988"},
	{Name: "Crisis Text Line", Contact: "Text HOME to 741741"},
}

// CrisisConfig configures a CrisisDetector. Empty fields fall back to the defaults.
type CrisisConfig struct {
	Patterns  []string          `yaml:"patterns"`
	Message   string            `yaml:"message"`
	Resources []domain.Resource `yaml:"resources"`
}

// CrisisDetector raises a crisis_resources notice when a text answer matches
// one of its patterns and clears it once the answer is edited to no longer match.
type CrisisDetector struct {
	patterns  []*regexp.Regexp
	message   string
	resources []domain.Resource
}

// NewCrisisDetector compiles the configured patterns.
// Plain keywords are valid patterns; every pattern is case-insensitive.
func NewCrisisDetector(cfg CrisisConfig) (*CrisisDetector, error) {
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultCrisisPatterns
	}

	d := &CrisisDetector{
		message:   cfg.Message,
		resources: cfg.Resources,
	}
	if d.message == "" {
		d.message = DefaultCrisisMessage
	}
	if len(d.resources) == 0 {
		d.resources = DefaultCrisisResources
	}

	var errs []error
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			errs = append(errs, fmt.Errorf("crisis pattern %q: %w", p, err))
			continue
		}
		d.patterns = append(d.patterns, re)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return d, nil
}

// MustCrisisDetector is like NewCrisisDetector but panics on invalid patterns.
func MustCrisisDetector(cfg CrisisConfig) *CrisisDetector {
	d, err := NewCrisisDetector(cfg)
	if err != nil {
		panic(err)
	}
	return d
}

// Matches reports whether text contains any crisis pattern.
func (d *CrisisDetector) Matches(text string) bool {
	for _, re := range d.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// OnAnswerCommitted implements domain.Observer.
func (d *CrisisDetector) OnAnswerCommitted(step domain.Step, answer domain.Answer, _ domain.AnswerStore) []domain.SideEffect {
	if step.Kind != domain.KindTextInput {
		return nil
	}
	// Skipped, empty or non-text answers clear a notice left by earlier text.
	if answer.Type != domain.AnswerText || !d.Matches(answer.Text) {
		return []domain.SideEffect{domain.Clear(domain.NoticeCrisisResources, step.ID)}
	}
	return []domain.SideEffect{domain.Raise(domain.Notice{
		Kind:      domain.NoticeCrisisResources,
		StepID:    step.ID,
		Message:   d.message,
		Resources: append([]domain.Resource(nil), d.resources...),
	})}
}
