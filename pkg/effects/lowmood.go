package effects

import (
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
)

// DefaultLowMoods trigger the support notice.
var DefaultLowMoods = []string{"sad", "anxious", "angry", "depressed"}

// DefaultSupportMessage is shown with the support resources notice.
const DefaultSupportMessage = "Support resources are available if you'd like to talk to someone."

// DefaultSupportResources are attached to the support notice when none are configured.
var DefaultSupportResources = []domain.Resource{
	{Name: "Talk to a counsellor", Contact: "In-app chat"},
	{Name: "Guided breathing", Contact: "Tools > Breathe"},
}

// LowMoodConfig configures a LowMoodSuggester. Empty fields fall back to the defaults.
type LowMoodConfig struct {
	Moods     []string          `yaml:"moods"`
	Message   string            `yaml:"message"`
	Resources []domain.Resource `yaml:"resources"`
}

// LowMoodSuggester raises a support_resources notice when a mood_selection
// answer is in the low-mood set and clears it when the mood changes.
type LowMoodSuggester struct {
	moods     map[string]bool
	message   string
	resources []domain.Resource
}

// NewLowMoodSuggester builds a suggester from the config.
func NewLowMoodSuggester(cfg LowMoodConfig) *LowMoodSuggester {
	moods := cfg.Moods
	if len(moods) == 0 {
		moods = DefaultLowMoods
	}
	s := &LowMoodSuggester{
		moods:     make(map[string]bool, len(moods)),
		message:   cfg.Message,
		resources: cfg.Resources,
	}
	for _, m := range moods {
		s.moods[strings.ToLower(strings.TrimSpace(m))] = true
	}
	if s.message == "" {
		s.message = DefaultSupportMessage
	}
	if len(s.resources) == 0 {
		s.resources = DefaultSupportResources
	}
	return s
}

// IsLow reports whether the mood ID is in the low-mood set.
func (s *LowMoodSuggester) IsLow(moodID string) bool {
	return s.moods[strings.ToLower(moodID)]
}

// OnAnswerCommitted implements domain.Observer.
func (s *LowMoodSuggester) OnAnswerCommitted(step domain.Step, answer domain.Answer, _ domain.AnswerStore) []domain.SideEffect {
	if step.Kind != domain.KindMoodSelection {
		return nil
	}

	var id string
	switch answer.Type {
	case domain.AnswerMood:
		if answer.Mood != nil {
			id = answer.Mood.ID
		}
	case domain.AnswerChoice:
		id = answer.Choice
	}

	if !s.IsLow(id) {
		return []domain.SideEffect{domain.Clear(domain.NoticeSupportResources, step.ID)}
	}
	return []domain.SideEffect{domain.Raise(domain.Notice{
		Kind:      domain.NoticeSupportResources,
		StepID:    step.ID,
		Message:   s.message,
		Resources: append([]domain.Resource(nil), s.resources...),
	})}
}

// Defaults returns the crisis detector and low-mood suggester with default settings.
func Defaults() []domain.Observer {
	return []domain.Observer{
		MustCrisisDetector(CrisisConfig{}),
		NewLowMoodSuggester(LowMoodConfig{}),
	}
}
