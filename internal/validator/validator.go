package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/stepwise/pkg/definition"
	"github.com/aretw0/stepwise/pkg/domain"
)

// Severity of a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one problem found in a definition.
type Finding struct {
	Severity Severity
	StepID   string
	Message  string
}

func (f Finding) String() string {
	if f.StepID == "" {
		return fmt.Sprintf("%s: %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("%s: step %q: %s", f.Severity, f.StepID, f.Message)
}

// Report collects the findings of ValidateDefinition.
type Report struct {
	Findings []Finding
}

// Errors returns the error findings.
func (r *Report) Errors() []Finding {
	return r.filter(SeverityError)
}

// Warnings returns the warning findings.
func (r *Report) Warnings() []Finding {
	return r.filter(SeverityWarning)
}

func (r *Report) filter(s Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// Err joins the error findings, or returns nil when there are none.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, len(errs))
	for i, f := range errs {
		lines[i] = f.String()
	}
	return fmt.Errorf("found %d errors:\n- %s", len(errs), strings.Join(lines, "\n- "))
}

func (r *Report) add(s Severity, stepID, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{Severity: s, StepID: stepID, Message: fmt.Sprintf(format, args...)})
}

// answerRef matches answers.id, answers["id"] and answers['id'] in when: clauses.
var answerRef = regexp.MustCompile(`answers(?:\.([A-Za-z_][A-Za-z0-9_]*)|\[\s*["']([^"']+)["']\s*\])`)

// ValidateDefinition compiles the definition and lints what compilation accepts:
// when: clauses may only read answers of earlier steps, and option sets
// referenced by the effects must exist in the flow.
func ValidateDefinition(def *definition.Definition, opts ...definition.CompileOption) *Report {
	report := &Report{}

	if _, err := def.Compile(opts...); err != nil {
		for _, e := range unjoin(err) {
			report.add(SeverityError, "", "%v", e)
		}
	}

	position := make(map[string]int, len(def.Steps))
	for i, s := range def.Steps {
		if _, dup := position[s.ID]; !dup {
			position[s.ID] = i
		}
	}

	for i, s := range def.Steps {
		if i == 0 && s.When != "" {
			report.add(SeverityWarning, s.ID, "first step is conditional; the flow starts at the first included step")
		}

		for _, ref := range references(s.When) {
			at, ok := position[ref]
			switch {
			case !ok:
				report.add(SeverityError, s.ID, "when: references unknown step %q", ref)
			case at >= i:
				report.add(SeverityError, s.ID, "when: references step %q, which is not answered before this step", ref)
			}
		}

		seen := make(map[string]bool, len(s.Options))
		for _, opt := range s.Options {
			seen[opt.ID] = true
		}
		if s.Kind == domain.KindMultipleChoice && s.ExclusiveOption != "" && !seen[s.ExclusiveOption] {
			report.add(SeverityWarning, s.ID, "exclusive option %q is not one of the options", s.ExclusiveOption)
		}
	}

	if lm := def.Effects.LowMood; lm != nil {
		moods := make(map[string]bool)
		hasMoodStep := false
		for _, s := range def.Steps {
			if s.Kind != domain.KindMoodSelection {
				continue
			}
			hasMoodStep = true
			for _, opt := range s.Options {
				moods[opt.ID] = true
			}
		}
		if !hasMoodStep {
			report.add(SeverityWarning, "", "low_mood effect configured but the flow has no mood_selection step")
		}
		for _, m := range lm.Moods {
			if hasMoodStep && !moods[m] {
				report.add(SeverityWarning, "", "low_mood lists %q, which no mood_selection step offers", m)
			}
		}
	}

	return report
}

func references(when string) []string {
	if when == "" {
		return nil
	}
	var refs []string
	seen := make(map[string]bool)
	for _, m := range answerRef.FindAllStringSubmatch(when, -1) {
		id := m[1]
		if id == "" {
			id = m[2]
		}
		if !seen[id] {
			seen[id] = true
			refs = append(refs, id)
		}
	}
	return refs
}

func unjoin(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, unjoin(e)...)
	}
	return out
}
