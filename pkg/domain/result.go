package domain

// ValidationResult is the outcome of staging a candidate answer.
type ValidationResult struct {
	StepID string           `json:"step_id"`
	Valid  bool             `json:"valid"`
	Error  *ValidationError `json:"error,omitempty"`
}

// Outcome classifies a navigation attempt.
type Outcome string

const (
	OutcomeAdvanced  Outcome = "advanced"  // Moved to the next effective step
	OutcomeRetreated Outcome = "retreated" // Moved to the previous effective step
	OutcomeRejected  Outcome = "rejected"  // Stayed; see Error or Err
	OutcomeStaged    Outcome = "staged"    // Stayed; candidate accepted, waiting for an explicit continue
	OutcomeCompleted Outcome = "completed" // Past the last effective step
	OutcomeExited    Outcome = "exited"    // Previous from the first step; host leaves the flow
)

// TransitionResult is the outcome of Next, Previous, Select or Skip.
type TransitionResult struct {
	Outcome   Outcome          `json:"outcome"`
	From      int              `json:"from"`
	To        int              `json:"to"`
	Direction Direction        `json:"direction"`
	Error     *ValidationError `json:"error,omitempty"`
	// Err holds non-validation failures such as ErrFlowCompleted or a SubmissionError.
	Err error `json:"-"`
}

// Moved reports whether the cursor changed position or the flow ended.
func (r TransitionResult) Moved() bool {
	return r.Outcome != OutcomeRejected && r.Outcome != OutcomeStaged
}
