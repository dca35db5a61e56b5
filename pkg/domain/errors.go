package domain

import (
	"errors"
	"fmt"
)

// ErrFlowCompleted is returned when navigation is attempted after completion.
var ErrFlowCompleted = errors.New("flow already completed")

// ErrFlowAbandoned is returned when a flow that was exited is used again.
var ErrFlowAbandoned = errors.New("flow abandoned")

// ErrFlowNotCompleted is returned when submitting a flow that is still active.
var ErrFlowNotCompleted = errors.New("flow not completed")

// ErrSessionNotFound is returned when a flow ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoStep is returned when a registry index does not refer to a step.
var ErrNoStep = errors.New("no step at index")

// Validation failure reasons.
const (
	ReasonRequired      = "required"
	ReasonUnknownOption = "unknown_option"
	ReasonExclusive     = "exclusive_option"
	ReasonNotANumber    = "not_a_number"
	ReasonOutOfRange    = "out_of_range"
	ReasonGranularity   = "granularity"
	ReasonWrongType     = "wrong_type"
	ReasonNotSkippable  = "not_skippable"
	ReasonFlowClosed    = "flow_closed"
)

// ValidationError is raised when a candidate answer fails the active step's rule.
// Message is phrased as an instruction to the user.
type ValidationError struct {
	StepID  string `json:"step_id"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
	// Focus asks hosts that support it to move accessibility focus to the error.
	Focus bool `json:"focus"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a focus-requesting validation error.
func NewValidationError(stepID, reason, message string) *ValidationError {
	return &ValidationError{StepID: stepID, Reason: reason, Message: message, Focus: true}
}

// SubmissionError is raised when the answer sink rejects or fails to receive answers.
// The answers are retained for a retry.
type SubmissionError struct {
	FlowID  string
	Attempt int
	Cause   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission of flow %s failed (attempt %d): %v", e.FlowID, e.Attempt, e.Cause)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// InclusionPredicateError records a predicate that failed while resolving the path.
// The step is included anyway.
type InclusionPredicateError struct {
	StepID string
	Cause  error
}

func (e *InclusionPredicateError) Error() string {
	return fmt.Sprintf("inclusion predicate of step %s failed: %v", e.StepID, e.Cause)
}

func (e *InclusionPredicateError) Unwrap() error {
	return e.Cause
}
