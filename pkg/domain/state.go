package domain

import "time"

// Direction records the last movement, used by hosts to pick a transition animation.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// FlowStatus defines the lifecycle stage of a flow instance.
type FlowStatus string

const (
	StatusActive    FlowStatus = "active"    // Waiting for input at StepIndex
	StatusCompleted FlowStatus = "completed" // All effective steps committed, submission pending
	StatusSubmitted FlowStatus = "submitted" // Sink accepted the answers
	StatusAbandoned FlowStatus = "abandoned" // Host exited the flow
)

// FlowState is the live cursor of one flow instance.
type FlowState struct {
	FlowID string `json:"flow_id"`

	// StepIndex is the registry index of the current step.
	// It always refers to a step included under the current answers.
	StepIndex int `json:"current_index"`

	// Position is the index of the current step within the effective path.
	Position int `json:"position"`

	Direction Direction  `json:"direction"`
	Status    FlowStatus `json:"status"`

	Answers AnswerStore `json:"answers"`

	// Staged is the candidate answer for the current step, not yet committed.
	Staged *Answer `json:"staged,omitempty"`

	// Notices are the side-effect notices currently raised.
	Notices []Notice `json:"notices,omitempty"`

	// ProgressMark is the highest progress reported while moving forward.
	ProgressMark float64 `json:"progress_mark"`

	SubmitAttempts  int    `json:"submit_attempts,omitempty"`
	LastSubmitError string `json:"last_submit_error,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewFlowState creates a clean state positioned at a registry index.
func NewFlowState(flowID string, startIndex int) *FlowState {
	return &FlowState{
		FlowID:    flowID,
		StepIndex: startIndex,
		Direction: Forward,
		Status:    StatusActive,
		Answers:   make(AnswerStore),
		StartedAt: time.Now().UTC(),
	}
}

// Active reports whether the flow still accepts navigation.
func (s *FlowState) Active() bool {
	return s.Status == StatusActive
}

// Snapshot creates a deep copy of the state, safe for concurrent read or persistence.
func (s *FlowState) Snapshot() *FlowState {
	if s == nil {
		return nil
	}
	next := *s
	next.Answers = s.Answers.Clone()
	if s.Staged != nil {
		staged := s.Staged.Clone()
		next.Staged = &staged
	}
	if s.Notices != nil {
		next.Notices = make([]Notice, len(s.Notices))
		copy(next.Notices, s.Notices)
	}
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		next.CompletedAt = &at
	}
	return &next
}

// Record is the minimal persisted layout hosts may use for resume.
type Record struct {
	FlowID       string      `json:"flow_id"`
	CurrentIndex int         `json:"current_index"`
	Answers      AnswerStore `json:"answers"`
}

// Record extracts the minimal resume record from the state.
func (s *FlowState) Record() Record {
	return Record{
		FlowID:       s.FlowID,
		CurrentIndex: s.StepIndex,
		Answers:      s.Answers.Clone(),
	}
}
