package domain

// View is the host-facing presentation of a flow at its current position.
type View struct {
	FlowID    string     `json:"flow_id"`
	Status    FlowStatus `json:"status"`
	Step      *Step      `json:"step,omitempty"`
	Index     int        `json:"current_index"`
	Position  int        `json:"position"`
	Direction Direction  `json:"direction"`
	Progress  float64    `json:"progress"`

	// Staged is the candidate currently held for the step.
	Staged *Answer `json:"staged,omitempty"`
	// Committed is the answer recorded on a previous visit, if any.
	Committed *Answer `json:"committed,omitempty"`

	Notices []Notice `json:"notices,omitempty"`

	// Terminal is true on summary steps and once the flow left the active status.
	Terminal bool `json:"terminal"`
	// AutoAdvance is true when selecting an answer moves on without a continue action.
	AutoAdvance bool `json:"auto_advance"`
	// Skippable is true when the host may offer an explicit skip action.
	Skippable bool `json:"skippable"`
}
