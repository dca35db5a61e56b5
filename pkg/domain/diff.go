package domain

// StateDiff represents the changes between two flow states.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// FlowID is always present to identify the target.
	FlowID string `json:"flow_id"`

	StepIndex *int        `json:"current_index,omitempty"`
	Position  *int        `json:"position,omitempty"`
	Status    *FlowStatus `json:"status,omitempty"`
	Direction *Direction  `json:"direction,omitempty"`

	// Answers contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Answers map[string]*Answer `json:"answers,omitempty"`

	// Notices is the full notice list whenever it changed.
	Notices []Notice `json:"notices,omitempty"`

	// NoticesCleared is true when every notice was removed.
	NoticesCleared bool `json:"notices_cleared,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
func Diff(oldState, newState *FlowState) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		FlowID: newState.FlowID,
	}

	if oldState == nil || oldState.StepIndex != newState.StepIndex {
		diff.StepIndex = &newState.StepIndex
	}
	if oldState == nil || oldState.Position != newState.Position {
		diff.Position = &newState.Position
	}
	if oldState == nil || oldState.Status != newState.Status {
		diff.Status = &newState.Status
	}
	if oldState != nil && oldState.Direction != newState.Direction {
		diff.Direction = &newState.Direction
	}

	diff.Answers = diffAnswers(oldState, newState)
	diff.Notices, diff.NoticesCleared = diffNotices(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffAnswers(old *FlowState, new *FlowState) map[string]*Answer {
	delta := make(map[string]*Answer)

	if old == nil {
		for k, v := range new.Answers {
			v := v.Clone()
			delta[k] = &v
		}
	} else {
		for k, newVal := range new.Answers {
			oldVal, exists := old.Answers[k]
			if !exists || !oldVal.Equal(newVal) {
				v := newVal.Clone()
				delta[k] = &v
			}
		}
		for k := range old.Answers {
			if _, exists := new.Answers[k]; !exists {
				delta[k] = nil
			}
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

func diffNotices(old *FlowState, new *FlowState) ([]Notice, bool) {
	if old == nil {
		return new.Notices, false
	}
	if noticesEqual(old.Notices, new.Notices) {
		return nil, false
	}
	if len(new.Notices) == 0 {
		return nil, true
	}
	return new.Notices, false
}

func noticesEqual(a, b []Notice) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].StepID != b[i].StepID || a[i].Message != b[i].Message {
			return false
		}
	}
	return true
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.StepIndex == nil &&
		d.Position == nil &&
		d.Status == nil &&
		d.Direction == nil &&
		len(d.Answers) == 0 &&
		len(d.Notices) == 0 &&
		!d.NoticesCleared
}
