package domain

// NoticeKind categorises host-visible notices raised by observers.
type NoticeKind string

const (
	NoticeCrisisResources  NoticeKind = "crisis_resources"
	NoticeSupportResources NoticeKind = "support_resources"
)

// Resource is a support contact or link attached to a notice.
type Resource struct {
	Name    string `json:"name" yaml:"name"`
	Contact string `json:"contact" yaml:"contact"`
}

// Notice is a persistent message the host keeps visible until it is cleared.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	StepID    string     `json:"step_id"`
	Message   string     `json:"message"`
	Resources []Resource `json:"resources,omitempty"`
}

// EffectOp tells whether a side effect raises or clears a notice.
type EffectOp string

const (
	EffectRaise EffectOp = "raise"
	EffectClear EffectOp = "clear"
)

// SideEffect is the outcome of an observer reacting to a committed answer.
type SideEffect struct {
	Op     EffectOp `json:"op"`
	Notice Notice   `json:"notice"`
}

// Raise builds a SideEffect raising n.
func Raise(n Notice) SideEffect {
	return SideEffect{Op: EffectRaise, Notice: n}
}

// Clear builds a SideEffect clearing the notice of kind raised for stepID.
func Clear(kind NoticeKind, stepID string) SideEffect {
	return SideEffect{Op: EffectClear, Notice: Notice{Kind: kind, StepID: stepID}}
}

// ApplyEffects returns notices with effects applied in order.
// Notices are keyed by (Kind, StepID); raising an existing key replaces it.
func ApplyEffects(notices []Notice, effects []SideEffect) []Notice {
	out := make([]Notice, 0, len(notices)+len(effects))
	out = append(out, notices...)
	for _, eff := range effects {
		idx := -1
		for i, n := range out {
			if n.Kind == eff.Notice.Kind && n.StepID == eff.Notice.StepID {
				idx = i
				break
			}
		}
		switch eff.Op {
		case EffectRaise:
			if idx >= 0 {
				out[idx] = eff.Notice
			} else {
				out = append(out, eff.Notice)
			}
		case EffectClear:
			if idx >= 0 {
				out = append(out[:idx], out[idx+1:]...)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Observer reacts to committed answers without influencing navigation.
type Observer interface {
	OnAnswerCommitted(step Step, answer Answer, all AnswerStore) []SideEffect
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(step Step, answer Answer, all AnswerStore) []SideEffect

// OnAnswerCommitted calls f.
func (f ObserverFunc) OnAnswerCommitted(step Step, answer Answer, all AnswerStore) []SideEffect {
	return f(step, answer, all)
}
