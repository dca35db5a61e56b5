package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter EventType = "step_enter"
	EventStepLeave EventType = "step_leave"
	EventCommit    EventType = "answer_commit"
	EventReject    EventType = "answer_reject"
	EventComplete  EventType = "flow_complete"
	EventSubmit    EventType = "flow_submit"
	EventNotice    EventType = "notice"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	FlowID    string    `json:"flow_id"`
}

// StepEvent represents entry or exit from a step.
type StepEvent struct {
	EventBase
	StepID    string    `json:"step_id"`
	Kind      Kind      `json:"kind"`
	Index     int       `json:"index"`
	Direction Direction `json:"direction"`
}

// AnswerEvent represents a commit or a rejected candidate.
type AnswerEvent struct {
	EventBase
	StepID string           `json:"step_id"`
	Kind   Kind             `json:"kind"`
	Answer Answer           `json:"answer"`
	Error  *ValidationError `json:"error,omitempty"`
}

// FlowEvent represents completion and submission outcomes.
type FlowEvent struct {
	EventBase
	Answers int    `json:"answers"`
	Attempt int    `json:"attempt,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NoticeEvent represents a raised or cleared notice.
type NoticeEvent struct {
	EventBase
	Effect SideEffect `json:"effect"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepEnter func(context.Context, *StepEvent)
	OnStepLeave func(context.Context, *StepEvent)
	OnCommit    func(context.Context, *AnswerEvent)
	OnReject    func(context.Context, *AnswerEvent)
	OnComplete  func(context.Context, *FlowEvent)
	OnSubmit    func(context.Context, *FlowEvent)
	OnNotice    func(context.Context, *NoticeEvent)
}

// CombineHooks fans every callback out to all non-nil hooks in order.
func CombineHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		h := h
		out.OnStepEnter = chain(out.OnStepEnter, h.OnStepEnter)
		out.OnStepLeave = chain(out.OnStepLeave, h.OnStepLeave)
		out.OnCommit = chain(out.OnCommit, h.OnCommit)
		out.OnReject = chain(out.OnReject, h.OnReject)
		out.OnComplete = chain(out.OnComplete, h.OnComplete)
		out.OnSubmit = chain(out.OnSubmit, h.OnSubmit)
		out.OnNotice = chain(out.OnNotice, h.OnNotice)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
