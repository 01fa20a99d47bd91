package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSubmit    EventType = "submit"
	EventEvaluated EventType = "evaluated"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// SubmitEvent fires once the Input entry has been appended.
type SubmitEvent struct {
	EventBase
	Text string `json:"text"`
}

// EvaluationEvent fires once the result entry has been appended.
type EvaluationEvent struct {
	EventBase
	Entry    TranscriptEntry `json:"entry"`
	Duration time.Duration   `json:"duration"`
}

// LifecycleHooks defines callbacks for session observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnSubmit    func(context.Context, *SubmitEvent)
	OnEvaluated func(context.Context, *EvaluationEvent)
}

// ChainHooks returns hooks that invoke each of the given hooks in order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnSubmit: func(ctx context.Context, e *SubmitEvent) {
			for _, h := range hooks {
				if h.OnSubmit != nil {
					h.OnSubmit(ctx, e)
				}
			}
		},
		OnEvaluated: func(ctx context.Context, e *EvaluationEvent) {
			for _, h := range hooks {
				if h.OnEvaluated != nil {
					h.OnEvaluated(ctx, e)
				}
			}
		},
	}
}
