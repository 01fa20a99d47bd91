package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrEmptySessionID is returned when an operation needs a session ID and got none.
var ErrEmptySessionID = errors.New("session id cannot be empty")

// EvaluationError is a display-ready evaluator failure.
// Kind is an engine-specific label such as "SyntaxError".
type EvaluationError struct {
	Kind    string
	Message string
}

// NewEvaluationError builds an EvaluationError with a formatted message.
func NewEvaluationError(kind, format string, args ...any) *EvaluationError {
	return &EvaluationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *EvaluationError) Error() string {
	if e.Kind == "" {
		return e.Message
	}
	return e.Kind + ": " + e.Message
}

// TranscriptError reports a broken pairing invariant in a stored transcript.
type TranscriptError struct {
	Index  int
	Reason string
}

func (e *TranscriptError) Error() string {
	return fmt.Sprintf("invalid transcript at entry %d: %s", e.Index, e.Reason)
}
