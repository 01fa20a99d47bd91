package domain

import "time"

// Status is the controller state of a session.
type Status string

const (
	StatusAwaitingInput Status = "awaiting_input" // Idle, ready for the next submission
	StatusEvaluating    Status = "evaluating"     // A submission is in flight
)

// Record is the persisted form of a session.
type Record struct {
	ID         string     `json:"id"`
	Engine     string     `json:"engine,omitempty"`
	Transcript Transcript `json:"transcript"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Sealed carries the encrypted transcript when the record passed through
	// an encrypting store middleware. Transcript is empty in that case.
	Sealed string `json:"sealed,omitempty"`
}

// NewRecord creates an empty record for a session.
func NewRecord(id, engine string) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:         id,
		Engine:     engine,
		Transcript: Transcript{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Snapshot returns a deep copy of the record.
func (r *Record) Snapshot() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Transcript = r.Transcript.Clone()
	return &cp
}
