package ports

import (
	"context"

	"github.com/aretw0/ratlab/pkg/domain"
)

// TranscriptStore defines the interface for persisting session records.
// This allows sessions to survive process restarts.
type TranscriptStore interface {
	// Save persists the record for a given session ID.
	Save(ctx context.Context, sessionID string, record *domain.Record) error

	// Load retrieves the record for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Record, error)

	// Delete removes the record for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
