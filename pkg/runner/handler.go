package runner

import (
	"context"

	"github.com/aretw0/ratlab/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Input reads one submission from the user.
	Input(ctx context.Context) (string, error)

	// Output presents the entries appended by the last submission.
	Output(ctx context.Context, entries domain.Transcript) error

	// SystemOutput presents a meta-message to the user (help, history, warnings).
	// This is distinct from transcript content.
	SystemOutput(ctx context.Context, msg string) error
}

// Submitter is the surface-side view of one session.
// *session.Handle satisfies it.
type Submitter interface {
	Submit(ctx context.Context, text string) (domain.Transcript, error)
	Transcript(ctx context.Context) (domain.Transcript, error)
}

// EntryRenderer turns a transcript entry into display text (e.g. ANSI styling).
type EntryRenderer func(entry domain.TranscriptEntry) (string, error)

// TextRenderer turns markdown-ish text into display text.
type TextRenderer func(text string) (string, error)
