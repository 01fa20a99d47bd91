package domain

import "fmt"

// EntryKind tags a transcript entry. The set is closed.
type EntryKind string

const (
	KindInput  EntryKind = "input"  // Raw user submission
	KindOutput EntryKind = "output" // Evaluator result
	KindError  EntryKind = "error"  // Evaluator failure, rendered for display
)

// Valid reports whether k is one of the known kinds.
func (k EntryKind) Valid() bool {
	switch k {
	case KindInput, KindOutput, KindError:
		return true
	}
	return false
}

// IsResult reports whether k closes a submission pair.
func (k EntryKind) IsResult() bool {
	return k == KindOutput || k == KindError
}

// TranscriptEntry is one immutable line of session history.
type TranscriptEntry struct {
	Kind  EntryKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	Value string    `json:"value" yaml:"value" mapstructure:"value"`
}

// Input builds an Input entry.
func Input(text string) TranscriptEntry {
	return TranscriptEntry{Kind: KindInput, Value: text}
}

// Output builds an Output entry.
func Output(result string) TranscriptEntry {
	return TranscriptEntry{Kind: KindOutput, Value: result}
}

// Failure builds an Error entry from an evaluator failure.
// The value is never empty so surfaces always have something to show.
func Failure(err error) TranscriptEntry {
	text := ""
	if err != nil {
		text = err.Error()
	}
	if text == "" {
		text = "Error"
	}
	return TranscriptEntry{Kind: KindError, Value: text}
}

func (e TranscriptEntry) String() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Value)
}
