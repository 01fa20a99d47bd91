package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/aretw0/ratlab/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

type redactionMiddleware struct {
	next     ports.TranscriptStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks every substring of a
// transcript entry matching one of the patterns before it reaches the store.
// The live session keeps the original text. Restored sessions replay the
// masked inputs, so patterns should only target values the evaluator does not
// need back (tokens, e-mail addresses).
func NewRedactionMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		patterns[i] = re
	}
	return func(next ports.TranscriptStore) ports.TranscriptStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactionMiddleware) Save(ctx context.Context, sessionID string, record *domain.Record) error {
	// Clone so the caller's record (often the live transcript) is untouched.
	cloned := record.Snapshot()
	for i, e := range cloned.Transcript {
		cloned.Transcript[i].Value = m.mask(e.Value)
	}
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *redactionMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

func (m *redactionMiddleware) Load(ctx context.Context, sessionID string) (*domain.Record, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
