package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/aretw0/ratlab/pkg/ports"
)

// Session owns one transcript and one evaluator.
// Submissions are serialized in arrival order and never interleave.
type Session struct {
	id   string
	eval ports.Evaluator

	// queue is a single-slot semaphore. Blocked senders on a channel are
	// released in FIFO order, which gives queued submissions their order.
	queue chan struct{}

	mu         sync.RWMutex // guards transcript and status, never held during Evaluate
	transcript domain.Transcript
	status     domain.Status

	observers []func(domain.TranscriptEntry)
	hooks     domain.LifecycleHooks
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the identifier reported in lifecycle events.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithTranscript seeds the session with a restored history.
// The entries are not evaluated.
func WithTranscript(t domain.Transcript) Option {
	return func(s *Session) {
		s.transcript = t.Clone()
	}
}

// WithObserver registers a callback invoked after every append, in order.
func WithObserver(fn func(domain.TranscriptEntry)) Option {
	return func(s *Session) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// WithLifecycleHooks registers submit/evaluated callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Session) {
		s.hooks = hooks
	}
}

// New creates a session in the AwaitingInput state around eval.
func New(eval ports.Evaluator, opts ...Option) *Session {
	s := &Session{
		eval:       eval,
		queue:      make(chan struct{}, 1),
		transcript: domain.Transcript{},
		status:     domain.StatusAwaitingInput,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier (may be empty for anonymous sessions).
func (s *Session) ID() string {
	return s.id
}

// Submit records text as an Input entry, evaluates it and records exactly one
// Output or Error entry. It returns a copy of the updated transcript.
//
// Evaluator failures never surface here: they become Error entries. The only
// error returned is ctx's, when ctx ends while the submission is still queued
// behind another one; nothing is appended in that case.
func (s *Session) Submit(ctx context.Context, text string) (domain.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("submission rejected: %w", err)
	}
	select {
	case s.queue <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("submission rejected: %w", ctx.Err())
	}
	defer func() { <-s.queue }()

	// Started submissions run to completion.
	ctx = context.WithoutCancel(ctx)

	input := domain.Input(text)
	s.mu.Lock()
	s.transcript = append(s.transcript, input)
	s.status = domain.StatusEvaluating
	s.mu.Unlock()
	s.notify(input)

	if s.hooks.OnSubmit != nil {
		s.hooks.OnSubmit(ctx, &domain.SubmitEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventSubmit, SessionID: s.id},
			Text:      text,
		})
	}

	start := time.Now()
	result := s.evaluate(ctx, text)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.transcript = append(s.transcript, result)
	s.status = domain.StatusAwaitingInput
	snapshot := s.transcript.Clone()
	s.mu.Unlock()
	s.notify(result)

	if s.hooks.OnEvaluated != nil {
		s.hooks.OnEvaluated(ctx, &domain.EvaluationEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventEvaluated, SessionID: s.id},
			Entry:     result,
			Duration:  elapsed,
		})
	}

	return snapshot, nil
}

// evaluate runs the evaluator and converts any failure, including a panic,
// into an Error entry.
func (s *Session) evaluate(ctx context.Context, text string) (entry domain.TranscriptEntry) {
	defer func() {
		if r := recover(); r != nil {
			entry = domain.Failure(domain.NewEvaluationError("InternalError", "%v", r))
		}
	}()

	out, err := s.eval.Evaluate(ctx, text)
	if err != nil {
		return domain.Failure(err)
	}
	return domain.Output(out)
}

func (s *Session) notify(e domain.TranscriptEntry) {
	for _, fn := range s.observers {
		fn(e)
	}
}

// Transcript returns a copy of the current history.
// A submission in flight is visible as a trailing Input entry.
func (s *Session) Transcript() domain.Transcript {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript.Clone()
}

// Len returns the number of entries recorded so far.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transcript)
}

// Status reports whether a submission is currently being evaluated.
func (s *Session) Status() domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
