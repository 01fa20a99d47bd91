package ratlab

import (
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/ratlab/pkg/adapters/memory"
	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/aretw0/ratlab/pkg/evaluator/calc"
	"github.com/aretw0/ratlab/pkg/ports"
	"github.com/aretw0/ratlab/pkg/runner"
	"github.com/aretw0/ratlab/pkg/session"
)

// Lab is the high-level entry point for the ratlab library.
// It wraps a session manager and provides a simplified API for consumers.
type Lab struct {
	manager *session.Manager

	factory ports.EvaluatorFactory
	engine  string
	store   ports.TranscriptStore
	locker  ports.DistributedLocker
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	replay  bool
	observe func(id string, entry domain.TranscriptEntry)
}

// Option defines a functional option for configuring the Lab.
type Option func(*Lab)

// WithEvaluator sets the evaluator every new session gets. name is recorded
// on stored sessions.
func WithEvaluator(factory ports.EvaluatorFactory, name string) Option {
	return func(l *Lab) {
		l.factory = factory
		l.engine = name
	}
}

// WithStore persists sessions in store instead of memory.
func WithStore(store ports.TranscriptStore) Option {
	return func(l *Lab) {
		l.store = store
	}
}

// WithLocker serializes access to a session across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(l *Lab) {
		l.locker = locker
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(l *Lab) {
		l.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lab) {
		l.logger = logger
	}
}

// WithReplay controls whether restored sessions re-run their stored inputs.
func WithReplay(enabled bool) Option {
	return func(l *Lab) {
		l.replay = enabled
	}
}

// WithEntryObserver is called with every entry appended to any session.
func WithEntryObserver(fn func(id string, entry domain.TranscriptEntry)) Option {
	return func(l *Lab) {
		l.observe = fn
	}
}

// New creates a Lab. Without options it evaluates with the calculator and
// keeps sessions in memory.
func New(opts ...Option) *Lab {
	l := &Lab{replay: true}
	for _, opt := range opts {
		opt(l)
	}

	if l.factory == nil {
		l.factory, l.engine = calc.Factory(), calc.Name
	}
	if l.store == nil {
		l.store = memory.NewStore()
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	managerOpts := []session.ManagerOption{
		session.WithLogger(l.logger),
		session.WithHooks(l.hooks),
		session.WithEngineName(l.engine),
		session.WithReplay(l.replay),
	}
	if l.observe != nil {
		managerOpts = append(managerOpts, session.WithEntryObserver(l.observe))
	}
	if l.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(l.locker))
	}
	l.manager = session.NewManager(l.factory, l.store, managerOpts...)
	return l
}

// Submit evaluates text in the named session, creating it on first use, and
// returns the transcript right after this submission.
func (l *Lab) Submit(ctx context.Context, sessionID, text string) (domain.Transcript, error) {
	return l.manager.Submit(ctx, sessionID, text)
}

// Transcript returns a copy of a session's history.
func (l *Lab) Transcript(ctx context.Context, sessionID string) (domain.Transcript, error) {
	return l.manager.Transcript(ctx, sessionID)
}

// Delete removes a session and its stored record.
func (l *Lab) Delete(ctx context.Context, sessionID string) error {
	return l.manager.Delete(ctx, sessionID)
}

// List returns the stored session IDs.
func (l *Lab) List(ctx context.Context) ([]string, error) {
	return l.manager.List(ctx)
}

// Session binds one session ID for repeated use.
func (l *Lab) Session(sessionID string) *session.Handle {
	return l.manager.Bind(sessionID)
}

// Manager returns the underlying session manager, e.g. to serve it over HTTP.
func (l *Lab) Manager() *session.Manager {
	return l.manager
}

// Run reads lines from in, submits them to sessionID and writes results to
// out until EOF or "exit". No prompt is shown.
func (l *Lab) Run(ctx context.Context, sessionID string, in io.Reader, out io.Writer) error {
	r := runner.NewRunner(
		runner.WithLogger(l.logger),
		runner.WithInputHandler(runner.NewTextHandler(in, out, runner.WithPrompt(""))),
	)
	return r.Run(ctx, l.manager.Bind(sessionID))
}

// Close releases every open session.
func (l *Lab) Close() error {
	return l.manager.Close()
}
