package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/ratlab/internal/logging"
	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/aretw0/ratlab/pkg/ports"
)

// lockTTL bounds how long a crashed replica can hold a distributed session lock.
const lockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// live is an open session together with its persisted metadata.
type live struct {
	session   *Session
	eval      ports.Evaluator
	createdAt time.Time
}

// Manager keeps many independent sessions, persists their transcripts and
// restores them after a restart.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	factory ports.EvaluatorFactory
	store   ports.TranscriptStore

	mu    sync.Mutex            // Global lock for the locks map
	locks map[string]*lockEntry // Map of active locks

	sessMu   sync.Mutex
	sessions map[string]*live

	locker   ports.DistributedLocker // Optional distributed locker
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	engine   string
	replay   bool
	observer func(id string, entry domain.TranscriptEntry)
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) ManagerOption {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithHooks sets the lifecycle hooks installed on every session.
func WithHooks(hooks domain.LifecycleHooks) ManagerOption {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithEngineName records the evaluator name on new records.
func WithEngineName(name string) ManagerOption {
	return func(m *Manager) {
		m.engine = name
	}
}

// WithReplay controls whether restored sessions re-run their stored inputs.
// Enabled by default.
func WithReplay(enabled bool) ManagerOption {
	return func(m *Manager) {
		m.replay = enabled
	}
}

// WithEntryObserver registers a callback for every entry appended to any session.
func WithEntryObserver(fn func(id string, entry domain.TranscriptEntry)) ManagerOption {
	return func(m *Manager) {
		m.observer = fn
	}
}

// NewManager creates a Manager that builds evaluators with factory and persists
// records in store.
func NewManager(factory ports.EvaluatorFactory, store ports.TranscriptStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		factory:  factory,
		store:    store,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*live),
		logger:   logging.NewNop(), // Default to no-op
		replay:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Open returns the live session for id, restoring it from the store or
// creating it when needed. created reports whether a new session was made.
func (m *Manager) Open(ctx context.Context, sessionID string) (s *Session, created bool, err error) {
	if sessionID == "" {
		return nil, false, domain.ErrEmptySessionID
	}

	err = m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.sessMu.Lock()
		l, ok := m.sessions[sessionID]
		m.sessMu.Unlock()
		if ok {
			s = l.session
			return nil
		}

		record, err := m.store.Load(ctx, sessionID)
		switch {
		case err == nil:
			l, err = m.restore(ctx, record)
			if err != nil {
				return err
			}
		case errors.Is(err, domain.ErrSessionNotFound):
			l, err = m.create(ctx, sessionID)
			if err != nil {
				return err
			}
			created = true
		default:
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		m.sessMu.Lock()
		m.sessions[sessionID] = l
		m.sessMu.Unlock()
		s = l.session
		return nil
	})
	return s, created, err
}

func (m *Manager) create(ctx context.Context, sessionID string) (*live, error) {
	eval, err := m.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluator: %w", err)
	}

	record := domain.NewRecord(sessionID, m.engine)
	// Persist immediately to reserve the ID
	if err := m.store.Save(ctx, sessionID, record); err != nil {
		closeEvaluator(eval)
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	m.logger.Debug("Session created", "session_id", sessionID, "engine", m.engine)
	return &live{
		session:   m.newSession(sessionID, eval, nil),
		eval:      eval,
		createdAt: record.CreatedAt,
	}, nil
}

// restore rebuilds a session from its record. With replay enabled every stored
// input is fed to a fresh evaluator so that its state matches the transcript;
// replayed results are discarded.
func (m *Manager) restore(ctx context.Context, record *domain.Record) (*live, error) {
	transcript := record.Transcript.Clone()
	if err := transcript.Validate(true); err != nil {
		return nil, fmt.Errorf("failed to restore session %q: %w", record.ID, err)
	}

	eval, err := m.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluator: %w", err)
	}

	inputs := transcript.Inputs()

	// A trailing input was never answered, most likely because the process
	// died mid-evaluation. Close the pair without re-running it.
	if transcript.Pending() {
		inputs = inputs[:len(inputs)-1]
		transcript = append(transcript, domain.Failure(
			domain.NewEvaluationError("InternalError", "evaluation interrupted")))
	}

	if m.replay {
		for _, text := range inputs {
			replayOne(ctx, eval, text)
		}
		m.logger.Debug("Session replayed", "session_id", record.ID, "inputs", len(inputs))
	}

	return &live{
		session:   m.newSession(record.ID, eval, transcript),
		eval:      eval,
		createdAt: record.CreatedAt,
	}, nil
}

func replayOne(ctx context.Context, eval ports.Evaluator, text string) {
	defer func() { _ = recover() }()
	_, _ = eval.Evaluate(ctx, text)
}

func (m *Manager) newSession(id string, eval ports.Evaluator, transcript domain.Transcript) *Session {
	opts := []Option{WithID(id), WithLifecycleHooks(m.hooks)}
	if transcript != nil {
		opts = append(opts, WithTranscript(transcript))
	}
	if m.observer != nil {
		observe := m.observer
		opts = append(opts, WithObserver(func(e domain.TranscriptEntry) { observe(id, e) }))
	}
	return New(eval, opts...)
}

// Submit runs one submission against session id and persists the result.
// Evaluator failures are recorded in the transcript; the error only reports
// rejection, store or lock failures. On a persistence failure the updated
// transcript is still returned.
func (m *Manager) Submit(ctx context.Context, sessionID, text string) (domain.Transcript, error) {
	s, _, err := m.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	transcript, err := s.Submit(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := m.persist(context.WithoutCancel(ctx), sessionID); err != nil {
		m.logger.Error("Failed to persist session", "session_id", sessionID, "err", err)
		return transcript, err
	}
	return transcript, nil
}

// persist saves the current transcript of a live session.
func (m *Manager) persist(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.sessMu.Lock()
		l, ok := m.sessions[sessionID]
		m.sessMu.Unlock()
		if !ok {
			// Deleted while evaluating.
			return nil
		}

		record := &domain.Record{
			ID:         sessionID,
			Engine:     m.engine,
			Transcript: l.session.Transcript(),
			CreatedAt:  l.createdAt,
			UpdatedAt:  time.Now().UTC(),
		}
		if err := m.store.Save(ctx, sessionID, record); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

// Transcript returns the history of session id without opening it.
func (m *Manager) Transcript(ctx context.Context, sessionID string) (domain.Transcript, error) {
	if sessionID == "" {
		return nil, domain.ErrEmptySessionID
	}

	m.sessMu.Lock()
	l, ok := m.sessions[sessionID]
	m.sessMu.Unlock()
	if ok {
		return l.session.Transcript(), nil
	}

	var record *domain.Record
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		record, err = m.store.Load(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record.Transcript.Clone(), nil
}

// Delete drops the live session, if any, and removes it from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.sessMu.Lock()
		l, ok := m.sessions[sessionID]
		delete(m.sessions, sessionID)
		m.sessMu.Unlock()
		if ok {
			closeEvaluator(l.eval)
		}
		return m.store.Delete(ctx, sessionID)
	})
}

// List returns the stored session IDs in lexical order.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Store returns the underlying transcript store.
func (m *Manager) Store() ports.TranscriptStore {
	return m.store
}

// Close releases every live evaluator that holds resources.
func (m *Manager) Close() error {
	m.sessMu.Lock()
	defer m.sessMu.Unlock()

	var errs []error
	for id, l := range m.sessions {
		if err := closeEvaluator(l.eval); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
		delete(m.sessions, id)
	}
	return errors.Join(errs...)
}

func closeEvaluator(eval ports.Evaluator) error {
	if c, ok := eval.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Bind returns a Handle that submits to a single session.
func (m *Manager) Bind(sessionID string) *Handle {
	return &Handle{manager: m, id: sessionID}
}

// Handle is a Manager bound to one session ID.
type Handle struct {
	manager *Manager
	id      string
}

// ID returns the bound session ID.
func (h *Handle) ID() string { return h.id }

// Submit submits text to the bound session.
func (h *Handle) Submit(ctx context.Context, text string) (domain.Transcript, error) {
	return h.manager.Submit(ctx, h.id, text)
}

// Transcript returns the bound session's history.
func (h *Handle) Transcript(ctx context.Context) (domain.Transcript, error) {
	return h.manager.Transcript(ctx, h.id)
}
