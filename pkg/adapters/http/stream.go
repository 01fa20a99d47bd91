package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/ratlab/pkg/domain"
)

// streamBuffer is the per-subscriber backlog before entries are dropped.
const streamBuffer = 32

// StreamManager fans transcript entries out to SSE subscribers.
// Publish has the shape of a session manager entry observer.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.TranscriptEntry]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty stream manager. A nil logger discards.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan domain.TranscriptEntry]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for sessionID. The returned func unsubscribes
// and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan domain.TranscriptEntry, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan domain.TranscriptEntry, streamBuffer)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan domain.TranscriptEntry]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Publish delivers entry to every subscriber of sessionID without blocking.
func (sm *StreamManager) Publish(sessionID string, entry domain.TranscriptEntry) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- entry:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping entry", "session_id", sessionID)
		}
	}
}

// Subscribers returns the number of live subscriptions for sessionID.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

func encodeEntry(e domain.TranscriptEntry) string {
	b, _ := json.Marshal(e)
	return string(b)
}
