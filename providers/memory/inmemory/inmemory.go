package inmemory

import (
	"context"
	"sync"

	"github.com/leofalp/sequencer/core/chat"
	"github.com/leofalp/sequencer/providers/memory"
	"github.com/leofalp/sequencer/providers/observability"
)

const backendName = "memory"

// Store is a concurrency-safe in-memory transcript store.
// It uses RWMutex to guard access and is efficient for read-heavy workloads.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]chat.Turn
}

// New returns a new, empty [Store] ready for immediate use.
func New() *Store {
	return &Store{
		sessions: map[string][]chat.Turn{},
	}
}

// Ensure Store implements memory.Provider at compile time.
var _ memory.Provider = (*Store)(nil)

// AppendTurns stores copies of turns at the end of the session's transcript.
// When an observability span is present in ctx, an event is recorded with the
// number of turns written and the transcript length is set as a span
// attribute. The returned error is always nil.
func (s *Store) AppendTurns(ctx context.Context, sessionID string, turns ...chat.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(observability.EventTranscriptAppend,
			observability.String(observability.AttrTranscriptBackend, backendName),
			observability.Int(observability.AttrTranscriptTurns, len(turns)),
		)
	}

	s.mu.Lock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turns...)
	total := len(s.sessions[sessionID])
	s.mu.Unlock()

	if span != nil {
		span.SetAttributes(observability.Int(observability.AttrChatHistoryLength, total))
	}
	return nil
}

// Turns returns a copy of the session's transcript to avoid external
// mutation of internal state. The returned error is always nil.
func (s *Store) Turns(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	out := make([]chat.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Clear drops the session's transcript. The returned error is always nil.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventTranscriptClear,
			observability.String(observability.AttrTranscriptBackend, backendName),
		)
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Sessions returns the number of sessions holding at least one turn.
func (s *Store) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
