package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/leofalp/sequencer/core/protocol"
	"github.com/leofalp/sequencer/internal/utils"
	"github.com/leofalp/sequencer/providers/observability"
)

// ErrBusy is returned by Send while a previous reply is still streaming.
var ErrBusy = errors.New("chat: a reply is already streaming")

// Streamer opens a chat stream. The returned body yields raw frame bytes and
// must be closed by the caller.
type Streamer interface {
	StartChatStream(ctx context.Context, request protocol.ChatStreamRequest) (io.ReadCloser, error)
}

// TranscriptRecorder persists the turns produced by one exchange.
type TranscriptRecorder interface {
	AppendTurns(ctx context.Context, sessionID string, turns ...Turn) error
}

// Session is a streaming chat conversation. Send calls are serialized by a
// busy flag: at most one reply streams at a time.
type Session struct {
	id       string
	streamer Streamer
	recorder TranscriptRecorder
	onUpdate func([]Turn)

	mu    sync.Mutex
	model string
	turns []Turn

	busy atomic.Bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithModel selects the model sent with every request.
func WithModel(model string) SessionOption {
	return func(session *Session) {
		session.model = model
	}
}

// WithSessionID overrides the generated session id, e.g. to resume a
// recorded transcript.
func WithSessionID(id string) SessionOption {
	return func(session *Session) {
		session.id = id
	}
}

// WithHistory seeds the conversation with prior turns.
func WithHistory(turns []Turn) SessionOption {
	return func(session *Session) {
		session.turns = cloneTurns(turns)
	}
}

// WithRecorder records every exchange once its stream ends.
func WithRecorder(recorder TranscriptRecorder) SessionOption {
	return func(session *Session) {
		session.recorder = recorder
	}
}

// WithOnUpdate registers a callback invoked with a copy of the history each
// time it changes. It runs on the goroutine calling Send.
func WithOnUpdate(onUpdate func([]Turn)) SessionOption {
	return func(session *Session) {
		session.onUpdate = onUpdate
	}
}

// NewSession creates a session that streams replies through streamer.
func NewSession(streamer Streamer, opts ...SessionOption) *Session {
	session := &Session{
		id:       uuid.NewString(),
		streamer: streamer,
		model:    protocol.DefaultChatModel,
		turns:    []Turn{},
	}
	for _, opt := range opts {
		opt(session)
	}
	return session
}

// ID returns the session id used for transcripts.
func (s *Session) ID() string {
	return s.id
}

// Model returns the model currently selected.
func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// SetModel changes the model used by the next Send.
func (s *Session) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
}

// Turns returns a copy of the history.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTurns(s.turns)
}

// Busy reports whether a reply is streaming.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Reset clears the history. It fails with ErrBusy while a reply streams.
func (s *Session) Reset() error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	s.setTurns([]Turn{})
	return nil
}

// Send submits text and streams the reply into the history.
//
// Whitespace-only text is ignored. The history sent with the request is the
// one before the new user turn. A transport failure appends a single
// "[ERROR] Failed to fetch stream: ..." turn; cancelling ctx keeps the partial
// reply and appends "[ERROR] Stream interrupted: ...". In both cases the error
// is also returned.
func (s *Session) Send(ctx context.Context, text string) (err error) {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	snapshot := cloneTurns(s.turns)
	model := s.model
	s.mu.Unlock()

	ctx, span := observability.StartSpan(ctx, observability.SpanChatSend,
		observability.String(observability.AttrChatSessionID, s.id),
		observability.String(observability.AttrLLMModel, model),
		observability.Int(observability.AttrChatHistoryLength, len(snapshot)),
	)
	defer func() { observability.EndSpan(span, err) }()
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Counter(observability.MetricChatSendCount).Add(ctx, 1,
			observability.String(observability.AttrLLMModel, model))
	}

	reassembler := NewReassembler(NewStreamState(append(snapshot, UserTurn(text))), func(state StreamState) {
		s.setTurns(state.Turns)
	})
	s.setTurns(reassembler.State().Turns)
	defer s.record(ctx, len(snapshot), reassembler)

	request := protocol.ChatStreamRequest{
		Message: text,
		History: ToHistory(snapshot),
		Model:   model,
	}
	body, err := s.streamer.StartChatStream(ctx, request)
	if err != nil {
		reassembler.Fail("Failed to fetch stream: " + err.Error())
		return fmt.Errorf("start chat stream: %w", err)
	}
	defer utils.CloseWithLog(body)

	consumeErr := reassembler.Consume(ctx, body)
	if span != nil {
		span.SetAttributes(
			observability.Int(observability.AttrChatFrames, reassembler.Applied()),
			observability.Int(observability.AttrChatSkippedFrames, reassembler.Skipped()),
		)
	}
	switch {
	case consumeErr == nil:
		s.setTurns(reassembler.Finish().Turns)
		return nil
	case ctx.Err() != nil:
		reassembler.Fail("Stream interrupted: " + consumeErr.Error())
		return fmt.Errorf("chat stream interrupted: %w", consumeErr)
	default:
		reassembler.Fail("Failed to fetch stream: " + consumeErr.Error())
		return consumeErr
	}
}

func (s *Session) setTurns(turns []Turn) {
	s.mu.Lock()
	s.turns = cloneTurns(turns)
	snapshot := cloneTurns(s.turns)
	s.mu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(snapshot)
	}
}

// record hands the turns added since start to the recorder. Recording
// failures are logged, never returned.
func (s *Session) record(ctx context.Context, start int, reassembler *Reassembler) {
	if s.recorder == nil {
		return
	}
	turns := reassembler.State().Turns
	if start > len(turns) {
		return
	}
	added := cloneTurns(turns[start:])

	recordCtx := context.WithoutCancel(ctx)
	if err := s.recorder.AppendTurns(recordCtx, s.id, added...); err != nil {
		if observer := observability.ObserverFromContext(ctx); observer != nil {
			observer.Warn(recordCtx, "Failed to record chat transcript",
				observability.String(observability.AttrChatSessionID, s.id),
				observability.Error(err),
			)
		}
	}
}
