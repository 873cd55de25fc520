package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/leofalp/sequencer/core/protocol"
	"github.com/leofalp/sequencer/providers/observability"
)

// Prefixes of synthesized system turns.
const (
	InfoPrefix  = "[INFO] "
	ErrorPrefix = "[ERROR] "
)

// StreamState is the chat history while a reply is streaming. When Live is
// set, the last turn is the model turn receiving text and system turns are
// inserted right before it.
type StreamState struct {
	Turns []Turn
	Live  bool
}

// NewStreamState returns a live state whose last turn is an empty model turn
// appended after turns.
func NewStreamState(turns []Turn) StreamState {
	live := append(cloneTurns(turns), ModelTurn(""))
	return StreamState{Turns: live, Live: true}
}

// Apply returns the state after one frame. The input state is not modified.
//
// Text is appended to the last turn only if it is a non-system model turn.
// Info and error frames become "[INFO] x" / "[ERROR] x" system turns, spliced
// before the live turn when the state is live and ends with a non-system model
// turn, and appended otherwise. Empty frames leave the
// state unchanged.
func Apply(state StreamState, frame protocol.Frame) StreamState {
	turns := cloneTurns(state.Turns)
	next := StreamState{Turns: turns, Live: state.Live && len(turns) > 0}

	switch {
	case frame.Text != "":
		if last := len(turns) - 1; last >= 0 && turns[last].IsLiveCandidate() {
			turns[last].Text += frame.Text
		}
	case frame.Info != "" || frame.Error != "":
		text := ErrorPrefix + frame.Error
		if frame.Info != "" {
			text = InfoPrefix + frame.Info
		}
		next.Turns = insertSystemTurn(turns, SystemTurn(text), next.Live)
	}
	return next
}

func insertSystemTurn(turns []Turn, system Turn, live bool) []Turn {
	last := len(turns) - 1
	if !live || last < 0 || !turns[last].IsLiveCandidate() {
		return append(turns, system)
	}
	spliced := make([]Turn, 0, len(turns)+1)
	spliced = append(spliced, turns[:last]...)
	spliced = append(spliced, system, turns[last])
	return spliced
}

// Reassembler turns a chunked frame stream into successive StreamStates. It
// is not safe for concurrent use; a single consumer drives it.
type Reassembler struct {
	state    StreamState
	buffer   FrameBuffer
	onUpdate func(StreamState)
	applied  int
	skipped  int
}

// NewReassembler starts from initial. onUpdate, if not nil, is called after
// every frame that was applied.
func NewReassembler(initial StreamState, onUpdate func(StreamState)) *Reassembler {
	return &Reassembler{state: initial, onUpdate: onUpdate}
}

// Feed processes one chunk of stream bytes.
func (r *Reassembler) Feed(ctx context.Context, chunk []byte) {
	for _, raw := range r.buffer.Push(chunk) {
		frame, ok, err := ParseFrame(raw)
		if err != nil {
			r.skipped++
			if span := observability.SpanFromContext(ctx); span != nil {
				span.AddEvent(observability.EventChatFrameSkipped, observability.Error(err))
			}
			if observer := observability.ObserverFromContext(ctx); observer != nil {
				observer.Debug(ctx, "Skipping malformed stream frame", observability.Error(err))
			}
			continue
		}
		if !ok {
			continue
		}
		r.state = Apply(r.state, frame)
		r.applied++
		if r.onUpdate != nil {
			r.onUpdate(r.state)
		}
	}
}

// Consume reads reader until EOF, feeding every chunk. It returns the context
// error if ctx ends first, or a wrapped read error; a clean EOF returns nil.
func (r *Reassembler) Consume(ctx context.Context, reader io.Reader) error {
	chunk := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		read, err := reader.Read(chunk)
		if read > 0 {
			r.Feed(ctx, chunk[:read])
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("read stream: %w", err)
		}
	}
}

// Finish ends the stream: any partial frame is discarded and the live turn
// becomes an ordinary model turn.
func (r *Reassembler) Finish() StreamState {
	r.buffer.Reset()
	r.state.Live = false
	return r.state
}

// Fail ends the stream with an "[ERROR] message" turn appended after the
// partial reply.
func (r *Reassembler) Fail(message string) StreamState {
	r.Finish()
	r.state = Apply(r.state, protocol.ErrorFrame(message))
	if r.onUpdate != nil {
		r.onUpdate(r.state)
	}
	return r.state
}

// State returns the current state.
func (r *Reassembler) State() StreamState {
	return r.state
}

// Applied returns how many frames changed or could have changed the state.
func (r *Reassembler) Applied() int {
	return r.applied
}

// Skipped returns how many malformed frames were dropped.
func (r *Reassembler) Skipped() int {
	return r.skipped
}
