package memory

import (
	"context"

	"github.com/leofalp/sequencer/core/chat"
)

// Provider stores chat transcripts keyed by session id.
type Provider interface {
	// AppendTurns adds turns at the end of the session's transcript.
	AppendTurns(ctx context.Context, sessionID string, turns ...chat.Turn) error

	// Turns returns the session's transcript in insertion order. An unknown
	// session yields an empty, non-nil slice.
	Turns(ctx context.Context, sessionID string) ([]chat.Turn, error)

	// Clear removes every turn of the session.
	Clear(ctx context.Context, sessionID string) error
}

var _ chat.TranscriptRecorder = Provider(nil)
