package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/leofalp/sequencer/core/protocol"
)

// ErrMalformedFrame is returned by ParseFrame when a data frame does not hold
// a JSON object.
var ErrMalformedFrame = errors.New("malformed frame")

var frameDelimiter = []byte(protocol.FrameDelimiter)

// FrameBuffer accumulates raw stream bytes and splits them into complete
// frames. Bytes after the last delimiter stay pending until more data
// arrives; a frame may span any number of chunks, including a split in the
// middle of a multi-byte character.
type FrameBuffer struct {
	pending []byte
}

// Push appends chunk and returns every frame completed by it, in order.
func (f *FrameBuffer) Push(chunk []byte) []string {
	f.pending = append(f.pending, chunk...)

	var frames []string
	for {
		index := bytes.Index(f.pending, frameDelimiter)
		if index < 0 {
			break
		}
		frames = append(frames, string(f.pending[:index]))
		f.pending = f.pending[index+len(frameDelimiter):]
	}
	if len(f.pending) == 0 {
		f.pending = nil
	}
	return frames
}

// Pending returns the number of buffered bytes not yet part of a frame.
func (f *FrameBuffer) Pending() int {
	return len(f.pending)
}

// Reset discards any partial frame.
func (f *FrameBuffer) Reset() {
	f.pending = nil
}

// ParseFrame decodes one raw frame. Frames that do not start with "data:" or
// carry an empty payload are not data frames and return ok == false without
// error. A payload that is not a JSON object yields ErrMalformedFrame.
func ParseFrame(raw string) (frame protocol.Frame, ok bool, err error) {
	payload, found := strings.CutPrefix(raw, protocol.FramePrefix)
	if !found || payload == "" {
		return protocol.Frame{}, false, nil
	}
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return protocol.Frame{}, false, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return frame, true, nil
}
