package ai

import (
	"iter"
	"strings"
)

// StreamEventType identifies the kind of payload carried by a StreamEvent.
type StreamEventType string

const (
	// StreamEventContent indicates a text content delta.
	StreamEventContent StreamEventType = "content"
	// StreamEventUsage carries token usage metadata (typically the final event).
	StreamEventUsage StreamEventType = "usage"
	// StreamEventDone signals that the stream has finished normally.
	StreamEventDone StreamEventType = "done"
)

// StreamEvent is a single item yielded while a chat reply streams.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Content      string          `json:"content,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// ChatStream wraps a streaming iterator of reply deltas.
//
// Callers must consume the stream, either by ranging over Iter (breaking out
// early is fine) or by calling Collect. The provider may hold an open HTTP
// response body that is only released when the iterator returns.
type ChatStream struct {
	iterator iter.Seq2[StreamEvent, error]
}

// NewChatStream creates a ChatStream from a raw iterator. The iterator yields
// events with a nil error, and may yield a non-nil error once to signal a
// mid-stream failure.
func NewChatStream(iterator iter.Seq2[StreamEvent, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewSingleEventStream wraps a completed response as a stream, for providers
// or tests without incremental delivery.
func NewSingleEventStream(response *GenerateResponse) *ChatStream {
	return NewChatStream(func(yield func(StreamEvent, error) bool) {
		if response.Text != "" {
			if !yield(StreamEvent{Type: StreamEventContent, Content: response.Text}, nil) {
				return
			}
		}
		if response.Usage != nil {
			if !yield(StreamEvent{Type: StreamEventUsage, Usage: response.Usage}, nil) {
				return
			}
		}
		yield(StreamEvent{Type: StreamEventDone, FinishReason: response.FinishReason}, nil)
	})
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
// Example:
//
//	for event, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(event.Content)
//	}
func (c *ChatStream) Iter() iter.Seq2[StreamEvent, error] {
	return c.iterator
}

// Collect consumes the entire stream and returns the accumulated response.
// A mid-stream error stops collection and is returned with the partial
// response.
func (c *ChatStream) Collect() (*GenerateResponse, error) {
	accumulated := &GenerateResponse{}
	var text strings.Builder

	for event, err := range c.iterator {
		if err != nil {
			accumulated.Text = text.String()
			return accumulated, err
		}

		switch event.Type {
		case StreamEventContent:
			text.WriteString(event.Content)
		case StreamEventUsage:
			if event.Usage != nil {
				accumulated.Usage = event.Usage
			}
		case StreamEventDone:
			accumulated.FinishReason = event.FinishReason
		}
	}

	accumulated.Text = text.String()
	return accumulated, nil
}
