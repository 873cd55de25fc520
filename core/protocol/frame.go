package protocol

import (
	"encoding/json"
	"fmt"
	"io"
)

// FrameDelimiter separates frames on the chat stream.
const FrameDelimiter = "\n\n"

// FramePrefix starts every data frame.
const FramePrefix = "data:"

// Frame is one chat stream event. At most one field is meaningful; when more
// than one is set, Text wins over Info, and Info over Error.
type Frame struct {
	Text  string `json:"text,omitempty"`
	Info  string `json:"info,omitempty"`
	Error string `json:"error,omitempty"`
}

// TextFrame carries a chunk of model output.
func TextFrame(text string) Frame { return Frame{Text: text} }

// InfoFrame carries a status notice such as a model fallback.
func InfoFrame(info string) Frame { return Frame{Info: info} }

// ErrorFrame carries a terminal error message.
func ErrorFrame(message string) Frame { return Frame{Error: message} }

// Empty reports whether the frame carries nothing to apply.
func (f Frame) Empty() bool {
	return f.Text == "" && f.Info == "" && f.Error == ""
}

// EncodeFrame renders frame as "data: {json}\n\n".
func EncodeFrame(frame Frame) ([]byte, error) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	encoded := make([]byte, 0, len(payload)+len(FramePrefix)+3)
	encoded = append(encoded, FramePrefix...)
	encoded = append(encoded, ' ')
	encoded = append(encoded, payload...)
	encoded = append(encoded, FrameDelimiter...)
	return encoded, nil
}

// WriteFrame encodes frame and writes it to writer.
func WriteFrame(writer io.Writer, frame Frame) error {
	encoded, err := EncodeFrame(frame)
	if err != nil {
		return err
	}
	if _, err := writer.Write(encoded); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
