package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/leofalp/sequencer/core/protocol"
)

type fakeStreamer struct {
	mu       sync.Mutex
	requests []protocol.ChatStreamRequest
	open     func(ctx context.Context) (io.ReadCloser, error)
}

func (f *fakeStreamer) StartChatStream(ctx context.Context, request protocol.ChatStreamRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	f.requests = append(f.requests, request)
	f.mu.Unlock()
	return f.open(ctx)
}

func staticStream(body string) func(context.Context) (io.ReadCloser, error) {
	return func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}
}

type recordedTurns struct {
	mu        sync.Mutex
	sessionID string
	turns     []Turn
	err       error
}

func (r *recordedTurns) AppendTurns(_ context.Context, sessionID string, turns ...Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionID = sessionID
	r.turns = append(r.turns, turns...)
	return r.err
}

func TestSession_Send_StreamsReplyAndSendsPriorHistory(t *testing.T) {
	streamer := &fakeStreamer{open: staticStream(
		"data: {\"info\":\"Rate limit for gemini-2.5-pro, falling back...\"}\n\ndata: {\"text\":\"Hel\"}\n\ndata: {\"text\":\"lo\"}\n\n",
	)}
	prior := []Turn{UserTurn("first"), ModelTurn("reply"), SystemTurn("[INFO] old notice")}
	session := NewSession(streamer, WithModel(protocol.ModelGeminiPro), WithHistory(prior))

	if err := session.Send(context.Background(), "second"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := append(append([]Turn{}, prior...),
		UserTurn("second"),
		SystemTurn("[INFO] Rate limit for gemini-2.5-pro, falling back..."),
		ModelTurn("Hello"),
	)
	if diff := cmp.Diff(want, session.Turns()); diff != "" {
		t.Errorf("turns mismatch (-want +got):\n%s", diff)
	}

	if len(streamer.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(streamer.requests))
	}
	request := streamer.requests[0]
	if request.Message != "second" || request.Model != protocol.ModelGeminiPro {
		t.Errorf("unexpected request: %+v", request)
	}
	if diff := cmp.Diff(ToHistory(prior), request.History); diff != "" {
		t.Errorf("history must be the snapshot before the new turn (-want +got):\n%s", diff)
	}
}

func TestSession_Send_BlankTextIsNoOp(t *testing.T) {
	streamer := &fakeStreamer{open: staticStream("")}
	session := NewSession(streamer)

	if err := session.Send(context.Background(), "  \n\t"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(streamer.requests) != 0 || len(session.Turns()) != 0 {
		t.Errorf("blank text must not send or change history")
	}
}

func TestSession_Send_WhileStreaming_ReturnsErrBusy(t *testing.T) {
	reader, writer := io.Pipe()
	opened := make(chan struct{})
	streamer := &fakeStreamer{open: func(context.Context) (io.ReadCloser, error) {
		close(opened)
		return reader, nil
	}}
	session := NewSession(streamer)

	done := make(chan error, 1)
	go func() { done <- session.Send(context.Background(), "slow") }()
	<-opened

	if err := session.Send(context.Background(), "impatient"); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if err := session.Reset(); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy from Reset, got %v", err)
	}
	if !session.Busy() {
		t.Error("session should report busy while streaming")
	}

	_, _ = io.WriteString(writer, "data: {\"text\":\"done\"}\n\n")
	_ = writer.Close()
	if err := <-done; err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if session.Busy() {
		t.Error("busy flag must be released")
	}
	if len(streamer.requests) != 1 {
		t.Errorf("the busy send must not reach the streamer, got %d requests", len(streamer.requests))
	}
	if diff := cmp.Diff([]Turn{UserTurn("slow"), ModelTurn("done")}, session.Turns()); diff != "" {
		t.Errorf("turns mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_Send_TransportFailure_AppendsOneErrorTurn(t *testing.T) {
	streamer := &fakeStreamer{open: func(context.Context) (io.ReadCloser, error) {
		return nil, errors.New("HTTP error! status: 500")
	}}
	session := NewSession(streamer)

	err := session.Send(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected an error")
	}

	want := []Turn{UserTurn("hi"), ModelTurn(""), SystemTurn("[ERROR] Failed to fetch stream: HTTP error! status: 500")}
	if diff := cmp.Diff(want, session.Turns()); diff != "" {
		t.Errorf("turns mismatch (-want +got):\n%s", diff)
	}
	if session.Busy() {
		t.Error("busy flag must be released after a failure")
	}
}

func TestSession_Send_Canceled_KeepsPartialReply(t *testing.T) {
	reader, writer := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	streamer := &fakeStreamer{open: func(ctx context.Context) (io.ReadCloser, error) {
		go func() {
			<-ctx.Done()
			_ = writer.CloseWithError(ctx.Err())
		}()
		return reader, nil
	}}

	firstChunk := make(chan struct{})
	var once sync.Once
	session := NewSession(streamer, WithOnUpdate(func(turns []Turn) {
		if turns[len(turns)-1].Text == "partial" {
			once.Do(func() { close(firstChunk) })
		}
	}))

	done := make(chan error, 1)
	go func() { done <- session.Send(ctx, "long question") }()

	_, _ = io.WriteString(writer, "data: {\"text\":\"partial\"}\n\n")
	select {
	case <-firstChunk:
	case <-time.After(5 * time.Second):
		t.Fatal("first chunk never applied")
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	want := []Turn{UserTurn("long question"), ModelTurn("partial"), SystemTurn("[ERROR] Stream interrupted: context canceled")}
	if diff := cmp.Diff(want, session.Turns()); diff != "" {
		t.Errorf("turns mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_Send_RecordsNewTurns(t *testing.T) {
	streamer := &fakeStreamer{open: staticStream("data: {\"text\":\"pong\"}\n\n")}
	recorder := &recordedTurns{err: errors.New("disk full")}
	session := NewSession(streamer, WithSessionID("s-1"), WithHistory([]Turn{UserTurn("old")}), WithRecorder(recorder))

	if err := session.Send(context.Background(), "ping"); err != nil {
		t.Fatalf("recording failures must not fail Send: %v", err)
	}
	if recorder.sessionID != "s-1" {
		t.Errorf("sessionID = %q", recorder.sessionID)
	}
	if diff := cmp.Diff([]Turn{UserTurn("ping"), ModelTurn("pong")}, recorder.turns); diff != "" {
		t.Errorf("recorded turns mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_TurnsAndReset(t *testing.T) {
	session := NewSession(&fakeStreamer{}, WithHistory([]Turn{UserTurn("a")}))
	turns := session.Turns()
	turns[0].Text = "mutated"
	if session.Turns()[0].Text != "a" {
		t.Error("Turns must return a copy")
	}

	if err := session.Reset(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(session.Turns()) != 0 {
		t.Error("Reset should clear history")
	}
	if session.ID() == "" {
		t.Error("expected a generated session id")
	}
	session.SetModel(protocol.ModelGeminiFlashLite)
	if session.Model() != protocol.ModelGeminiFlashLite {
		t.Errorf("Model = %q", session.Model())
	}
}

func TestToHistoryFromHistory(t *testing.T) {
	turns := []Turn{UserTurn("q"), SystemTurn("[INFO] n"), ModelTurn("a")}
	if diff := cmp.Diff(turns, FromHistory(ToHistory(turns))); diff != "" {
		t.Errorf("conversion mismatch (-want +got):\n%s", diff)
	}
}
