package middleware

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/leofalp/sequencer/core/protocol"
)

// ========== Helpers ==========

func blockingRun(ctx context.Context, _ protocol.RunRequest) (*protocol.RunResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// ========== Run ==========

func TestTimeout_Run_ExceedsDeadline_ReturnsDeadlineExceeded(t *testing.T) {
	run := NewTimeoutMiddleware(10 * time.Millisecond).Run(blockingRun)

	_, err := run(context.Background(), protocol.RunRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestTimeout_Run_FastCall_Succeeds(t *testing.T) {
	run := NewTimeoutMiddleware(time.Second).Run(func(ctx context.Context, _ protocol.RunRequest) (*protocol.RunResponse, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected a deadline on the context")
		}
		return &protocol.RunResponse{Outputs: map[string]string{"1": ""}}, nil
	})

	response, err := run(context.Background(), protocol.RunRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(response.Outputs) != 1 {
		t.Errorf("outputs = %v", response.Outputs)
	}
}

func TestTimeout_Run_ShorterCallerDeadlineWins(t *testing.T) {
	run := NewTimeoutMiddleware(time.Hour).Run(blockingRun)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := run(ctx, protocol.RunRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("caller deadline was not honored")
	}
}

// ========== Stream ==========

func TestTimeout_Stream_ContextLivesUntilBodyClosed(t *testing.T) {
	var streamCtx context.Context
	stream := NewTimeoutMiddleware(time.Hour).Stream(func(ctx context.Context, _ protocol.ChatStreamRequest) (io.ReadCloser, error) {
		streamCtx = ctx
		return io.NopCloser(strings.NewReader("data: {}\n\n")), nil
	})

	body, err := stream(context.Background(), protocol.ChatStreamRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if streamCtx.Err() != nil {
		t.Fatalf("stream context canceled before close: %v", streamCtx.Err())
	}
	if _, err := io.ReadAll(body); err != nil {
		t.Fatalf("read: %v", err)
	}

	_ = body.Close()
	if !errors.Is(streamCtx.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled after close, got %v", streamCtx.Err())
	}
}

func TestTimeout_Stream_OpenError_CancelsContext(t *testing.T) {
	var streamCtx context.Context
	openErr := errors.New("connection refused")
	stream := NewTimeoutMiddleware(time.Hour).Stream(func(ctx context.Context, _ protocol.ChatStreamRequest) (io.ReadCloser, error) {
		streamCtx = ctx
		return nil, openErr
	})

	_, err := stream(context.Background(), protocol.ChatStreamRequest{})
	if !errors.Is(err, openErr) {
		t.Fatalf("expected open error, got %v", err)
	}
	if streamCtx.Err() == nil {
		t.Error("expected the stream context to be canceled")
	}
}
