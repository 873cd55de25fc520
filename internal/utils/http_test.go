package utils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type echoResponse struct {
	Message string `json:"message"`
}

func TestDoPostSync_Success_DecodesBodyAndSendsHeaders(t *testing.T) {
	var gotAuth, gotKey, gotContentType string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("x-goog-api-key")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"message":"pong"}`))
	}))
	defer server.Close()

	_, output, err := DoPostSync[echoResponse](context.Background(), server.Client(), server.URL, "secret",
		map[string]string{"message": "ping"}, HeaderOption{Key: "x-goog-api-key", Value: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Message != "pong" {
		t.Errorf("Message = %q, want pong", output.Message)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotKey != "k" {
		t.Errorf("x-goog-api-key = %q", gotKey)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody["message"] != "ping" {
		t.Errorf("request body = %v", gotBody)
	}
}

func TestDoPostSync_EmptyAPIKey_OmitsAuthorization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	if _, _, err := DoPostSync[echoResponse](context.Background(), nil, server.URL, "", struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDoPostSync_Non2xx_ReturnsHTTPStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`quota exhausted`))
	}))
	defer server.Close()

	response, output, err := DoPostSync[echoResponse](context.Background(), server.Client(), server.URL, "", struct{}{})
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests || statusErr.Body != "quota exhausted" {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
	if response == nil || output != nil {
		t.Errorf("expected a response and no output, got %v / %v", response, output)
	}
}

func TestDoPostSync_InvalidJSON_IncludesPreview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, _, err := DoPostSync[echoResponse](context.Background(), server.Client(), server.URL, "", struct{}{})
	if err == nil || !strings.Contains(err.Error(), "not json") {
		t.Fatalf("expected a decode error with preview, got %v", err)
	}
}

func TestDoPostSync_ContextCanceled_ReturnsContextError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := DoPostSync[echoResponse](ctx, server.Client(), server.URL, "", struct{}{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestDoPostSync_UnmarshalableBody_Fails(t *testing.T) {
	_, _, err := DoPostSync[echoResponse](context.Background(), nil, "http://unused.invalid", "", make(chan int))
	if err == nil || !strings.Contains(err.Error(), "marshaling") {
		t.Fatalf("expected marshaling error, got %v", err)
	}
}

type failingCloser struct{ closed bool }

func (f *failingCloser) Close() error {
	f.closed = true
	return io.ErrClosedPipe
}

func TestCloseWithLog_ClosesAndSwallowsError(t *testing.T) {
	closer := &failingCloser{}
	CloseWithLog(closer)
	if !closer.closed {
		t.Error("expected Close to be called")
	}
	CloseWithLog(nil)
}
