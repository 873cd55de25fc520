package editor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/leofalp/sequencer/core/graph"
	"github.com/leofalp/sequencer/core/protocol"
)

// ========== Helpers ==========

type fakeRunner struct {
	response *protocol.RunResponse
	err      error
	started  chan struct{}
	release  chan struct{}
	requests []protocol.RunRequest
}

func (f *fakeRunner) RunGraph(ctx context.Context, request protocol.RunRequest) (*protocol.RunResponse, error) {
	f.requests = append(f.requests, request)
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.response, f.err
}

func newGraph(t *testing.T) *graph.Model {
	t.Helper()
	model := graph.NewModel()
	input, err := model.AddNode(graph.KindUserInput, graph.NodeInit{Data: &graph.UserInputData{Ticker: "GOOG"}})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	prompt, err := model.AddNode(graph.KindPrompt, graph.NodeInit{Name: "Summary", Data: &graph.PromptData{Prompt: "about {{ticker}}"}})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	model.AddEdge(input.ID, graph.HandleTicker, prompt.ID)
	return model
}

func output(t *testing.T, model *graph.Model, nodeID string) string {
	t.Helper()
	node, ok := model.Node(nodeID)
	if !ok {
		t.Fatalf("node %s missing", nodeID)
	}
	return node.Output
}

// ========== Run ==========

func TestRun_Success_MergesOutputs(t *testing.T) {
	runner := &fakeRunner{response: &protocol.RunResponse{
		Outputs:   map[string]string{"1": "", "2": "summary", "99": "ghost"},
		ModelUsed: protocol.ModelGeminiPro,
	}}
	editor := New(runner, WithGraph(newGraph(t)))

	result, err := editor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Merged != 2 {
		t.Errorf("Merged = %d, want 2", result.Merged)
	}
	if got := output(t, editor.Graph(), "2"); got != "summary" {
		t.Errorf("output = %q", got)
	}

	request := runner.requests[0]
	if request.Model != protocol.DefaultRunModel {
		t.Errorf("model = %q", request.Model)
	}
	if len(request.Nodes) != 2 || len(request.Edges) != 1 {
		t.Errorf("request = %+v", request)
	}
}

func TestRun_ErrorReply_ReturnsRunErrorAndKeepsPriorOutputs(t *testing.T) {
	runner := &fakeRunner{response: &protocol.RunResponse{Error: "Rate limit exceeded for model gemini-2.5-pro."}}
	model := newGraph(t)
	model.MergeOutputs(map[string]string{"2": "previous"})
	editor := New(runner, WithGraph(model))

	_, err := editor.Run(context.Background())

	var runError *RunError
	if !errors.As(err, &runError) {
		t.Fatalf("err = %v, want *RunError", err)
	}
	if runError.Message != "Rate limit exceeded for model gemini-2.5-pro." {
		t.Errorf("Message = %q", runError.Message)
	}
	if got := output(t, editor.Graph(), "2"); got != "previous" {
		t.Errorf("output = %q, want the previous output kept", got)
	}
}

func TestRun_TransportError_WrappedAndKeepsPriorOutputs(t *testing.T) {
	cause := errors.New("connection refused")
	model := newGraph(t)
	model.MergeOutputs(map[string]string{"2": "previous"})
	editor := New(&fakeRunner{err: cause}, WithGraph(model))

	_, err := editor.Run(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
	if got := output(t, editor.Graph(), "2"); got != "previous" {
		t.Errorf("output = %q, want the previous output kept", got)
	}
	if editor.Busy() {
		t.Error("busy flag should be released")
	}
}

func TestRun_WhileBusy_ReturnsErrBusy(t *testing.T) {
	runner := &fakeRunner{
		response: &protocol.RunResponse{Outputs: map[string]string{"2": "done"}},
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	editor := New(runner, WithGraph(newGraph(t)))

	done := make(chan error, 1)
	go func() {
		_, err := editor.Run(context.Background())
		done <- err
	}()
	<-runner.started

	if _, err := editor.Run(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Run err = %v, want ErrBusy", err)
	}

	close(runner.release)
	if err := <-done; err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if len(runner.requests) != 1 {
		t.Errorf("requests = %d, want 1", len(runner.requests))
	}
	if editor.Busy() {
		t.Error("busy flag should be released")
	}
}

func TestRun_UsesSelectedModel(t *testing.T) {
	runner := &fakeRunner{response: &protocol.RunResponse{}}
	editor := New(runner)

	if err := editor.SetModel(protocol.ModelGeminiFlashLite); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	if _, err := editor.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if runner.requests[0].Model != protocol.ModelGeminiFlashLite {
		t.Errorf("model = %q", runner.requests[0].Model)
	}
}

func TestSetModel_Unknown_KeepsPrevious(t *testing.T) {
	editor := New(&fakeRunner{}, WithModelID(protocol.ModelGeminiFlash))

	if err := editor.SetModel("gpt-4"); !errors.Is(err, protocol.ErrUnknownModel) {
		t.Fatalf("err = %v, want ErrUnknownModel", err)
	}
	if editor.ModelID() != protocol.ModelGeminiFlash {
		t.Errorf("ModelID = %q", editor.ModelID())
	}
}

// ========== Files ==========

func TestSaveAndLoadFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setup.json")
	model := newGraph(t)
	model.MergeOutputs(map[string]string{"2": "transient"})
	source := New(&fakeRunner{}, WithGraph(model))

	if err := source.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	target := New(&fakeRunner{})
	if err := target.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if diff := cmp.Diff(graph.Save(model), graph.Save(target.Graph())); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
	if got := output(t, target.Graph(), "2"); got != "" {
		t.Errorf("output should not be persisted, got %q", got)
	}
}

func TestLoadFile_Invalid_KeepsCurrentGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte(`{"nodes": []}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	model := newGraph(t)
	editor := New(&fakeRunner{}, WithGraph(model))

	err := editor.LoadFile(path)
	if !graph.IsFormatError(err) {
		t.Fatalf("err = %v, want FormatError", err)
	}
	if editor.Graph() != model {
		t.Error("graph should be untouched after a failed load")
	}
}

func TestConnectedInputs(t *testing.T) {
	editor := New(&fakeRunner{}, WithGraph(newGraph(t)))

	inputs := editor.ConnectedInputs("2")
	if len(inputs) != 1 || inputs[0].Token != "{{ticker}}" || inputs[0].SourceName != "User Input" {
		t.Errorf("inputs = %+v", inputs)
	}
}
