package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/leofalp/sequencer/core/graph"
	"github.com/leofalp/sequencer/core/protocol"
	"github.com/leofalp/sequencer/providers/observability"
)

// ErrBusy is returned by Run while a previous run is outstanding.
var ErrBusy = errors.New("editor: a run is already in progress")

// RunError carries the message of an {error} reply from the execution
// service. Nothing is merged when it is returned.
type RunError struct {
	Message string
}

func (r *RunError) Error() string {
	return "run failed: " + r.Message
}

// Runner executes a graph on the execution service. *client.Client
// satisfies it.
type Runner interface {
	RunGraph(ctx context.Context, request protocol.RunRequest) (*protocol.RunResponse, error)
}

// RunResult reports a successful run.
type RunResult struct {
	ModelUsed string
	Outputs   map[string]string
	// Merged is the number of outputs written into nodes of the model.
	Merged int
}

// Editor owns the graph being edited, the selected model id and the run busy
// flag.
type Editor struct {
	runner Runner

	mu      sync.Mutex
	model   *graph.Model
	modelID string

	busy atomic.Bool
}

// Option configures an Editor.
type Option func(*Editor)

// WithGraph starts the editor on an existing model.
func WithGraph(model *graph.Model) Option {
	return func(editor *Editor) {
		editor.model = model
	}
}

// WithModelID selects the model id sent with runs.
func WithModelID(modelID string) Option {
	return func(editor *Editor) {
		editor.modelID = modelID
	}
}

// New creates an editor on an empty graph using the default run model.
func New(runner Runner, opts ...Option) *Editor {
	editor := &Editor{
		runner:  runner,
		model:   graph.NewModel(),
		modelID: protocol.DefaultRunModel,
	}
	for _, opt := range opts {
		opt(editor)
	}
	return editor
}

// Graph returns the current model.
func (e *Editor) Graph() *graph.Model {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

// ModelID returns the model id used by the next run.
func (e *Editor) ModelID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modelID
}

// SetModel selects the model id used by the next run.
func (e *Editor) SetModel(modelID string) error {
	parsed, err := protocol.ParseModel(modelID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.modelID = parsed
	e.mu.Unlock()
	return nil
}

// Busy reports whether a run is outstanding.
func (e *Editor) Busy() bool {
	return e.busy.Load()
}

// Run sends the current graph to the execution service and merges the
// returned outputs. Outputs are merged only after the full reply arrived and
// only into the model the run started from; a failed run merges nothing.
// A call made while another run is outstanding returns ErrBusy.
func (e *Editor) Run(ctx context.Context) (result *RunResult, err error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer e.busy.Store(false)

	e.mu.Lock()
	model := e.model
	modelID := e.modelID
	e.mu.Unlock()

	request := protocol.NewRunRequest(model, modelID)

	ctx, span := observability.StartSpan(ctx, observability.SpanEditorRun,
		observability.String(observability.AttrLLMModel, modelID),
		observability.Int(observability.AttrGraphNodeCount, len(request.Nodes)),
		observability.Int(observability.AttrGraphEdgeCount, len(request.Edges)),
	)
	defer func() { observability.EndSpan(span, err) }()

	response, err := e.runner.RunGraph(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("run graph: %w", err)
	}
	if response.Error != "" {
		return nil, &RunError{Message: response.Error}
	}

	merged := model.MergeOutputs(response.Outputs)
	if span != nil {
		span.SetAttributes(
			observability.Int(observability.AttrRunOutputs, len(response.Outputs)),
			observability.Int(observability.AttrRunMerged, merged),
		)
	}

	return &RunResult{
		ModelUsed: response.ModelUsed,
		Outputs:   response.Outputs,
		Merged:    merged,
	}, nil
}

// LoadFile replaces the current graph with the document at path. On any
// error the current graph is left untouched.
func (e *Editor) LoadFile(path string, opts ...graph.LoadOption) error {
	model, err := graph.LoadFile(path, opts...)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.model = model
	e.mu.Unlock()
	return nil
}

// SaveFile writes the current graph to path without outputs.
func (e *Editor) SaveFile(path string) error {
	return graph.SaveFile(e.Graph(), path)
}

// ConnectedInputs lists the placeholders available to the prompt of nodeID.
func (e *Editor) ConnectedInputs(nodeID string) []graph.ConnectedInput {
	return graph.ResolveConnectedInputs(e.Graph(), nodeID)
}
