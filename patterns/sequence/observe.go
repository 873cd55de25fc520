package sequence

import (
	"context"
	"time"

	"github.com/leofalp/sequencer/providers/observability"
)

// runObservation carries the observer and root span of one run. A zero value
// (no observer configured or in context) turns every method into a no-op.
type runObservation struct {
	provider observability.Provider
	span     observability.Span
	model    string
}

// observeRunStart opens the run span and attaches it, with the observer, to
// ctx so provider calls can add their events to it.
func (e *Executor) observeRunStart(ctx *context.Context, nodeCount, edgeCount int, model string) *runObservation {
	provider := e.config.observer
	if provider == nil {
		provider = observability.ObserverFromContext(*ctx)
	}
	if provider == nil {
		return &runObservation{}
	}

	var span observability.Span
	*ctx, span = provider.StartSpan(*ctx, observability.SpanSequenceRun,
		observability.Int(observability.AttrGraphNodeCount, nodeCount),
		observability.Int(observability.AttrGraphEdgeCount, edgeCount),
		observability.String(observability.AttrLLMModel, model),
	)
	*ctx = observability.ContextWithSpan(*ctx, span)
	*ctx = observability.ContextWithObserver(*ctx, provider)

	provider.Info(*ctx, "sequence run started",
		observability.Int(observability.AttrGraphNodeCount, nodeCount),
		observability.Int(observability.AttrGraphEdgeCount, edgeCount),
		observability.String(observability.AttrLLMModel, model),
	)

	return &runObservation{provider: provider, span: span, model: model}
}

func (r *runObservation) levelStart(level, size int) {
	if r.span == nil {
		return
	}
	r.span.AddEvent(observability.EventSequenceLevelStart,
		observability.Int(observability.AttrGraphLevel, level),
		observability.Int(observability.AttrGraphLevelSize, size),
	)
}

func (r *runObservation) completed(ctx context.Context, outputs int, duration time.Duration) {
	if r.provider == nil {
		return
	}

	r.provider.Histogram(observability.MetricRunDuration).Record(ctx, duration.Seconds(),
		observability.String(observability.AttrLLMModel, r.model),
	)
	r.provider.Counter(observability.MetricRunCount).Add(ctx, 1,
		observability.String(observability.AttrStatus, "success"),
	)
	r.provider.Info(ctx, "sequence run completed",
		observability.Int(observability.AttrRunOutputs, outputs),
		observability.Duration(observability.AttrDuration, duration),
	)

	r.span.SetAttributes(observability.Int(observability.AttrRunOutputs, outputs))
	observability.EndSpan(r.span, nil)
}

func (r *runObservation) failed(ctx context.Context, err error, duration time.Duration) {
	if r.provider == nil {
		return
	}

	r.provider.Counter(observability.MetricRunCount).Add(ctx, 1,
		observability.String(observability.AttrStatus, "error"),
	)
	r.provider.Error(ctx, "sequence run failed",
		observability.Error(err),
		observability.Duration(observability.AttrDuration, duration),
	)
	observability.EndSpan(r.span, err)
}

// nodeObservation is the per-node counterpart of runObservation.
type nodeObservation struct {
	provider observability.Provider
	span     observability.Span
	nodeID   string
}

// observeNodeStart opens a child span for one model call.
func (e *Executor) observeNodeStart(ctx *context.Context, nodeID string, level int, grounding bool) *nodeObservation {
	provider := observability.ObserverFromContext(*ctx)
	if provider == nil {
		return &nodeObservation{}
	}

	var span observability.Span
	*ctx, span = provider.StartSpan(*ctx, observability.SpanSequenceNode,
		observability.String(observability.AttrGraphNodeID, nodeID),
		observability.Int(observability.AttrGraphLevel, level),
		observability.Bool(observability.AttrGraphGrounding, grounding),
	)
	*ctx = observability.ContextWithSpan(*ctx, span)

	provider.Debug(*ctx, "node execution started",
		observability.String(observability.AttrGraphNodeID, nodeID),
		observability.Int(observability.AttrGraphLevel, level),
	)

	return &nodeObservation{provider: provider, span: span, nodeID: nodeID}
}

func (n *nodeObservation) completed(ctx context.Context, outputLength int, duration time.Duration) {
	if n.provider == nil {
		return
	}

	n.provider.Histogram(observability.MetricNodeDuration).Record(ctx, duration.Seconds())
	n.provider.Debug(ctx, "node execution completed",
		observability.String(observability.AttrGraphNodeID, n.nodeID),
		observability.Int("run.output_length", outputLength),
		observability.Duration(observability.AttrDuration, duration),
	)
	observability.EndSpan(n.span, nil)
}

func (n *nodeObservation) failed(ctx context.Context, err error, duration time.Duration) {
	if n.provider == nil {
		return
	}

	n.provider.Error(ctx, "node execution failed",
		observability.String(observability.AttrGraphNodeID, n.nodeID),
		observability.Error(err),
		observability.Duration(observability.AttrDuration, duration),
	)
	observability.EndSpan(n.span, err)
}
