// Package observability defines the interfaces and semantic conventions used
// for tracing, metrics and structured logging across the sequencer.
//
// The central entry point is [Provider], which composes [Tracer], [Metrics],
// and [Logger] into a single injectable dependency. Callers propagate an active
// [Provider] and [Span] through a [context.Context] using [ContextWithObserver]
// and [ContextWithSpan]; they can be retrieved with [ObserverFromContext] and
// [SpanFromContext]. [StartSpan] and [EndSpan] cover the common
// start/record/end sequence and do nothing when no observer is present.
//
// The semconv.go file holds the attribute keys, span names, event names and
// metric names used when recording observations.
package observability
