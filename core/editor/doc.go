// Package editor ties a graph being edited to the execution service.
//
// An [Editor] holds the current [graph.Model], the model id used for runs
// and a busy flag that makes a second Run while one is outstanding a no-op
// reported as [ErrBusy]. Outputs of a run are merged into the graph only
// once the whole reply arrived; an {error} reply surfaces as a [*RunError]
// and merges nothing.
package editor
