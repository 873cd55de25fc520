// Package slogobs provides an observability.Provider backed by log/slog.
// It supports structured tracing, in-memory counters and levelled logging
// through a Handler that emits compact, pretty or JSON output.
// The main entry point is [New]; output format and log level can be tuned with
// [WithFormat], [WithLevel], [WithOutput], [WithColors] and [WithLogger], or
// through the SEQUENCER_LOG_FORMAT and SEQUENCER_LOG_LEVEL variables.
package slogobs
