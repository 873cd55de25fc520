// Package inmemory provides a concurrency-safe, map-backed implementation
// of the [memory.Provider] interface that keeps chat transcripts in process
// memory. It suits tests and single-process sessions where persistence
// across restarts is not required.
// The main entry point is [New], which returns a ready-to-use [Store].
package inmemory
