// Package ai defines the provider-agnostic types and interfaces used to reach
// an LLM backend. Each provider's conversion layer maps these types to its own
// wire format, keeping the executor and the chat endpoint decoupled from
// provider-specific details.
//
// [Provider] executes a single prompt ([GenerateRequest] in,
// [GenerateResponse] out). [StreamProvider] adds multi-turn streaming chat:
// a [ChatRequest] produces a [ChatStream] of [StreamEvent] deltas.
//
// Backend failures are classified with [ClassifyError] so callers can branch
// on [ErrRateLimited], [ErrModelNotFound] and [ErrGeneration] with errors.Is.
package ai
