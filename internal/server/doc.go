// Package server is the HTTP execution service behind the editor and the
// chat client.
//
// It serves three routes on a chi router:
//
//   - POST /api/run-sequence-graph runs a prompt graph with a
//     [sequence.Executor] and replies {outputs, model_used} or {error}.
//   - POST /api/chat-stream streams a chat reply as "data: {json}\n\n"
//     frames, walking the model fallback chain on rate limits.
//   - GET /health reports liveness.
//
// Requests pass through request id, panic recovery, logging and CORS
// middleware. Use [New] to build a [Server] and [Server.ListenAndServe] to
// run it until its context is canceled.
package server
