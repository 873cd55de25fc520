// Package protocol defines the wire contract between the sequencer client and
// the execution service: the run and chat request/response bodies, the chat
// stream frame encoding and the supported model identifiers.
package protocol
