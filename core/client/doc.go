// Package client is the HTTP client of the execution service. It posts graph
// run requests, opens chat streams and wraps both in a middleware chain
// (timeouts, logging, observability).
//
// The primary entry point is [New]. Non-2xx replies and connection failures
// surface as [*TransportError]; a run reply carrying an error message is a
// normal response.
package client
