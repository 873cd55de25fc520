// Package middleware provides built-in middlewares for the sequencer client.
// Each constructor returns a [client.MiddlewareConfig] ready to be passed to
// [client.WithMiddleware].
//
// # Available Middleware
//
//   - [NewTimeoutMiddleware]: bounds run requests and whole chat streams with
//     a deadline.
//
//   - [NewLoggingMiddleware]: emits slog entries before and after every
//     request, with three verbosity levels (Minimal, Standard, Verbose).
//
// # Usage
//
//	c, err := client.New("http://localhost:8000",
//	    client.WithMiddleware(
//	        middleware.NewTimeoutMiddleware(2*time.Minute),
//	        middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	    ),
//	)
//
// Middlewares execute outermost-first: a request travels
//
//	Timeout → Logging → HTTP
//
// and the response travels back in reverse.
//
// Failed requests are never retried: a transport failure is reported to the
// user once.
package middleware
