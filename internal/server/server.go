package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/leofalp/sequencer/core/protocol"
	"github.com/leofalp/sequencer/patterns/sequence"
	"github.com/leofalp/sequencer/providers/ai"
	"github.com/leofalp/sequencer/providers/observability"
)

// DefaultAllowedOrigins is the CORS allow-list used when none is configured:
// the local development address of the web editor.
var DefaultAllowedOrigins = []string{"http://localhost:5173"}

const shutdownTimeout = 10 * time.Second

// Server is the execution service: it runs prompt graphs and streams chat
// replies over HTTP.
type Server struct {
	executor       *sequence.Executor
	chat           ai.StreamProvider
	observer       observability.Provider
	allowedOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithObserver sets the observability provider used for request logs, spans
// and metrics.
func WithObserver(observer observability.Provider) Option {
	return func(server *Server) {
		server.observer = observer
	}
}

// WithAllowedOrigins replaces the CORS allow-list.
func WithAllowedOrigins(origins ...string) Option {
	return func(server *Server) {
		server.allowedOrigins = origins
	}
}

// New creates a Server running graphs with executor and streaming chat
// replies from chat.
func New(executor *sequence.Executor, chat ai.StreamProvider, opts ...Option) *Server {
	server := &Server{
		executor:       executor,
		chat:           chat,
		allowedOrigins: DefaultAllowedOrigins,
	}
	for _, opt := range opts {
		opt(server)
	}
	return server
}

// Handler returns the routed HTTP handler with request id, panic recovery,
// request logging and CORS middleware installed.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(s.requestLogger)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get(protocol.RouteHealth, s.handleHealth)
	router.Post(protocol.RouteRunSequenceGraph, s.handleRunSequenceGraph)
	router.Post(protocol.RouteChatStream, s.handleChatStream)

	return router
}

// ListenAndServe serves Handler on addr until ctx is canceled, then shuts
// down gracefully. Open chat streams get shutdownTimeout to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	if s.observer != nil {
		s.observer.Info(ctx, "execution service listening", observability.String("server.addr", addr))
	}

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
