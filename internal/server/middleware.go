package server

import (
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/leofalp/sequencer/internal/utils"
	"github.com/leofalp/sequencer/providers/observability"
)

// requestLogger logs one entry per request and puts the observer in the
// request context, so handlers and the packages they call find it there.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	if s.observer == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.ContextWithObserver(r.Context(), s.observer)
		wrapped := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		timer := utils.NewTimer()

		next.ServeHTTP(wrapped, r.WithContext(ctx))

		s.observer.Info(ctx, "http request",
			observability.String(observability.AttrHTTPMethod, r.Method),
			observability.String(observability.AttrHTTPRoute, r.URL.Path),
			observability.Int(observability.AttrHTTPStatusCode, wrapped.Status()),
			observability.Int(observability.AttrHTTPResponseBodySize, wrapped.BytesWritten()),
			observability.String(observability.AttrHTTPRequestID, chimiddleware.GetReqID(ctx)),
			observability.Duration(observability.AttrHTTPDuration, timer.Stop()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
