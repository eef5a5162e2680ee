package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"fdbsearch/internal/logging"
	"fdbsearch/internal/telemetry"
)

// withMiddleware wraps next in CORS (open to *, per §6.1), a request-id
// attached to the context for logging, and a telemetry root span per
// request.
func withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := logging.WithRequestID(r.Context(), requestID)
		ctx, span := telemetry.StartSpan(ctx, "http."+r.Method+" "+r.URL.Path)
		defer span.End()

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logging.FromContext(ctx).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}
