package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/planora/planora/pkg/contextkeys"
	"github.com/planora/planora/pkg/observability"
)

// RequestIDHeader is the header carrying the request ID. Incoming
// values are honored so IDs survive proxies; absent ones are minted.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a unique ID to every request and echoes it in the
// response for log correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		ctx = observability.WithRequestID(ctx, requestID)
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
