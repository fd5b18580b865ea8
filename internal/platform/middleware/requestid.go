package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"dojotrack/pkg/requestcontext"
)

const requestIDHeader = "X-Request-Id"

// RequestID propagates the caller-supplied correlation ID or mints a new one,
// then echoes it back in the response header. It also pins the request time so
// every expiry check within one request observes the same clock reading.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
