package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"dojotrack/pkg/requestcontext"
)

// LimitByIP throttles requests per client IP. Intended for the login and
// registration endpoints, which accept credentials from unauthenticated
// callers.
func LimitByIP(store Store, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			if ip == "" {
				ip = r.RemoteAddr
			}

			result, err := store.Allow(ctx, "ip:"+ip, limit, window)
			if err != nil {
				// A broken limiter must not take logins down with it.
				logger.ErrorContext(ctx, "rate limit check failed", "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			if !result.Allowed {
				retryAfter := max(int(time.Until(result.ResetAt).Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited","error_description":"too many attempts, slow down"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
