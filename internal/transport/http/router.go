// Package httptransport assembles the HTTP surface: domain handlers plus the
// operational endpoints.
package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dojotrack/internal/transport/http/shared"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthFunc adapts a plain function to HealthChecker.
type HealthFunc func(ctx context.Context) error

func (f HealthFunc) Health(ctx context.Context) error { return f(ctx) }

// RouteRegistrar is implemented by domain handlers that mount their own
// routes and middleware.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// NewRouter wires the domain handlers and the operational endpoints. Health
// checks ping every registered dependency; a single failure reports 503.
func NewRouter(handlers []RouteRegistrar, checks map[string]HealthChecker) http.Handler {
	router := chi.NewRouter()

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Health(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		shared.WriteJSON(w, status, report)
	})
	router.Handle("/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(router)
	}
	return router
}
