// Package httptransport assembles the public HTTP surface: the middleware
// chain, every domain handler, and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vigil/internal/platform/metrics"
	"vigil/internal/platform/middleware"
	"vigil/internal/transport/http/shared"
)

// Registrar is implemented by every domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one dependency; the name appears in the /healthz body.
type HealthCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Options collects everything the router mounts.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// JSON carries the handlers whose requests must be JSON bodies.
	JSON []Registrar
	// Raw carries handlers with non-JSON bodies (evidence upload).
	Raw []Registrar

	HealthChecks []HealthCheck
}

// NewRouter wires all public endpoints behind the shared middleware chain.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.LatencyMiddleware(opts.Metrics))

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		for _, h := range opts.JSON {
			h.Register(r)
		}
	})
	for _, h := range opts.Raw {
		h.Register(r)
	}

	r.Get("/healthz", handleHealth(opts.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func handleHealth(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for _, check := range checks {
			if err := check.Probe(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[check.Name] = err.Error()
				continue
			}
			body[check.Name] = "ok"
		}
		shared.WriteJSON(w, status, body)
	}
}
