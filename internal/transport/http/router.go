// Package httptransport assembles the chi router: shared middleware, public
// routes, and the authenticated group.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"watchdesk/internal/platform/metrics"
	ratelimitmw "watchdesk/internal/ratelimit/middleware"
	"watchdesk/pkg/platform/httputil"
	authmw "watchdesk/pkg/platform/middleware/auth"
	"watchdesk/pkg/platform/middleware/metadata"
	"watchdesk/pkg/platform/middleware/request"
	"watchdesk/pkg/platform/middleware/requesttime"
)

// Registrar is a handler that mounts its own routes.
type Registrar interface {
	Register(r chi.Router)
}

// AuthRoutes is the auth handler, which splits its routes between the
// public and the authenticated group.
type AuthRoutes interface {
	RegisterPublic(r chi.Router)
	RegisterAuthenticated(r chi.Router)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Validator   authmw.JWTValidator
	Revocations authmw.TokenRevocationChecker
	RateLimit   *ratelimitmw.Middleware

	Auth      AuthRoutes
	Search    Registrar
	Countries Registrar
	Cases     Registrar
	History   Registrar

	Health map[string]HealthCheck
}

// NewRouter builds the router. Feature handlers left nil are not mounted,
// and the authenticated group is skipped entirely without a Validator.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Latency)
	}

	r.Get("/health", healthHandler(d.Health))
	r.Handle("/metrics", promhttp.Handler())

	if d.Auth != nil {
		r.Group(func(r chi.Router) {
			if d.RateLimit != nil {
				r.Use(d.RateLimit.RateLimitLogin)
			}
			d.Auth.RegisterPublic(r)
		})
	}

	if d.Validator == nil {
		return r
	}
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Validator, d.Revocations, d.Logger))
		if d.Auth != nil {
			d.Auth.RegisterAuthenticated(r)
		}
		for _, h := range []Registrar{d.Countries, d.Cases, d.History} {
			if h != nil {
				h.Register(r)
			}
		}

		if d.Search != nil {
			r.Group(func(r chi.Router) {
				if d.RateLimit != nil {
					r.Use(d.RateLimit.RateLimitSearch)
				}
				d.Search.Register(r)
			})
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
