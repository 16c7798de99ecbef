// Package httptransport assembles the public HTTP surface: middleware
// stack, public token endpoint, authenticated API routes, health, and
// metrics.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	credithandler "tandapool/internal/credit/handler"
	grouphandler "tandapool/internal/group/handler"
	jwttoken "tandapool/internal/jwt_token"
	"tandapool/internal/platform/middleware"
	registryhandler "tandapool/internal/registry/handler"
)

// Deps are the wired handlers and services the router mounts.
type Deps struct {
	Logger   *slog.Logger
	JWT      *jwttoken.JWTService
	Group    *grouphandler.Handler
	Registry *registryhandler.Handler
	Credit   *credithandler.Handler
	Health   func() error
}

// NewRouter builds the chi router with the full middleware stack.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.Registry.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.JWT, deps.Logger))
		deps.Group.Register(r)
		deps.Registry.Register(r)
		deps.Credit.Register(r)
	})

	return r
}
