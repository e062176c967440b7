package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ans/internal/escrow"
	"ans/internal/ratelimit"
	"ans/internal/registry"
)

// NewRouter assembles the full API surface. A nil limiter disables rate
// limiting, which is how tests and single-user deployments run.
func NewRouter(
	registrySvc *registry.Service,
	escrowSvc *escrow.Service,
	limiter *ratelimit.Limiter,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestMetadata)
	r.Use(ratelimit.Middleware(limiter, logger))

	NewChallengeHandler(logger).Register(r)
	NewEscrowHandler(escrowSvc, logger).Register(r)
	NewRegistryHandler(registrySvc, logger).Register(r)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
