package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/mw"
)

func init() { Register(registerOps) }

// registerOps mounts the health endpoints and the metrics endpoint behind the
// BEACON_ALLOWED_CIDRS allowlist.
func registerOps(r chi.Router, d deps.Deps) {
	ops := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))

	ops.Get("/healthz", handlers.Healthz(d))
	ops.Get("/readyz", handlers.Readyz(d))
	if d.Metrics != nil {
		ops.Method(http.MethodGet, "/metrics", handlers.Metrics(d))
	}
}
