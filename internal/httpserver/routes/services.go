package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/mw"
)

func init() { Register(registerServices) }

func registerServices(r chi.Router, d deps.Deps) {
	r.Get("/api/services", handlers.ListServices(d))
	r.Get("/{id}/info", handlers.ServiceInfo(d))
	r.Get("/{id}/status", handlers.ServiceStatus(d))

	// Writes share one limiter per client.
	writes := r.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.RateLimitBurst,
		RefillPerIPPerMin: d.RateLimitPerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
	}))
	writes.Post("/{id}/update", handlers.UpdateStatus(d))
	writes.Post("/register", handlers.Register(d))
}
