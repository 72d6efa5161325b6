package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/handlers"
)

func init() { Register(registerDashboard) }

func registerDashboard(r chi.Router, d deps.Deps) {
	r.Get("/", handlers.Dashboard(d))
}
