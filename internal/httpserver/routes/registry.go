package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/logger"
)

// Registrar mounts one group of routes.
type Registrar func(r chi.Router, d deps.Deps)

var registrars []Registrar

// Register adds reg to the set mounted by RegisterAll. Called from init.
func Register(reg Registrar) {
	registrars = append(registrars, reg)
}

// RegisterAll mounts every registered group on r and logs the resulting
// route table at debug level. Called once per router from NewRouter.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, reg := range registrars {
		reg(r, d)
	}

	if d.Logger == nil {
		return
	}
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		d.Logger.Debug("route mounted",
			logger.String("method", method),
			logger.String("route", route))
		return nil
	})
}
