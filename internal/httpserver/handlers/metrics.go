package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
)

// Metrics serves the Prometheus exposition of d.Metrics.
func Metrics(d deps.Deps) http.Handler {
	if d.Metrics == nil {
		return http.NotFoundHandler()
	}
	return d.Metrics.Handler()
}
