package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/logger"
)

const readyzTimeout = 2 * time.Second

type componentStatus struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz reports 503 while the record store cannot be reached.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := checkStore(r.Context(), d)

		code := http.StatusOK
		if !store.OK {
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, readyzResponse{
			Ready:      store.OK,
			Components: map[string]componentStatus{"store": store},
		})
	}
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(ctx, readyzTimeout)
	defer cancel()

	if err := d.Registry.Ping(ctx); err != nil {
		d.Logger.Warn("store not ready", logger.Error(err))
		return componentStatus{OK: false, Error: err.Error()}
	}
	return componentStatus{OK: true}
}
