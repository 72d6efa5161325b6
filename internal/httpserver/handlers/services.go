package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/domain"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
)

type serviceInfoResponse struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	LastUpdate time.Time `json:"last_update"`
}

type registerResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

// ListServices returns every service with its ok and fresh flags.
func ListServices(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := d.Registry.Views(r.Context())
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// ServiceInfo returns the name, status and last update of one service.
func ServiceInfo(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := lookup(w, r, d)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, serviceInfoResponse{
			Name:       rec.Name,
			Status:     rec.Status,
			LastUpdate: rec.LastUpdate.UTC(),
		})
	}
}

// ServiceStatus returns only the status of one service.
func ServiceStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := lookup(w, r, d)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: rec.Status})
	}
}

// UpdateStatus records a status report: {"Status": "..."}.
// An unknown id is reported before the payload is looked at.
func UpdateStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := lookup(w, r, d)
		if !ok {
			return
		}

		fields, err := decodeFields(w, r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		status, err := stringField(fields, "Status")
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		if _, err := d.Registry.UpdateStatus(r.Context(), rec.ID, status); err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: domain.StatusOK})
	}
}

// Register creates a service: {"Name": "...", "Period": 60}.
func Register(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := decodeFields(w, r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		name, err := stringField(fields, "Name")
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		period, err := domain.ParsePeriod(fields["Period"])
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		id, err := d.Registry.Register(r.Context(), name, period)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, registerResponse{Status: domain.StatusOK, ID: id})
	}
}

func lookup(w http.ResponseWriter, r *http.Request, d deps.Deps) (domain.ServiceRecord, bool) {
	id, err := serviceID(r)
	if err != nil {
		writeError(w, r, d, err)
		return domain.ServiceRecord{}, false
	}
	rec, err := d.Registry.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, d, err)
		return domain.ServiceRecord{}, false
	}
	return rec, true
}
