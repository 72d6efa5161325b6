package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
)

type buildInfo struct {
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

// sweepInfo mirrors the last freshness sweep.
type sweepInfo struct {
	Total   int       `json:"total"`
	Fresh   int       `json:"fresh"`
	OK      int       `json:"ok"`
	SweptAt time.Time `json:"swept_at"`
}

type healthzResponse struct {
	Status        string     `json:"status"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	Build         buildInfo  `json:"build"`
	Services      *sweepInfo `json:"services,omitempty"`
}

// Healthz reports liveness. It never touches the record store; service
// totals come from the last freshness sweep when one has run.
func Healthz(d deps.Deps) http.HandlerFunc {
	build := buildInfo{
		Version:   d.Version,
		Commit:    d.Commit,
		BuildDate: d.BuildDate,
		GoVersion: d.GoVersion,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status:        "ok",
			UptimeSeconds: d.Now().Sub(d.StartTime).Seconds(),
			Build:         build,
		}
		if d.Sweeps != nil {
			if sum, at, ok := d.Sweeps.LastSweep(); ok {
				resp.Services = &sweepInfo{Total: sum.Total, Fresh: sum.Fresh, OK: sum.OK, SweptAt: at.UTC()}
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
