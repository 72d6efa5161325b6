package deps

import (
	"time"

	"github.com/MrSnakeDoc/beacon/internal/logger"
	"github.com/MrSnakeDoc/beacon/internal/metrics"
	"github.com/MrSnakeDoc/beacon/internal/registry"
	"github.com/MrSnakeDoc/beacon/internal/scheduler"
)

// SweepReporter exposes the freshness monitor's latest totals.
type SweepReporter interface {
	LastSweep() (scheduler.Summary, time.Time, bool)
}

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	TimeNow         func() time.Time   // for testing, defaults to time.Now
	Registry        *registry.Registry // owner of the service records
	Metrics         *metrics.Registry  // nil disables /metrics and request metrics
	Sweeps          SweepReporter      // optional, adds service totals to /healthz
	StatusWidth     int                // dashboard status truncation, 0 = full
	Location        *time.Location     // dashboard time zone, defaults to time.Local
	AllowedCIDRS    []string           // IPs allowed to access healthz/readyz/metrics endpoints
	TrustProxy      bool               // true if running behind a trusted reverse proxy
	CORSOrigins     []string           // browser origins allowed on the JSON API
	RateLimitBurst  int                // write requests per client before throttling
	RateLimitPerMin int                // write requests refilled per client per minute
}

// Now returns d.TimeNow() or time.Now when unset.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
