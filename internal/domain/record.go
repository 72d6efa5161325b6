package domain

import "time"

// StatusOK is the status assigned at registration and the only status
// the dashboard renders as healthy.
const StatusOK = "OK"

// ServiceRecord is the latest self-reported state of a monitored service.
//
// ID, Name and Period are fixed at registration. Status and LastUpdate are
// overwritten together on every status report.
type ServiceRecord struct {
	// ID is assigned by the store on creation and never reused.
	ID int64 `json:"id"`

	// Name is unique across all records (case-sensitive).
	Name string `json:"name"`

	// Status is opaque to the registry. "OK" means healthy.
	Status string `json:"status"`

	// Period is the maximum number of seconds expected between two reports.
	// Zero disables staleness checking.
	Period int `json:"period"`

	// LastUpdate is the UTC time of registration or of the last status report.
	LastUpdate time.Time `json:"last_update"`
}

// IsFresh reports whether rec's last report falls within its period at now.
func IsFresh(rec ServiceRecord, now time.Time) bool {
	if rec.Period == 0 {
		return true
	}
	return now.Sub(rec.LastUpdate) < time.Duration(rec.Period)*time.Second
}

// IsOK reports whether rec currently reports the healthy status.
func IsOK(rec ServiceRecord) bool {
	return rec.Status == StatusOK
}

// IsFresh is a convenience wrapper around the package-level rule.
func (r ServiceRecord) IsFresh(now time.Time) bool { return IsFresh(r, now) }

// IsOK is a convenience wrapper around the package-level rule.
func (r ServiceRecord) IsOK() bool { return IsOK(r) }

// ServiceView is the read model shared by the JSON listing and the dashboard.
type ServiceView struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Period     int       `json:"period"`
	LastUpdate time.Time `json:"last_update"`
	OK         bool      `json:"ok"`
	Fresh      bool      `json:"fresh"`
}

// NewView evaluates the status and freshness rules for rec at now.
func NewView(rec ServiceRecord, now time.Time) ServiceView {
	return ServiceView{
		ID:         rec.ID,
		Name:       rec.Name,
		Status:     rec.Status,
		Period:     rec.Period,
		LastUpdate: rec.LastUpdate.UTC(),
		OK:         IsOK(rec),
		Fresh:      IsFresh(rec, now),
	}
}
