package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/domain"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/logger"
)

// DashboardTimeLayout is the day.month.year format of the dashboard.
const DashboardTimeLayout = "02.01.2006 15:04"

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

type dashboardRow struct {
	Name       string
	Status     string
	FullStatus string
	LastUpdate string
	OK         bool
	Fresh      bool
}

type dashboardPage struct {
	Services   []dashboardRow
	RenderedAt string
}

// Dashboard renders the HTML status board.
func Dashboard(d deps.Deps) http.HandlerFunc {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}

	return func(w http.ResponseWriter, r *http.Request) {
		views, err := d.Registry.Views(r.Context())
		if err != nil {
			d.Logger.Error("failed to load dashboard", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		page := dashboardPage{
			Services:   make([]dashboardRow, 0, len(views)),
			RenderedAt: d.Now().In(loc).Format(DashboardTimeLayout),
		}
		for _, v := range views {
			page.Services = append(page.Services, newDashboardRow(v, loc, d.StatusWidth))
		}

		// Render into a buffer so a template error still yields a clean 500.
		var buf bytes.Buffer
		if err := dashboardTmpl.Execute(&buf, page); err != nil {
			d.Logger.Error("failed to render dashboard", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = buf.WriteTo(w)
	}
}

func newDashboardRow(v domain.ServiceView, loc *time.Location, width int) dashboardRow {
	return dashboardRow{
		Name:       v.Name,
		Status:     TruncateStatus(v.Status, width),
		FullStatus: v.Status,
		LastUpdate: v.LastUpdate.In(loc).Format(DashboardTimeLayout),
		OK:         v.OK,
		Fresh:      v.Fresh,
	}
}

// TruncateStatus shortens status to width runes, marking the cut with an
// ellipsis. width <= 0 leaves it untouched.
func TruncateStatus(status string, width int) string {
	if width <= 0 {
		return status
	}
	runes := []rune(status)
	if len(runes) <= width {
		return status
	}
	return string(runes[:width]) + "…"
}
