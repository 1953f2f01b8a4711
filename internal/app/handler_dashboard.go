package app

import (
	"net/http"
	"time"

	"Roamer/internal/model"
)

type statusPage struct {
	Title   string
	RunID   string
	Started time.Time
	Clients int
	Latest  *model.Telemetry
	Lines   []string
}

// handleDashboard renders the status page.
func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	a.mu.Lock()
	data := statusPage{
		Title:   "Roamer Monitor",
		RunID:   a.RunID,
		Started: a.started,
		Latest:  a.latest,
		Lines:   append([]string{}, a.lines...),
	}
	a.mu.Unlock()
	data.Clients = a.hub.count()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.Tmpl.ExecuteTemplate(w, "status.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
