package app

// registerRoutes sets up all HTTP handlers for the application.
func (a *App) registerRoutes() {
	a.Mux.HandleFunc("/", a.handleDashboard)
	a.Mux.HandleFunc("/ws", a.hub.handleWS)

	// API routes
	a.Mux.HandleFunc("/api/latest", a.handleLatest)
	a.Mux.HandleFunc("/api/map", a.handleMap)
	a.Mux.HandleFunc("/api/runs", a.handleRuns)
	a.Mux.HandleFunc("/api/history", a.handleHistory)
	a.Mux.HandleFunc("/api/log", a.handleLog)
	a.Mux.HandleFunc("/api/control", a.handleControl)
}
