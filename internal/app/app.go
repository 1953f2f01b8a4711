// Package app implements the monitor's web server: it records the robot's
// telemetry, republishes it to websocket clients and forwards operator
// commands to the robot.
package app

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.etcd.io/bbolt"

	"Roamer/internal/model"
	"Roamer/internal/parser"
	"Roamer/internal/util"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	maxTrail = 5000
	maxLines = 200
	// trail points closer than this to the previous one are skipped, mm
	trailStep = 10.0
)

// Commander delivers operator commands to the robot.
type Commander interface {
	Send(cmd model.ControlCommand) error
}

// App is the monitor web application. It implements core.Sink.
type App struct {
	DB     *bbolt.DB
	Tmpl   *template.Template
	Mux    *http.ServeMux
	Server *http.Server
	RunID  string

	rec     *Recorder
	hub     *hub
	codec   parser.Parser
	cmd     Commander
	started time.Time

	mu     sync.Mutex
	latest *model.Telemetry
	trail  orb.LineString
	lines  []string

	log *slog.Logger
}

// NewApp opens the telemetry database and registers the routes. cmd may be
// nil, in which case control requests are refused.
func NewApp(cfg model.MonitorConfig, cmd Commander) (*App, error) {
	codec, err := parser.ForFormat(cfg.WireFormat)
	if err != nil {
		return nil, fmt.Errorf("[app] %w", err)
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"year": func() int { return time.Now().Year() },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("[app] failed to load templates: %w", err)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("[app] failed to create %s: %w", dir, err)
		}
	}
	db, err := bbolt.Open(cfg.DBPath, 0o666, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("[app] failed to open BoltDB: %w", err)
	}

	log := util.With("component", "app")
	a := &App{
		DB:      db,
		Tmpl:    tmpl,
		Mux:     http.NewServeMux(),
		RunID:   uuid.NewString(),
		rec:     NewRecorder(db),
		hub:     newHub(log),
		codec:   codec,
		cmd:     cmd,
		started: time.Now(),
		log:     log,
	}
	a.registerRoutes()
	a.log.Info("monitor ready", "run", a.RunID, "db", cfg.DBPath, "wire_format", cfg.WireFormat)
	return a, nil
}

// SetCommander sets where control requests go.
func (a *App) SetCommander(cmd Commander) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cmd = cmd
}

func (a *App) commander() Commander {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cmd
}

// Handler returns the root handler with request logging.
func (a *App) Handler() http.Handler { return LogRequests(a.log, a.Mux) }

// OnTelemetry records t under the current run and broadcasts it.
func (a *App) OnTelemetry(t model.Telemetry) {
	t.RunID = a.RunID
	a.mu.Lock()
	a.latest = &t
	p := orb.Point{t.Robot.X, t.Robot.Y}
	if n := len(a.trail); n == 0 || planar.Distance(a.trail[n-1], p) >= trailStep {
		a.trail = append(a.trail, p)
		if len(a.trail) > maxTrail {
			a.trail = a.trail[len(a.trail)-maxTrail:]
		}
	}
	a.mu.Unlock()

	if err := a.rec.Record(t); err != nil {
		a.log.Warn("record telemetry failed", "err", err)
	}
	msg, err := a.codec.EncodeTelemetry(t)
	if err != nil {
		a.log.Warn("encode telemetry failed", "err", err)
		return
	}
	a.hub.broadcast(msg)
}

// OnText keeps the robot's text replies for /api/log.
func (a *App) OnText(line string) {
	a.log.Info("robot", "line", line)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lines = append(a.lines, line)
	if len(a.lines) > maxLines {
		a.lines = a.lines[len(a.lines)-maxLines:]
	}
}

// Start launches the web server and blocks until stopped.
func (a *App) Start(addr string) error {
	if addr == "" {
		a.log.Info("app server not started (empty address)")
		return nil
	}

	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	a.Server = &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.log.Info("web server listening", "addr", "http://"+addr)

	// Run server until Shutdown() is called
	if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("[app] HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the web server and closes the DB.
func (a *App) Stop() {
	if a == nil {
		return
	}

	if a.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.Server.Shutdown(ctx); err != nil {
			a.log.Warn("HTTP server shutdown error", "err", err)
		} else {
			a.log.Info("web server stopped cleanly")
		}
	}
	a.hub.closeAll()

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.log.Warn("error closing BoltDB", "err", err)
		}
	}
}
