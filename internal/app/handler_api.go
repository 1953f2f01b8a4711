package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"Roamer/internal/model"
	"Roamer/internal/parser"
)

// moveToRange bounds the absolute targets the "m" opcode can carry, mm.
const moveToRange = 5000

const maxControlBody = 1 << 10

// controlRequest is the JSON form of POST /api/control: either a command
// line or an absolute target for a move-to.
type controlRequest struct {
	Command string `json:"command"`
	X       *int   `json:"x"`
	Y       *int   `json:"y"`
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Warn("failed to write response", "err", err)
	}
}

// handleLatest returns the most recent telemetry record.
func (a *App) handleLatest(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	latest := a.latest
	a.mu.Unlock()
	if latest == nil {
		http.Error(w, "no telemetry data", http.StatusNotFound)
		return
	}
	a.writeJSON(w, http.StatusOK, latest)
}

// handleRuns lists recorded runs.
func (a *App) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := a.rec.Runs()
	if err != nil {
		http.Error(w, "failed to read runs", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"current": a.RunID, "runs": runs})
}

// handleHistory returns recorded telemetry: ?run= defaults to the current
// run, ?limit= to 100.
func (a *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	run := r.URL.Query().Get("run")
	if run == "" {
		run = a.RunID
	}
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := a.rec.History(run, limit)
	if errors.Is(err, ErrUnknownRun) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to read telemetry", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, recs)
}

// handleLog returns the robot's recent text replies.
func (a *App) handleLog(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	lines := append([]string{}, a.lines...)
	a.mu.Unlock()
	a.writeJSON(w, http.StatusOK, lines)
}

// handleControl forwards an operator command to the robot. The body is a
// command line ("f300") or, with a JSON content type, a controlRequest.
func (a *App) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer func() {
		if cerr := r.Body.Close(); cerr != nil {
			a.log.Warn("failed to close control body", "err", cerr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxControlBody))
	if err != nil {
		http.Error(w, "failed to read control command", http.StatusBadRequest)
		return
	}
	cmd, err := decodeControl(r.Header.Get("Content-Type"), body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c := a.commander()
	if c == nil {
		http.Error(w, "robot not connected", http.StatusServiceUnavailable)
		return
	}
	if err := c.Send(cmd); err != nil {
		a.log.Warn("control forward failed", "err", err)
		http.Error(w, "failed to forward control", http.StatusBadGateway)
		return
	}
	a.writeJSON(w, http.StatusAccepted, map[string]string{"sent": parser.FormatCommand(cmd)})
}

func decodeControl(contentType string, body []byte) (model.ControlCommand, error) {
	mt, _, _ := mime.ParseMediaType(contentType)
	if mt != "application/json" {
		return parser.ParseCommand(string(body))
	}

	var req controlRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return model.ControlCommand{}, fmt.Errorf("invalid control request: %w", err)
	}
	switch {
	case req.X != nil && req.Y != nil:
		x, y := *req.X, *req.Y
		if x < -moveToRange || x >= moveToRange || y < -moveToRange || y >= moveToRange {
			return model.ControlCommand{}, fmt.Errorf("target (%d, %d) out of range", x, y)
		}
		return parser.EncodeMoveTo(x, y), nil
	case strings.TrimSpace(req.Command) != "":
		return parser.ParseCommand(req.Command)
	}
	return model.ControlCommand{}, errors.New("control request needs command or x and y")
}
