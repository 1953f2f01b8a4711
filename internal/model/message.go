// Package model defines shared message structures for Roamer.
package model

import (
	"time"

	"Roamer/internal/geom"
)

// ControlCommand is one operator line: a single ASCII opcode optionally
// followed by a decimal integer, e.g. "f300" or "k".
type ControlCommand struct {
	Op       byte `json:"op"`
	Value    int  `json:"value"`
	HasValue bool `json:"has_value"`
}

// ObjectRecord is an obstacle as republished by the monitor.
type ObjectRecord struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Type   uint8   `json:"type"`
}

// Telemetry is a decoded robot state frame, stored and broadcast by the monitor.
type Telemetry struct {
	RunID    string         `json:"run_id,omitempty"`
	Time     time.Time      `json:"time"`
	Robot    geom.Pose      `json:"robot"`
	Target   geom.Pose      `json:"target"`
	Approach float64        `json:"approach"`
	Mode     uint8          `json:"mode"`
	Objects  []ObjectRecord `json:"objects,omitempty"`
	// HasObjects is false when the frame omitted the obstacle list.
	HasObjects bool `json:"has_objects"`
}
