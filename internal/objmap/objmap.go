// Package objmap is the robot's obstacle memory: a small insertion-ordered set
// of circles fed by bumpers, cliff sensors and head scans.
package objmap

import (
	"errors"

	"github.com/golang/geo/r2"

	"Roamer/internal/device"
	"Roamer/internal/geom"
	"Roamer/internal/scan"
	"Roamer/internal/util"
)

// Capacity is the maximum number of obstacles kept.
const Capacity = 64

// ErrMapFull is returned when an obstacle is dropped because the map is full.
var ErrMapFull = errors.New("object map full")

// Type classifies an obstacle. The numeric values are the wire codes.
type Type uint8

const (
	Short Type = iota // ground object found by bumping into it
	Tall              // seen by the scanning head
	Hole
	Wall
)

func (t Type) String() string {
	switch t {
	case Short:
		return "short"
	case Tall:
		return "tall"
	case Hole:
		return "hole"
	case Wall:
		return "wall"
	}
	return "unknown"
}

// Fusion geometry, millimetres and degrees.
const (
	BumpAhead  = 225.0
	BumpRadius = 65.0

	CliffRange   = 150.0
	HoleSignal   = 500
	HoleBeyond   = 80.0
	HoleRadius   = 80.0
	WallSignal   = 2600
	WallRadius   = 150.0
	HeadOffset   = 90.0
	ScanMaxRange = scan.MaxDistance * 10
)

// CliffAngles is each cliff sensor's bearing relative to the heading.
var CliffAngles = [device.CliffSensors]float64{60, 15, -15, -60}

// Obstacle is a circular mapped object.
type Obstacle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Type   Type    `json:"type"`
}

// Center returns the obstacle centre.
func (o Obstacle) Center() r2.Point { return r2.Point{X: o.X, Y: o.Y} }

// Map holds up to Capacity obstacles in insertion order. Not safe for
// concurrent use.
type Map struct {
	items   [Capacity]Obstacle
	n       int
	version uint64
}

// New returns an empty map.
func New() *Map { return &Map{} }

// Len returns the number of obstacles.
func (m *Map) Len() int { return m.n }

// Version increments on every mutation.
func (m *Map) Version() uint64 { return m.version }

// At returns obstacle i.
func (m *Map) At(i int) Obstacle { return m.items[i] }

// All returns a copy of the obstacles in insertion order.
func (m *Map) All() []Obstacle {
	out := make([]Obstacle, m.n)
	copy(out, m.items[:m.n])
	return out
}

// Add appends o. It returns ErrMapFull and drops o when the map is full.
func (m *Map) Add(o Obstacle) error {
	if m.n >= Capacity {
		return ErrMapFull
	}
	m.items[m.n] = o
	m.n++
	m.version++
	return nil
}

// Remove deletes obstacle i, preserving the order of the rest.
func (m *Map) Remove(i int) {
	if i < 0 || i >= m.n {
		return
	}
	copy(m.items[i:m.n-1], m.items[i+1:m.n])
	m.n--
	m.items[m.n] = Obstacle{}
	m.version++
}

// RemoveIf deletes every obstacle for which drop returns true and reports how
// many were removed.
func (m *Map) RemoveIf(drop func(Obstacle) bool) int {
	kept := 0
	for i := 0; i < m.n; i++ {
		if drop(m.items[i]) {
			continue
		}
		m.items[kept] = m.items[i]
		kept++
	}
	removed := m.n - kept
	for i := kept; i < m.n; i++ {
		m.items[i] = Obstacle{}
	}
	m.n = kept
	if removed > 0 {
		m.version++
	}
	return removed
}

// Reset empties the map.
func (m *Map) Reset() {
	m.items = [Capacity]Obstacle{}
	m.n = 0
	m.version++
}

// Smallest returns the index of the obstacle with the smallest radius, the
// first one on ties, or -1 when the map is empty.
func (m *Map) Smallest() int {
	if m.n == 0 {
		return -1
	}
	best := 0
	for i := 1; i < m.n; i++ {
		if m.items[i].Radius < m.items[best].Radius {
			best = i
		}
	}
	return best
}

func (m *Map) add(o Obstacle) {
	if err := m.Add(o); err != nil {
		util.Warn("obstacle dropped", "component", "objmap", "type", o.Type, "x", o.X, "y", o.Y, "err", err)
	}
}

// AddBump records a ground object directly ahead of a robot at pose.
func (m *Map) AddBump(pose geom.Pose) {
	c := pose.Forward(BumpAhead)
	m.add(Obstacle{X: c.X, Y: c.Y, Radius: BumpRadius, Type: Short})
}

// CliffPoint returns the position of cliff sensor i for a robot at pose.
func CliffPoint(pose geom.Pose, i int) r2.Point {
	return pose.Point().Add(geom.Dir(pose.Heading + CliffAngles[i]).Mul(CliffRange))
}

// AddCliff classifies cliff sensor i's signal and records a hole or a wall
// boundary. It reports whether the signal was a hazard.
func (m *Map) AddCliff(pose geom.Pose, i int, signal int) bool {
	switch {
	case signal < HoleSignal:
		c := pose.Point().Add(geom.Dir(pose.Heading + CliffAngles[i]).Mul(CliffRange + HoleBeyond))
		m.add(Obstacle{X: c.X, Y: c.Y, Radius: HoleRadius, Type: Hole})
		return true
	case signal > WallSignal:
		c := CliffPoint(pose, i)
		m.RemoveIf(func(o Obstacle) bool {
			return o.Type == Wall && geom.Dist(o.Center(), c) <= WallRadius
		})
		m.add(Obstacle{X: c.X, Y: c.Y, Radius: WallRadius, Type: Wall})
		return true
	}
	return false
}

// CliffHazard reports whether signal would be classified as a hole or wall.
func CliffHazard(signal int) bool {
	return signal < HoleSignal || signal > WallSignal
}

// ApplyScan replaces the tall obstacles in front of the head with the scan's
// detections.
func (m *Map) ApplyScan(pose geom.Pose, dets []scan.Detection) {
	head := pose.Forward(HeadOffset)
	fwd := geom.Dir(pose.Heading)
	m.RemoveIf(func(o Obstacle) bool {
		if o.Type != Tall {
			return false
		}
		v := o.Center().Sub(head)
		return v.Dot(fwd) > 0 && v.Norm() <= ScanMaxRange+HeadOffset+o.Radius
	})

	for _, d := range dets {
		reach := 10 * (d.Distance + d.Size/2)
		c := head.Add(geom.Dir(pose.Heading + float64(d.Angle) - 90).Mul(reach))
		m.add(Obstacle{X: c.X, Y: c.Y, Radius: 10 * d.Size / 2, Type: Tall})
	}
}
