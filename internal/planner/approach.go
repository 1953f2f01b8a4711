package planner

import (
	"github.com/golang/geo/r2"

	"Roamer/internal/geom"
	"Roamer/internal/util"
)

const (
	approachAngleStep = 5.0  // degrees
	approachDistStep  = 25.0 // mm
)

// ApproachPoint looks for a stand-off point between minDist and maxDist from
// target from which the robot can reach target in a straight line, and which
// it can itself reach straight from s. Bearings are tried alternately either
// side of the line from target back to s, widening in 5 degree steps.
// objRadius is the radius of the object at target, whose own inflated circle
// is excluded from the final leg.
func (p *Planner) ApproachPoint(s, t r2.Point, minDist, maxDist, objRadius float64) (r2.Point, bool) {
	base := geom.Bearing(t, s)
	for off := 0.0; off <= 180; {
		dir := geom.Dir(base + off)
		for d := minDist; d < maxDist; d += approachDistStep {
			m := t.Add(dir.Mul(d))
			if p.SegmentClear(s, m) && p.SegmentClear(m, p.shorten(m, t, objRadius)) {
				util.Debug("approach point found", "component", "planner", "x", m.X, "y", m.Y)
				return m, true
			}
		}
		if off <= 0 {
			off = -off + approachAngleStep
		} else {
			off = -off
		}
	}
	util.Warn("no approach point", "component", "planner", "x", t.X, "y", t.Y)
	return t, false
}

// shorten pulls the end of m-t back so it stops just outside the inflated
// circle of an object of radius r centred on t.
func (p *Planner) shorten(m, t r2.Point, r float64) r2.Point {
	d := t.Sub(m)
	l := d.Norm()
	cut := r + RobotRadius + Clearance + 1
	if l <= cut {
		return m
	}
	return m.Add(d.Mul((l - cut) / l))
}

// Standoff is the approach distance that brings the robot's edge just short
// of an object of radius r.
func Standoff(r float64) float64 { return RobotRadius + 5 + r }
