// Package planner finds the next hop toward a target around the obstacles in
// the object map. Obstacles are inflated by the robot radius plus a clearance
// margin; the search tries straight lines, then paths through one or two
// waypoints generated around the obstacles blocking the direct line, and
// returns only the first hop. Cost is total path length. Turning is not
// costed.
package planner

import (
	"math"

	"github.com/golang/geo/r2"

	"Roamer/internal/geom"
	"Roamer/internal/objmap"
	"Roamer/internal/util"
)

const (
	RobotRadius = 160.0
	Clearance   = 30.0

	MaxCandidates = 64
	duplicateEps2 = 25.0 // 5 mm squared

	sideScale    = 1.05
	sideMinExtra = 2.0
	forwardScale = 0.7
	clusterScale = 1.8
)

// Obstacles is the read side of the object map.
type Obstacles interface {
	Len() int
	At(i int) objmap.Obstacle
}

// Planner plans against a live obstacle set. robot reports the robot's
// current position, used to relax the clearance margin for obstacles the
// robot is already brushing against.
type Planner struct {
	obs   Obstacles
	robot func() r2.Point
}

// New creates a planner. robot may be nil, in which case the origin is used.
func New(obs Obstacles, robot func() r2.Point) *Planner {
	return &Planner{obs: obs, robot: robot}
}

func (p *Planner) robotPos() r2.Point {
	if p.robot == nil {
		return r2.Point{}
	}
	return p.robot()
}

// inflated returns the collision radius of o. Obstacles already brushing the
// robot are tested without the clearance margin so it can plan its way out.
func inflated(o objmap.Obstacle, robot r2.Point) float64 {
	r := o.Radius + RobotRadius
	if geom.Dist(o.Center(), robot) >= RobotRadius+Clearance {
		r += Clearance
	}
	return r
}

// IsFree reports whether q lies outside every inflated obstacle.
func (p *Planner) IsFree(q r2.Point) bool {
	robot := p.robotPos()
	for i := 0; i < p.obs.Len(); i++ {
		o := p.obs.At(i)
		r := inflated(o, robot)
		if geom.Dist2(q, o.Center()) <= r*r {
			return false
		}
	}
	return true
}

// SegmentClear reports whether the segment a-b stays outside every inflated
// obstacle. A zero-length segment is tested as a point.
func (p *Planner) SegmentClear(a, b r2.Point) bool {
	d := b.Sub(a)
	len2 := d.Dot(d)
	if len2 == 0 {
		return p.IsFree(a)
	}
	robot := p.robotPos()
	for i := 0; i < p.obs.Len(); i++ {
		o := p.obs.At(i)
		r := inflated(o, robot)
		t := -a.Sub(o.Center()).Dot(d) / len2
		t = math.Max(0, math.Min(1, t))
		closest := a.Add(d.Mul(t))
		if geom.Dist2(closest, o.Center()) <= r*r {
			return false
		}
	}
	return true
}

type candidates struct {
	p   *Planner
	pts []r2.Point
}

func (c *candidates) add(q r2.Point) {
	if len(c.pts) >= MaxCandidates {
		util.Warn("waypoint candidate dropped", "component", "planner", "max", MaxCandidates)
		return
	}
	if !c.p.IsFree(q) {
		return
	}
	for _, e := range c.pts {
		if geom.Dist2(e, q) < duplicateEps2 {
			return
		}
	}
	c.pts = append(c.pts, q)
}

// Candidates returns the diversion waypoints generated for the line s-t.
func (p *Planner) Candidates(s, t r2.Point) []r2.Point {
	c := &candidates{p: p}
	d := t.Sub(s)
	l := d.Norm()
	if l == 0 {
		return nil
	}
	u := d.Mul(1 / l)
	n := u.Ortho()

	var (
		blockers     int
		minT, maxT   float64
		maxPerp      float64
		maxInflation float64
	)
	for i := 0; i < p.obs.Len(); i++ {
		o := p.obs.At(i)
		r := o.Radius + RobotRadius + Clearance
		w := o.Center().Sub(s)
		along := w.Dot(u)
		if along < -r || along > l+r {
			continue
		}
		perp := w.Dot(n)
		if perp*perp >= r*r {
			continue
		}

		if blockers == 0 {
			minT, maxT = along, along
		} else {
			minT = math.Min(minT, along)
			maxT = math.Max(maxT, along)
		}
		blockers++
		maxPerp = math.Max(maxPerp, math.Abs(perp))
		maxInflation = math.Max(maxInflation, r)

		side := math.Max(r*sideScale, r+sideMinExtra)
		fwd := u.Mul(r * forwardScale)
		for _, sgn := range []float64{-1, 1} {
			base := o.Center().Add(n.Mul(sgn * side))
			c.add(base)
			c.add(base.Sub(fwd))
			c.add(base.Add(fwd))
		}
	}

	// a row of blockers (a wall) also gets one point past each end of it
	if blockers > 1 && maxInflation > 0 {
		mid := math.Max(0, math.Min(l, (minT+maxT)/2))
		base := s.Add(u.Mul(mid))
		off := maxPerp + clusterScale*maxInflation + Clearance
		off = math.Max(off, maxInflation+Clearance)
		c.add(base.Add(n.Mul(off)))
		c.add(base.Sub(n.Mul(off)))
	}
	return c.pts
}

// PathTo returns the first point to drive to on the way from s to t: t itself
// when the line is clear, the first waypoint of the shortest one- or
// two-waypoint detour otherwise, and s when there is no path.
func (p *Planner) PathTo(s, t r2.Point) r2.Point {
	if !p.IsFree(s) || !p.IsFree(t) {
		return s
	}
	if p.SegmentClear(s, t) {
		return t
	}

	cands := p.Candidates(s, t)
	if len(cands) == 0 {
		return s
	}

	best, bestCost := s, math.Inf(1)
	for i, w1 := range cands {
		if !p.SegmentClear(s, w1) {
			continue
		}
		for j, w2 := range cands {
			if i == j || !p.SegmentClear(w1, w2) || !p.SegmentClear(w2, t) {
				continue
			}
			cost := geom.Dist(s, w1) + geom.Dist(w1, w2) + geom.Dist(w2, t)
			if cost < bestCost {
				best, bestCost = w1, cost
			}
		}
	}
	if !math.IsInf(bestCost, 1) {
		return best
	}

	for _, w := range cands {
		if !p.SegmentClear(s, w) || !p.SegmentClear(w, t) {
			continue
		}
		if cost := geom.Dist(s, w) + geom.Dist(w, t); cost < bestCost {
			best, bestCost = w, cost
		}
	}
	return best
}
