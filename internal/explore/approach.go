package explore

import (
	"Roamer/internal/command"
	"Roamer/internal/device"
	"Roamer/internal/geom"
	"Roamer/internal/planner"
)

const (
	regroupReverse = 300.0
	regroupMin     = 400.0
	regroupMax     = 700.0
	regroupStand   = 400.0
	bumpTurn       = 90.0
)

// Approach scans and drives up to the smallest mapped object. With fullAuto
// set, a ground object found on the way makes the robot back off, circle to a
// fresh approach point and try again.
func (r *Routine) Approach(fullAuto bool) {
	r.fullAuto = fullAuto
	r.enqueue(command.Invoke("approach", r.scanAndApproach))
}

// FullAuto reports whether the last approach re-plans around ground objects.
func (r *Routine) FullAuto() bool { return r.fullAuto }

func (r *Routine) scanAndApproach() {
	r.scanAndMap()
	i := r.objs.Smallest()
	if i < 0 {
		r.log.Info("nothing to approach")
		return
	}
	o := r.objs.At(i)
	r.log.Info("approaching", "x", o.X, "y", o.Y, "radius", o.Radius)
	r.enqueue(r.mc.Approach(o.X, o.Y, planner.Standoff(o.Radius), r.BumpTurn))
}

// BumpTurn is the interrupt for operator and approach moves: on a bump it
// stops and turns away from the pressed side, watching for a ground object.
func (r *Routine) BumpTurn(s device.Snapshot) bool {
	if !s.Bumped() {
		return false
	}
	r.mc.Stop()
	r.log.Info("bumped", "left", s.BumpLeft, "right", s.BumpRight)
	turn := bumpTurn
	if s.BumpRight {
		turn = -bumpTurn
	}
	_, _ = r.q.EnqueueFront(r.mc.Rotate(turn, r.identifyGround))
	return true
}

// identifyGround fires when both bumpers close while turning away: the robot
// is pressed against something low that the head cannot see.
func (r *Routine) identifyGround(s device.Snapshot) bool {
	if !(s.BumpLeft && s.BumpRight) {
		return false
	}
	r.mc.Stop()
	pose := r.mc.Pose()
	r.objs.AddBump(pose)
	r.log.Info("identified ground object")

	if !r.fullAuto {
		return true
	}

	i := r.objs.Smallest()
	o := r.objs.At(i)
	back := pose.Forward(-regroupReverse)
	mid, ok := r.plan.ApproachPoint(back, o.Center(), regroupMin, regroupMax, o.Radius)
	if !ok {
		r.log.Warn("no approach point, stopping", "x", o.X, "y", o.Y)
		r.q.Clear()
		return true
	}

	r.enqueue(r.mc.Reverse(regroupReverse, nil))
	r.enqueue(r.mc.MoveTo(mid.X, mid.Y, r.BumpTurn))
	r.enqueue(r.mc.Approach(o.X, o.Y, regroupStand, r.BumpTurn))
	r.enqueue(r.mc.RotateTo(geom.Bearing(mid, o.Center()), nil))
	r.enqueue(command.Invoke("approach", r.scanAndApproach))
	return true
}
