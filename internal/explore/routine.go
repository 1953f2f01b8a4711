// Package explore composes the navigation pieces into the robot's autonomous
// behaviours: the scan, pick, plan, drive loop that explores the arena, the
// auto-approach of the smallest object, and IR range-finder calibration.
//
// Everything here runs on the control loop. Routine methods are either called
// by the loop between ticks or scheduled as Invoke commands on the queue.
package explore

import (
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/golang/geo/r2"

	"Roamer/internal/calib"
	"Roamer/internal/command"
	"Roamer/internal/device"
	"Roamer/internal/geom"
	"Roamer/internal/heatmap"
	"Roamer/internal/motion"
	"Roamer/internal/objmap"
	"Roamer/internal/planner"
	"Roamer/internal/scan"
	"Roamer/internal/util"
)

const (
	Tile         = 610.0 // mm driven to enter the arena
	StepDistance = 300.0 // longest drive between scans, mm
	MaxTurn      = 55.0  // larger heading changes rotate only, degrees
	MaxAttempts  = 256

	BumpBackoff  = 100.0
	CliffBackoff = 150.0
)

// ErrNoScanner is returned by Scan when the platform has no sensor head.
var ErrNoScanner = errors.New("no scanner head")

// Routine owns the autonomous behaviours. Create it with New.
type Routine struct {
	q     *command.Queue
	mc    *motion.Controller
	objs  *objmap.Map
	heat  *heatmap.Map
	plan  *planner.Planner
	head  device.Scanner
	curve calib.Curve
	rng   *rand.Rand

	// far target kept across a rotate-only step
	far     r2.Point
	persist bool

	fullAuto bool
	cal      calibration

	log *slog.Logger
}

// New wires a routine. head may be nil on platforms without a sensor head.
func New(q *command.Queue, mc *motion.Controller, objs *objmap.Map, heat *heatmap.Map,
	head device.Scanner, curve calib.Curve, rng *rand.Rand) *Routine {
	return &Routine{
		q:     q,
		mc:    mc,
		objs:  objs,
		heat:  heat,
		plan:  planner.New(objs, func() r2.Point { return mc.Pose().Point() }),
		head:  head,
		curve: curve,
		rng:   rng,
		log:   util.With("component", "explore"),
	}
}

// Planner returns the planner bound to the routine's object map.
func (r *Routine) Planner() *planner.Planner { return r.plan }

// Curve returns the IR calibration in use.
func (r *Routine) Curve() calib.Curve { return r.curve }

// SetCurve replaces the IR calibration.
func (r *Routine) SetCurve(c calib.Curve) { r.curve = c }

func (r *Routine) enqueue(cmd command.Command) {
	// a full queue is already logged by the queue
	_, _ = r.q.Enqueue(cmd)
}

// Start drives one tile into the arena and starts the exploration loop.
func (r *Routine) Start() {
	r.persist = false
	r.enqueue(r.mc.Move(Tile, r.Hazard))
	r.enqueue(command.Invoke("explore", r.scanStep))
}

// Step runs a single scan, plan and drive iteration without continuing.
func (r *Routine) Step() {
	r.enqueue(command.Invoke("scan", r.scanAndMap))
	r.enqueue(command.Invoke("path", func() { r.pathStep(false) }))
}

func (r *Routine) scanStep() {
	r.enqueue(command.Invoke("scan", r.scanAndMap))
	r.enqueue(command.Invoke("path", func() { r.pathStep(true) }))
}

// Scan runs the sweep pipeline and folds the detections into the object map
// at the current pose.
func (r *Routine) Scan() ([]scan.Detection, error) {
	if r.head == nil {
		return nil, ErrNoScanner
	}
	dets, err := scan.Run(r.head, r.curve)
	if err != nil {
		return nil, err
	}
	r.objs.ApplyScan(r.mc.Pose(), dets)
	for i, d := range dets {
		r.log.Debug("object detected", "index", i, "angle", d.Angle, "width", d.Width, "distance", d.Distance, "size", d.Size)
	}
	r.log.Info("scan complete", "objects", len(dets), "mapped", r.objs.Len())
	return dets, nil
}

func (r *Routine) scanAndMap() {
	if _, err := r.Scan(); err != nil {
		r.log.Warn("scan failed", "err", err)
	}
}

// pathStep picks a destination, plans the first hop toward it from the
// parked target and queues either a turn toward the hop or a short drive.
func (r *Routine) pathStep(loop bool) {
	start := r.mc.Target().Point()

	var hop r2.Point
	found := false
	for i := 0; i < MaxAttempts; i++ {
		if !r.persist {
			far, ok := r.heat.Pick(r.rng, r.plan.IsFree)
			if !ok {
				continue
			}
			r.far = far
		}
		hop = r.plan.PathTo(start, r.far)
		if hop != start {
			found = true
			break
		}
		r.persist = false
	}
	if !found {
		r.Abort("no reachable point")
		return
	}

	pose := r.mc.Pose()
	bearing := geom.Bearing(start, hop)
	turn := geom.Relative(bearing, pose.Heading) - pose.Heading

	if math.Abs(turn) > MaxTurn {
		r.persist = true
		r.log.Debug("turning toward hop", "turn", turn, "hop_x", hop.X, "hop_y", hop.Y)
		r.enqueue(r.mc.RotateTo(bearing, r.Hazard))
	} else {
		r.persist = false
		d := math.Min(StepDistance, geom.Dist(start, hop))
		dest := start.Add(geom.Dir(bearing).Mul(d))
		r.log.Debug("driving toward hop", "x", dest.X, "y", dest.Y, "far_x", r.far.X, "far_y", r.far.Y)
		r.enqueue(r.mc.MoveTo(dest.X, dest.Y, r.Hazard))
		r.enqueue(command.Invoke("visit", func() { r.heat.RecordVisit(r.mc.Pose().Point()) }))
	}
	if loop {
		r.enqueue(command.Invoke("explore", r.scanStep))
	}
}

// Hazard is the interrupt predicate for exploration moves. A bump maps a
// ground object ahead and a cliff signal maps a hole or wall; either stops the
// robot and backs it off before the rest of the queue resumes.
func (r *Routine) Hazard(s device.Snapshot) bool {
	if s.Bumped() {
		r.mc.Stop()
		r.objs.AddBump(r.mc.Pose())
		r.log.Info("bumped", "left", s.BumpLeft, "right", s.BumpRight)
		_, _ = r.q.EnqueueFront(r.mc.Reverse(BumpBackoff, nil))
		return true
	}

	hit := false
	for _, v := range s.Cliff {
		hit = hit || objmap.CliffHazard(v)
	}
	if !hit {
		return false
	}
	r.mc.Stop()
	pose := r.mc.Pose()
	for i, v := range s.Cliff {
		r.objs.AddCliff(pose, i, v)
	}
	r.log.Info("cliff", "signals", s.Cliff)
	_, _ = r.q.EnqueueFront(r.mc.Reverse(CliffBackoff, nil))
	return true
}

// Abort empties the queue and stops the robot.
func (r *Routine) Abort(reason string) {
	r.q.Clear()
	r.mc.Stop()
	r.persist = false
	r.log.Warn("routine aborted", "reason", reason)
}

// Reset forgets the object map, the visit history and the pose.
func (r *Routine) Reset() {
	r.objs.Reset()
	r.heat.Reset()
	r.mc.Reset()
	r.persist = false
	r.fullAuto = false
}
