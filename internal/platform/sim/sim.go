// Package sim is a simulated drive base and sensor head in a square arena
// bounded by floor tape. Time advances by a fixed step on every Poll, which
// keeps runs deterministic regardless of the control loop's period.
package sim

import (
	"fmt"
	"math"
	"sync"

	"github.com/golang/geo/r2"

	"Roamer/internal/calib"
	"Roamer/internal/device"
	"Roamer/internal/geom"
	"Roamer/internal/objmap"
	"Roamer/internal/util"
)

// Kind is the kind of a simulated obstacle.
type Kind string

const (
	Post Kind = "post" // tall, seen by the head and bumpers
	Low  Kind = "low"  // below the head, found only by bumping
	Pit  Kind = "hole" // dark patch on the floor
)

// Cliff sensor levels reported by the simulated floor.
const (
	FloorSignal = 1500
	HoleSignal  = 100
	TapeSignal  = 2800
)

const (
	robotRadius = 160.0
	headOffset  = 90.0
	maxRangeCm  = 300.0
	// degrees the servo trails the commanded angle during a 1 degree sweep
	sweepLag = 5
)

// Obstacle is a circle in the arena.
type Obstacle struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Radius float64 `yaml:"radius"`
	Kind   Kind    `yaml:"kind"`
}

func (o Obstacle) center() r2.Point { return r2.Point{X: o.X, Y: o.Y} }

// Config describes the arena and the robot's geometry.
type Config struct {
	HalfSize  float64     `yaml:"half_size"` // arena spans [-HalfSize, HalfSize] on both axes, mm
	Track     float64     `yaml:"track"`     // wheel separation, mm
	Step      float64     `yaml:"step"`      // simulated seconds per poll
	Curve     calib.Curve `yaml:"-"`         // IR response of the simulated sensor
	Obstacles []Obstacle  `yaml:"obstacles"`
}

// DefaultConfig is a 4 m arena with no obstacles.
func DefaultConfig() Config {
	return Config{
		HalfSize: 2000,
		Track:    235,
		Step:     0.02,
		Curve:    calib.Curve{A: 36906.015625, B: 2.875138},
	}
}

// World is the simulated robot and arena. It implements device.Base,
// device.Scanner and device.HeadCalibrator.
type World struct {
	mu   sync.Mutex
	cfg  Config
	pose geom.Pose // ground truth

	left, right float64
	aim         int // commanded head angle
	head        int // physical head angle
	bumpL       bool
	bumpR       bool
}

// New creates a world with the robot at the origin facing +x.
func New(cfg Config) *World {
	d := DefaultConfig()
	if cfg.Track <= 0 {
		cfg.Track = d.Track
	}
	if cfg.Step <= 0 {
		cfg.Step = d.Step
	}
	if cfg.HalfSize <= 0 {
		cfg.HalfSize = d.HalfSize
	}
	if cfg.Curve.Zero() {
		cfg.Curve = d.Curve
	}
	return &World{cfg: cfg, aim: 90, head: 90}
}

// Pose returns the true robot pose.
func (w *World) Pose() geom.Pose {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pose
}

// Place moves the robot without producing odometry.
func (w *World) Place(p geom.Pose) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pose = p
}

// Wheels returns the last commanded wheel speeds.
func (w *World) Wheels() (left, right float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.left, w.right
}

// SetWheels implements device.Wheels.
func (w *World) SetWheels(left, right float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.left, w.right = left, right
	return nil
}

// Poll advances the simulation by one step and returns the odometry delta
// and hazard sensors.
func (w *World) Poll() (device.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	dt := w.cfg.Step
	dist := (w.left + w.right) / 2 * dt
	turn := geom.Deg((w.right - w.left) / w.cfg.Track * dt)

	mid := w.pose.Heading + turn/2
	next := w.pose.Point().Add(geom.Dir(mid).Mul(dist))

	w.bumpL, w.bumpR = false, false
	if blocker, hit := w.collides(w.pose.Point(), next); hit {
		w.setBumpers(blocker)
		next = w.pose.Point()
		dist = 0
	}

	w.pose.X, w.pose.Y = next.X, next.Y
	w.pose.Heading = geom.Normalize(w.pose.Heading + turn)

	s := device.Snapshot{
		Distance:  dist,
		Angle:     turn,
		BumpLeft:  w.bumpL,
		BumpRight: w.bumpR,
	}
	for i := range s.Cliff {
		s.Cliff[i] = w.floor(objmap.CliffPoint(w.pose, i))
	}
	return s, nil
}

// collides reports the first solid obstacle the robot would push into when
// moving from a to b.
func (w *World) collides(a, b r2.Point) (Obstacle, bool) {
	for _, o := range w.cfg.Obstacles {
		if o.Kind == Pit {
			continue
		}
		r := o.Radius + robotRadius
		nb := geom.Dist(b, o.center())
		if nb < r && nb < geom.Dist(a, o.center()) {
			return o, true
		}
	}
	return Obstacle{}, false
}

func (w *World) setBumpers(o Obstacle) {
	rel := geom.Relative(geom.Bearing(w.pose.Point(), o.center()), w.pose.Heading) - w.pose.Heading
	w.bumpL = rel >= -15 && rel < 90
	w.bumpR = rel <= 15 && rel > -90
}

func (w *World) floor(p r2.Point) int {
	if math.Abs(p.X) > w.cfg.HalfSize || math.Abs(p.Y) > w.cfg.HalfSize {
		return TapeSignal
	}
	for _, o := range w.cfg.Obstacles {
		if o.Kind == Pit && geom.Dist(p, o.center()) <= o.Radius {
			return HoleSignal
		}
	}
	return FloorSignal
}

// PointHead implements device.Scanner.
func (w *World) PointHead(deg int) error {
	if deg < 0 || deg > 180 {
		return fmt.Errorf("head angle %d out of range", deg)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if deg == w.aim+1 {
		w.head = max(0, deg-sweepLag)
	} else {
		w.head = deg
	}
	w.aim = deg
	return nil
}

// rangeCm casts a ray from the head and returns the distance to the nearest
// post in cm, capped at the sensor range.
func (w *World) rangeCm() float64 {
	origin := w.pose.Forward(headOffset)
	dir := geom.Dir(w.pose.Heading + float64(w.head) - 90)
	best := maxRangeCm * 10
	for _, o := range w.cfg.Obstacles {
		if o.Kind != Post {
			continue
		}
		if t, ok := rayCircle(origin, dir, o.center(), o.Radius); ok && t < best {
			best = t
		}
	}
	return best / 10
}

// rayCircle returns the distance along a unit ray to its first intersection
// with a circle.
func rayCircle(origin, dir, c r2.Point, r float64) (float64, bool) {
	f := origin.Sub(c)
	b := f.Dot(dir)
	disc := b*b - (f.Dot(f) - r*r)
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	if t := -b - sq; t >= 0 {
		return t, true
	}
	if t := -b + sq; t >= 0 {
		return 0, true // inside the circle
	}
	return 0, false
}

// ReadIR implements device.Scanner.
func (w *World) ReadIR() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.Curve.Raw(w.rangeCm()), nil
}

// ReadPing implements device.Scanner.
func (w *World) ReadPing() (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rangeCm(), nil
}

// CalibrateHead implements device.HeadCalibrator. The simulated servo needs
// no calibration.
func (w *World) CalibrateHead() error {
	util.Info("simulated head needs no calibration", "component", "sim")
	return nil
}
