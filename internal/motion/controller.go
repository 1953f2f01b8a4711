// Package motion implements the closed-loop movement controller. Once per
// tick it integrates the dead-reckoned pose from the base's motion delta and,
// while a movement is active, converts the distance and heading error to the
// target into differential wheel speeds.
package motion

import (
	"math"

	"Roamer/internal/device"
	"Roamer/internal/geom"
	"Roamer/internal/util"
)

// Mode selects how the target is pursued.
type Mode uint8

const (
	// Linear drives to the target point.
	Linear Mode = iota
	// Rotate turns in place to the target heading.
	Rotate
)

// Tuning holds the empirically tuned controller constants. Speeds are wheel
// units (mm/s).
type Tuning struct {
	LinearSpeed    float64 `yaml:"linear_speed"`
	MinLinearSpeed float64 `yaml:"min_linear_speed"`
	RotateSpeed    float64 `yaml:"rotate_speed"`
	MinRotateSpeed float64 `yaml:"min_rotate_speed"`

	DistanceScale float64 `yaml:"distance_scale"`
	RotationScale float64 `yaml:"rotation_scale"`

	LookAhead       float64 `yaml:"look_ahead"`       // pure pursuit distance, mm
	ArriveTolerance float64 `yaml:"arrive_tolerance"` // mm
	FaceThreshold   float64 `yaml:"face_threshold"`   // deg, enter rotate-to-face
	Precision       float64 `yaml:"precision"`        // deg, leave rotate-to-face / finish rotate
	SpeedRamp       float64 `yaml:"speed_ramp"`       // mm of remaining distance at which speed saturates
	RotateRamp      float64 `yaml:"rotate_ramp"`      // deg of error at which rotate speed saturates
	SteerAuthority  float64 `yaml:"steer_authority"`  // deg of error for full wheel differential
	SteerOffset     float64 `yaml:"steer_offset"`     // wheel units removed from the inner wheel
	ReverseDerate   float64 `yaml:"reverse_derate"`
}

// DefaultTuning returns the constants tuned on the reference robot.
func DefaultTuning() Tuning {
	return Tuning{
		LinearSpeed:     180,
		MinLinearSpeed:  120,
		RotateSpeed:     120,
		MinRotateSpeed:  25,
		DistanceScale:   1,
		RotationScale:   1.007,
		LookAhead:       80,
		ArriveTolerance: 5,
		FaceThreshold:   4,
		Precision:       0.5,
		SpeedRamp:       150,
		RotateRamp:      20,
		SteerAuthority:  2,
		SteerOffset:     50,
		ReverseDerate:   0.75,
	}
}

// WithDefaults returns t with every zero field replaced by its default, so a
// config file only needs to name the constants it overrides.
func (t Tuning) WithDefaults() Tuning {
	d := DefaultTuning()
	fill := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&t.LinearSpeed, d.LinearSpeed)
	fill(&t.MinLinearSpeed, d.MinLinearSpeed)
	fill(&t.RotateSpeed, d.RotateSpeed)
	fill(&t.MinRotateSpeed, d.MinRotateSpeed)
	fill(&t.DistanceScale, d.DistanceScale)
	fill(&t.RotationScale, d.RotationScale)
	fill(&t.LookAhead, d.LookAhead)
	fill(&t.ArriveTolerance, d.ArriveTolerance)
	fill(&t.FaceThreshold, d.FaceThreshold)
	fill(&t.Precision, d.Precision)
	fill(&t.SpeedRamp, d.SpeedRamp)
	fill(&t.RotateRamp, d.RotateRamp)
	fill(&t.SteerAuthority, d.SteerAuthority)
	fill(&t.SteerOffset, d.SteerOffset)
	fill(&t.ReverseDerate, d.ReverseDerate)
	return t
}

// State is a read-only view of the controller for telemetry.
type State struct {
	Pose     geom.Pose
	Target   geom.Pose
	Approach float64
	Mode     Mode
	Reverse  bool
	Active   bool
	Done     bool
	Left     float64
	Right    float64
}

// Controller owns the robot pose and the movement target. It is driven from
// the control loop only.
type Controller struct {
	wheels device.Wheels
	tune   Tuning

	pose     geom.Pose
	target   geom.Pose
	approach float64
	mode     Mode
	reverse  bool

	active bool
	done   bool
	facing bool // rotating in place to face the target before driving

	left, right float64
}

// NewController creates a parked controller at the origin.
func NewController(w device.Wheels, t Tuning) *Controller {
	return &Controller{wheels: w, tune: t, done: true}
}

// Pose returns the current dead-reckoned pose.
func (c *Controller) Pose() geom.Pose { return c.pose }

// Target returns the current target pose. When parked it equals Pose.
func (c *Controller) Target() geom.Pose { return c.target }

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	return State{
		Pose:     c.pose,
		Target:   c.target,
		Approach: c.approach,
		Mode:     c.mode,
		Reverse:  c.reverse,
		Active:   c.active,
		Done:     c.done,
		Left:     c.left,
		Right:    c.right,
	}
}

// Update integrates the motion delta and steers toward the target.
func (c *Controller) Update(s device.Snapshot) {
	c.integrate(s)

	if !c.active {
		c.done = true
		return
	}
	c.done = false

	remaining := geom.Dist(c.pose.Point(), c.target.Point()) - c.approach
	switch {
	case c.mode == Linear && remaining > c.tune.ArriveTolerance:
		c.driveLinear(remaining)
	case c.mode == Rotate && math.Abs(c.target.Heading-c.pose.Heading) > c.tune.Precision:
		c.spin(c.target.Heading - c.pose.Heading)
	default:
		c.active = false
		c.done = true
	}
}

func (c *Controller) integrate(s device.Snapshot) {
	dir := geom.Dir(c.pose.Heading)
	c.pose.X += dir.X * s.Distance * c.tune.DistanceScale
	c.pose.Y += dir.Y * s.Distance * c.tune.DistanceScale
	c.pose.Heading += s.Angle * c.tune.RotationScale

	// keep heading in [0, 360) and the target on the same branch
	for c.pose.Heading >= 360 {
		c.pose.Heading -= 360
		c.target.Heading -= 360
	}
	for c.pose.Heading < 0 {
		c.pose.Heading += 360
		c.target.Heading += 360
	}
}

// bearing returns the heading toward p relative to the current heading,
// flipped when reversing.
func (c *Controller) bearing(x, y float64) float64 {
	b := geom.Deg(math.Atan2(y-c.pose.Y, x-c.pose.X))
	if c.reverse {
		b += 180
	}
	return geom.Relative(b, c.pose.Heading)
}

func (c *Controller) driveLinear(remaining float64) {
	t := c.tune
	bearing := c.bearing(c.target.X, c.target.Y)
	err := bearing - c.pose.Heading

	if math.Abs(err) > t.FaceThreshold {
		c.facing = true
	}
	if c.facing {
		if math.Abs(err) > t.Precision {
			c.spin(err)
			return
		}
		c.facing = false
	}

	steer := bearing
	if remaining > t.LookAhead {
		v := geom.LerpPoint(c.pose.Point(), c.target.Point(), t.LookAhead/remaining)
		steer = c.bearing(v.X, v.Y)
	}
	serr := steer - c.pose.Heading

	offset := t.SteerOffset
	if c.reverse {
		offset = -offset
	}
	speed := geom.Lerp(t.MinLinearSpeed, t.LinearSpeed, math.Min(1, remaining/t.SpeedRamp))
	// a positive error slows the left wheel, a negative one the right
	left := geom.Lerp(speed-offset, speed, math.Min(1, 1-math.Min(1, serr/t.SteerAuthority)))
	right := geom.Lerp(speed-offset, speed, math.Min(1, 1-math.Min(1, -serr/t.SteerAuthority)))

	if c.reverse {
		c.setWheels(-left*t.ReverseDerate, -right*t.ReverseDerate)
		return
	}
	c.setWheels(left, right)
}

// spin turns in place toward a signed heading error, counter-clockwise when
// err is positive.
func (c *Controller) spin(err float64) {
	t := c.tune
	speed := geom.Lerp(t.MinRotateSpeed, t.RotateSpeed, math.Min(1, math.Abs(err)/t.RotateRamp))
	if err > 0 {
		c.setWheels(-speed, speed)
	} else {
		c.setWheels(speed, -speed)
	}
}

func (c *Controller) setWheels(left, right float64) {
	c.left, c.right = left, right
	if c.wheels == nil {
		return
	}
	if err := c.wheels.SetWheels(left, right); err != nil {
		util.Warn("set wheels failed", "component", "motion", "err", err)
	}
}

// Stop halts the wheels and parks the target on the current pose.
func (c *Controller) Stop() {
	c.active = false
	c.done = true
	c.facing = false
	c.setWheels(0, 0)
	c.target = c.pose
}

// Reset moves pose and target back to the origin and stops.
func (c *Controller) Reset() {
	c.pose = geom.Pose{}
	c.target = geom.Pose{}
	c.Stop()
}

// Done is the completion predicate shared by all movement commands. It
// re-zeroes the wheels on every poll once the movement has finished.
func (c *Controller) Done(device.Snapshot) bool {
	if c.done {
		c.setWheels(0, 0)
	}
	return c.done
}

func (c *Controller) begin(mode Mode, reverse bool) {
	c.active = true
	c.done = false
	c.facing = false
	c.mode = mode
	c.reverse = reverse
}

// StartLinear advances the target d mm along the target heading.
func (c *Controller) StartLinear(d float64) {
	c.begin(Linear, false)
	c.approach = 0
	dir := geom.Dir(c.target.Heading)
	c.target.X += dir.X * d
	c.target.Y += dir.Y * d
}

// StartReverse moves the target d mm backwards along the target heading.
func (c *Controller) StartReverse(d float64) {
	c.begin(Linear, true)
	c.approach = 0
	dir := geom.Dir(c.target.Heading)
	c.target.X -= dir.X * d
	c.target.Y -= dir.Y * d
}

// StartApproach drives toward (x, y), stopping offset mm short of it.
func (c *Controller) StartApproach(x, y, offset float64) {
	c.begin(Linear, false)
	c.approach = offset
	c.target.X = x
	c.target.Y = y
}

// StartRotate turns the target heading by deg.
func (c *Controller) StartRotate(deg float64) {
	c.begin(Rotate, false)
	c.target.Heading = geom.Relative(c.target.Heading+deg, c.pose.Heading)
}

// StartRotateTo turns to the absolute heading deg.
func (c *Controller) StartRotateTo(deg float64) {
	c.begin(Rotate, false)
	c.target.Heading = geom.Relative(deg, c.pose.Heading)
}
