// Package core contains the runtime layer: the robot's control loop, the
// System that wires a platform from configuration, and the monitor-side
// Bridge that talks to the robot over its link.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"Roamer/internal/calib"
	"Roamer/internal/command"
	"Roamer/internal/device"
	"Roamer/internal/explore"
	"Roamer/internal/heatmap"
	"Roamer/internal/model"
	"Roamer/internal/motion"
	"Roamer/internal/objmap"
	"Roamer/internal/parser"
	"Roamer/internal/telemetry"
	"Roamer/internal/util"
)

// Reply lines sent to the monitor.
const (
	StartLine = "-------------start--------------"
	DoneLine  = "done"
)

// neutralCliff lies between the hole and wall thresholds.
const neutralCliff = (objmap.HoleSignal + objmap.WallSignal) / 2

// RobotOptions configures a Robot.
type RobotOptions struct {
	ID     string
	Base   device.Base
	Head   device.Scanner // nil when the platform has no sensor head
	Link   device.Device  // nil runs without an operator
	Tick   time.Duration
	Tuning motion.Tuning
	Curve  calib.Curve
	Seed   uint64
}

// Robot is the control loop. All navigation state is owned by the goroutine
// running Run; the link reader only forwards lines over a channel.
type Robot struct {
	id   string
	base device.Base
	head device.Scanner
	link device.Device
	tick time.Duration

	mc      *motion.Controller
	q       *command.Queue
	objs    *objmap.Map
	heat    *heatmap.Map
	routine *explore.Routine

	sentVersion uint64
	lastCliff   [device.CliffSensors]int
	log         *slog.Logger
}

// NewRobot wires the navigation core around a platform.
func NewRobot(o RobotOptions) *Robot {
	if o.Tick <= 0 {
		o.Tick = 20 * time.Millisecond
	}
	if o.Seed == 0 {
		o.Seed = rand.Uint64()
	}
	mc := motion.NewController(o.Base, o.Tuning.WithDefaults())
	q := command.NewQueue(mc)
	objs := objmap.New()
	heat := heatmap.New()
	rng := rand.New(rand.NewPCG(o.Seed, o.Seed^0x9e3779b97f4a7c15))
	r := &Robot{
		id:      o.ID,
		base:    o.Base,
		head:    o.Head,
		link:    o.Link,
		tick:    o.Tick,
		mc:      mc,
		q:       q,
		objs:    objs,
		heat:    heat,
		routine: explore.New(q, mc, objs, heat, o.Head, o.Curve, rng),
		log:     util.With("component", "robot", "id", o.ID),
	}
	for i := range r.lastCliff {
		r.lastCliff[i] = neutralCliff
	}
	return r
}

// Controller exposes the movement controller, for tests and telemetry.
func (r *Robot) Controller() *motion.Controller { return r.mc }

// Queue exposes the command queue.
func (r *Robot) Queue() *command.Queue { return r.q }

// Objects exposes the object map.
func (r *Robot) Objects() *objmap.Map { return r.objs }

// Routine exposes the exploration routine.
func (r *Robot) Routine() *explore.Routine { return r.routine }

// Run executes the control loop until ctx is cancelled or the operator sends
// the end opcode.
func (r *Robot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string, 16)
	if r.link != nil {
		go r.readLink(ctx, lines)
	}

	r.reply(StartLine)
	r.sendFrame(true)
	r.log.Info("control loop started", "tick", r.tick)

	t := time.NewTicker(r.tick)
	defer t.Stop()
	defer r.mc.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("control loop stopped")
			return nil
		case line := <-lines:
			if !r.Handle(line) {
				r.reply(DoneLine)
				r.log.Info("control loop ended by operator")
				return nil
			}
		case <-t.C:
			r.Tick()
		}
	}
}

// readLink forwards operator lines to the loop until the link closes.
func (r *Robot) readLink(ctx context.Context, out chan<- string) {
	for {
		line, err := r.link.ReadLine(0)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				r.log.Warn("link read failed", "err", err)
			}
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, device.ErrNotOpen) {
				return
			}
			time.Sleep(r.tick)
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		select {
		case out <- line:
		case <-ctx.Done():
			return
		}
	}
}

// Tick polls the base and advances the queue once. While the queue holds
// commands a telemetry frame is sent every tick. An idle tick leaves the base
// alone so odometry keeps accumulating until the next command reads it.
func (r *Robot) Tick() {
	if r.q.Size() == 0 {
		return
	}
	s, err := r.base.Poll()
	if err != nil {
		// no motion and no new hazards, cliff levels as last seen
		r.log.Warn("poll failed", "err", err)
		s = device.Snapshot{Cliff: r.lastCliff}
	}
	r.lastCliff = s.Cliff
	r.q.Tick(s)
	if r.q.Size() > 0 {
		r.sendFrame(false)
	}
}

// Handle dispatches one operator line. It returns false when the loop should
// end.
func (r *Robot) Handle(line string) bool {
	cmd, err := parser.ParseCommand(line)
	if err != nil {
		r.log.Debug("bad command", "line", line, "err", err)
		return true
	}
	r.log.Debug("command", "op", string(cmd.Op), "value", cmd.Value)

	switch cmd.Op {
	case 'e':
		return false
	case 'k':
		r.q.Clear()
		r.mc.Stop()
		r.sendFrame(false)
	case 's':
		if _, err := r.routine.Scan(); err != nil {
			r.reply("scan failed: " + err.Error())
		}
		r.sendFrame(false)
	case 'a':
		r.routine.Start()
	case 'g':
		r.routine.Step()
	case 'o':
		r.routine.Approach(false)
	case 'p':
		r.routine.Approach(true)
	case 'c':
		r.calibrateHead()
	case 'i':
		r.routine.Calibrate()
	case '*':
		r.ping()
	case '!':
		r.q.Clear()
		r.routine.Reset()
		r.sendFrame(true)
	case 'f', 'r', 't', 'm':
		if !cmd.HasValue {
			r.log.Debug("missing value", "op", string(cmd.Op))
			return true
		}
		r.manual(cmd)
	default:
		r.log.Debug("unknown opcode", "op", string(cmd.Op))
	}
	return true
}

func (r *Robot) manual(cmd model.ControlCommand) {
	v := float64(cmd.Value)
	switch cmd.Op {
	case 'f':
		r.enqueue(r.mc.Move(v, r.routine.BumpTurn))
	case 'r':
		r.enqueue(r.mc.Reverse(v, nil))
	case 't':
		r.mc.Stop()
		r.q.Clear()
		r.enqueue(r.mc.Rotate(v, nil))
	case 'm':
		r.mc.Stop()
		x, y := parser.DecodeMoveTo(cmd.Value)
		r.reply(fmt.Sprintf("click move to: (%.0f, %.0f)", x, y))
		r.q.Clear()
		r.enqueue(r.mc.MoveTo(x, y, r.routine.BumpTurn))
	}
}

func (r *Robot) enqueue(cmd command.Command) {
	// the queue logs drops
	_, _ = r.q.Enqueue(cmd)
}

func (r *Robot) calibrateHead() {
	hc, ok := r.head.(device.HeadCalibrator)
	if !ok {
		r.reply("servo calibration not supported")
		return
	}
	if err := hc.CalibrateHead(); err != nil {
		r.reply("servo calibration failed: " + err.Error())
	}
}

func (r *Robot) ping() {
	if r.head == nil {
		r.reply("ping: no sensor head")
		return
	}
	d, err := r.head.ReadPing()
	if err != nil {
		r.reply("ping failed: " + err.Error())
		return
	}
	r.reply(fmt.Sprintf("ping dist: %.5f", d))
}

// Snapshot returns the current telemetry record. Objects are attached when
// withObjects is set.
func (r *Robot) Snapshot(withObjects bool) model.Telemetry {
	st := r.mc.State()
	t := model.Telemetry{
		Robot:      st.Pose,
		Target:     st.Target,
		Approach:   st.Approach,
		Mode:       uint8(st.Mode),
		HasObjects: withObjects,
	}
	if withObjects {
		for _, o := range r.objs.All() {
			t.Objects = append(t.Objects, model.ObjectRecord{X: o.X, Y: o.Y, Radius: o.Radius, Type: uint8(o.Type)})
		}
	}
	return t
}

// sendFrame writes a telemetry frame. The obstacle list is included when
// forced or when the map changed since it was last sent.
func (r *Robot) sendFrame(force bool) {
	if r.link == nil {
		return
	}
	v := r.objs.Version()
	with := force || v != r.sentVersion
	b, err := telemetry.Encode(r.Snapshot(with))
	if err != nil {
		r.log.Warn("encode telemetry failed", "err", err)
		return
	}
	if _, err := r.link.Write(b); err != nil {
		r.log.Warn("telemetry write failed", "err", err)
		return
	}
	if with {
		r.sentVersion = v
	}
}

func (r *Robot) reply(line string) {
	if r.link == nil {
		r.log.Info(line)
		return
	}
	if err := r.link.WriteLine(line); err != nil {
		r.log.Warn("link write failed", "err", err)
	}
}
