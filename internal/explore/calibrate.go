package explore

import (
	"Roamer/internal/calib"
	"Roamer/internal/command"
	"Roamer/internal/device"
	"Roamer/internal/scan"
)

const (
	CalibrationPoints = 10
	calStartReverse   = 100.0
	calStepReverse    = 50.0
	calMinRaw         = 100
	calMinFirstRaw    = 1000
	calHead           = 90
	calFloorSamples   = 8
)

type calibration struct {
	fit  calib.Fit
	step int
}

// Calibrate fits the IR curve against the ultrasonic ranger. The robot backs
// away from a surface in front of it in 50 mm steps and records a raw IR and
// ping pair after each one.
func (r *Routine) Calibrate() {
	if r.head == nil {
		r.log.Warn("ir calibration skipped", "err", ErrNoScanner)
		return
	}
	r.cal = calibration{}
	if err := r.head.PointHead(calHead); err != nil {
		r.log.Warn("point head failed", "err", err)
	}
	r.enqueue(r.mc.Reverse(calStartReverse, nil))
	r.enqueue(r.calPoint())
}

// calPoint holds the robot still and completes once a sample was taken.
func (r *Routine) calPoint() command.Command {
	cmd := r.mc.Rotate(0, nil)
	cmd.Name = "ir-calibrate"
	cmd.Complete = r.calSample
	return cmd
}

// calSample is the completion predicate of a calibration point. A reading
// that is too weak keeps the command running so it is retried on the next
// tick.
func (r *Routine) calSample(s device.Snapshot) bool {
	if !r.mc.Done(s) {
		return false
	}
	if err := r.head.PointHead(calHead); err != nil {
		r.log.Warn("point head failed", "err", err)
		return false
	}
	raw, err := scan.FloorSample(r.head, calFloorSamples)
	if err != nil {
		r.log.Warn("ir sample failed", "err", err)
		return false
	}
	if raw < calMinRaw || (r.cal.step == 0 && raw < calMinFirstRaw) {
		r.log.Debug("ir sample rejected", "raw", raw, "step", r.cal.step)
		return false
	}
	ping, err := r.head.ReadPing()
	if err != nil {
		r.log.Warn("ping failed", "err", err)
		return false
	}

	r.cal.fit.Add(float64(raw), ping)
	r.cal.step++
	r.log.Info("calibration point", "step", r.cal.step, "raw", raw, "ping", ping)

	if r.cal.step >= CalibrationPoints {
		c := r.cal.fit.Calculate()
		if c.Zero() {
			r.log.Warn("ir calibration failed, keeping previous curve", "a", r.curve.A, "b", r.curve.B)
			return true
		}
		r.curve = c
		r.log.Info("ir calibration done", "a", c.A, "b", c.B)
		return true
	}

	r.enqueue(r.mc.Reverse(calStepReverse, nil))
	r.enqueue(r.calPoint())
	return true
}
