// Package device defines the narrow interfaces the navigation core consumes
// from the driver layer: a line-oriented link to the operator, the drive base
// (motion deltas, bumpers, cliff sensors, wheel speeds) and the scanning head.
package device

import "time"

// Device defines an abstract interface for line-based links (serial, pty).
// Implementations can provide ReadLine/WriteLine operations with optional timeout.
type Device interface {
	// ReadLine reads a single line terminated by '\n'.
	// If timeout > 0, it must return after timeout even if no data available.
	ReadLine(timeout time.Duration) (string, error)

	// WriteLine writes s followed by '\n' to the device.
	WriteLine(s string) error

	// Write writes raw bytes, used for binary telemetry frames.
	Write(p []byte) (int, error)

	// Close closes the device and releases underlying resources.
	Close() error
}

// CliffSensors is the number of downward-facing cliff sensors on the base.
const CliffSensors = 4

// Cliff sensor indices, left to right.
const (
	CliffLeft = iota
	CliffFrontLeft
	CliffFrontRight
	CliffRight
)

// Snapshot is the sensor state read once per control tick. Distance and
// Angle are deltas since the previous poll; the remaining fields are the most
// recent level reported by the hardware.
type Snapshot struct {
	Distance  float64           // mm travelled since last poll
	Angle     float64           // degrees turned since last poll, counter-clockwise positive
	BumpLeft  bool
	BumpRight bool
	Cliff     [CliffSensors]int // raw reflectance signal per cliff sensor
}

// Bumped reports whether either bumper is pressed.
func (s Snapshot) Bumped() bool { return s.BumpLeft || s.BumpRight }

// Wheels sets differential wheel speeds in mm/s.
type Wheels interface {
	SetWheels(left, right float64) error
}

// Base is the drive base: odometry and hazard sensors plus wheels.
type Base interface {
	Wheels
	Poll() (Snapshot, error)
}

// Scanner is the rotating sensor head carrying an IR range finder and an
// ultrasonic ranger.
type Scanner interface {
	// PointHead turns the head to deg, 0 is right of the robot, 90 straight ahead.
	PointHead(deg int) error
	// ReadIR returns the raw (uncalibrated) IR reading at the current head angle.
	ReadIR() (int, error)
	// ReadPing returns the ultrasonic distance in cm at the current head angle.
	ReadPing() (float64, error)
}

// HeadCalibrator is implemented by scanners that can run their own servo
// calibration.
type HeadCalibrator interface {
	CalibrateHead() error
}
