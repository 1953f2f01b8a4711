// Package gopigo drives a Dexter GoPiGo3 on a Raspberry Pi through gobot.
// The wheel encoders provide odometry, a servo on SERVO_1 turns the sensor
// head, a Garmin LIDAR-Lite on the Pi's I2C bus stands in for the ultrasonic
// ranger and an analog IR sensor on one of the Grove ports provides the raw
// IR readings.
//
// The GoPiGo3 has no bumpers or cliff sensors; Poll reports bumpers released
// and a neutral floor level on every cliff channel.
package gopigo

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"gobot.io/x/gobot/drivers/aio"
	"gobot.io/x/gobot/drivers/i2c"
	g "gobot.io/x/gobot/platforms/dexter/gopigo3"
	"gobot.io/x/gobot/platforms/raspi"

	"Roamer/internal/device"
	"Roamer/internal/util"
)

// FloorLevel is reported on every cliff channel.
const FloorLevel = 1500

// Config describes the GoPiGo3 build.
type Config struct {
	WheelDiameter float64       `yaml:"wheel_diameter"` // mm
	WheelBase     float64       `yaml:"wheel_base"`     // mm between wheel contact points
	IRPin         string        `yaml:"ir_pin"`         // Grove analog port, e.g. AD_1_1
	ServoMin      int           `yaml:"servo_min"`      // pulse width at 0 degrees, us
	ServoMax      int           `yaml:"servo_max"`      // pulse width at 180 degrees, us
	SweepTime     time.Duration `yaml:"sweep_time"`     // servo travel time for 180 degrees
}

// DefaultConfig matches a stock GoPiGo3 with the servo kit.
func DefaultConfig() Config {
	return Config{
		WheelDiameter: 66.5,
		WheelBase:     117,
		IRPin:         "AD_1_1",
		ServoMin:      575,
		ServoMax:      2425,
		SweepTime:     800 * time.Millisecond,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.WheelDiameter <= 0 {
		c.WheelDiameter = d.WheelDiameter
	}
	if c.WheelBase <= 0 {
		c.WheelBase = d.WheelBase
	}
	if c.IRPin == "" {
		c.IRPin = d.IRPin
	}
	if c.ServoMin <= 0 || c.ServoMax <= c.ServoMin {
		c.ServoMin, c.ServoMax = d.ServoMin, d.ServoMax
	}
	if c.SweepTime <= 0 {
		c.SweepTime = d.SweepTime
	}
}

// mmPerDegree is the wheel travel per degree of wheel rotation.
func (c Config) mmPerDegree() float64 { return math.Pi * c.WheelDiameter / 360 }

// board is the part of the GoPiGo3 driver the robot uses.
type board interface {
	SetMotorDps(motor g.Motor, dps int) error
	GetMotorEncoder(motor g.Motor) (int64, error)
	SetServo(servo g.Servo, us uint16) error
}

type ranger interface {
	Distance() (int, error)
}

type analog interface {
	Read() (int, error)
}

// Robot implements device.Base, device.Scanner and device.HeadCalibrator on a
// GoPiGo3.
type Robot struct {
	mu  sync.Mutex
	cfg Config

	board board
	lidar ranger
	ir    analog

	lastL, lastR int64
	primed       bool
	servoUs      int

	sleep   func(time.Duration)
	closers []func() error
	log     *slog.Logger
}

// Open connects to the Pi's GPIO, SPI and I2C buses and starts the drivers.
func Open(cfg Config) (*Robot, error) {
	cfg.applyDefaults()
	pi := raspi.NewAdaptor()
	if err := pi.Connect(); err != nil {
		return nil, fmt.Errorf("connect raspi: %w", err)
	}
	gpg := g.NewDriver(pi)
	if err := gpg.Start(); err != nil {
		_ = pi.Finalize()
		return nil, fmt.Errorf("start gopigo3: %w", err)
	}
	lidar := i2c.NewLIDARLiteDriver(pi)
	if err := lidar.Start(); err != nil {
		_ = gpg.Halt()
		_ = pi.Finalize()
		return nil, fmt.Errorf("start lidar: %w", err)
	}
	ir := aio.NewAnalogSensorDriver(gpg, cfg.IRPin)

	r := newRobot(cfg, gpg, lidar, ir)
	r.closers = []func() error{lidar.Halt, gpg.Halt, pi.Finalize}
	r.log.Info("gopigo3 ready", "ir_pin", cfg.IRPin)
	return r, nil
}

func newRobot(cfg Config, b board, l ranger, ir analog) *Robot {
	cfg.applyDefaults()
	return &Robot{
		cfg:     cfg,
		board:   b,
		lidar:   l,
		ir:      ir,
		servoUs: (cfg.ServoMin + cfg.ServoMax) / 2,
		sleep:   time.Sleep,
		log:     util.With("component", "gopigo"),
	}
}

// Close stops the motors and releases the drivers.
func (r *Robot) Close() error {
	_ = r.SetWheels(0, 0)
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SetWheels implements device.Wheels.
func (r *Robot) SetWheels(left, right float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.cfg.mmPerDegree()
	if err := r.board.SetMotorDps(g.MOTOR_LEFT, int(math.Round(left/k))); err != nil {
		return fmt.Errorf("left motor: %w", err)
	}
	if err := r.board.SetMotorDps(g.MOTOR_RIGHT, int(math.Round(right/k))); err != nil {
		return fmt.Errorf("right motor: %w", err)
	}
	return nil
}

// Poll implements device.Base. The first call establishes the encoder
// baseline and reports no motion.
func (r *Robot) Poll() (device.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := device.Snapshot{Cliff: [device.CliffSensors]int{FloorLevel, FloorLevel, FloorLevel, FloorLevel}}
	el, err := r.board.GetMotorEncoder(g.MOTOR_LEFT)
	if err != nil {
		return s, fmt.Errorf("left encoder: %w", err)
	}
	er, err := r.board.GetMotorEncoder(g.MOTOR_RIGHT)
	if err != nil {
		return s, fmt.Errorf("right encoder: %w", err)
	}
	if !r.primed {
		r.lastL, r.lastR, r.primed = el, er, true
		return s, nil
	}

	k := r.cfg.mmPerDegree()
	dl := float64(el-r.lastL) * k
	dr := float64(er-r.lastR) * k
	r.lastL, r.lastR = el, er

	s.Distance = (dl + dr) / 2
	s.Angle = (dr - dl) / r.cfg.WheelBase * 180 / math.Pi
	return s, nil
}

func (r *Robot) pulse(deg int) int {
	span := r.cfg.ServoMax - r.cfg.ServoMin
	return r.cfg.ServoMin + int(math.Round(float64(deg)/180*float64(span)))
}

// PointHead implements device.Scanner. It waits for the servo to travel,
// proportionally to the distance moved.
func (r *Robot) PointHead(deg int) error {
	if deg < 0 || deg > 180 {
		return fmt.Errorf("head angle %d out of range", deg)
	}
	r.mu.Lock()
	us := r.pulse(deg)
	err := r.board.SetServo(g.SERVO_1, uint16(us))
	span := r.cfg.ServoMax - r.cfg.ServoMin
	wait := time.Duration(abs(us-r.servoUs)) * r.cfg.SweepTime / time.Duration(span)
	r.servoUs = us
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("servo: %w", err)
	}
	r.sleep(wait)
	return nil
}

// ReadIR implements device.Scanner.
func (r *Robot) ReadIR() (int, error) {
	v, err := r.ir.Read()
	if err != nil {
		return 0, fmt.Errorf("read ir: %w", err)
	}
	return v, nil
}

// ReadPing implements device.Scanner with the LIDAR-Lite, which reports cm.
func (r *Robot) ReadPing() (float64, error) {
	cm, err := r.lidar.Distance()
	if err != nil {
		return 0, fmt.Errorf("read lidar: %w", err)
	}
	return float64(cm), nil
}

// CalibrateHead implements device.HeadCalibrator. It drives the servo to both
// configured end points so they can be checked by eye, then centres it.
func (r *Robot) CalibrateHead() error {
	for _, deg := range []int{0, 180, 90} {
		if err := r.PointHead(deg); err != nil {
			return err
		}
		r.log.Info("servo end point", "deg", deg, "us", r.pulse(deg))
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
