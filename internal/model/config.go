// Package model defines shared configuration structures used to initialize
// the robot, its platform back-end and the monitor.
package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"Roamer/internal/motion"
	"Roamer/internal/platform/sim"
)

// Platforms accepted in robot.platform.
const (
	PlatformSim    = "sim"
	PlatformSerial = "serial"
	PlatformGoPiGo = "gopigo"
)

// Config represents the root structure loaded from configs/config.yml.
type Config struct {
	Robot       RobotConfig       `yaml:"robot"`
	Link        LinkConfig        `yaml:"link"` // operator link on the robot side
	Base        LinkConfig        `yaml:"base"` // serial drive base
	Motion      motion.Tuning     `yaml:"motion"`
	Calibration CalibrationConfig `yaml:"calibration"`
	GoPiGo      GoPiGoConfig      `yaml:"gopigo"`
	Monitor     MonitorConfig     `yaml:"monitor"`
	Sim         sim.Config        `yaml:"sim"`
}

// RobotConfig holds the control loop settings.
type RobotConfig struct {
	ID        string `yaml:"id"`
	TickMs    int    `yaml:"tick_ms"`
	Platform  string `yaml:"platform"` // sim, serial or gopigo
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // text or json
	Seed      uint64 `yaml:"seed"`       // exploration RNG seed, 0 picks one at start
}

// LinkConfig names a serial device.
type LinkConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// CalibrationConfig holds the stored IR curve and servo end points.
type CalibrationConfig struct {
	IRA        float64 `yaml:"ir_a"`
	IRB        float64 `yaml:"ir_b"`
	ServoMinUs int     `yaml:"servo_min_us"`
	ServoMaxUs int     `yaml:"servo_max_us"`
}

// GoPiGoConfig describes the GoPiGo3 build when robot.platform is gopigo.
type GoPiGoConfig struct {
	WheelDiameter float64 `yaml:"wheel_diameter"`
	WheelBase     float64 `yaml:"wheel_base"`
	IRPin         string  `yaml:"ir_pin"`
}

// MonitorConfig holds the monitor's web server and robot link settings.
type MonitorConfig struct {
	Addr       string     `yaml:"addr"`
	DBPath     string     `yaml:"db_path"`
	WireFormat string     `yaml:"wire_format"` // csv or json for /ws clients
	Link       LinkConfig `yaml:"link"`
}

const defaultBaud = 115200

// DefaultConfigPath is $ROAMER_CONFIG, or configs/config.yml when unset.
func DefaultConfigPath() string {
	if p := os.Getenv("ROAMER_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yml"
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.Robot.ID == "" {
		c.Robot.ID = "roamer"
	}
	if c.Robot.TickMs <= 0 {
		c.Robot.TickMs = 20
	}
	if c.Robot.Platform == "" {
		c.Robot.Platform = PlatformSim
	}
	if c.Robot.LogLevel == "" {
		c.Robot.LogLevel = "info"
	}
	if c.Link.Baud <= 0 {
		c.Link.Baud = defaultBaud
	}
	if c.Base.Baud <= 0 {
		c.Base.Baud = defaultBaud
	}
	c.Motion = c.Motion.WithDefaults()
	d := sim.DefaultConfig()
	if c.Calibration.IRA == 0 && c.Calibration.IRB == 0 {
		c.Calibration.IRA, c.Calibration.IRB = d.Curve.A, d.Curve.B
	}
	if c.Monitor.Addr == "" {
		c.Monitor.Addr = ":8080"
	}
	if c.Monitor.DBPath == "" {
		c.Monitor.DBPath = "tmp/roamer.db"
	}
	if c.Monitor.WireFormat == "" {
		c.Monitor.WireFormat = "json"
	}
	if c.Monitor.Link.Baud <= 0 {
		c.Monitor.Link.Baud = c.Link.Baud
	}
	if c.Sim.HalfSize <= 0 {
		c.Sim.HalfSize = d.HalfSize
	}
	if c.Sim.Track <= 0 {
		c.Sim.Track = d.Track
	}
	if c.Sim.Step <= 0 {
		c.Sim.Step = float64(c.Robot.TickMs) / 1000
	}
}

// Validate reports configuration errors that defaults cannot fix.
func (c *Config) Validate() error {
	switch c.Robot.Platform {
	case PlatformSim, PlatformGoPiGo:
	case PlatformSerial:
		if c.Base.Device == "" {
			return fmt.Errorf("platform %q needs base.device", c.Robot.Platform)
		}
	default:
		return fmt.Errorf("unknown platform %q", c.Robot.Platform)
	}
	switch c.Monitor.WireFormat {
	case "csv", "json":
	default:
		return fmt.Errorf("unknown wire format %q", c.Monitor.WireFormat)
	}
	if c.Calibration.ServoMinUs > 0 && c.Calibration.ServoMaxUs <= c.Calibration.ServoMinUs {
		return fmt.Errorf("servo_max_us %d must exceed servo_min_us %d",
			c.Calibration.ServoMaxUs, c.Calibration.ServoMinUs)
	}
	return nil
}

// LoadConfig reads the YAML file at path, applies defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
