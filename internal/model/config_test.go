package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Roamer/internal/motion"
	"Roamer/internal/platform/sim"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "robot:\n  id: r2\n"))
	require.NoError(t, err)

	assert.Equal(t, "r2", cfg.Robot.ID)
	assert.Equal(t, 20, cfg.Robot.TickMs)
	assert.Equal(t, PlatformSim, cfg.Robot.Platform)
	assert.Equal(t, 115200, cfg.Link.Baud)
	assert.Equal(t, motion.DefaultTuning(), cfg.Motion)
	assert.Equal(t, ":8080", cfg.Monitor.Addr)
	assert.Equal(t, "json", cfg.Monitor.WireFormat)
	assert.Equal(t, sim.DefaultConfig().HalfSize, cfg.Sim.HalfSize)
	assert.InDelta(t, 0.02, cfg.Sim.Step, 1e-12)
	assert.Equal(t, sim.DefaultConfig().Curve.A, cfg.Calibration.IRA)
}

func TestLoadConfig_Overrides(t *testing.T) {
	body := `
robot:
  platform: serial
  tick_ms: 50
base:
  device: /dev/ttyACM0
motion:
  linear_speed: 220
sim:
  obstacles:
    - { x: 100, y: -50, radius: 40, kind: hole }
`
	cfg, err := LoadConfig(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, PlatformSerial, cfg.Robot.Platform)
	assert.Equal(t, "/dev/ttyACM0", cfg.Base.Device)
	assert.Equal(t, 220.0, cfg.Motion.LinearSpeed)
	assert.Equal(t, motion.DefaultTuning().RotateSpeed, cfg.Motion.RotateSpeed)
	require.Len(t, cfg.Sim.Obstacles, 1)
	assert.Equal(t, sim.Pit, cfg.Sim.Obstacles[0].Kind)
	assert.InDelta(t, 0.05, cfg.Sim.Step, 1e-12)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown platform", "robot:\n  platform: tank\n"},
		{"serial without device", "robot:\n  platform: serial\n"},
		{"bad wire format", "monitor:\n  wire_format: xml\n"},
		{"servo range", "calibration:\n  servo_min_us: 2000\n  servo_max_us: 1000\n"},
		{"bad yaml", "robot: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfig_ShippedFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "config.yml"))
	require.NoError(t, err)
	assert.Equal(t, "roamer-01", cfg.Robot.ID)
	assert.Len(t, cfg.Sim.Obstacles, 4)
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("ROAMER_CONFIG", "")
	assert.Equal(t, "configs/config.yml", DefaultConfigPath())
	t.Setenv("ROAMER_CONFIG", "/etc/roamer.yml")
	assert.Equal(t, "/etc/roamer.yml", DefaultConfigPath())
}
