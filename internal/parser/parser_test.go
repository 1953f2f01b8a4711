package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Roamer/internal/device"
	"Roamer/internal/geom"
	"Roamer/internal/model"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want model.ControlCommand
	}{
		{"k", model.ControlCommand{Op: 'k'}},
		{"f300\r\n", model.ControlCommand{Op: 'f', Value: 300, HasValue: true}},
		{"t-90", model.ControlCommand{Op: 't', Value: -90, HasValue: true}},
		{"  m50005000 ", model.ControlCommand{Op: 'm', Value: 50005000, HasValue: true}},
		{"*", model.ControlCommand{Op: '*'}},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			got, err := ParseCommand(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	_, err := ParseCommand("  \n")
	assert.ErrorIs(t, err, ErrEmptyCommand)

	_, err = ParseCommand("forward 100")
	assert.Error(t, err)
}

func TestFormatCommand(t *testing.T) {
	assert.Equal(t, "k", FormatCommand(model.ControlCommand{Op: 'k'}))
	assert.Equal(t, "r100", FormatCommand(model.ControlCommand{Op: 'r', Value: 100, HasValue: true}))
}

func TestMoveToPacking(t *testing.T) {
	for _, p := range [][2]int{{0, 0}, {500, 500}, {-4999, 4999}, {1234, -321}} {
		cmd := EncodeMoveTo(p[0], p[1])
		line := FormatCommand(cmd)
		parsed, err := ParseCommand(line)
		require.NoError(t, err)
		x, y := DecodeMoveTo(parsed.Value)
		assert.Equal(t, float64(p[0]), x, line)
		assert.Equal(t, float64(p[1]), y, line)
	}
	assert.Equal(t, "m55005500", FormatCommand(EncodeMoveTo(500, 500)))
}

func TestOdometryLine(t *testing.T) {
	s := device.Snapshot{Distance: 12.5, Angle: -1.25, BumpRight: true, Cliff: [4]int{1500, 400, 1500, 2700}}
	got, err := ParseOdometryCSV(EncodeOdometry(s))
	require.NoError(t, err)
	assert.Equal(t, s, got)

	_, err = ParseOdometryCSV("O,1,2")
	assert.Error(t, err)
	_, err = ParseOdometryCSV("O,x,0,0,0,0,0,0,0")
	assert.Error(t, err)
}

func TestWheelsLine(t *testing.T) {
	l, r, err := ParseWheelsCSV(EncodeWheels(-120, 95.6))
	require.NoError(t, err)
	assert.Equal(t, -120.0, l)
	assert.Equal(t, 96.0, r)

	_, _, err = ParseWheelsCSV("O,1,2")
	assert.Error(t, err)
}

func TestTelemetryParsers(t *testing.T) {
	in := model.Telemetry{
		Robot:  geom.Pose{X: 10, Y: 20, Heading: 30},
		Target: geom.Pose{X: 40, Y: 50, Heading: 60},
		Mode:   1,
	}

	for _, name := range []string{"json", "csv"} {
		t.Run(name, func(t *testing.T) {
			p, err := ForFormat(name)
			require.NoError(t, err)
			line, err := p.EncodeTelemetry(in)
			require.NoError(t, err)
			out, err := p.DecodeTelemetry(line)
			require.NoError(t, err)
			assert.Equal(t, in.Robot, out.Robot)
			assert.Equal(t, in.Target, out.Target)
			assert.Equal(t, in.Mode, out.Mode)
		})
	}

	_, err := ForFormat("xml")
	assert.Error(t, err)
}
