// Package parser implements the CSVParser which handles encoding and decoding
// of pose-only telemetry and drive base lines using comma-separated values.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"Roamer/internal/device"
	"Roamer/internal/model"
)

// CSVParser implements Parser interface using CSV format. Obstacles are not
// carried, only their count.
// Example telemetry CSV: X,Y,HEADING,TARGET_X,TARGET_Y,TARGET_HEADING,APPROACH,MODE,OBJECTS
type CSVParser struct{}

// NewCSVParser creates a new CSV parser instance.
func NewCSVParser() *CSVParser { return &CSVParser{} }

// EncodeTelemetry converts Telemetry into CSV string.
func (p *CSVParser) EncodeTelemetry(t model.Telemetry) (string, error) {
	line := fmt.Sprintf("%.1f,%.1f,%.2f,%.1f,%.1f,%.2f,%.1f,%d,%d",
		t.Robot.X, t.Robot.Y, t.Robot.Heading,
		t.Target.X, t.Target.Y, t.Target.Heading,
		t.Approach, t.Mode, len(t.Objects))
	return line, nil
}

// DecodeTelemetry parses a CSV telemetry line into Telemetry struct.
func (p *CSVParser) DecodeTelemetry(line string) (model.Telemetry, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 9 {
		return model.Telemetry{}, fmt.Errorf("expected 9 fields, got %d", len(fields))
	}
	var vals [7]float64
	for i := range vals {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return model.Telemetry{}, fmt.Errorf("invalid field %d: %w", i, err)
		}
		vals[i] = v
	}
	mode, err := strconv.ParseUint(fields[7], 10, 8)
	if err != nil {
		return model.Telemetry{}, errors.New("invalid mode")
	}
	t := model.Telemetry{
		Approach: vals[6],
		Mode:     uint8(mode),
	}
	t.Robot.X, t.Robot.Y, t.Robot.Heading = vals[0], vals[1], vals[2]
	t.Target.X, t.Target.Y, t.Target.Heading = vals[3], vals[4], vals[5]
	return t, nil
}

// EncodeOdometry converts a sensor snapshot into an "O" line.
func EncodeOdometry(s device.Snapshot) string {
	return fmt.Sprintf("O,%.2f,%.2f,%d,%d,%d,%d,%d,%d",
		s.Distance, s.Angle, b2i(s.BumpLeft), b2i(s.BumpRight),
		s.Cliff[0], s.Cliff[1], s.Cliff[2], s.Cliff[3])
}

// ParseOdometryCSV parses an "O" line sent by the drive base.
func ParseOdometryCSV(line string) (device.Snapshot, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 9 || fields[0] != "O" {
		return device.Snapshot{}, fmt.Errorf("expected 9 field odometry line, got %q", line)
	}
	dist, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return device.Snapshot{}, errors.New("invalid distance")
	}
	angle, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return device.Snapshot{}, errors.New("invalid angle")
	}
	s := device.Snapshot{
		Distance:  dist,
		Angle:     angle,
		BumpLeft:  fields[3] == "1",
		BumpRight: fields[4] == "1",
	}
	for i := range s.Cliff {
		v, err := strconv.Atoi(fields[5+i])
		if err != nil {
			return device.Snapshot{}, fmt.Errorf("invalid cliff signal %d", i)
		}
		s.Cliff[i] = v
	}
	return s, nil
}

// EncodeWheels converts a wheel speed request into a "W" line.
func EncodeWheels(left, right float64) string {
	return fmt.Sprintf("W,%.0f,%.0f", left, right)
}

// ParseWheelsCSV parses a "W" line.
func ParseWheelsCSV(line string) (left, right float64, err error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 3 || fields[0] != "W" {
		return 0, 0, fmt.Errorf("expected 3 field wheel line, got %q", line)
	}
	if left, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return 0, 0, errors.New("invalid left speed")
	}
	if right, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return 0, 0, errors.New("invalid right speed")
	}
	return left, right, nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
