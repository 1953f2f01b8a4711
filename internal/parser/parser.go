// Package parser converts the robot's text wire formats to structured types
// and vice-versa.
//
// Operator command wire format (monitor -> robot):
//
//	OP[VALUE]        e.g. "k", "f300", "t-90"
//
// Serial base wire format (robot <-> drive base microcontroller):
//
//	O,DIST,ANGLE,BUMP_L,BUMP_R,CLIFF_L,CLIFF_FL,CLIFF_FR,CLIFF_R
//	W,LEFT,RIGHT
package parser

import (
	"fmt"

	"Roamer/internal/model"
)

// Parser encodes and decodes telemetry records for monitor clients.
type Parser interface {
	EncodeTelemetry(t model.Telemetry) (string, error)
	DecodeTelemetry(s string) (model.Telemetry, error)
}

// ForFormat returns the parser registered under name ("csv" or "json").
func ForFormat(name string) (Parser, error) {
	switch name {
	case "", "json":
		return NewJSONParser(), nil
	case "csv":
		return NewCSVParser(), nil
	}
	return nil, fmt.Errorf("unknown wire format %q", name)
}
