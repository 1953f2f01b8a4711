package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"Roamer/internal/model"
)

// ErrEmptyCommand is returned for blank command lines.
var ErrEmptyCommand = errors.New("empty command")

// ParseCommand parses an operator line into a ControlCommand.
// Anything after the opcode that is not a decimal integer is an error.
func ParseCommand(line string) (model.ControlCommand, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return model.ControlCommand{}, ErrEmptyCommand
	}
	cmd := model.ControlCommand{Op: line[0]}
	rest := strings.TrimSpace(line[1:])
	if rest == "" {
		return cmd, nil
	}
	v, err := strconv.Atoi(rest)
	if err != nil {
		return model.ControlCommand{}, fmt.Errorf("invalid value %q for opcode %q", rest, cmd.Op)
	}
	cmd.Value = v
	cmd.HasValue = true
	return cmd, nil
}

// FormatCommand converts a ControlCommand back into its wire line.
func FormatCommand(c model.ControlCommand) string {
	if !c.HasValue {
		return string(c.Op)
	}
	return fmt.Sprintf("%c%d", c.Op, c.Value)
}

// EncodeMoveTo packs an absolute target in millimetres into the single
// integer carried by the "m" opcode. Coordinates must lie within ±5000.
func EncodeMoveTo(x, y int) model.ControlCommand {
	return model.ControlCommand{Op: 'm', Value: (y+5000)*10000 + (x + 5000), HasValue: true}
}

// DecodeMoveTo unpacks the "m" opcode value into an absolute target.
func DecodeMoveTo(v int) (x, y float64) {
	return float64(v%10000 - 5000), float64(v/10000 - 5000)
}
