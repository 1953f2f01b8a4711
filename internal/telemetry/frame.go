// Package telemetry encodes the robot state frame sent to the monitor and
// splits the monitor's incoming byte stream into text lines and frames.
//
// Frame layout, little endian:
//
//	"DATA"
//	float32 x, y, heading, target x, target y, target heading, approach
//	uint8   mode (0 linear, 1 rotate)
//	uint8   111 when obstacles are omitted, else the obstacle count N
//	N x { float32 x, y, radius; uint8 type }
package telemetry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"Roamer/internal/model"
)

// Magic starts every frame.
const Magic = "DATA"

const (
	// NoObjects replaces the count byte when obstacles are omitted.
	NoObjects = 111
	// MaxObjects is the largest count a frame can carry without colliding
	// with the NoObjects sentinel.
	MaxObjects = NoObjects - 1

	headerSize = len(Magic) + 7*4 + 1 + 1
	objectSize = 3*4 + 1
)

var (
	ErrBadMagic    = errors.New("telemetry: bad frame magic")
	ErrShortFrame  = errors.New("telemetry: short frame")
	ErrTooManyObjs = errors.New("telemetry: too many objects")
)

func putF32(b []byte, v float64) { binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v))) }

func getF32(b []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))) }

// Encode serialises t. Objects are included only when t.HasObjects is set.
func Encode(t model.Telemetry) ([]byte, error) {
	n := 0
	if t.HasObjects {
		n = len(t.Objects)
		if n > MaxObjects {
			return nil, fmt.Errorf("%w: %d", ErrTooManyObjs, n)
		}
	}
	buf := make([]byte, headerSize+n*objectSize)
	copy(buf, Magic)
	off := len(Magic)
	for _, v := range []float64{
		t.Robot.X, t.Robot.Y, t.Robot.Heading,
		t.Target.X, t.Target.Y, t.Target.Heading,
		t.Approach,
	} {
		putF32(buf[off:], v)
		off += 4
	}
	buf[off] = t.Mode
	off++
	if !t.HasObjects {
		buf[off] = NoObjects
		return buf, nil
	}
	buf[off] = byte(n)
	off++
	for _, o := range t.Objects {
		putF32(buf[off:], o.X)
		putF32(buf[off+4:], o.Y)
		putF32(buf[off+8:], o.Radius)
		buf[off+12] = o.Type
		off += objectSize
	}
	return buf, nil
}

// Decode parses a complete frame.
func Decode(b []byte) (model.Telemetry, error) {
	var t model.Telemetry
	if len(b) < headerSize {
		return t, ErrShortFrame
	}
	if string(b[:len(Magic)]) != Magic {
		return t, ErrBadMagic
	}
	decodeHeader(b[len(Magic):], &t)

	count := int(b[headerSize-1])
	if count == NoObjects {
		return t, nil
	}
	body := b[headerSize:]
	if len(body) < count*objectSize {
		return t, ErrShortFrame
	}
	t.HasObjects = true
	t.Objects = decodeObjects(body, count)
	return t, nil
}

// decodeHeader reads the fields after the magic, up to and including mode.
func decodeHeader(b []byte, t *model.Telemetry) {
	t.Robot.X = getF32(b[0:])
	t.Robot.Y = getF32(b[4:])
	t.Robot.Heading = getF32(b[8:])
	t.Target.X = getF32(b[12:])
	t.Target.Y = getF32(b[16:])
	t.Target.Heading = getF32(b[20:])
	t.Approach = getF32(b[24:])
	t.Mode = b[28]
}

func decodeObjects(b []byte, n int) []model.ObjectRecord {
	out := make([]model.ObjectRecord, n)
	for i := range out {
		o := b[i*objectSize:]
		out[i] = model.ObjectRecord{
			X:      getF32(o[0:]),
			Y:      getF32(o[4:]),
			Radius: getF32(o[8:]),
			Type:   o[12],
		}
	}
	return out
}
