// Package calib converts raw IR range-finder readings to centimetres and fits
// the conversion curve from reference measurements.
package calib

import "math"

// Curve maps a raw IR reading to a distance: cm = A/raw + B.
type Curve struct {
	A float64 `yaml:"ir_a" json:"a"`
	B float64 `yaml:"ir_b" json:"b"`
}

// Zero reports whether c is the degenerate curve returned by a failed fit.
func (c Curve) Zero() bool { return c.A == 0 && c.B == 0 }

// Cm converts a raw reading. Non-positive readings are out of range.
func (c Curve) Cm(raw int) float64 {
	if raw <= 0 {
		return math.Inf(1)
	}
	return c.A/float64(raw) + c.B
}

// Raw is the inverse of Cm, used by simulated sensors.
func (c Curve) Raw(cm float64) int {
	d := cm - c.B
	if d <= 0 || c.A == 0 {
		return math.MaxInt32
	}
	return int(math.Round(c.A / d))
}

// Fit accumulates (raw, cm) pairs for a least-squares fit of cm against
// 1/raw. The zero value is ready to use.
type Fit struct {
	n, t, y, t2, ty float64
}

// Add records a reference point. A zero raw reading is ignored.
func (f *Fit) Add(raw, cm float64) {
	if raw == 0 {
		return
	}
	t := 1 / raw
	f.n++
	f.t += t
	f.y += cm
	f.t2 += t * t
	f.ty += t * cm
}

// Len returns the number of points recorded.
func (f *Fit) Len() int { return int(f.n) }

// Reset discards all points.
func (f *Fit) Reset() { *f = Fit{} }

// Calculate returns the best-fit curve, or the zero curve when the points do
// not determine one (fewer than two distinct readings).
func (f *Fit) Calculate() Curve {
	denom := f.n*f.t2 - f.t*f.t
	if denom == 0 {
		return Curve{}
	}
	a := (f.n*f.ty - f.t*f.y) / denom
	b := (f.y - a*f.t) / f.n
	return Curve{A: a, B: b}
}
