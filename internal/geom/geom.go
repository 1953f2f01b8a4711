// Package geom holds the planar pose and the small numeric helpers shared by
// the navigation packages. Distances are millimetres, angles are degrees.
package geom

import (
	"math"

	"github.com/golang/geo/r2"
)

// Pose is a dead-reckoned position and heading. Heading is kept in [0, 360).
type Pose struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// Point returns the position part of the pose.
func (p Pose) Point() r2.Point { return r2.Point{X: p.X, Y: p.Y} }

// Forward returns the point d millimetres ahead of the pose along its heading.
func (p Pose) Forward(d float64) r2.Point {
	return p.Point().Add(Dir(p.Heading).Mul(d))
}

// Dir returns the unit vector pointing along heading deg.
func Dir(deg float64) r2.Point {
	rad := Rad(deg)
	return r2.Point{X: math.Cos(rad), Y: math.Sin(rad)}
}

// Rad converts degrees to radians.
func Rad(deg float64) float64 { return deg * math.Pi / 180 }

// Deg converts radians to degrees.
func Deg(rad float64) float64 { return rad * 180 / math.Pi }

// Bearing is the heading in degrees from a towards b, in (-180, 180].
func Bearing(a, b r2.Point) float64 {
	return Deg(math.Atan2(b.Y-a.Y, b.X-a.X))
}

// Normalize maps deg into [0, 360).
func Normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// math.Mod(-1e-15, 360) + 360 rounds to 360
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// Relative maps an absolute heading onto the branch closest to ref so that
// target-ref is the signed shortest turn.
func Relative(deg, ref float64) float64 {
	deg = Normalize(deg)
	switch {
	case ref-deg > 180:
		return deg + 360
	case deg-ref > 180:
		return deg - 360
	}
	return deg
}

// Lerp interpolates between a and b by f.
func Lerp(a, b, f float64) float64 { return a*(1-f) + b*f }

// LerpPoint interpolates between two points by f.
func LerpPoint(a, b r2.Point, f float64) r2.Point {
	return r2.Point{X: Lerp(a.X, b.X, f), Y: Lerp(a.Y, b.Y, f)}
}

// Dist is the euclidean distance between a and b.
func Dist(a, b r2.Point) float64 { return a.Sub(b).Norm() }

// Dist2 is the squared euclidean distance between a and b.
func Dist2(a, b r2.Point) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}
