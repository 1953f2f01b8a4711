package geom

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{359.5, 359.5},
		{360, 0},
		{-90, 270},
		{725, 5},
		{-1e-15, 0},
	}
	for _, tt := range tests {
		got := Normalize(tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "Normalize(%v)", tt.in)
		assert.Less(t, got, 360.0)
	}
}

func TestRelative_ShortestTurn(t *testing.T) {
	assert.Equal(t, 370.0, Relative(10, 350))
	assert.Equal(t, -10.0, Relative(350, 10))
	assert.Equal(t, 90.0, Relative(90, 0))
	assert.Equal(t, 180.0, Relative(180, 0))
}

func TestPose_Forward(t *testing.T) {
	p := Pose{X: 100, Y: 0, Heading: 90}.Forward(50)
	assert.InDelta(t, 100, p.X, 1e-9)
	assert.InDelta(t, 50, p.Y, 1e-9)
}

func TestBearingAndDistance(t *testing.T) {
	a, b := r2.Point{X: 0, Y: 0}, r2.Point{X: 3, Y: 4}
	assert.Equal(t, 5.0, Dist(a, b))
	assert.Equal(t, 25.0, Dist2(a, b))
	assert.InDelta(t, 53.13, Bearing(a, b), 0.01)
	assert.InDelta(t, 180, Bearing(b, r2.Point{X: -10, Y: 4}), 1e-9)
}

func TestLerp(t *testing.T) {
	assert.Equal(t, 150.0, Lerp(120, 180, 0.5))
	assert.Equal(t, r2.Point{X: 5, Y: -5}, LerpPoint(r2.Point{}, r2.Point{X: 10, Y: -10}, 0.5))
	assert.InDelta(t, 90, Deg(Rad(90)), 1e-12)
}
