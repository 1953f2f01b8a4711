package planner

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Roamer/internal/objmap"
)

func mapOf(obs ...objmap.Obstacle) *objmap.Map {
	m := objmap.New()
	for _, o := range obs {
		if err := m.Add(o); err != nil {
			panic(err)
		}
	}
	return m
}

func TestPathTo_EmptyMapGoesStraight(t *testing.T) {
	p := New(objmap.New(), nil)
	target := r2.Point{X: 1200, Y: -300}
	assert.Equal(t, target, p.PathTo(r2.Point{}, target))
}

func TestPathTo_TargetInsideObstacle(t *testing.T) {
	p := New(mapOf(objmap.Obstacle{X: 1000, Y: 0, Radius: 100, Type: objmap.Tall}), nil)
	start := r2.Point{}
	assert.Equal(t, start, p.PathTo(start, r2.Point{X: 1000, Y: 50}))
}

func TestPathTo_StartInsideObstacle(t *testing.T) {
	m := mapOf(objmap.Obstacle{X: 0, Y: 200, Radius: 100, Type: objmap.Tall})
	// robot far away so the clearance margin applies
	p := New(m, func() r2.Point { return r2.Point{X: 3000} })
	start := r2.Point{}
	assert.Equal(t, start, p.PathTo(start, r2.Point{X: 1000}))
}

func TestPathTo_DeflectsAroundSingleObstacle(t *testing.T) {
	p := New(mapOf(objmap.Obstacle{X: 500, Y: 0, Radius: 40, Type: objmap.Tall}), nil)
	start, target := r2.Point{}, r2.Point{X: 1000}

	hop := p.PathTo(start, target)
	assert.NotEqual(t, start, hop)
	assert.NotEqual(t, target, hop)
	assert.Greater(t, hop.Y*hop.Y, 0.0)
	assert.True(t, p.SegmentClear(start, hop))
}

func TestPathTo_AroundWall(t *testing.T) {
	var obs []objmap.Obstacle
	for y := -150.0; y <= 150; y += 150 {
		obs = append(obs, objmap.Obstacle{X: 800, Y: y, Radius: 40, Type: objmap.Wall})
	}
	p := New(mapOf(obs...), nil)
	start, target := r2.Point{}, r2.Point{X: 1600}
	require.False(t, p.SegmentClear(start, target))

	// the end of the wall is 150 + 1.8*230 + 30 off the line
	end := r2.Point{X: 800, Y: 594}
	found := false
	for _, c := range p.Candidates(start, target) {
		found = found || c.Sub(end).Norm() < 1e-6
	}
	assert.True(t, found, "no candidate past the end of the wall")

	hop := p.PathTo(start, target)
	require.NotEqual(t, start, hop)
	assert.True(t, p.IsFree(hop))
	assert.True(t, p.SegmentClear(start, hop))
}

func TestPathTo_DenseWallHasNoDetour(t *testing.T) {
	var obs []objmap.Obstacle
	for y := -600.0; y <= 600; y += 150 {
		obs = append(obs, objmap.Obstacle{X: 800, Y: y, Radius: 150, Type: objmap.Wall})
	}
	p := New(mapOf(obs...), nil)
	start, target := r2.Point{}, r2.Point{X: 1600}

	// only the wall ends survive, and they sit on the wall's inflated edge
	cands := p.Candidates(start, target)
	require.Len(t, cands, 2)
	for _, w := range cands {
		assert.InDelta(t, 800, w.X, 1e-9)
		assert.False(t, p.SegmentClear(start, w))
	}
	assert.Equal(t, start, p.PathTo(start, target))
}

func TestPathTo_NoPath(t *testing.T) {
	// a ring of obstacles around the target
	var obs []objmap.Obstacle
	for _, c := range [][2]float64{{2000, 400}, {2000, -400}, {2400, 0}, {1600, 0}, {2300, 300}, {2300, -300}, {1700, 300}, {1700, -300}} {
		obs = append(obs, objmap.Obstacle{X: c[0], Y: c[1], Radius: 120, Type: objmap.Tall})
	}
	p := New(mapOf(obs...), nil)
	start := r2.Point{}
	assert.Equal(t, start, p.PathTo(start, r2.Point{X: 2000}))
}

func TestIsFree_BrushingObstacleDropsClearance(t *testing.T) {
	o := objmap.Obstacle{X: 180, Y: 0, Radius: 10, Type: objmap.Short}
	m := mapOf(o)
	q := r2.Point{X: -5}

	far := New(m, func() r2.Point { return r2.Point{X: -2000} })
	assert.False(t, far.IsFree(q), "clearance applies when the robot is away")

	near := New(m, func() r2.Point { return r2.Point{} })
	assert.True(t, near.IsFree(q), "robot already touching the obstacle")
}

func TestSegmentClear_Degenerate(t *testing.T) {
	p := New(mapOf(objmap.Obstacle{X: 0, Y: 0, Radius: 10}), func() r2.Point { return r2.Point{X: 5000} })
	q := r2.Point{X: 100}
	assert.False(t, p.SegmentClear(q, q))
	far := r2.Point{X: 1000}
	assert.True(t, p.SegmentClear(far, far))
}

func TestCandidates_Bounded(t *testing.T) {
	var obs []objmap.Obstacle
	for i := 0; i < objmap.Capacity; i++ {
		obs = append(obs, objmap.Obstacle{X: 400 + float64(i)*60, Y: float64(i%3-1) * 40, Radius: 20})
	}
	p := New(mapOf(obs...), nil)
	c := p.Candidates(r2.Point{}, r2.Point{X: 6000})
	assert.LessOrEqual(t, len(c), MaxCandidates)
}
