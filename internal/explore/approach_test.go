package explore

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Roamer/internal/device"
	"Roamer/internal/geom"
	"Roamer/internal/objmap"
	"Roamer/internal/platform/sim"
)

func TestApproach_DrivesUpToSmallest(t *testing.T) {
	post := r2.Point{X: 900, Y: 0}
	g := newRig(t, sim.Config{Obstacles: []sim.Obstacle{
		{X: post.X, Y: post.Y, Radius: 100, Kind: sim.Post},
		{X: 500, Y: 700, Radius: 150, Kind: sim.Post},
	}})

	g.r.Approach(false)
	n := g.run(50000, nil)
	require.Less(t, n, 50000)

	require.Positive(t, g.objs.Len())
	o := g.objs.At(g.objs.Smallest())
	assert.Less(t, geom.Dist(o.Center(), post), 80.0)

	p := g.world.Pose().Point()
	assert.Greater(t, p.X, 300.0)
	assert.Less(t, geom.Dist(p, post), 100+160+60.0)
}

func TestApproach_NothingMapped(t *testing.T) {
	g := newRig(t, sim.Config{})
	g.r.Approach(true)
	g.run(1000, nil)
	assert.Zero(t, g.q.Size())
	assert.Equal(t, geom.Pose{}, g.world.Pose())
}

func TestBumpTurn(t *testing.T) {
	g := newRig(t, sim.Config{})
	assert.False(t, g.r.BumpTurn(device.Snapshot{}))

	assert.True(t, g.r.BumpTurn(device.Snapshot{BumpRight: true}))
	front, ok := g.q.Front()
	require.True(t, ok)
	assert.Equal(t, "rotate", front.Name)
	assert.Equal(t, -bumpTurn, front.Data.Distance)
}

func TestIdentifyGround(t *testing.T) {
	g := newRig(t, sim.Config{})

	assert.False(t, g.r.identifyGround(device.Snapshot{BumpLeft: true}))
	assert.Zero(t, g.objs.Len())

	assert.True(t, g.r.identifyGround(device.Snapshot{BumpLeft: true, BumpRight: true}))
	require.Equal(t, 1, g.objs.Len())
	assert.Equal(t, objmap.Short, g.objs.At(0).Type)
	assert.Zero(t, g.q.Size())
}

func TestIdentifyGround_FullAutoRegroups(t *testing.T) {
	g := newRig(t, sim.Config{})
	g.r.fullAuto = true

	assert.True(t, g.r.identifyGround(device.Snapshot{BumpLeft: true, BumpRight: true}))
	names := []string{}
	for _, c := range g.q.Pending() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"reverse", "move-to", "approach", "rotate-to", "approach"}, names)
}

func TestIdentifyGround_FullAutoStopsWithoutApproachPoint(t *testing.T) {
	g := newRig(t, sim.Config{})
	g.r.fullAuto = true
	// the spot the robot would back off to is taken
	require.NoError(t, g.objs.Add(objmap.Obstacle{X: -300, Y: 0, Radius: 200, Type: objmap.Wall}))
	_, err := g.q.Enqueue(g.mc.Move(500, nil))
	require.NoError(t, err)

	assert.True(t, g.r.identifyGround(device.Snapshot{BumpLeft: true, BumpRight: true}))
	assert.Zero(t, g.q.Size())
	assert.Equal(t, 2, g.objs.Len())
	l, r := g.world.Wheels()
	assert.Zero(t, l)
	assert.Zero(t, r)
}
