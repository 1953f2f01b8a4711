package objmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Roamer/internal/device"
	"Roamer/internal/geom"
	"Roamer/internal/scan"
)

func TestMap_AddBounded(t *testing.T) {
	m := New()
	for i := 0; i < Capacity; i++ {
		require.NoError(t, m.Add(Obstacle{X: float64(i), Radius: 1}))
	}
	v := m.Version()
	err := m.Add(Obstacle{X: 999})
	assert.ErrorIs(t, err, ErrMapFull)
	assert.Equal(t, Capacity, m.Len())
	assert.Equal(t, v, m.Version())
}

func TestMap_RemoveKeepsOrder(t *testing.T) {
	m := New()
	for i := 0; i < 4; i++ {
		require.NoError(t, m.Add(Obstacle{X: float64(i)}))
	}
	m.Remove(1)
	m.Remove(10)

	got := m.All()
	require.Len(t, got, 3)
	assert.Equal(t, []float64{0, 2, 3}, []float64{got[0].X, got[1].X, got[2].X})
}

func TestMap_Smallest(t *testing.T) {
	m := New()
	assert.Equal(t, -1, m.Smallest())
	for _, r := range []float64{80, 30, 50, 30} {
		require.NoError(t, m.Add(Obstacle{Radius: r}))
	}
	assert.Equal(t, 1, m.Smallest())
}

func TestAddBump(t *testing.T) {
	m := New()
	m.AddBump(geom.Pose{X: 100, Y: 100, Heading: 90})

	require.Equal(t, 1, m.Len())
	o := m.At(0)
	assert.Equal(t, Short, o.Type)
	assert.Equal(t, BumpRadius, o.Radius)
	assert.InDelta(t, 100, o.X, 1e-9)
	assert.InDelta(t, 325, o.Y, 1e-9)
}

func TestAddCliff(t *testing.T) {
	pose := geom.Pose{}

	t.Run("hole", func(t *testing.T) {
		m := New()
		assert.True(t, m.AddCliff(pose, device.CliffFrontLeft, 100))
		o := m.At(0)
		assert.Equal(t, Hole, o.Type)
		assert.Equal(t, HoleRadius, o.Radius)
		want := geom.Dir(15).Mul(CliffRange + HoleBeyond)
		assert.InDelta(t, want.X, o.X, 1e-9)
		assert.InDelta(t, want.Y, o.Y, 1e-9)
	})

	t.Run("floor", func(t *testing.T) {
		m := New()
		assert.False(t, m.AddCliff(pose, device.CliffLeft, 1500))
		assert.Zero(t, m.Len())
	})

	t.Run("wall replaces nearby walls", func(t *testing.T) {
		m := New()
		require.NoError(t, m.Add(Obstacle{X: 150, Y: 0, Radius: WallRadius, Type: Wall}))
		require.NoError(t, m.Add(Obstacle{X: 140, Y: -40, Radius: WallRadius, Type: Wall}))
		require.NoError(t, m.Add(Obstacle{X: 1000, Y: 0, Radius: WallRadius, Type: Wall}))
		require.NoError(t, m.Add(Obstacle{X: 150, Y: 0, Radius: 40, Type: Tall}))

		assert.True(t, m.AddCliff(pose, device.CliffFrontRight, 2900))

		var walls, tall int
		for _, o := range m.All() {
			switch o.Type {
			case Wall:
				walls++
			case Tall:
				tall++
			}
		}
		assert.Equal(t, 2, walls)
		assert.Equal(t, 1, tall)
		last := m.At(m.Len() - 1)
		assert.Equal(t, Wall, last.Type)
		assert.InDelta(t, CliffPoint(pose, device.CliffFrontRight).X, last.X, 1e-9)
	})
}

func TestApplyScan(t *testing.T) {
	m := New()
	require.NoError(t, m.Add(Obstacle{X: 500, Y: 100, Radius: 40, Type: Tall}))  // stale, in view
	require.NoError(t, m.Add(Obstacle{X: -500, Y: 0, Radius: 40, Type: Tall}))  // behind the head
	require.NoError(t, m.Add(Obstacle{X: 3000, Y: 0, Radius: 40, Type: Tall}))  // out of range
	require.NoError(t, m.Add(Obstacle{X: 400, Y: -50, Radius: 65, Type: Short})) // not tall

	m.ApplyScan(geom.Pose{}, []scan.Detection{
		{Angle: 90, Width: 14, Distance: 40, Size: 10},
		{Angle: 0, Width: 10, Distance: 30, Size: 6},
	})

	got := m.All()
	require.Len(t, got, 5)
	assert.Equal(t, -500.0, got[0].X)
	assert.Equal(t, 3000.0, got[1].X)
	assert.Equal(t, Short, got[2].Type)

	ahead := got[3]
	assert.Equal(t, Tall, ahead.Type)
	assert.InDelta(t, 540, ahead.X, 1e-9)
	assert.InDelta(t, 0, ahead.Y, 1e-9)
	assert.InDelta(t, 50, ahead.Radius, 1e-9)

	// head angle 0 is the robot's right
	right := got[4]
	assert.InDelta(t, 90, right.X, 1e-9)
	assert.InDelta(t, -330, right.Y, 1e-9)
	assert.InDelta(t, 30, right.Radius, 1e-9)
}

func TestReset(t *testing.T) {
	m := New()
	m.AddBump(geom.Pose{})
	v := m.Version()
	m.Reset()
	assert.Zero(t, m.Len())
	assert.Greater(t, m.Version(), v)
}
