// Package heatmap keeps a coarse record of where the robot has been, used to
// steer random exploration toward places it has not visited.
//
// The map is a 16x16 window of 4-bit counters, one 64-bit word per row, with
// a pitch of a third of a metre. The window slides in whole cells so that the
// most recently visited point is always inside it.
package heatmap

import (
	"math"
	"math/rand/v2"

	"github.com/golang/geo/r2"
)

const (
	Size    = 16
	Pitch   = 1000.0 / 3 // mm between cell centres
	MaxHeat = 0xF

	// Samples is the number of candidate points Pick compares.
	Samples = 64
	// Attempts bounds the draws Pick makes while looking for free samples.
	Attempts = Samples * 64
	// HalfArena bounds sampling to [-HalfArena, HalfArena] on both axes.
	HalfArena = 5000.0
)

// Map is the visitation window. The zero value is an empty window anchored at
// the origin.
type Map struct {
	rows [Size]uint64
	// grid coordinates of cell (0, 0)
	xOff, yOff int
}

// New returns an empty map.
func New() *Map { return &Map{} }

// Offset returns the grid coordinates of the window's (0, 0) cell.
func (m *Map) Offset() (x, y int) { return m.xOff, m.yOff }

func (m *Map) at(x, y int) int { return int(m.rows[y]>>(4*x)) & MaxHeat }

func (m *Map) set(x, y, v int) {
	shift := uint(4 * x)
	m.rows[y] = m.rows[y]&^(uint64(MaxHeat)<<shift) | uint64(v&MaxHeat)<<shift
}

// cell maps a world point to window coordinates, which may be outside the window.
func (m *Map) cell(p r2.Point) (int, int) {
	return int(math.Round(p.X/Pitch)) - m.xOff, int(math.Round(p.Y/Pitch)) - m.yOff
}

func inside(x, y int) bool { return x >= 0 && x < Size && y >= 0 && y < Size }

// CellCenter returns the world position of window cell (x, y).
func (m *Map) CellCenter(x, y int) r2.Point {
	return r2.Point{X: float64(x+m.xOff) * Pitch, Y: float64(y+m.yOff) * Pitch}
}

// shiftX slides the window n cells along x. Negative n moves it toward -x.
func (m *Map) shiftX(n int) {
	m.xOff += n
	for y := range m.rows {
		switch {
		case n >= Size || n <= -Size:
			m.rows[y] = 0
		case n > 0:
			m.rows[y] >>= uint(4 * n)
		case n < 0:
			m.rows[y] <<= uint(-4 * n)
		}
	}
}

// shiftY slides the window n rows along y. Negative n moves it toward -y.
func (m *Map) shiftY(n int) {
	m.yOff += n
	var out [Size]uint64
	for y := range out {
		if src := y + n; src >= 0 && src < Size {
			out[y] = m.rows[src]
		}
	}
	m.rows = out
}

func (m *Map) decayAll() {
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if v := m.at(x, y); v > 0 {
				m.set(x, y, v-1)
			}
		}
	}
}

// RecordVisit slides the window to contain p and bumps p's cell. A saturated
// cell first decays the whole window by one.
func (m *Map) RecordVisit(p r2.Point) {
	x, y := m.cell(p)
	switch {
	case x < 0:
		m.shiftX(x)
	case x >= Size:
		m.shiftX(x - Size + 1)
	}
	switch {
	case y < 0:
		m.shiftY(y)
	case y >= Size:
		m.shiftY(y - Size + 1)
	}
	x, y = m.cell(p)

	v := m.at(x, y)
	if v >= MaxHeat {
		m.decayAll()
		v--
	}
	m.set(x, y, v+1)
}

// Weight returns the visit count of p's cell and whether p is inside the window.
func (m *Map) Weight(p r2.Point) (int, bool) {
	x, y := m.cell(p)
	if !inside(x, y) {
		return 0, false
	}
	return m.at(x, y), true
}

// Reset clears the window and anchors it back at the origin.
func (m *Map) Reset() { *m = Map{} }

// Pick samples random points over the arena, skipping any free rejects, and
// returns the one in the least visited cell. Points outside the window get a
// small random weight so unexplored ground is favoured. It returns false when
// no free sample could be drawn.
func (m *Map) Pick(rng *rand.Rand, free func(r2.Point) bool) (r2.Point, bool) {
	var (
		best     r2.Point
		bestW    = math.MaxInt
		found    int
		attempts int
	)
	for found < Samples && attempts < Attempts {
		attempts++
		p := r2.Point{
			X: math.Round(-HalfArena + rng.Float64()*2*HalfArena),
			Y: math.Round(-HalfArena + rng.Float64()*2*HalfArena),
		}
		if free != nil && !free(p) {
			continue
		}
		found++

		w, ok := m.Weight(p)
		if !ok {
			w = int(math.Round(rng.Float64() * 3))
		}
		if w < bestW {
			best, bestW = p, w
		}
	}
	return best, found > 0
}
