package sim

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifeEmptyGridStaysEmpty(t *testing.T) {
	l := NewLife(16, 0, 1)
	for i := 0; i < 5; i++ {
		l.Step()
		for _, v := range l.Current() {
			require.Zero(t, v)
		}
	}
}

func TestLifeIsolatedCellDies(t *testing.T) {
	l := NewLife(9, 0, 1)
	l.Set(4, 4, 1)
	l.Step()
	assert.False(t, l.Alive(4, 4), "lone cell with 0 neighbors must die")
	assert.Greater(t, l.Current()[4*9+4], float32(0), "dead cell keeps a trail")
	assert.Less(t, l.Current()[4*9+4], AliveThreshold)
}

func TestLifeOvercrowdedCellDies(t *testing.T) {
	l := NewLife(9, 0, 1)
	l.Set(4, 4, 1)
	for _, d := range [][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}} {
		l.Set(4+d[0], 4+d[1], 1)
	}
	l.Step()
	assert.False(t, l.Alive(4, 4), "cell with 4 neighbors must die")
}

func TestLifeBlinker(t *testing.T) {
	l := NewLife(7, 0, 1)
	l.Set(2, 3, 1)
	l.Set(3, 3, 1)
	l.Set(4, 3, 1)

	l.Step()
	assert.True(t, l.Alive(3, 2))
	assert.True(t, l.Alive(3, 3))
	assert.True(t, l.Alive(3, 4))
	assert.False(t, l.Alive(2, 3))
	assert.Equal(t, 3, l.Population())

	l.Step()
	assert.True(t, l.Alive(2, 3))
	assert.True(t, l.Alive(4, 3))
	assert.Equal(t, 3, l.Population())
}

func TestLifeParityAlternates(t *testing.T) {
	l := NewLife(8, 0.3, 2)
	for i := 0; i < 6; i++ {
		before := l.ReadSlot()
		written := l.Step()
		assert.NotEqual(t, before, written, "step %d wrote its own read slot", i)
		assert.Equal(t, written, l.ReadSlot())
	}
	assert.Equal(t, uint64(6), l.Steps())
}

func TestLifeTickSimSpeed(t *testing.T) {
	l := NewLife(4, 0, 1)
	steps := 0
	for i := 0; i < 24; i++ {
		if l.Tick(8, false) {
			steps++
		}
	}
	assert.Equal(t, 3, steps)

	for i := 0; i < 24; i++ {
		assert.False(t, l.Tick(1, true), "paused automaton must not step")
	}
	assert.Equal(t, uint64(3), l.Steps())
}

func TestLifePaintTargetsReadSlot(t *testing.T) {
	l := NewLife(32, 0, 1)
	l.Step()
	read := l.ReadSlot()

	require.True(t, l.Paint(0, 0, 3))
	assert.True(t, l.Alive(16, 16))
	assert.Positive(t, l.Population())
	for _, v := range l.Slot(read.Other()) {
		assert.Zero(t, v, "paint leaked into the write slot")
	}
}

func TestLifePaintOutside(t *testing.T) {
	l := NewLife(16, 0, 1)
	assert.False(t, l.Paint(5, 5, 1))
	assert.Zero(t, l.Population())
}

func TestLifeEdgeClamping(t *testing.T) {
	l := NewLife(5, 0, 1)
	// A live corner cell sees itself three times through clamped
	// coordinates, which is enough to survive.
	l.Set(0, 0, 1)
	assert.Equal(t, 3, l.neighbors(l.Current(), 0, 0))
	l.Step()
	assert.True(t, l.Alive(0, 0))
}

func TestNextValue(t *testing.T) {
	tests := []struct {
		name      string
		prev      float32
		neighbors int
		alive     bool
	}{
		{"birth", 0, 3, true},
		{"survive 2", 1, 2, true},
		{"survive 3", 1, 3, true},
		{"underpopulation", 1, 1, false},
		{"overpopulation", 1, 4, false},
		{"no birth on 2", 0, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NextValue(tt.prev, tt.neighbors, DefaultDecay)
			assert.Equal(t, tt.alive, v >= AliveThreshold)
		})
	}
}

func TestLifeSizeBounds(t *testing.T) {
	assert.Equal(t, 1, NewLife(0, 0, 1).Size())
	assert.Equal(t, MaxGridSize, NewLife(MaxGridSize*4, 0, 1).Size())
}

func TestStepperMatchesLifeTick(t *testing.T) {
	l := NewLife(6, 0.4, 3)
	var s Stepper
	for i := 0; i < 40; i++ {
		paused := i%7 == 0
		assert.Equal(t, l.Tick(3, paused), s.Tick(3, paused), "frame %d", i)
	}
	assert.Positive(t, l.Steps())
}

func TestBrushSpans(t *testing.T) {
	spans := BrushSpans(32, 0, 0, 3)
	require.NotEmpty(t, spans)

	l := NewLife(32, 0, 1)
	require.True(t, l.Paint(0, 0, 3))
	cells := 0
	for i, s := range spans {
		if i > 0 {
			assert.Equal(t, spans[i-1].Y+1, s.Y, "spans must cover consecutive rows")
		}
		for x := s.X; x < s.X+s.Len; x++ {
			assert.True(t, l.Alive(x, s.Y), "span cell (%d, %d) not painted", x, s.Y)
		}
		cells += s.Len
	}
	assert.Equal(t, l.Population(), cells)

	// The top edge of the domain is row 0.
	top := BrushSpans(32, 0, 1, 1)
	require.NotEmpty(t, top)
	assert.Equal(t, 0, top[0].Y)

	assert.Empty(t, BrushSpans(32, 5, 5, 1))
	assert.Empty(t, BrushSpans(32, math32.NaN(), 0, 1))
	assert.Empty(t, BrushSpans(0, 0, 0, 1))

	// A brush larger than the grid covers every cell, one span per row.
	all := BrushSpans(8, 0, 0, 100)
	require.Len(t, all, 8)
	for _, s := range all {
		assert.Equal(t, Span{X: 0, Y: s.Y, Len: 8}, s)
	}
}
