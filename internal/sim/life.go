package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"
)

// Cellular automaton constants.
const (
	// AliveThreshold separates live cells from decay trails.
	AliveThreshold float32 = 0.5

	// DefaultDecay multiplies the trail value of a dead cell each step.
	DefaultDecay float32 = 0.9

	// MaxGridSize bounds the grid edge length.
	MaxGridSize = 1024

	// TrailCeiling keeps a fresh trail below AliveThreshold.
	TrailCeiling float32 = 0.45
	// TrailFloor snaps faded trails to exactly zero.
	TrailFloor float32 = 0.01
)

// Slot names one of the two state buffers.
type Slot int

const (
	SlotA Slot = iota
	SlotB
)

// Other returns the opposite slot.
func (s Slot) Other() Slot { return 1 - s }

func (s Slot) String() string {
	switch s {
	case SlotA:
		return "A"
	case SlotB:
		return "B"
	default:
		return fmt.Sprintf("Slot(%d)", int(s))
	}
}

// Life is a double-buffered B3/S23 automaton on a square grid. Each step
// reads the current slot, writes the other one and then makes the written
// slot current. Cell values are 1 for a live cell and a decaying trail
// below AliveThreshold for a dead one.
//
// Neighbors outside the grid sample the nearest edge cell, matching
// clamp-to-edge texture addressing.
type Life struct {
	size  int
	a, b  []float32
	read  Slot
	decay float32

	stepper Stepper
	steps   uint64
}

// NewLife creates a size×size grid. When density > 0 each cell starts
// alive with that probability.
func NewLife(size int, density float32, seed uint64) *Life {
	size = max(1, min(size, MaxGridSize))
	l := &Life{
		size:  size,
		a:     make([]float32, size*size),
		b:     make([]float32, size*size),
		decay: DefaultDecay,
	}
	if density > 0 {
		r := newRand(seed)
		l.Seed(r, density)
	}
	return l
}

// Seed fills the current slot with live cells at the given density.
func (l *Life) Seed(r *rand.Rand, density float32) {
	cur := l.slot(l.read)
	for i := range cur {
		cur[i] = 0
		if r.Float32() < density {
			cur[i] = 1
		}
	}
}

// Size returns the grid edge length.
func (l *Life) Size() int { return l.size }

// ReadSlot returns the slot the next step reads and the display samples.
func (l *Life) ReadSlot() Slot { return l.read }

// Steps returns the number of simulation steps taken.
func (l *Life) Steps() uint64 { return l.steps }

// Slot returns the cells of slot s in row-major order. The slice aliases
// the automaton's storage.
func (l *Life) Slot(s Slot) []float32 { return l.slot(s) }

// Current returns the cells of the read slot.
func (l *Life) Current() []float32 { return l.slot(l.read) }

func (l *Life) slot(s Slot) []float32 {
	if s == SlotA {
		return l.a
	}
	return l.b
}

// SetDecay sets the trail decay factor, clamped to [0, 1).
func (l *Life) SetDecay(d float32) {
	if !finite(d) {
		return
	}
	l.decay = math32.Max(0, math32.Min(d, 0.99))
}

// Alive reports whether cell (x, y) of the read slot is alive.
func (l *Life) Alive(x, y int) bool {
	return l.Current()[l.index(x, y)] >= AliveThreshold
}

// Set writes value v to cell (x, y) of the read slot.
func (l *Life) Set(x, y int, v float32) {
	l.Current()[l.index(x, y)] = v
}

func (l *Life) index(x, y int) int {
	x = max(0, min(x, l.size-1))
	y = max(0, min(y, l.size-1))
	return y*l.size + x
}

// Decay returns the trail decay factor.
func (l *Life) Decay() float32 { return l.decay }

// Stepper decides on which rendered frames an automaton steps.
type Stepper struct {
	frames uint64
}

// Tick counts one rendered frame and reports whether this frame is a
// step: every simSpeed-th frame, never while paused. Paused frames are
// not counted.
func (s *Stepper) Tick(simSpeed int, paused bool) bool {
	if paused {
		return false
	}
	s.frames++
	if simSpeed < 1 {
		simSpeed = 1
	}
	return s.frames%uint64(simSpeed) == 0
}

// Tick counts one rendered frame and steps the automaton on every
// simSpeed-th frame unless paused. It reports whether a step happened.
func (l *Life) Tick(simSpeed int, paused bool) bool {
	if !l.stepper.Tick(simSpeed, paused) {
		return false
	}
	l.Step()
	return true
}

// Step applies the rule once and returns the slot that was written,
// which is the new read slot.
func (l *Life) Step() Slot {
	src, dst := l.slot(l.read), l.slot(l.read.Other())
	n := l.size
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := y*n + x
			dst[i] = NextValue(src[i], l.neighbors(src, x, y), l.decay)
		}
	}
	l.read = l.read.Other()
	l.steps++
	return l.read
}

// neighbors counts live cells among the 8 neighbors of (x, y) with
// clamped coordinates.
func (l *Life) neighbors(src []float32, x, y int) int {
	n := l.size
	count := 0
	for dy := -1; dy <= 1; dy++ {
		yy := max(0, min(y+dy, n-1))
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			xx := max(0, min(x+dx, n-1))
			if src[yy*n+xx] >= AliveThreshold {
				count++
			}
		}
	}
	return count
}

// NextValue applies B3/S23 to a cell with value prev and the given live
// neighbor count. A live result is 1; a dead one keeps a trail of
// prev×decay held below AliveThreshold.
func NextValue(prev float32, neighbors int, decay float32) float32 {
	alive := prev >= AliveThreshold
	if neighbors == 3 || (alive && neighbors == 2) {
		return 1
	}
	trail := math32.Min(prev, TrailCeiling) * decay
	if trail < TrailFloor {
		return 0
	}
	return trail
}

// Span is a horizontal run of Len cells starting at (X, Y). Row 0 is
// the top row of the grid.
type Span struct {
	X, Y, Len int
}

// BrushSpans returns the runs of cells of a size×size grid whose centers
// lie within radius cells of the normalized position (x, y), one span
// per row, top to bottom. y grows upward. Cells outside the grid are
// dropped; a non-finite position yields no spans.
func BrushSpans(size int, x, y, radius float32) []Span {
	if size <= 0 || !finite(x) || !finite(y) {
		return nil
	}
	n := float32(size)
	cx := (x + 1) / 2 * n
	cy := (1 - y) / 2 * n
	radius = math32.Max(radius, 0.5)
	if !finite(radius) {
		radius = n
	}

	var spans []Span
	x0, x1 := int(math32.Floor(cx-radius)), int(math32.Ceil(cx+radius))
	y0, y1 := int(math32.Floor(cy-radius)), int(math32.Ceil(cy+radius))
	for gy := max(0, y0); gy <= min(y1, size-1); gy++ {
		first, last := -1, -1
		for gx := max(0, x0); gx <= min(x1, size-1); gx++ {
			dx := float32(gx) + 0.5 - cx
			dy := float32(gy) + 0.5 - cy
			if dx*dx+dy*dy <= radius*radius {
				if first < 0 {
					first = gx
				}
				last = gx
			}
		}
		if first >= 0 {
			spans = append(spans, Span{X: first, Y: gy, Len: last - first + 1})
		}
	}
	return spans
}

// Paint sets every cell within radius cells of the normalized position
// (x, y) alive in the read slot, so the change shows on the next frame
// whether or not the automaton is paused. y grows upward. It reports
// whether any cell was inside the grid.
func (l *Life) Paint(x, y, radius float32) bool {
	spans := BrushSpans(l.size, x, y, radius)
	cur := l.Current()
	for _, s := range spans {
		row := cur[s.Y*l.size:]
		for i := range s.Len {
			row[s.X+i] = 1
		}
	}
	return len(spans) > 0
}

// Clear kills every cell in both slots.
func (l *Life) Clear() {
	clear(l.a)
	clear(l.b)
}

// Population returns the number of live cells in the read slot.
func (l *Life) Population() int {
	n := 0
	for _, v := range l.Current() {
		if v >= AliveThreshold {
			n++
		}
	}
	return n
}
