package sim

import (
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxDelta caps the time step so a stalled frame does not fling particles
// across the domain.
const MaxDelta float32 = 0.05

// Pointer is a normalized pointer position. Present is false when the
// pointer is outside the surface or no pointer exists.
type Pointer struct {
	X, Y    float32
	Present bool
}

// Vec returns the pointer position.
func (p Pointer) Vec() mgl32.Vec2 { return mgl32.Vec2{p.X, p.Y} }

// Active reports whether the pointer is present at a finite position.
func (p Pointer) Active() bool {
	return p.Present && finite(p.X) && finite(p.Y)
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

// clampDelta limits dt to [0, MaxDelta]. Non-finite values become 0.
func clampDelta(dt float32) float32 {
	if !(dt > 0) || math32.IsInf(dt, 1) {
		return 0
	}
	return math32.Min(dt, MaxDelta)
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// uniform returns a value in [lo, hi).
func uniform(r *rand.Rand, lo, hi float32) float32 {
	return lo + (hi-lo)*r.Float32()
}

func randomPosition(r *rand.Rand) mgl32.Vec2 {
	return mgl32.Vec2{uniform(r, -1, 1), uniform(r, -1, 1)}
}

func appendFloats(dst []byte, vs ...float32) []byte {
	for _, v := range vs {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
