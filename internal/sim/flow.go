package sim

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/shapes/internal/geom"
)

// FlowInstanceStride is the packed size of one flow particle instance:
// center vec2 (8) + color vec4 (16) + age f32 (4) + lifespan f32 (4).
const FlowInstanceStride = 32

// Flow field constants.
const (
	// MaxFlowParticles caps resolution² so a large resolution cannot
	// exhaust memory.
	MaxFlowParticles = 1 << 16

	// BaseLifespan is the mean particle lifespan in seconds.
	BaseLifespan float32 = 4

	flowOctaves = 3
	// frequencyUnit converts FlowScale to radians per domain unit.
	frequencyUnit = 10
	// velocityUnit converts FlowSpeed to domain units per second.
	velocityUnit = 0.5
	pointerPull  = 0.6
)

// FlowCount returns the particle count for a flow field resolution.
func FlowCount(resolution int) int {
	if resolution <= 0 {
		return 0
	}
	if resolution > 1<<8 {
		return MaxFlowParticles
	}
	return min(resolution*resolution, MaxFlowParticles)
}

// FlowField advects particles through a time-varying trigonometric
// field. Particles wrap at the domain boundary and respawn when their
// age passes their lifespan.
type FlowField struct {
	Pos   []mgl32.Vec2
	Color []geom.Color
	Age   []float32
	Life  []float32

	scale float32
	speed float32
	time  float32
	rng   *rand.Rand
}

// NewFlowField creates n particles with staggered ages so they do not all
// respawn at once.
func NewFlowField(n int, scale, speed float32, seed uint64) *FlowField {
	if n < 0 {
		n = 0
	}
	f := &FlowField{
		Pos:   make([]mgl32.Vec2, n),
		Color: make([]geom.Color, n),
		Age:   make([]float32, n),
		Life:  make([]float32, n),
		scale: 0.2,
		speed: 0.5,
		rng:   newRand(seed),
	}
	f.SetScale(scale)
	f.SetSpeed(speed)
	for i := range f.Pos {
		f.respawn(i)
		f.Age[i] = uniform(f.rng, 0, f.Life[i])
	}
	return f
}

// Len returns the number of particles.
func (f *FlowField) Len() int { return len(f.Pos) }

// Time returns the accumulated simulation time in seconds.
func (f *FlowField) Time() float32 { return f.time }

// SetScale sets the spatial frequency of the field. Non-positive values
// are ignored.
func (f *FlowField) SetScale(v float32) {
	if v > 0 && finite(v) {
		f.scale = v
	}
}

// SetSpeed sets the advection speed. Negative values are ignored.
func (f *FlowField) SetSpeed(v float32) {
	if v >= 0 && finite(v) {
		f.speed = v
	}
}

// Heading returns the field direction, in radians, at pos and time t:
// three octaves of halving amplitude and doubling frequency plus a slow
// global phase.
func (f *FlowField) Heading(pos mgl32.Vec2, t float32) float32 {
	freq := f.scale * frequencyUnit
	amp := float32(1)
	var a float32
	for o := 0; o < flowOctaves; o++ {
		w := float32(o + 1)
		a += amp * (math32.Sin(pos[0]*freq+t*0.31*w) + math32.Cos(pos[1]*freq*1.13-t*0.23*w))
		amp *= 0.5
		freq *= 2
	}
	return a*math32.Pi/2 + t*0.05
}

// Step ages every particle by dt seconds. Expired particles respawn;
// the rest move along the field, pulled toward the pointer when present,
// and wrap into [-1, 1)².
func (f *FlowField) Step(dt float32, ptr Pointer) {
	dt = clampDelta(dt)
	if dt == 0 {
		return
	}
	f.time += dt
	target := ptr.Vec()
	step := f.speed * velocityUnit * dt

	for i := range f.Pos {
		f.Age[i] += dt
		if f.Age[i] > f.Life[i] {
			f.respawn(i)
			continue
		}
		pos := f.Pos[i]
		s, c := math32.Sincos(f.Heading(pos, f.time))
		dir := mgl32.Vec2{c, s}
		if ptr.Active() {
			d := target.Sub(pos)
			if l := d.Len(); l > 1e-4 {
				w := pointerPull / (1 + 4*l*l)
				dir = dir.Mul(1 - w).Add(d.Mul(w / l))
			}
		}
		pos = pos.Add(dir.Mul(step))
		f.Pos[i] = mgl32.Vec2{wrap(pos[0]), wrap(pos[1])}
	}
}

func (f *FlowField) respawn(i int) {
	f.Pos[i] = randomPosition(f.rng)
	f.Age[i] = 0
	f.Life[i] = BaseLifespan * uniform(f.rng, 0.5, 1.5)
	c := geom.HSL(uniform(f.rng, 0.5, 0.7), 0.7, 0.6)
	c[3] = 0.85
	f.Color[i] = c
}

// wrap maps x into [-1, 1) toroidally.
func wrap(x float32) float32 {
	x -= 2 * math32.Floor((x+1)/2)
	if x >= 1 {
		x -= 2
	}
	return x
}

// AppendInstances packs the particles in the flow shader's instance
// layout.
func (f *FlowField) AppendInstances(dst []byte) []byte {
	for i, pos := range f.Pos {
		c := f.Color[i]
		dst = appendFloats(dst, pos[0], pos[1], c[0], c[1], c[2], c[3], f.Age[i], f.Life[i])
	}
	return dst
}
