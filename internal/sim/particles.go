package sim

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/shapes/internal/geom"
)

// ParticleInstanceStride is the packed size of one particle instance:
// center vec2 (8) + color vec4 (16) + size f32 (4).
const ParticleInstanceStride = 28

// MaxParticles caps the particle count so a large request cannot exhaust
// memory.
const MaxParticles = 1 << 16

// ParticleCount clamps a requested particle count to [0, MaxParticles].
func ParticleCount(n int) int {
	return max(0, min(n, MaxParticles))
}

// Particle force constants, in domain units per second squared.
const (
	attraction = 0.08
	softening  = 0.02
	centering  = 0.15
	damping    = 0.6
	// speedUnit converts MaxSpeed to domain units per second.
	speedUnit = 0.25
)

// Particles is a pointer-attracted particle system that reflects off the
// domain boundary.
type Particles struct {
	Pos   []mgl32.Vec2
	Vel   []mgl32.Vec2
	Color []geom.Color
	Size  []float32

	maxSpeed float32
	rng      *rand.Rand
}

// NewParticles creates n particles at random positions with small random
// velocities. The seed makes the initial state reproducible. n is
// clamped with ParticleCount.
func NewParticles(n int, maxSpeed float32, seed uint64) *Particles {
	n = ParticleCount(n)
	p := &Particles{
		Pos:   make([]mgl32.Vec2, n),
		Vel:   make([]mgl32.Vec2, n),
		Color: make([]geom.Color, n),
		Size:  make([]float32, n),
		rng:   newRand(seed),
	}
	p.SetMaxSpeed(maxSpeed)
	for i := range p.Pos {
		p.Pos[i] = randomPosition(p.rng)
		p.Vel[i] = mgl32.Vec2{uniform(p.rng, -0.1, 0.1), uniform(p.rng, -0.1, 0.1)}
		c := geom.HSL(uniform(p.rng, 0, 1), 0.8, 0.65)
		c[3] = 0.9
		p.Color[i] = c
		p.Size[i] = uniform(p.rng, 0.5, 1.5)
	}
	return p
}

// Len returns the number of particles.
func (p *Particles) Len() int { return len(p.Pos) }

// SetMaxSpeed sets the speed ceiling. Non-positive values are ignored.
func (p *Particles) SetMaxSpeed(v float32) {
	if v > 0 && !math32.IsInf(v, 1) {
		p.maxSpeed = v
	}
}

// MaxSpeed returns the speed ceiling in domain units per second.
func (p *Particles) MaxSpeed() float32 { return p.maxSpeed * speedUnit }

// Step advances every particle by dt seconds: pointer attraction, a weak
// pull toward the center, damping, the speed ceiling, integration and
// reflection off the [-1, 1]² boundary.
func (p *Particles) Step(dt float32, ptr Pointer) {
	dt = clampDelta(dt)
	if dt == 0 {
		return
	}
	limit := p.MaxSpeed()
	decay := math32.Exp(-damping * dt)
	target := ptr.Vec()

	for i := range p.Pos {
		pos, vel := p.Pos[i], p.Vel[i]

		acc := pos.Mul(-centering)
		if ptr.Active() {
			d := target.Sub(pos)
			r2 := d.Dot(d) + softening
			acc = acc.Add(d.Mul(attraction / (r2 * math32.Sqrt(r2))))
		}

		vel = vel.Add(acc.Mul(dt)).Mul(decay)
		if s := vel.Len(); s > limit {
			vel = vel.Mul(limit / s)
		}
		pos = pos.Add(vel.Mul(dt))
		pos[0], vel[0] = reflect(pos[0], vel[0])
		pos[1], vel[1] = reflect(pos[1], vel[1])

		p.Pos[i], p.Vel[i] = pos, vel
	}
}

// reflect folds x back into [-1, 1] and points v inward when the
// boundary was crossed.
func reflect(x, v float32) (float32, float32) {
	switch {
	case x > 1:
		x = 2 - x
		v = -math32.Abs(v)
	case x < -1:
		x = -2 - x
		v = math32.Abs(v)
	}
	return math32.Max(-1, math32.Min(1, x)), v
}

// AppendInstances packs the particles in the particle shader's instance
// layout.
func (p *Particles) AppendInstances(dst []byte) []byte {
	for i, pos := range p.Pos {
		c := p.Color[i]
		dst = appendFloats(dst, pos[0], pos[1], c[0], c[1], c[2], c[3], p.Size[i])
	}
	return dst
}
