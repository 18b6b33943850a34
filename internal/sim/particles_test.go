package sim

import (
	"math/rand/v2"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inDomain(x, y float32) bool {
	return x >= -1 && x <= 1 && y >= -1 && y <= 1
}

func TestParticlesStayInDomain(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 20; trial++ {
		p := NewParticles(200, uniform(r, 0.5, 20), r.Uint64())
		for tick := 0; tick < 300; tick++ {
			ptr := Pointer{}
			if r.IntN(3) > 0 {
				ptr = Pointer{X: uniform(r, -1.5, 1.5), Y: uniform(r, -1.5, 1.5), Present: true}
			}
			p.Step(uniform(r, 0, 0.2), ptr)
		}
		for i, pos := range p.Pos {
			require.Truef(t, inDomain(pos[0], pos[1]), "trial %d particle %d escaped to %v", trial, i, pos)
		}
	}
}

func TestParticlesSpeedCeiling(t *testing.T) {
	p := NewParticles(50, 1, 3)
	for i := 0; i < 100; i++ {
		p.Step(MaxDelta, Pointer{X: 0.9, Y: 0.9, Present: true})
	}
	for i, v := range p.Vel {
		assert.LessOrEqualf(t, v.Len(), p.MaxSpeed()+1e-5, "particle %d", i)
	}
}

func TestParticlesReflect(t *testing.T) {
	p := NewParticles(1, 100, 1)
	p.Pos[0][0], p.Pos[0][1] = 0.999, 0
	p.Vel[0][0], p.Vel[0][1] = 5, 0
	p.Step(MaxDelta, Pointer{})

	assert.LessOrEqual(t, p.Pos[0][0], float32(1))
	assert.Less(t, p.Vel[0][0], float32(0), "velocity should point back inside")
}

func TestParticlesPointerAttraction(t *testing.T) {
	p := NewParticles(1, 2, 1)
	p.Pos[0][0], p.Pos[0][1] = -0.5, 0
	p.Vel[0][0], p.Vel[0][1] = 0, 0

	p.Step(MaxDelta, Pointer{X: 0.5, Y: 0, Present: true})
	assert.Greater(t, p.Vel[0][0], float32(0), "particle should accelerate toward the pointer")
}

func TestParticlesIgnoreNonFinitePointer(t *testing.T) {
	p := NewParticles(10, 2, 1)
	p.Step(MaxDelta, Pointer{X: math32.NaN(), Y: 0, Present: true})
	for _, pos := range p.Pos {
		assert.True(t, inDomain(pos[0], pos[1]))
	}
}

func TestParticlesZeroDelta(t *testing.T) {
	p := NewParticles(5, 2, 9)
	before := append(p.Pos[:0:0], p.Pos...)
	p.Step(0, Pointer{})
	p.Step(-1, Pointer{})
	p.Step(math32.NaN(), Pointer{})
	assert.Equal(t, before, p.Pos)
}

func TestParticlesSetMaxSpeedIgnoresInvalid(t *testing.T) {
	p := NewParticles(1, 2, 1)
	p.SetMaxSpeed(-3)
	p.SetMaxSpeed(0)
	assert.InDelta(t, 2*speedUnit, p.MaxSpeed(), 1e-6)
}

func TestParticlesAppendInstances(t *testing.T) {
	p := NewParticles(12, 2, 1)
	assert.Len(t, p.AppendInstances(nil), 12*ParticleInstanceStride)
	assert.Empty(t, NewParticles(0, 2, 1).AppendInstances(nil))
}

func TestParticleCountClamped(t *testing.T) {
	assert.Equal(t, 0, ParticleCount(-1))
	assert.Equal(t, 500, ParticleCount(500))
	assert.Equal(t, MaxParticles, ParticleCount(MaxParticles))
	assert.Equal(t, MaxParticles, ParticleCount(MaxParticles*1000))

	p := NewParticles(MaxParticles+1, 1, 7)
	require.Equal(t, MaxParticles, p.Len())
	assert.Len(t, p.AppendInstances(nil), MaxParticles*ParticleInstanceStride)
}
