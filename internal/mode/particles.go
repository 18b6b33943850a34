package mode

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shapes/internal/gpu"
	"github.com/gogpu/shapes/internal/sim"
)

// particleUniformSize is pixel vec2 + size scale + time.
const particleUniformSize = 16

// instanceLayout describes the per-instance stream starting at location 1.
func instanceLayout(stride uint64, scalars int) gputypes.VertexBufferLayout {
	attrs := []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 1},
		{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 2},
	}
	for i := 0; i < scalars; i++ {
		attrs = append(attrs, gputypes.VertexAttribute{
			Format:         gputypes.VertexFormatFloat32,
			Offset:         uint64(24 + 4*i), //nolint:gosec // at most two scalars
			ShaderLocation: uint32(3 + i),    //nolint:gosec // at most two scalars
		})
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: stride,
		StepMode:    gputypes.VertexStepModeInstance,
		Attributes:  attrs,
	}
}

// Particles draws a pointer-attracted particle system as instanced soft
// discs. The host arrays are re-uploaded after every update.
type Particles struct {
	pipeline
	corners   *gpu.Buffer
	instances *gpu.Buffer

	sim     *sim.Particles
	count   uint32
	params  Params
	time    float32
	dirty   bool
	scratch []byte
}

// Kind implements Mode.
func (m *Particles) Kind() Kind { return KindParticles }

// Count returns the requested number of particles.
func (m *Particles) Count() uint32 { return m.count }

// Activate seeds the particles and allocates the instance stream.
func (m *Particles) Activate(ctx *gpu.Context, count uint32, p Params) error {
	m.count, m.params = count, p
	n := Clamp(KindParticles, count)
	err := m.build(ctx, gpu.ShaderParticle, gpu.ProgramDescriptor{
		Label:         "particles",
		VertexBuffers: []gputypes.VertexBufferLayout{cornerLayout(), instanceLayout(sim.ParticleInstanceStride, 1)},
		Topology:      gputypes.PrimitiveTopologyTriangleList,
	}, particleUniformSize)
	if err == nil {
		m.corners, err = newQuadBuffer(ctx, "particles_corners")
	}
	if err == nil {
		size := uint64(max(n, 1)) * sim.ParticleInstanceStride
		m.instances, err = ctx.AllocateBuffer("particles_instances", size, gputypes.BufferUsageVertex)
	}
	if err != nil {
		m.Release()
		return err
	}
	m.sim = sim.NewParticles(int(n), p.MaxSpeed, p.Seed)
	m.dirty = true
	return nil
}

// Configure updates the speed ceiling and pointer. Never rebuilds.
func (m *Particles) Configure(p Params) bool {
	m.params = p
	if m.sim != nil {
		m.sim.SetMaxSpeed(p.MaxSpeed)
	}
	return false
}

// Update steps the simulation.
func (m *Particles) Update(dt float32) {
	m.time += dt
	if m.sim != nil && m.sim.Len() > 0 {
		m.sim.Step(dt, m.params.Pointer)
		m.dirty = true
	}
}

// Prepare uploads the uniforms and, after a step, the instances.
func (m *Particles) Prepare(f FrameInfo) error {
	if m.dirty && m.sim != nil {
		m.scratch = m.sim.AppendInstances(m.scratch[:0])
		if err := uploadStream(m.instances, m.scratch); err != nil {
			return err
		}
		m.dirty = false
	}
	w := &m.writer
	w.reset()
	w.f32(2/float32(max(f.Width, 1)), 2/float32(max(f.Height, 1)), m.params.ParticleSize, m.time)
	return m.flush()
}

// Draw issues one instanced draw.
func (m *Particles) Draw(pass hal.RenderPassEncoder) {
	if m.sim == nil || m.sim.Len() == 0 || !m.live() {
		return
	}
	m.bindTo(pass, m.bind)
	pass.SetVertexBuffer(0, m.corners.Raw(), 0)
	pass.SetVertexBuffer(1, m.instances.Raw(), 0)
	pass.Draw(quadVertexCount, uint32(m.sim.Len()), 0, 0) //nolint:gosec // bounded by sim.MaxParticles
}

// Release frees the streams and pipeline.
func (m *Particles) Release() {
	if m.ctx != nil {
		m.ctx.Release(m.instances, m.corners)
	}
	m.instances, m.corners = nil, nil
	m.sim = nil
	m.scratch = nil
	m.release()
}

// Simulation returns the host-side particle state, or nil when inactive.
func (m *Particles) Simulation() *sim.Particles { return m.sim }
