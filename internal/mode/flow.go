package mode

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shapes/internal/gpu"
	"github.com/gogpu/shapes/internal/sim"
)

// flowUniformSize is pixel vec2 + point size + time.
const flowUniformSize = 16

// flowPointSize is the diameter of a flow particle in pixels.
const flowPointSize = 3

// FlowField draws particles advected through a noise field. The primary
// argument is the resolution; the particle count is its square, capped.
type FlowField struct {
	pipeline
	corners   *gpu.Buffer
	instances *gpu.Buffer

	sim        *sim.FlowField
	resolution uint32
	params     Params
	time       float32
	dirty      bool
	scratch    []byte
}

// Kind implements Mode.
func (m *FlowField) Kind() Kind { return KindFlowField }

// Count returns the resolution.
func (m *FlowField) Count() uint32 { return m.resolution }

// Particles returns the number of particles drawn.
func (m *FlowField) Particles() int {
	if m.sim == nil {
		return 0
	}
	return m.sim.Len()
}

// Activate spawns resolution² particles and allocates the instance
// stream.
func (m *FlowField) Activate(ctx *gpu.Context, resolution uint32, p Params) error {
	m.resolution, m.params = resolution, p
	n := sim.FlowCount(int(resolution))
	err := m.build(ctx, gpu.ShaderFlow, gpu.ProgramDescriptor{
		Label:         "flow_field",
		VertexBuffers: []gputypes.VertexBufferLayout{cornerLayout(), instanceLayout(sim.FlowInstanceStride, 2)},
		Topology:      gputypes.PrimitiveTopologyTriangleList,
	}, flowUniformSize)
	if err == nil {
		m.corners, err = newQuadBuffer(ctx, "flow_corners")
	}
	if err == nil {
		size := uint64(max(n, 1)) * sim.FlowInstanceStride
		m.instances, err = ctx.AllocateBuffer("flow_instances", size, gputypes.BufferUsageVertex)
	}
	if err != nil {
		m.Release()
		return err
	}
	m.sim = sim.NewFlowField(n, p.FlowScale, p.FlowSpeed, p.Seed)
	m.dirty = true
	return nil
}

// Configure updates field scale, speed and pointer. Never rebuilds.
func (m *FlowField) Configure(p Params) bool {
	m.params = p
	if m.sim != nil {
		m.sim.SetScale(p.FlowScale)
		m.sim.SetSpeed(p.FlowSpeed)
	}
	return false
}

// Update advects the particles.
func (m *FlowField) Update(dt float32) {
	m.time += dt
	if m.sim != nil && m.sim.Len() > 0 {
		m.sim.Step(dt, m.params.Pointer)
		m.dirty = true
	}
}

// Prepare uploads the uniforms and, after a step, the instances.
func (m *FlowField) Prepare(f FrameInfo) error {
	if m.dirty && m.sim != nil {
		m.scratch = m.sim.AppendInstances(m.scratch[:0])
		if err := uploadStream(m.instances, m.scratch); err != nil {
			return err
		}
		m.dirty = false
	}
	w := &m.writer
	w.reset()
	w.f32(2/float32(max(f.Width, 1)), 2/float32(max(f.Height, 1)), flowPointSize, m.time)
	return m.flush()
}

// Draw issues one instanced draw.
func (m *FlowField) Draw(pass hal.RenderPassEncoder) {
	n := m.Particles()
	if n == 0 || !m.live() {
		return
	}
	m.bindTo(pass, m.bind)
	pass.SetVertexBuffer(0, m.corners.Raw(), 0)
	pass.SetVertexBuffer(1, m.instances.Raw(), 0)
	pass.Draw(quadVertexCount, uint32(n), 0, 0) //nolint:gosec // capped at sim.MaxFlowParticles
}

// Release frees the streams and pipeline.
func (m *FlowField) Release() {
	if m.ctx != nil {
		m.ctx.Release(m.instances, m.corners)
	}
	m.instances, m.corners = nil, nil
	m.sim = nil
	m.scratch = nil
	m.release()
}

// Simulation returns the host-side flow state, or nil when inactive.
func (m *FlowField) Simulation() *sim.FlowField { return m.sim }
