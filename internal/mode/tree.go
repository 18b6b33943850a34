package mode

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shapes/internal/geom"
	"github.com/gogpu/shapes/internal/gpu"
)

// treeUniformSize is transform mat4 (64) + time, wind, max depth, pad.
const treeUniformSize = 80

// Tree placement: the root sits near the bottom edge and the crown fits
// the remaining height.
const (
	treeRootOffset = -0.9
	treeScale      = 1.0
)

// Tree draws a static fractal tree as a line list. Sway is applied by the
// vertex shader from time and wind; the geometry is built once.
type Tree struct {
	pipeline
	vertices *gpu.Buffer

	maxDepth    uint32
	vertexCount uint32
	branches    int
	params      Params
	time        float32
}

// Kind implements Mode.
func (m *Tree) Kind() Kind { return KindTree }

// Count returns the maximum depth.
func (m *Tree) Count() uint32 { return m.maxDepth }

// Activate generates the skeleton and uploads it once.
func (m *Tree) Activate(ctx *gpu.Context, maxDepth uint32, p Params) error {
	m.maxDepth, m.params, m.branches = maxDepth, p, p.BranchCount
	err := m.build(ctx, gpu.ShaderTree, gpu.ProgramDescriptor{
		Label: "fractal_tree",
		VertexBuffers: []gputypes.VertexBufferLayout{{
			ArrayStride: geom.TreeVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32, Offset: 8, ShaderLocation: 1},
				{Format: gputypes.VertexFormatFloat32, Offset: 12, ShaderLocation: 2},
			},
		}},
		Topology: gputypes.PrimitiveTopologyLineList,
	}, treeUniformSize)
	if err != nil {
		m.Release()
		return err
	}

	segs := geom.Tree(geom.DefaultTreeParams(int(maxDepth), p.BranchCount))
	m.vertexCount = uint32(2 * len(segs)) //nolint:gosec // bounded by geom.MaxTreeSegments
	if m.vertexCount == 0 {
		return nil
	}
	data := geom.AppendTreeVertices(make([]byte, 0, 2*len(segs)*geom.TreeVertexStride), segs)
	m.vertices, err = ctx.AllocateBuffer("fractal_tree_vertices", uint64(len(data)), gputypes.BufferUsageVertex)
	if err == nil {
		err = m.vertices.Upload(data)
	}
	if err != nil {
		m.Release()
		return fmt.Errorf("mode: fractal tree geometry: %w", err)
	}
	return nil
}

// Configure applies wind and placement. A different branch count changes
// the skeleton and needs a rebuild.
func (m *Tree) Configure(p Params) bool {
	if p.BranchCount != m.branches {
		return true
	}
	m.params = p
	return false
}

// Update advances the sway phase.
func (m *Tree) Update(dt float32) { m.time += dt }

// Prepare writes the transform and sway uniforms.
func (m *Tree) Prepare(f FrameInfo) error {
	p := m.params
	center := [2]float32{p.Center[0], p.Center[1] + treeRootOffset}
	w := &m.writer
	w.reset()
	w.mat4(shapeTransform(center, p.Scale*treeScale, f.Aspect()))
	w.f32(m.time, p.WindStrength, float32(max(m.maxDepth, 1)), 0)
	return m.flush()
}

// Draw issues one line-list draw.
func (m *Tree) Draw(pass hal.RenderPassEncoder) {
	if m.vertexCount == 0 || !m.live() {
		return
	}
	m.bindTo(pass, m.bind)
	pass.SetVertexBuffer(0, m.vertices.Raw(), 0)
	pass.Draw(m.vertexCount, 1, 0, 0)
}

// Release frees the geometry and pipeline.
func (m *Tree) Release() {
	if m.ctx != nil {
		m.ctx.Release(m.vertices)
	}
	m.vertices = nil
	m.vertexCount = 0
	m.release()
}
