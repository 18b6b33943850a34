package mode

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shapes/internal/geom"
	"github.com/gogpu/shapes/internal/gpu"
)

// polygonUniformSize is transform mat4 (64) + 8 scalars (32).
const polygonUniformSize = 96

// Polygon row layout.
const (
	maxPolygonPitch = 0.3
	rowExtent       = 1.8
	radiusPerPitch  = 0.4
	// spinRate is the animated rotation in radians per second.
	spinRate = 0.5
)

// PolygonRow draws count polygons in a row, polygon i having i+3 sides.
// Geometry is static; position, scale, rotation and the wave animation
// are uniforms.
type PolygonRow struct {
	pipeline
	vertices *gpu.Buffer

	count       uint32
	polygons    uint32 // count clamped to geom.MaxPolygons
	vertexCount uint32
	params      Params
	time        float32
	spin        float32
}

// Kind implements Mode.
func (m *PolygonRow) Kind() Kind { return KindPolygonRow }

// Count returns the requested number of polygons.
func (m *PolygonRow) Count() uint32 { return m.count }

// Activate tessellates the row and uploads it once.
func (m *PolygonRow) Activate(ctx *gpu.Context, count uint32, p Params) error {
	m.count, m.params = count, p
	err := m.build(ctx, gpu.ShaderPolygon, gpu.ProgramDescriptor{
		Label: "polygon_row",
		VertexBuffers: []gputypes.VertexBufferLayout{{
			ArrayStride: geom.PolygonVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1},
				{Format: gputypes.VertexFormatFloat32, Offset: 24, ShaderLocation: 2},
			},
		}},
		Topology: gputypes.PrimitiveTopologyTriangleList,
	}, polygonUniformSize)
	if err != nil {
		m.Release()
		return err
	}

	m.polygons = Clamp(KindPolygonRow, count)
	row := geom.PolygonRow(int(m.polygons), p.Variant)
	m.vertexCount = uint32(len(row.Vertices)) //nolint:gosec // bounded by geom.MaxPolygons
	if m.vertexCount == 0 {
		return nil
	}
	data := geom.AppendPolygonVertices(make([]byte, 0, len(row.Vertices)*geom.PolygonVertexStride), row.Vertices)
	m.vertices, err = ctx.AllocateBuffer("polygon_row_vertices", uint64(len(data)), gputypes.BufferUsageVertex)
	if err == nil {
		err = m.vertices.Upload(data)
	}
	if err != nil {
		m.Release()
		return fmt.Errorf("mode: polygon row geometry: %w", err)
	}
	return nil
}

// Configure applies new options. A different variant changes the
// tessellation and needs a rebuild.
func (m *PolygonRow) Configure(p Params) bool {
	if p.Variant != m.params.Variant {
		return true
	}
	m.params = p
	return false
}

// Update advances the wave and the accumulated rotation.
func (m *PolygonRow) Update(dt float32) {
	m.time += dt
	m.spin = math32.Mod(m.spin+dt*spinRate, 2*math32.Pi)
}

// Prepare writes the uniforms for the current surface aspect.
func (m *PolygonRow) Prepare(f FrameInfo) error {
	pitch := float32(maxPolygonPitch)
	if m.polygons > 1 {
		pitch = math32.Min(pitch, rowExtent/float32(m.polygons-1))
	}
	p := m.params
	w := &m.writer
	w.reset()
	w.mat4(shapeTransform(p.Center, p.Scale, f.Aspect()))
	w.f32(m.time, float32(m.polygons), pitch, p.Spacing, p.Rotation+m.spin, pitch*radiusPerPitch, 0, 0)
	return m.flush()
}

// Draw issues one draw for the whole row. An empty row draws nothing.
func (m *PolygonRow) Draw(pass hal.RenderPassEncoder) {
	if m.vertexCount == 0 || !m.live() {
		return
	}
	m.bindTo(pass, m.bind)
	pass.SetVertexBuffer(0, m.vertices.Raw(), 0)
	pass.Draw(m.vertexCount, 1, 0, 0)
}

// Release frees the geometry and pipeline.
func (m *PolygonRow) Release() {
	if m.ctx != nil {
		m.ctx.Release(m.vertices)
	}
	m.vertices = nil
	m.vertexCount = 0
	m.release()
}
