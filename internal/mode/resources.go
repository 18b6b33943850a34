package mode

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shapes/internal/gpu"
)

// pipeline is the program, uniform buffer and bind group every mode
// starts from.
type pipeline struct {
	ctx      *gpu.Context
	program  *gpu.Program
	uniforms *gpu.Buffer
	bind     *gpu.BindGroup
	writer   uniformWriter
}

// build compiles shader and allocates a uniform buffer of uniformSize
// bytes bound at binding 0. Extra bindings are appended by the caller.
func (p *pipeline) build(ctx *gpu.Context, shader string, desc gpu.ProgramDescriptor, uniformSize uint64) error {
	src, err := gpu.ShaderSource(shader)
	if err != nil {
		return err
	}
	desc.Source = src
	if desc.Label == "" {
		desc.Label = shader
	}
	if len(desc.Bindings) == 0 {
		desc.Bindings = []gpu.BindingKind{gpu.BindingUniform}
	}

	p.ctx = ctx
	p.program, err = ctx.CompileProgram(desc)
	if err != nil {
		return err
	}
	p.uniforms, err = ctx.AllocateBuffer(desc.Label+"_uniforms", uniformSize, gputypes.BufferUsageUniform)
	if err != nil {
		return err
	}
	if len(desc.Bindings) == 1 {
		p.bind, err = p.program.NewBindGroup(desc.Label+"_bind", gpu.UniformBinding(p.uniforms))
		if err != nil {
			return err
		}
	}
	return nil
}

// flush uploads the packed uniforms.
func (p *pipeline) flush() error {
	if err := p.uniforms.Upload(p.writer.buf); err != nil {
		return fmt.Errorf("mode: upload uniforms: %w", err)
	}
	return nil
}

// bindTo sets the pipeline and group 0 on pass.
func (p *pipeline) bindTo(pass hal.RenderPassEncoder, group *gpu.BindGroup) {
	pass.SetPipeline(p.program.Pipeline())
	pass.SetBindGroup(0, group.Raw(), nil)
}

func (p *pipeline) release() {
	if p.ctx == nil {
		return
	}
	p.ctx.Release(p.bind, p.uniforms, p.program)
	p.bind, p.uniforms, p.program = nil, nil, nil
}

// live reports whether the pipeline has been built and not released.
func (p *pipeline) live() bool {
	return p.program != nil && p.program.Pipeline() != nil
}

// quadCorners is two triangles covering [-1, 1]², the per-vertex stream
// of the instanced particle modes.
var quadCorners = []float32{
	-1, -1, 1, -1, 1, 1,
	-1, -1, 1, 1, -1, 1,
}

const quadVertexCount = 6

func cornerLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: 8,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		},
	}
}

// newQuadBuffer allocates and fills the corner buffer.
func newQuadBuffer(ctx *gpu.Context, label string) (*gpu.Buffer, error) {
	var w uniformWriter
	w.f32(quadCorners...)
	b, err := ctx.AllocateBuffer(label, uint64(len(w.buf)), gputypes.BufferUsageVertex)
	if err != nil {
		return nil, err
	}
	if err := b.Upload(w.buf); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

// uploadStream writes data into b, growing it first when needed.
func uploadStream(b *gpu.Buffer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := b.Reserve(uint64(len(data))); err != nil {
		return err
	}
	return b.Upload(data)
}
