package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Program errors.
var (
	// ErrEmptySource is returned when a program has no shader source.
	ErrEmptySource = errors.New("gpu: shader source is empty")

	// ErrProgramReleased is returned when operating on a released program.
	ErrProgramReleased = errors.New("gpu: program has been released")

	// ErrBindingMismatch is returned when bind group resources do not match
	// the program's declared bindings.
	ErrBindingMismatch = errors.New("gpu: bind group resources do not match program bindings")
)

// CompileError reports a shader source rejected by the WGSL compiler.
// Diagnostic is the compiler's message, unmodified.
type CompileError struct {
	Label      string
	Diagnostic string
	Err        error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("gpu: compile %s: %s", e.Label, e.Diagnostic)
}

func (e *CompileError) Unwrap() error { return e.Err }

// LinkError reports a failure to turn compiled shader code into a usable
// pipeline on the device. Stage names the object that failed.
type LinkError struct {
	Label      string
	Stage      string
	Diagnostic string
	Err        error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("gpu: link %s (%s): %s", e.Label, e.Stage, e.Diagnostic)
}

func (e *LinkError) Unwrap() error { return e.Err }

// BindingKind declares one entry of a program's bind group 0.
type BindingKind int

const (
	// BindingUniform is a uniform buffer visible to both stages.
	BindingUniform BindingKind = iota
	// BindingStateTexture is an unfilterable float 2D texture.
	BindingStateTexture
	// BindingStateSampler is a non-filtering sampler.
	BindingStateSampler
)

// ProgramDescriptor describes a vertex+fragment program. Source must
// define the entry points vs_main and fs_main.
type ProgramDescriptor struct {
	Label         string
	Source        string
	VertexBuffers []gputypes.VertexBufferLayout
	Topology      gputypes.PrimitiveTopology
	// Format is the color target format. Zero means the context target.
	Format gputypes.TextureFormat
	// Blend defaults to straight alpha blending when nil.
	Blend *gputypes.BlendState
	// Opaque disables blending. Float targets such as state textures
	// cannot blend.
	Opaque   bool
	Bindings []BindingKind
}

// Program is a compiled and linked render pipeline with its layouts.
type Program struct {
	ctx      *Context
	label    string
	format   gputypes.TextureFormat
	bindings []BindingKind

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
}

// CompileWGSL compiles WGSL source to SPIR-V words. A rejection is
// returned as a *CompileError carrying the compiler diagnostic.
func CompileWGSL(label, source string) ([]uint32, error) {
	if source == "" {
		return nil, &CompileError{Label: label, Diagnostic: ErrEmptySource.Error(), Err: ErrEmptySource}
	}
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, &CompileError{Label: label, Diagnostic: err.Error(), Err: err}
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// CompileProgram compiles desc.Source and creates the shader module, bind
// group layout, pipeline layout and render pipeline. On failure every
// object created so far is destroyed before the error is returned.
func (c *Context) CompileProgram(desc ProgramDescriptor) (*Program, error) {
	if c.destroyed {
		return nil, ErrContextDestroyed
	}
	spirv, err := CompileWGSL(desc.Label, desc.Source)
	if err != nil {
		return nil, err
	}

	p := &Program{
		ctx:      c,
		label:    desc.Label,
		bindings: append([]BindingKind(nil), desc.Bindings...),
	}
	if err := p.link(desc, spirv); err != nil {
		p.Release()
		return nil, err
	}
	slogger().Debug("gpu: program linked", "label", desc.Label, "spirv_words", len(spirv))
	return p, nil
}

func (p *Program) link(desc ProgramDescriptor, spirv []uint32) error {
	device := p.ctx.device
	linkErr := func(stage string, err error) error {
		return &LinkError{Label: desc.Label, Stage: stage, Diagnostic: err.Error(), Err: err}
	}

	shader, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label + "_shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return linkErr("shader module", err)
	}
	p.shader = shader
	p.ctx.tracker.add(KindShaderModule, 0)

	entries := make([]gputypes.BindGroupLayoutEntry, len(desc.Bindings))
	for i, kind := range desc.Bindings {
		entries[i] = layoutEntry(uint32(i), kind) //nolint:gosec // binding count is tiny
	}
	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return linkErr("bind group layout", err)
	}
	p.bindLayout = bindLayout
	p.ctx.tracker.add(KindBindGroupLayout, 0)

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return linkErr("pipeline layout", err)
	}
	p.pipeLayout = pipeLayout
	p.ctx.tracker.add(KindPipelineLayout, 0)

	var blend *gputypes.BlendState
	switch {
	case desc.Opaque:
		// no blending
	case desc.Blend != nil:
		b := *desc.Blend
		blend = &b
	default:
		b := gputypes.BlendStateAlpha()
		blend = &b
	}
	format := desc.Format
	if format == gputypes.TextureFormatUndefined {
		format = p.ctx.Format()
	}
	p.format = format
	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label + "_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    desc.VertexBuffers,
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					Blend:     blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: desc.Topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.DefaultMultisampleState(),
	})
	if err != nil {
		return linkErr("render pipeline", err)
	}
	p.pipeline = pipeline
	p.ctx.tracker.add(KindRenderPipeline, 0)
	return nil
}

func layoutEntry(binding uint32, kind BindingKind) gputypes.BindGroupLayoutEntry {
	e := gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
	}
	switch kind {
	case BindingUniform:
		e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
	case BindingStateTexture:
		e.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case BindingStateSampler:
		e.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeNonFiltering}
	}
	return e
}

// Pipeline returns the render pipeline, or nil after Release.
func (p *Program) Pipeline() hal.RenderPipeline { return p.pipeline }

// Format returns the color target format the program renders to.
func (p *Program) Format() gputypes.TextureFormat { return p.format }

// Label returns the program label.
func (p *Program) Label() string { return p.label }

// Release destroys all pipeline objects in reverse creation order. Safe to
// call multiple times and on partially linked programs.
func (p *Program) Release() {
	if p == nil || p.ctx == nil {
		return
	}
	c, device := p.ctx, p.ctx.device
	if p.pipeline != nil {
		o := p.pipeline
		c.retire(func() { device.DestroyRenderPipeline(o) })
		c.tracker.remove(KindRenderPipeline, 0)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		o := p.pipeLayout
		c.retire(func() { device.DestroyPipelineLayout(o) })
		c.tracker.remove(KindPipelineLayout, 0)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		o := p.bindLayout
		c.retire(func() { device.DestroyBindGroupLayout(o) })
		c.tracker.remove(KindBindGroupLayout, 0)
		p.bindLayout = nil
	}
	if p.shader != nil {
		o := p.shader
		c.retire(func() { device.DestroyShaderModule(o) })
		c.tracker.remove(KindShaderModule, 0)
		p.shader = nil
	}
}

// BindResource is a resource that can fill one bind group slot.
type BindResource interface {
	bindKind() BindingKind
	bindingResource() gputypes.BindingResource
}

// UniformBinding binds a buffer as a uniform.
func UniformBinding(b *Buffer) BindResource { return uniformRes{b} }

// TextureBinding binds a state texture's view.
func TextureBinding(st *StateTexture) BindResource { return textureRes{st} }

// SamplerBinding binds a state texture's sampler.
func SamplerBinding(st *StateTexture) BindResource { return samplerRes{st} }

type uniformRes struct{ b *Buffer }

func (r uniformRes) bindKind() BindingKind                      { return BindingUniform }
func (r uniformRes) bindingResource() gputypes.BindingResource { return r.b.binding() }

type textureRes struct{ st *StateTexture }

func (r textureRes) bindKind() BindingKind                      { return BindingStateTexture }
func (r textureRes) bindingResource() gputypes.BindingResource { return r.st.viewBinding() }

type samplerRes struct{ st *StateTexture }

func (r samplerRes) bindKind() BindingKind                      { return BindingStateSampler }
func (r samplerRes) bindingResource() gputypes.BindingResource { return r.st.samplerBinding() }

// BindGroup is a set of resources bound to a program's group 0.
type BindGroup struct {
	ctx *Context
	raw hal.BindGroup
}

// NewBindGroup binds resources to the program's declared bindings, in
// order.
func (p *Program) NewBindGroup(label string, resources ...BindResource) (*BindGroup, error) {
	if p.pipeline == nil {
		return nil, ErrProgramReleased
	}
	if len(resources) != len(p.bindings) {
		return nil, fmt.Errorf("%w: %q wants %d, got %d", ErrBindingMismatch, label, len(p.bindings), len(resources))
	}
	entries := make([]gputypes.BindGroupEntry, len(resources))
	for i, r := range resources {
		if r.bindKind() != p.bindings[i] {
			return nil, fmt.Errorf("%w: %q slot %d", ErrBindingMismatch, label, i)
		}
		entries[i] = gputypes.BindGroupEntry{
			Binding:  uint32(i), //nolint:gosec // binding count is tiny
			Resource: r.bindingResource(),
		}
	}
	raw, err := p.ctx.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  p.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group %q: %w", label, err)
	}
	p.ctx.tracker.add(KindBindGroup, 0)
	return &BindGroup{ctx: p.ctx, raw: raw}, nil
}

// Raw returns the HAL bind group, or nil after Release.
func (g *BindGroup) Raw() hal.BindGroup { return g.raw }

// Release destroys the bind group. Safe to call multiple times.
func (g *BindGroup) Release() {
	if g == nil || g.raw == nil {
		return
	}
	raw, device := g.raw, g.ctx.device
	g.ctx.retire(func() { device.DestroyBindGroup(raw) })
	g.ctx.tracker.remove(KindBindGroup, 0)
	g.raw = nil
}
