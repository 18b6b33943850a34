package gpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestCompileWGSLEmbeddedShaders(t *testing.T) {
	names := ShaderNames()
	if len(names) != 6 {
		t.Fatalf("ShaderNames() = %v, want 6 shaders", names)
	}
	for _, name := range names {
		src, err := ShaderSource(name)
		if err != nil {
			t.Fatalf("ShaderSource(%q) failed: %v", name, err)
		}
		words, err := CompileWGSL(name, src)
		if err != nil {
			t.Errorf("CompileWGSL(%q) failed: %v", name, err)
			continue
		}
		if len(words) == 0 || words[0] != 0x07230203 {
			t.Errorf("CompileWGSL(%q): missing SPIR-V magic number", name)
		}
	}
}

func TestShaderSourceUnknown(t *testing.T) {
	if _, err := ShaderSource("missing"); err == nil {
		t.Error("ShaderSource(missing) should fail")
	}
}

func TestCompileWGSLErrors(t *testing.T) {
	_, err := CompileWGSL("broken", "fn vs_main( -> {")
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CompileError", err)
	}
	if ce.Label != "broken" || ce.Diagnostic == "" {
		t.Errorf("CompileError = %+v, want label and diagnostic", ce)
	}
	if !strings.Contains(ce.Error(), "broken") {
		t.Errorf("Error() = %q, want label in message", ce.Error())
	}

	_, err = CompileWGSL("empty", "")
	if !errors.Is(err, ErrEmptySource) {
		t.Errorf("empty source err = %v, want ErrEmptySource", err)
	}
}

func TestCompileProgramLifecycle(t *testing.T) {
	c := newTestContext(t)
	src, _ := ShaderSource(ShaderTree)

	p, err := c.CompileProgram(ProgramDescriptor{
		Label:  "tree",
		Source: src,
		VertexBuffers: []gputypes.VertexBufferLayout{{
			ArrayStride: 16,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32, Offset: 8, ShaderLocation: 1},
				{Format: gputypes.VertexFormatFloat32, Offset: 12, ShaderLocation: 2},
			},
		}},
		Topology: gputypes.PrimitiveTopologyLineList,
		Bindings: []BindingKind{BindingUniform},
	})
	if err != nil {
		t.Fatalf("CompileProgram failed: %v", err)
	}
	if p.Pipeline() == nil {
		t.Fatal("Pipeline() is nil")
	}
	if p.Label() != "tree" {
		t.Errorf("Label() = %q, want tree", p.Label())
	}
	s := c.Tracker().Stats()
	for _, k := range []ResourceKind{KindShaderModule, KindBindGroupLayout, KindPipelineLayout, KindRenderPipeline} {
		if s.Count(k) != 1 {
			t.Errorf("live %s = %d, want 1", k, s.Count(k))
		}
	}

	u, err := c.AllocateBuffer("tree_uniforms", 80, gputypes.BufferUsageUniform)
	if err != nil {
		t.Fatalf("AllocateBuffer failed: %v", err)
	}
	bg, err := p.NewBindGroup("tree_bind", UniformBinding(u))
	if err != nil {
		t.Fatalf("NewBindGroup failed: %v", err)
	}
	if bg.Raw() == nil {
		t.Error("bind group Raw() is nil")
	}

	c.Release(bg, u, p)
	c.Release(bg, u, p)
	if n := c.Tracker().Stats().Total(); n != 0 {
		t.Errorf("live resources after release = %d (%s)", n, c.Tracker().Stats())
	}
	if _, err := p.NewBindGroup("late", UniformBinding(u)); !errors.Is(err, ErrProgramReleased) {
		t.Errorf("bind after release err = %v, want ErrProgramReleased", err)
	}
}

func TestCompileProgramRejectsBadSource(t *testing.T) {
	c := newTestContext(t)

	_, err := c.CompileProgram(ProgramDescriptor{Label: "bad", Source: "not wgsl at all"})
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CompileError", err)
	}
	if n := c.Tracker().Stats().Total(); n != 0 {
		t.Errorf("failed compile leaked %d resources", n)
	}
}

func TestNewBindGroupMismatch(t *testing.T) {
	c := newTestContext(t)
	src, _ := ShaderSource(ShaderLife)
	p, err := c.CompileProgram(ProgramDescriptor{
		Label:    "life",
		Source:   src,
		Topology: gputypes.PrimitiveTopologyTriangleList,
		Bindings: []BindingKind{BindingUniform, BindingStateTexture, BindingStateSampler},
	})
	if err != nil {
		t.Fatalf("CompileProgram failed: %v", err)
	}
	defer p.Release()

	u, _ := c.AllocateBuffer("u", 32, gputypes.BufferUsageUniform)
	defer u.Release()
	st, _ := c.CreateStateTexture("state", 4, 4, 1)
	defer st.Release()

	if _, err := p.NewBindGroup("short", UniformBinding(u)); !errors.Is(err, ErrBindingMismatch) {
		t.Errorf("short bind err = %v, want ErrBindingMismatch", err)
	}
	if _, err := p.NewBindGroup("swapped", UniformBinding(u), SamplerBinding(st), TextureBinding(st)); !errors.Is(err, ErrBindingMismatch) {
		t.Errorf("swapped bind err = %v, want ErrBindingMismatch", err)
	}
	bg, err := p.NewBindGroup("ok", UniformBinding(u), TextureBinding(st), SamplerBinding(st))
	if err != nil {
		t.Fatalf("NewBindGroup failed: %v", err)
	}
	bg.Release()
}

func TestLinkErrorMessage(t *testing.T) {
	inner := errors.New("driver rejected module")
	err := error(&LinkError{Label: "polygon", Stage: "render pipeline", Diagnostic: inner.Error(), Err: inner})
	if !errors.Is(err, inner) {
		t.Error("LinkError should unwrap to the device error")
	}
	if got := err.Error(); !strings.Contains(got, "polygon") || !strings.Contains(got, "render pipeline") {
		t.Errorf("Error() = %q", got)
	}
}
