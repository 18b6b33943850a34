package shapes

import (
	"math"
	"slices"
	"testing"

	"github.com/chewxy/math32"
)

func TestDefaultRenderOptionsAreSanitized(t *testing.T) {
	d := DefaultRenderOptions()
	got, adjusted := d.sanitize(d)
	if len(adjusted) != 0 {
		t.Errorf("defaults adjusted: %v", adjusted)
	}
	if got != d {
		t.Errorf("sanitize(defaults) = %+v, want %+v", got, d)
	}
}

func TestSanitize(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	prev := DefaultRenderOptions()
	prev.Scale = 2
	prev.Center = [2]float32{0.1, 0.2}
	prev.Tree.WindStrength = 0.3

	tests := []struct {
		name  string
		apply Option
		check func(RenderOptions) bool
		field string
	}{
		{"nan scale keeps previous", WithScale(nan), func(o RenderOptions) bool { return o.Scale == 2 }, "scale"},
		{"zero scale keeps previous", WithScale(0), func(o RenderOptions) bool { return o.Scale == 2 }, "scale"},
		{"negative spacing clamps", WithSpacing(-3), func(o RenderOptions) bool { return o.Spacing == 0 }, "spacing"},
		{"inf center keeps previous", WithCenter(inf, 0.5), func(o RenderOptions) bool {
			return o.Center == [2]float32{0.1, 0.5}
		}, "center.x"},
		{"huge particle size clamps", WithParticles(1000, 1), func(o RenderOptions) bool {
			return o.Particles.ParticleSize == maxParticleSize
		}, "particle_size"},
		{"negative speed keeps previous", WithParticles(3, -1), func(o RenderOptions) bool {
			return o.Particles.MaxSpeed == 2
		}, "max_speed"},
		{"zero sim speed clamps", WithSimSpeed(0), func(o RenderOptions) bool { return o.Automaton.SimSpeed == 1 }, "sim_speed"},
		{"density clamps", WithDensity(4), func(o RenderOptions) bool { return o.Automaton.Density == 1 }, "density"},
		{"branch count clamps", WithTree(99, 0.1), func(o RenderOptions) bool { return o.Tree.BranchCount == 8 }, "branch_count"},
		{"nan wind keeps previous", WithTree(3, nan), func(o RenderOptions) bool { return o.Tree.WindStrength == 0.3 }, "wind_strength"},
		{"unknown variant keeps previous", WithVariant(ShapeVariant(7)), func(o RenderOptions) bool {
			return o.Variant == VariantRegular
		}, "variant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultRenderOptions()
			tt.apply(&o)
			got, adjusted := o.sanitize(prev)
			if !tt.check(got) {
				t.Errorf("sanitize produced %+v", got)
			}
			if !slices.Contains(adjusted, tt.field) {
				t.Errorf("adjusted = %v, want it to contain %q", adjusted, tt.field)
			}
		})
	}
}

func TestSanitizeRotationWraps(t *testing.T) {
	o := DefaultRenderOptions()
	o.Rotation = 5 * math32.Pi
	got, _ := o.sanitize(o)
	if d := math32.Abs(got.Rotation - math32.Pi); d > 1e-4 {
		t.Errorf("Rotation = %v, want π", got.Rotation)
	}
}

func TestSanitizePointer(t *testing.T) {
	o := DefaultRenderOptions()
	o.Pointer = Pointer{X: float32(math.NaN()), Y: 0, Present: true}
	got, _ := o.sanitize(o)
	if got.Pointer.Present {
		t.Error("non-finite pointer kept as present")
	}
}

func TestParams(t *testing.T) {
	o := DefaultRenderOptions()
	WithFlow(0.7, 1.5)(&o)
	WithBrush(3)(&o)
	WithPaused(true)(&o)
	p := o.params(42)
	if p.FlowScale != 0.7 || p.FlowSpeed != 1.5 {
		t.Errorf("flow params = %v, %v", p.FlowScale, p.FlowSpeed)
	}
	if p.BrushRadius != 3 || !p.Paused {
		t.Errorf("automaton params = %v, %v", p.BrushRadius, p.Paused)
	}
	if p.Seed != 42 {
		t.Errorf("Seed = %d, want 42", p.Seed)
	}
}

func TestWithOptions(t *testing.T) {
	preset := DefaultRenderOptions()
	preset.Scale = 0.5
	preset.Variant = VariantStar

	o := DefaultRenderOptions()
	WithOptions(preset)(&o)
	WithRotation(1)(&o)
	if o.Scale != 0.5 || o.Variant != VariantStar || o.Rotation != 1 {
		t.Errorf("WithOptions then WithRotation = %+v", o)
	}
}

func TestDrawKeepsPointer(t *testing.T) {
	e := newTestEngine(t)
	if err := e.SetPointer(Pointer{X: 0.25, Y: -0.5, Present: true}); err != nil {
		t.Fatal(err)
	}
	if err := e.DrawParticles(10); err != nil {
		t.Fatal(err)
	}
	if p := e.Options().Pointer; !p.Present || p.X != 0.25 {
		t.Errorf("pointer after Draw = %+v", p)
	}
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("spiral")
	if err != nil || v != VariantSpiral {
		t.Errorf("ParseVariant(spiral) = %v, %v", v, err)
	}
	if _, err := ParseVariant("hexagram"); err == nil {
		t.Error("ParseVariant(hexagram) succeeded")
	}
}
