package shapes

import (
	"log/slog"
	"time"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shapes/internal/geom"
	"github.com/gogpu/shapes/internal/mode"
	"github.com/gogpu/shapes/internal/sim"
)

// ShapeVariant selects the polygon tessellation of the polygon row.
type ShapeVariant = geom.Variant

// Shape variants.
const (
	VariantRegular = geom.VariantRegular
	VariantStar    = geom.VariantStar
	VariantSpiral  = geom.VariantSpiral
)

// ParseVariant parses "regular", "star" or "spiral". The empty string is
// regular.
func ParseVariant(s string) (ShapeVariant, error) { return geom.ParseVariant(s) }

// Pointer is a pointer position in normalized device coordinates, x to
// the right and y up, both in [-1, 1]. Present is false when no pointer
// is over the surface.
type Pointer = sim.Pointer

// Option limits.
const (
	maxParticleSize  = 64
	maxParticleSpeed = 50
	maxFlowScale     = 10
	maxFlowSpeed     = 20
	maxSimSpeed      = 120
	maxBrushRadius   = 64
	maxWindStrength  = 1
)

// ParticleOptions configures the particle system.
type ParticleOptions struct {
	// ParticleSize is the disc radius in pixels.
	ParticleSize float32
	// MaxSpeed caps particle speed. One unit is 0.25 normalized device
	// units per second.
	MaxSpeed float32
}

// FlowOptions configures the flow field.
type FlowOptions struct {
	// FlowScale is the spatial frequency of the field.
	FlowScale float32
	// FlowSpeed is the particle speed along the field.
	FlowSpeed float32
}

// AutomatonOptions configures the cellular automaton.
type AutomatonOptions struct {
	// SimSpeed steps the automaton once every SimSpeed frames.
	SimSpeed int
	// Paused stops stepping; the grid is still displayed and paintable.
	Paused bool
	// BrushRadius is the paint radius in cells.
	BrushRadius float32
	// Density is the probability that a cell starts alive.
	Density float32
}

// TreeOptions configures the fractal tree.
type TreeOptions struct {
	BranchCount  int
	WindStrength float32
}

// RenderOptions is the option record every Draw call starts from. Fields
// a mode does not use are ignored by it.
type RenderOptions struct {
	Animate  bool
	Center   [2]float32
	Scale    float32
	Spacing  float32
	Rotation float32
	Variant  ShapeVariant
	Pointer  Pointer

	Particles ParticleOptions
	Flow      FlowOptions
	Automaton AutomatonOptions
	Tree      TreeOptions
}

// DefaultRenderOptions returns the options used for every omitted field.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Animate:   true,
		Scale:     1,
		Spacing:   1,
		Variant:   VariantRegular,
		Particles: ParticleOptions{ParticleSize: 3, MaxSpeed: 2},
		Flow:      FlowOptions{FlowScale: 0.2, FlowSpeed: 0.5},
		Automaton: AutomatonOptions{SimSpeed: 8, BrushRadius: 2, Density: 0.25},
		Tree:      TreeOptions{BranchCount: 3, WindStrength: 0.15},
	}
}

// sanitize clamps o into its valid ranges. Non-finite numbers and values
// that cannot be clamped meaningfully fall back to prev. The names of
// adjusted fields are returned for logging.
func (o RenderOptions) sanitize(prev RenderOptions) (RenderOptions, []string) {
	var adjusted []string
	fix := func(name string, v *float32, ok func(float32) bool, fallback float32) {
		if !finite(*v) || !ok(*v) {
			*v = fallback
			adjusted = append(adjusted, name)
		}
	}
	clampTo := func(name string, v *float32, lo, hi float32) {
		if c := math32.Max(lo, math32.Min(*v, hi)); c != *v {
			*v = c
			adjusted = append(adjusted, name)
		}
	}
	positive := func(v float32) bool { return v > 0 }
	nonNegative := func(v float32) bool { return v >= 0 }
	anyValue := func(float32) bool { return true }

	fix("center.x", &o.Center[0], anyValue, prev.Center[0])
	fix("center.y", &o.Center[1], anyValue, prev.Center[1])
	fix("scale", &o.Scale, positive, prev.Scale)
	fix("spacing", &o.Spacing, anyValue, prev.Spacing)
	clampTo("spacing", &o.Spacing, 0, math32.MaxFloat32)
	fix("rotation", &o.Rotation, anyValue, prev.Rotation)
	o.Rotation = math32.Mod(o.Rotation, 2*math32.Pi)
	if o.Variant < VariantRegular || o.Variant > VariantSpiral {
		o.Variant = prev.Variant
		adjusted = append(adjusted, "variant")
	}
	if !o.Pointer.Active() {
		o.Pointer = Pointer{}
	}

	fix("particle_size", &o.Particles.ParticleSize, positive, prev.Particles.ParticleSize)
	clampTo("particle_size", &o.Particles.ParticleSize, 0.5, maxParticleSize)
	fix("max_speed", &o.Particles.MaxSpeed, nonNegative, prev.Particles.MaxSpeed)
	clampTo("max_speed", &o.Particles.MaxSpeed, 0, maxParticleSpeed)

	fix("flow_scale", &o.Flow.FlowScale, positive, prev.Flow.FlowScale)
	clampTo("flow_scale", &o.Flow.FlowScale, 0.01, maxFlowScale)
	fix("flow_speed", &o.Flow.FlowSpeed, nonNegative, prev.Flow.FlowSpeed)
	clampTo("flow_speed", &o.Flow.FlowSpeed, 0, maxFlowSpeed)

	if s := max(1, min(o.Automaton.SimSpeed, maxSimSpeed)); s != o.Automaton.SimSpeed {
		o.Automaton.SimSpeed = s
		adjusted = append(adjusted, "sim_speed")
	}
	fix("brush_radius", &o.Automaton.BrushRadius, positive, prev.Automaton.BrushRadius)
	clampTo("brush_radius", &o.Automaton.BrushRadius, 0.5, maxBrushRadius)
	fix("density", &o.Automaton.Density, anyValue, prev.Automaton.Density)
	clampTo("density", &o.Automaton.Density, 0, 1)

	if b := max(1, min(o.Tree.BranchCount, geom.MaxBranchCount)); b != o.Tree.BranchCount {
		o.Tree.BranchCount = b
		adjusted = append(adjusted, "branch_count")
	}
	fix("wind_strength", &o.Tree.WindStrength, anyValue, prev.Tree.WindStrength)
	clampTo("wind_strength", &o.Tree.WindStrength, 0, maxWindStrength)

	return o, adjusted
}

// params converts sanitized options into the parameters a mode reads.
func (o RenderOptions) params(seed uint64) mode.Params {
	return mode.Params{
		Animate:      o.Animate,
		Center:       o.Center,
		Scale:        o.Scale,
		Spacing:      o.Spacing,
		Rotation:     o.Rotation,
		Variant:      o.Variant,
		Pointer:      o.Pointer,
		ParticleSize: o.Particles.ParticleSize,
		MaxSpeed:     o.Particles.MaxSpeed,
		FlowScale:    o.Flow.FlowScale,
		FlowSpeed:    o.Flow.FlowSpeed,
		SimSpeed:     o.Automaton.SimSpeed,
		Paused:       o.Automaton.Paused,
		BrushRadius:  o.Automaton.BrushRadius,
		Density:      o.Automaton.Density,
		BranchCount:  o.Tree.BranchCount,
		WindStrength: o.Tree.WindStrength,
		Seed:         seed,
	}
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

// Option adjusts the RenderOptions of one Draw call.
//
// Example:
//
//	err := e.DrawPolygonRow(8,
//	    shapes.WithScale(0.8),
//	    shapes.WithVariant(shapes.VariantStar),
//	)
type Option func(*RenderOptions)

// WithOptions replaces the whole record. Later options still apply on
// top of it.
func WithOptions(o RenderOptions) Option {
	return func(dst *RenderOptions) { *dst = o }
}

// WithAnimate enables or disables time-based updates.
func WithAnimate(on bool) Option {
	return func(o *RenderOptions) { o.Animate = on }
}

// WithCenter places the shape center in normalized device coordinates.
func WithCenter(x, y float32) Option {
	return func(o *RenderOptions) { o.Center = [2]float32{x, y} }
}

// WithScale sets the uniform scale. Non-positive values are ignored.
func WithScale(s float32) Option {
	return func(o *RenderOptions) { o.Scale = s }
}

// WithSpacing sets the polygon row spacing factor.
func WithSpacing(s float32) Option {
	return func(o *RenderOptions) { o.Spacing = s }
}

// WithRotation sets the base rotation in radians.
func WithRotation(rad float32) Option {
	return func(o *RenderOptions) { o.Rotation = rad }
}

// WithVariant selects the polygon tessellation.
func WithVariant(v ShapeVariant) Option {
	return func(o *RenderOptions) { o.Variant = v }
}

// WithPointer sets a present pointer at normalized coordinates.
func WithPointer(x, y float32) Option {
	return func(o *RenderOptions) { o.Pointer = Pointer{X: x, Y: y, Present: true} }
}

// WithParticles configures the particle system.
func WithParticles(size, maxSpeed float32) Option {
	return func(o *RenderOptions) {
		o.Particles = ParticleOptions{ParticleSize: size, MaxSpeed: maxSpeed}
	}
}

// WithFlow configures the flow field.
func WithFlow(scale, speed float32) Option {
	return func(o *RenderOptions) {
		o.Flow = FlowOptions{FlowScale: scale, FlowSpeed: speed}
	}
}

// WithSimSpeed sets the automaton step interval in frames.
func WithSimSpeed(frames int) Option {
	return func(o *RenderOptions) { o.Automaton.SimSpeed = frames }
}

// WithPaused pauses or resumes the automaton.
func WithPaused(paused bool) Option {
	return func(o *RenderOptions) { o.Automaton.Paused = paused }
}

// WithBrush sets the automaton paint radius in cells.
func WithBrush(radius float32) Option {
	return func(o *RenderOptions) { o.Automaton.BrushRadius = radius }
}

// WithDensity sets the initial live-cell probability of the automaton.
func WithDensity(d float32) Option {
	return func(o *RenderOptions) { o.Automaton.Density = d }
}

// WithTree configures the fractal tree.
func WithTree(branchCount int, windStrength float32) Option {
	return func(o *RenderOptions) {
		o.Tree = TreeOptions{BranchCount: branchCount, WindStrength: windStrength}
	}
}

// EngineOption configures an Engine during Init.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger  *slog.Logger
	surface hal.Surface
	format  gputypes.TextureFormat
	now     func() time.Time
	seed    uint64
}

func defaultEngineOptions() engineOptions {
	return engineOptions{
		now:  time.Now,
		seed: 1,
	}
}

// WithLogger sets the logger of one engine. The package logger is used
// otherwise.
func WithLogger(l *slog.Logger) EngineOption {
	return func(o *engineOptions) { o.logger = l }
}

// WithSurface renders into a window surface instead of an offscreen
// texture. The surface is configured by Init and presented every frame.
func WithSurface(s hal.Surface) EngineOption {
	return func(o *engineOptions) { o.surface = s }
}

// WithFormat overrides the target color format. By default the provider's
// surface format is used, or BGRA8Unorm when it has none.
func WithFormat(f gputypes.TextureFormat) EngineOption {
	return func(o *engineOptions) { o.format = f }
}

// WithClock replaces time.Now as the engine's frame clock.
func WithClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSeed sets the seed of simulation initial states.
func WithSeed(seed uint64) EngineOption {
	return func(o *engineOptions) { o.seed = seed }
}
