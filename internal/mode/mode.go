package mode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shapes/internal/geom"
	"github.com/gogpu/shapes/internal/gpu"
	"github.com/gogpu/shapes/internal/sim"
)

// ErrUnknownKind is returned by New for a kind without a constructor.
var ErrUnknownKind = errors.New("mode: unknown kind")

// Kind identifies a rendering mode.
type Kind int

const (
	// KindNone means no mode is active.
	KindNone Kind = iota
	KindPolygonRow
	KindParticles
	KindFlowField
	KindAutomaton
	KindTree
)

var kindNames = [...]string{
	KindNone:       "none",
	KindPolygonRow: "polygon_row",
	KindParticles:  "particles",
	KindFlowField:  "flow_field",
	KindAutomaton:  "cellular_automata",
	KindTree:       "fractal_tree",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Params is the sanitized option set a mode reads. Each mode reads only
// its own fields plus the shared ones.
type Params struct {
	Animate  bool
	Center   [2]float32
	Scale    float32
	Spacing  float32
	Rotation float32
	Variant  geom.Variant
	Pointer  sim.Pointer

	ParticleSize float32
	MaxSpeed     float32

	FlowScale float32
	FlowSpeed float32

	SimSpeed    int
	Paused      bool
	BrushRadius float32
	Density     float32

	BranchCount  int
	WindStrength float32

	// Seed makes simulation initial states reproducible.
	Seed uint64
}

// FrameInfo describes the frame being prepared.
type FrameInfo struct {
	Width, Height uint32
}

// Aspect returns width/height, or 1 for an empty frame.
func (f FrameInfo) Aspect() float32 {
	if f.Width == 0 || f.Height == 0 {
		return 1
	}
	return float32(f.Width) / float32(f.Height)
}

// Mode is one rendering algorithm with its GPU resources.
type Mode interface {
	// Kind returns the mode's kind.
	Kind() Kind

	// Count returns the primary argument the mode was activated with.
	Count() uint32

	// Activate compiles the program and builds geometry and simulation
	// state for count elements. On error no resources remain allocated.
	Activate(ctx *gpu.Context, count uint32, p Params) error

	// Configure applies new parameters to the live mode. It reports true
	// when the parameters change geometry, in which case the caller must
	// release and re-activate the mode instead.
	Configure(p Params) (rebuild bool)

	// Update advances animation and simulation state by dt seconds.
	Update(dt float32)

	// Prepare uploads uniforms and any host state changed since the last
	// frame.
	Prepare(f FrameInfo) error

	// Draw records the mode's draw calls into pass.
	Draw(pass hal.RenderPassEncoder)

	// Release frees every GPU object. Safe to call multiple times.
	Release()
}

// Painter is implemented by modes that accept brush input.
type Painter interface {
	// Paint applies a brush at normalized coordinates and reports
	// whether anything changed.
	Paint(x, y float32) bool
}

var constructors = map[Kind]func() Mode{
	KindPolygonRow: func() Mode { return &PolygonRow{} },
	KindParticles:  func() Mode { return &Particles{} },
	KindFlowField:  func() Mode { return &FlowField{} },
	KindAutomaton:  func() Mode { return &Automaton{} },
	KindTree:       func() Mode { return &Tree{} },
}

// New returns an inactive mode of the given kind.
func New(k Kind) (Mode, error) {
	ctor, ok := constructors[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, k)
	}
	return ctor(), nil
}

// Clamp returns the element count a mode of kind k actually builds for
// the requested count. Modes keep reporting the requested count from
// Count.
func Clamp(k Kind, count uint32) uint32 {
	switch k {
	case KindPolygonRow:
		return uint32(geom.PolygonCount(int(min(count, math.MaxInt32)))) //nolint:gosec // <= geom.MaxPolygons
	case KindParticles:
		return uint32(sim.ParticleCount(int(min(count, math.MaxInt32)))) //nolint:gosec // <= sim.MaxParticles
	case KindAutomaton:
		return min(count, sim.MaxGridSize)
	}
	return count
}

// Kinds returns every constructible kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindPolygonRow, KindParticles, KindFlowField, KindAutomaton, KindTree}
}

// uniformWriter packs uniform structs in WGSL layout order.
type uniformWriter struct {
	buf []byte
}

func (w *uniformWriter) reset() { w.buf = w.buf[:0] }

func (w *uniformWriter) f32(vs ...float32) {
	for _, v := range vs {
		w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
	}
}

func (w *uniformWriter) mat4(m mgl32.Mat4) {
	w.f32(m[:]...)
}

// shapeTransform places unit geometry at center with uniform scale,
// shrinking the wider axis so shapes keep their proportions.
func shapeTransform(center [2]float32, scale, aspect float32) mgl32.Mat4 {
	sx, sy := scale, scale
	if aspect > 1 {
		sx /= aspect
	} else if aspect > 0 {
		sy *= aspect
	}
	return mgl32.Translate3D(center[0], center[1], 0).Mul4(mgl32.Scale3D(sx, sy, 1))
}
