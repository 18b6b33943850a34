package mode

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shapes/internal/gpu"
	"github.com/gogpu/shapes/internal/sim"
)

// automatonUniformSize is grid vec2 + fit vec2 + time + threshold + pad.
const automatonUniformSize = 32

// stepUniformSize is grid vec2 + decay + threshold + trail ceiling +
// trail floor + pad.
const stepUniformSize = 32

// maxPendingSteps bounds the steps encoded in one frame when updates
// outpace frames.
const maxPendingSteps = 4

// Automaton runs B3/S23 on the GPU. Two state textures alternate as read
// and write slots: each step renders the next generation into the write
// slot while sampling the read slot, then the slots swap. The display
// pass samples the read slot. The host only seeds the grid and writes
// brush texels.
type Automaton struct {
	pipeline
	step pipeline

	textures [2]*gpu.StateTexture
	// binds[s] displays slot s; stepBinds[s] steps from slot s.
	binds     [2]*gpu.BindGroup
	stepBinds [2]*gpu.BindGroup

	read    sim.Slot
	steps   uint64
	pending int
	stepper sim.Stepper
	// brush holds spans painted since the last Prepare.
	brush   []sim.Span
	ones    []float32
	painted uint64

	size   uint32
	grid   uint32
	params Params
	time   float32
}

// Kind implements Mode.
func (m *Automaton) Kind() Kind { return KindAutomaton }

// Count returns the requested grid size.
func (m *Automaton) Count() uint32 { return m.size }

// Activate compiles the display and step programs, creates both state
// textures with their bind groups and uploads the seeded grid into slot
// A. A zero grid size activates an empty mode that draws nothing.
func (m *Automaton) Activate(ctx *gpu.Context, gridSize uint32, p Params) error {
	m.size, m.params = gridSize, p
	err := m.build(ctx, gpu.ShaderLife, gpu.ProgramDescriptor{
		Label:    "automaton",
		Topology: gputypes.PrimitiveTopologyTriangleList,
		Bindings: []gpu.BindingKind{gpu.BindingUniform, gpu.BindingStateTexture, gpu.BindingStateSampler},
	}, automatonUniformSize)
	if err != nil {
		m.Release()
		return err
	}
	if gridSize == 0 {
		return nil
	}
	err = m.step.build(ctx, gpu.ShaderLifeStep, gpu.ProgramDescriptor{
		Label:    "automaton_step",
		Topology: gputypes.PrimitiveTopologyTriangleList,
		Format:   gputypes.TextureFormatR32Float,
		Opaque:   true,
		Bindings: []gpu.BindingKind{gpu.BindingUniform, gpu.BindingStateTexture, gpu.BindingStateSampler},
	}, stepUniformSize)
	if err != nil {
		m.Release()
		return err
	}

	life := sim.NewLife(int(Clamp(KindAutomaton, gridSize)), p.Density, p.Seed)
	m.grid = uint32(life.Size()) //nolint:gosec // bounded by sim.MaxGridSize
	for _, s := range []sim.Slot{sim.SlotA, sim.SlotB} {
		if err := m.createSlot(ctx, s); err != nil {
			m.Release()
			return err
		}
		if err := m.textures[s].Write(life.Slot(s)); err != nil {
			m.Release()
			return fmt.Errorf("mode: seed automaton slot %s: %w", s, err)
		}
	}
	m.read = life.ReadSlot()

	n := float32(m.grid)
	m.step.writer.reset()
	m.step.writer.f32(n, n, life.Decay(), sim.AliveThreshold, sim.TrailCeiling, sim.TrailFloor, 0, 0)
	if err := m.step.flush(); err != nil {
		m.Release()
		return err
	}
	return nil
}

// createSlot creates the state texture of slot s and the display and
// step bind groups that sample it.
func (m *Automaton) createSlot(ctx *gpu.Context, s sim.Slot) error {
	label := "automaton_state_" + s.String()
	st, err := ctx.CreateStateTexture(label, m.grid, m.grid, 1)
	if err != nil {
		return err
	}
	m.textures[s] = st
	m.binds[s], err = m.program.NewBindGroup(label+"_bind",
		gpu.UniformBinding(m.uniforms), gpu.TextureBinding(st), gpu.SamplerBinding(st))
	if err != nil {
		return err
	}
	m.stepBinds[s], err = m.step.program.NewBindGroup(label+"_step_bind",
		gpu.UniformBinding(m.step.uniforms), gpu.TextureBinding(st), gpu.SamplerBinding(st))
	return err
}

// Configure applies the step interval, pause flag and brush. Never
// rebuilds.
func (m *Automaton) Configure(p Params) bool {
	m.params = p
	return false
}

// Update counts a frame and schedules a step every SimSpeed frames
// unless paused. Steps run on the GPU during the next Prepare.
func (m *Automaton) Update(dt float32) {
	m.time += dt
	if m.grid == 0 {
		return
	}
	if m.stepper.Tick(m.params.SimSpeed, m.params.Paused) {
		m.pending = min(m.pending+1, maxPendingSteps)
	}
}

// Paint sets a disc of live cells in the current read slot. The texels
// are written on the next Prepare, before any pending step, so the brush
// shows whether or not the automaton is paused.
func (m *Automaton) Paint(x, y float32) bool {
	if m.grid == 0 {
		return false
	}
	spans := sim.BrushSpans(int(m.grid), x, y, m.params.BrushRadius)
	if len(spans) == 0 {
		return false
	}
	m.brush = append(m.brush, spans...)
	return true
}

// Prepare writes pending brush texels into the read slot, encodes the
// pending steps and writes the display uniforms.
func (m *Automaton) Prepare(f FrameInfo) error {
	if m.grid > 0 {
		if err := m.flushBrush(); err != nil {
			return err
		}
		for ; m.pending > 0; m.pending-- {
			if err := m.advance(); err != nil {
				return err
			}
		}
	}

	w := &m.writer
	w.reset()
	n := float32(m.grid)
	fitX, fitY := float32(1), float32(1)
	if a := f.Aspect(); a > 1 {
		fitX = 1 / a
	} else {
		fitY = a
	}
	w.f32(n, n, fitX, fitY, m.time, sim.AliveThreshold, 0, 0)
	return m.flush()
}

func (m *Automaton) flushBrush() error {
	dst := m.textures[m.read]
	for _, s := range m.brush {
		if len(m.ones) < s.Len {
			m.ones = make([]float32, m.grid)
			for i := range m.ones {
				m.ones[i] = 1
			}
		}
		//nolint:gosec // spans lie inside the grid
		if err := dst.WriteRegion(uint32(s.X), uint32(s.Y), uint32(s.Len), 1, m.ones[:s.Len]); err != nil {
			m.brush = m.brush[:0]
			return fmt.Errorf("mode: paint automaton: %w", err)
		}
		m.painted += uint64(s.Len)
	}
	m.brush = m.brush[:0]
	return nil
}

// advance renders one generation from the read slot into the write slot
// and swaps the slots.
func (m *Automaton) advance() error {
	src, dst := m.read, m.read.Other()
	err := m.ctx.RenderToTexture(m.textures[dst], "automaton_step", func(pass hal.RenderPassEncoder) {
		m.step.bindTo(pass, m.stepBinds[src])
		pass.Draw(3, 1, 0, 0)
	})
	if err != nil {
		return fmt.Errorf("mode: step automaton: %w", err)
	}
	m.read = dst
	m.steps++
	return nil
}

// Draw samples the read slot with a full-screen triangle.
func (m *Automaton) Draw(pass hal.RenderPassEncoder) {
	if m.grid == 0 || !m.live() {
		return
	}
	bind := m.binds[m.read]
	if bind == nil {
		return
	}
	m.bindTo(pass, bind)
	pass.Draw(3, 1, 0, 0)
}

// Release frees both slots and both pipelines.
func (m *Automaton) Release() {
	if m.ctx != nil {
		m.ctx.Release(m.binds[0], m.binds[1], m.stepBinds[0], m.stepBinds[1], m.textures[0], m.textures[1])
	}
	m.binds = [2]*gpu.BindGroup{}
	m.stepBinds = [2]*gpu.BindGroup{}
	m.textures = [2]*gpu.StateTexture{}
	m.grid, m.pending = 0, 0
	m.brush = nil
	m.step.release()
	m.release()
}

// GridSize returns the edge length of the grid in cells, 0 when inactive
// or empty.
func (m *Automaton) GridSize() int { return int(m.grid) }

// ReadSlot returns the slot the display samples and the next step reads.
func (m *Automaton) ReadSlot() sim.Slot { return m.read }

// Steps returns the number of steps rendered since activation.
func (m *Automaton) Steps() uint64 { return m.steps }

// PendingSteps returns the steps scheduled for the next Prepare.
func (m *Automaton) PendingSteps() int { return m.pending }

// PaintedCells returns the number of brush texels written since
// activation.
func (m *Automaton) PaintedCells() uint64 { return m.painted }
