package shapes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/shapes/internal/gpu"
	"github.com/gogpu/shapes/internal/mode"
)

// ErrNilScheduler is returned by Start without a scheduler.
var ErrNilScheduler = errors.New("shapes: frame scheduler is nil")

// State is the lifecycle state of an Engine.
type State int

const (
	// StateUninitialized is the state of an Engine not created by Init.
	StateUninitialized State = iota
	// StateReady accepts draw, render and resize calls.
	StateReady
	// StateDisposed rejects every call except Dispose.
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ModeKind names the active rendering mode.
type ModeKind = mode.Kind

// Mode kinds.
const (
	ModeNone       = mode.KindNone
	ModePolygonRow = mode.KindPolygonRow
	ModeParticles  = mode.KindParticles
	ModeFlowField  = mode.KindFlowField
	ModeAutomaton  = mode.KindAutomaton
	ModeTree       = mode.KindTree
)

// ResourceStats is a snapshot of the live GPU objects of an engine.
type ResourceStats = gpu.TrackerStats

// Engine renders one of five animated shape modes into a surface or an
// offscreen texture. At most one mode holds GPU resources at a time:
// switching modes releases the previous mode before the next one
// allocates.
//
// Engine is not safe for concurrent use.
type Engine struct {
	ctx   *gpu.Context
	log   *slog.Logger
	state State

	active mode.Mode
	opts   RenderOptions
	seed   uint64

	// background is the clear color set by Clear; nil selects the
	// animated default.
	background *gputypes.Color

	now   func() time.Time
	start time.Time
	last  time.Time

	scheduler FrameScheduler
	frame     FrameHandle
}

// Init creates an engine on the provider's device. Without WithSurface
// the engine renders into an offscreen texture of width×height that
// Snapshot can read back. ctx is checked before and after the device
// work; a canceled context releases everything and fails Init.
func Init(ctx context.Context, provider gpucontext.DeviceProvider, width, height uint32, opts ...EngineOption) (*Engine, error) {
	o := defaultEngineOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, ErrNilProvider)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	device, queue, err := halDevice(provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	format := o.format
	if format == gputypes.TextureFormatUndefined {
		format = provider.SurfaceFormat()
	}
	var target gpu.Target
	if o.surface != nil {
		target, err = gpu.NewSurfaceTarget(o.surface, format, width, height)
	} else {
		target, err = gpu.NewTextureTarget(format, width, height)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	gctx, err := gpu.NewContext(device, queue, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	if err := ctx.Err(); err != nil {
		gctx.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	now := o.now()
	e := &Engine{
		ctx:   gctx,
		log:   o.logger,
		state: StateReady,
		opts:  DefaultRenderOptions(),
		seed:  o.seed,
		now:   o.now,
		start: now,
		last:  now,
	}
	e.logger().Info("shapes: engine initialized",
		"width", width, "height", height, "format", target.Format(),
		"adapter", provider.AdapterInfo().Name)
	return e, nil
}

func (e *Engine) logger() *slog.Logger {
	if e.log != nil {
		return e.log
	}
	return Logger()
}

// check returns the error for calls made outside StateReady.
func (e *Engine) check() error {
	switch e.state {
	case StateReady:
		return nil
	case StateDisposed:
		return ErrDisposed
	default:
		return ErrNotInitialized
	}
}

// DrawPolygonRow shows count polygons in a row; polygon i has i+3 sides.
// At most 256 polygons are built.
func (e *Engine) DrawPolygonRow(count uint32, opts ...Option) error {
	return e.draw(mode.KindPolygonRow, count, opts)
}

// DrawParticles shows count particles attracted by the pointer. At most
// 65,536 particles are simulated.
func (e *Engine) DrawParticles(count uint32, opts ...Option) error {
	return e.draw(mode.KindParticles, count, opts)
}

// DrawFlowField shows resolution² particles advected by a noise field.
func (e *Engine) DrawFlowField(resolution uint32, opts ...Option) error {
	return e.draw(mode.KindFlowField, resolution, opts)
}

// DrawCellularAutomata shows a gridSize×gridSize Game of Life.
func (e *Engine) DrawCellularAutomata(gridSize uint32, opts ...Option) error {
	return e.draw(mode.KindAutomaton, gridSize, opts)
}

// DrawFractalTree shows a swaying fractal tree of at most maxDepth
// levels.
func (e *Engine) DrawFractalTree(maxDepth uint32, opts ...Option) error {
	return e.draw(mode.KindTree, maxDepth, opts)
}

// draw selects mode k. The same mode with the same primary argument is
// reconfigured in place unless the options change its geometry; anything
// else releases the active mode before the new one allocates.
func (e *Engine) draw(k mode.Kind, count uint32, opts []Option) error {
	if err := e.check(); err != nil {
		return err
	}
	o := DefaultRenderOptions()
	o.Pointer = e.opts.Pointer
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	o, adjusted := o.sanitize(e.opts)
	if len(adjusted) > 0 {
		e.logger().Warn("shapes: options adjusted", "mode", k, "fields", adjusted)
	}
	p := o.params(e.seed)

	if e.active != nil && e.active.Kind() == k && e.active.Count() == count {
		if !e.active.Configure(p) {
			e.opts = o
			return nil
		}
	}

	e.releaseMode()
	m, err := mode.New(k)
	if err != nil {
		return err
	}
	if n := mode.Clamp(k, count); n != count {
		e.logger().Warn("shapes: count clamped", "mode", k, "requested", count, "count", n)
	}
	if err := m.Activate(e.ctx, count, p); err != nil {
		return fmt.Errorf("shapes: activate %s: %w", k, err)
	}
	e.active = m
	e.opts = o
	e.logger().Info("shapes: mode activated",
		"mode", k, "count", count, "live_objects", e.ctx.Tracker().Stats().Total())
	return nil
}

func (e *Engine) releaseMode() {
	if e.active == nil {
		return
	}
	e.active.Release()
	e.logger().Debug("shapes: mode released", "mode", e.active.Kind())
	e.active = nil
}

// Render advances the active mode by the time since the previous call
// (when Animate is set) and draws one frame. It returns that delta. With
// no active mode, or an empty one, nothing is drawn and the delta is 0.
func (e *Engine) Render() (time.Duration, error) {
	if err := e.check(); err != nil {
		return 0, err
	}
	now := e.now()
	dt := max(now.Sub(e.last), 0)
	e.last = now
	if e.active == nil || e.active.Count() == 0 {
		return 0, nil
	}
	if e.opts.Animate {
		e.active.Update(float32(dt.Seconds()))
	}
	if err := e.drawFrame(e.clearColor(now), e.active); err != nil {
		return dt, err
	}
	return dt, nil
}

// drawFrame clears the target and draws m, if any, in one pass.
func (e *Engine) drawFrame(clear gputypes.Color, m mode.Mode) error {
	f, err := e.ctx.BeginFrame(clear)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDraw, err)
	}
	if m != nil {
		w, h := f.Size()
		if err := m.Prepare(mode.FrameInfo{Width: w, Height: h}); err != nil {
			f.Discard()
			return fmt.Errorf("%w: %w", ErrDraw, err)
		}
		m.Draw(f.Pass())
	}
	if err := f.Submit(); err != nil {
		return fmt.Errorf("%w: %w", ErrDraw, err)
	}
	return nil
}

// clearColor returns the color set by Clear, or a slowly pulsing dark
// blue.
func (e *Engine) clearColor(now time.Time) gputypes.Color {
	if e.background != nil {
		return *e.background
	}
	t := now.Sub(e.start).Seconds()
	bg := math.Sin(t*0.1)*0.02 + 0.05
	return gputypes.Color{R: bg, G: bg * 0.8, B: bg * 1.2, A: 1}
}

// Clear fills the target with the given color now and uses it as the
// background of later frames. Components are clamped to [0, 1].
func (e *Engine) Clear(r, g, b, a float32) error {
	if err := e.check(); err != nil {
		return err
	}
	c := gputypes.Color{R: unit(r), G: unit(g), B: unit(b), A: unit(a)}
	e.background = &c
	return e.drawFrame(c, nil)
}

func unit(v float32) float64 {
	if !(v > 0) {
		return 0
	}
	return math.Min(float64(v), 1)
}

// Resize reconfigures the render target. Geometry is kept; modes pick up
// the new aspect ratio on the next frame.
func (e *Engine) Resize(width, height uint32) error {
	if err := e.check(); err != nil {
		return err
	}
	if err := e.ctx.Resize(width, height); err != nil {
		return fmt.Errorf("shapes: resize: %w", err)
	}
	e.logger().Debug("shapes: resized", "width", width, "height", height)
	return nil
}

// Dispose stops the frame loop, then releases the active mode and the
// graphics context. Calling it again returns nil.
func (e *Engine) Dispose() error {
	switch e.state {
	case StateDisposed:
		return nil
	case StateUninitialized:
		e.state = StateDisposed
		return nil
	}
	e.Stop()
	e.releaseMode()
	e.ctx.Destroy()
	e.state = StateDisposed
	e.logger().Info("shapes: engine disposed")
	return nil
}

// Start drives Render from s: every frame callback renders and requests
// the next frame. A render error stops the loop and is logged. Starting a
// running engine replaces its scheduler.
func (e *Engine) Start(s FrameScheduler) error {
	if err := e.check(); err != nil {
		return err
	}
	if s == nil {
		return ErrNilScheduler
	}
	e.Stop()
	e.scheduler = s
	e.frame = s.RequestFrame(e.tick)
	return nil
}

// Stop cancels the pending frame. Safe to call when not running.
func (e *Engine) Stop() {
	if e.frame != nil {
		e.frame.Cancel()
		e.frame = nil
	}
	e.scheduler = nil
}

// Running reports whether a frame is scheduled.
func (e *Engine) Running() bool { return e.frame != nil }

func (e *Engine) tick() {
	e.frame = nil
	if e.state != StateReady || e.scheduler == nil {
		return
	}
	if _, err := e.Render(); err != nil {
		e.logger().Warn("shapes: frame failed, stopping loop", "err", err)
		e.scheduler = nil
		return
	}
	// Render may not stop the loop, but a caller reacting to it might.
	if e.scheduler != nil {
		e.frame = e.scheduler.RequestFrame(e.tick)
	}
}

// Mode returns the active mode, or ModeNone.
func (e *Engine) Mode() ModeKind {
	if e.active == nil {
		return ModeNone
	}
	return e.active.Kind()
}

// ElementCount returns the primary argument of the active mode: polygon
// or particle count, flow resolution, grid size or tree depth. It is the
// value passed to Draw, before clamping to the mode's limit.
func (e *Engine) ElementCount() uint32 {
	if e.active == nil {
		return 0
	}
	return e.active.Count()
}

// Options returns the sanitized options of the active mode.
func (e *Engine) Options() RenderOptions { return e.opts }

// State returns the lifecycle state.
func (e *Engine) State() State { return e.state }

// Size returns the render target size in pixels.
func (e *Engine) Size() (width, height uint32) {
	if e.ctx == nil {
		return 0, 0
	}
	return e.ctx.Target().Size()
}

// Stats returns the live GPU objects allocated by the engine. After
// Dispose every count is zero.
func (e *Engine) Stats() ResourceStats {
	if e.ctx == nil {
		return ResourceStats{}
	}
	return e.ctx.Tracker().Stats()
}

// Paint applies the brush of the active mode at normalized coordinates.
// It reports false when the mode has no brush or nothing changed.
func (e *Engine) Paint(x, y float32) (bool, error) {
	if err := e.check(); err != nil {
		return false, err
	}
	p, ok := e.active.(mode.Painter)
	if !ok {
		return false, nil
	}
	return p.Paint(x, y), nil
}

// SetPointer updates the pointer the active mode reacts to.
func (e *Engine) SetPointer(p Pointer) error {
	if err := e.check(); err != nil {
		return err
	}
	if !p.Active() {
		p = Pointer{}
	}
	e.opts.Pointer = p
	if e.active != nil {
		// Pointer changes never alter geometry.
		e.active.Configure(e.opts.params(e.seed))
	}
	return nil
}
