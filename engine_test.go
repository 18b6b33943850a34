package shapes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/shapes/internal/mode"
)

func TestInit(t *testing.T) {
	e := newTestEngine(t)
	if e.State() != StateReady {
		t.Errorf("State() = %s, want ready", e.State())
	}
	if e.Mode() != ModeNone {
		t.Errorf("Mode() = %s, want none", e.Mode())
	}
	if e.ElementCount() != 0 {
		t.Errorf("ElementCount() = %d, want 0", e.ElementCount())
	}
	if w, h := e.Size(); w != 64 || h != 48 {
		t.Errorf("Size() = %dx%d, want 64x48", w, h)
	}
	if n := e.Stats().Total(); n != 0 {
		t.Errorf("live objects before any draw = %d", n)
	}
}

func TestInitErrors(t *testing.T) {
	dev := openNoopDevice(t)
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		ctx      context.Context
		provider gpucontext.DeviceProvider
		w, h     uint32
		want     error
	}{
		{"nil provider", context.Background(), nil, 64, 48, ErrNilProvider},
		{"canceled", canceled, dev, 64, 48, context.Canceled},
		{"no hal device", context.Background(), emptyProvider{}, 64, 48, ErrNoDevice},
		{"zero size", context.Background(), dev, 0, 48, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Init(tt.ctx, tt.provider, tt.w, tt.h)
			if err == nil {
				_ = e.Dispose()
				t.Fatal("Init succeeded, want error")
			}
			if !errors.Is(err, ErrInitialization) {
				t.Errorf("error %v does not match ErrInitialization", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error %v does not match %v", err, tt.want)
			}
		})
	}
}

// emptyProvider is a provider without HAL objects.
type emptyProvider struct{}

func (emptyProvider) Device() gpucontext.Device             { return nil }
func (emptyProvider) Queue() gpucontext.Queue               { return nil }
func (emptyProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (emptyProvider) Adapter() gpucontext.Adapter           { return nil }
func (emptyProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }

func TestDrawModes(t *testing.T) {
	e, clock := newClockedEngine(t)
	tests := []struct {
		name  string
		draw  func() error
		kind  ModeKind
		count uint32
	}{
		{"polygon row", func() error { return e.DrawPolygonRow(5) }, ModePolygonRow, 5},
		{"particles", func() error { return e.DrawParticles(300) }, ModeParticles, 300},
		{"flow field", func() error { return e.DrawFlowField(12) }, ModeFlowField, 12},
		{"automaton", func() error { return e.DrawCellularAutomata(40) }, ModeAutomaton, 40},
		{"tree", func() error { return e.DrawFractalTree(6) }, ModeTree, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.draw(); err != nil {
				t.Fatalf("draw failed: %v", err)
			}
			if e.Mode() != tt.kind {
				t.Errorf("Mode() = %s, want %s", e.Mode(), tt.kind)
			}
			if e.ElementCount() != tt.count {
				t.Errorf("ElementCount() = %d, want %d", e.ElementCount(), tt.count)
			}
			for i := 0; i < 3; i++ {
				clock.advance(16 * time.Millisecond)
				dt, err := e.Render()
				if err != nil {
					t.Fatalf("Render failed: %v", err)
				}
				if dt != 16*time.Millisecond {
					t.Errorf("Render() delta = %v, want 16ms", dt)
				}
			}
		})
	}
}

func TestModeSwitchNoLeak(t *testing.T) {
	e := newTestEngine(t)
	draws := []func(uint32) error{
		func(n uint32) error { return e.DrawPolygonRow(n) },
		func(n uint32) error { return e.DrawParticles(n * 10) },
		func(n uint32) error { return e.DrawFlowField(n) },
		func(n uint32) error { return e.DrawCellularAutomata(n * 4) },
		func(n uint32) error { return e.DrawFractalTree(n) },
	}

	// Baseline: the live set of each mode alone.
	baseline := make([]int, len(draws))
	for i, draw := range draws {
		if err := draw(4); err != nil {
			t.Fatalf("draw %d failed: %v", i, err)
		}
		baseline[i] = e.Stats().Total()
	}

	const switches = 50
	for n := 0; n < switches; n++ {
		i := (n * 3) % len(draws)
		if err := draws[i](4); err != nil {
			t.Fatalf("switch %d failed: %v", n, err)
		}
		if _, err := e.Render(); err != nil {
			t.Fatalf("Render after switch %d failed: %v", n, err)
		}
		if got := e.Stats().Total(); got != baseline[i] {
			t.Fatalf("switch %d: %d live objects, want %d", n, got, baseline[i])
		}
	}

	if err := e.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if s := e.Stats(); s.Total() != 0 {
		t.Errorf("live objects after Dispose: %s", s)
	}
}

func TestSameModeSameCountReconfigures(t *testing.T) {
	e := newTestEngine(t)
	if err := e.DrawParticles(100); err != nil {
		t.Fatal(err)
	}
	allocs := e.Stats().Allocations
	if err := e.DrawParticles(100, WithParticles(5, 4)); err != nil {
		t.Fatal(err)
	}
	if got := e.Stats().Allocations; got != allocs {
		t.Errorf("reconfigure allocated %d new objects", got-allocs)
	}
	if got := e.Options().Particles.ParticleSize; got != 5 {
		t.Errorf("ParticleSize = %v, want 5", got)
	}

	// A different count rebuilds.
	if err := e.DrawParticles(200); err != nil {
		t.Fatal(err)
	}
	if e.Stats().Allocations == allocs {
		t.Error("count change did not rebuild")
	}
}

func TestVariantChangeRebuilds(t *testing.T) {
	e := newTestEngine(t)
	if err := e.DrawPolygonRow(4); err != nil {
		t.Fatal(err)
	}
	allocs := e.Stats().Allocations
	if err := e.DrawPolygonRow(4, WithVariant(VariantSpiral)); err != nil {
		t.Fatal(err)
	}
	if e.Stats().Allocations == allocs {
		t.Error("variant change did not rebuild geometry")
	}
	if e.Options().Variant != VariantSpiral {
		t.Errorf("Variant = %s, want spiral", e.Options().Variant)
	}
}

func TestZeroCount(t *testing.T) {
	e, clock := newClockedEngine(t)
	if err := e.DrawPolygonRow(0); err != nil {
		t.Fatalf("DrawPolygonRow(0) failed: %v", err)
	}
	clock.advance(time.Second)
	dt, err := e.Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if dt != 0 {
		t.Errorf("Render() on empty mode = %v, want 0", dt)
	}
}

func TestHugeCountsClamped(t *testing.T) {
	tests := []struct {
		name     string
		draw     func(*Engine, uint32, ...Option) error
		maxBytes uint64
	}{
		{"polygon_row", (*Engine).DrawPolygonRow, 16 << 20},
		{"particles", (*Engine).DrawParticles, 4 << 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			e := newTestEngine(t, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
			if err := tt.draw(e, math.MaxUint32); err != nil {
				t.Fatalf("draw(MaxUint32) failed: %v", err)
			}
			if got := e.ElementCount(); got != math.MaxUint32 {
				t.Errorf("ElementCount() = %d, want the requested count", got)
			}
			if b := e.Stats().Bytes; b == 0 || b > tt.maxBytes {
				t.Errorf("live bytes = %d, want (0, %d]", b, tt.maxBytes)
			}
			if !strings.Contains(buf.String(), "count clamped") {
				t.Errorf("clamp not logged: %q", buf.String())
			}
			if _, err := e.Render(); err != nil {
				t.Fatalf("Render failed: %v", err)
			}

			// Same request again reconfigures instead of rebuilding.
			allocs := e.Stats().Allocations
			if err := tt.draw(e, math.MaxUint32); err != nil {
				t.Fatalf("second draw failed: %v", err)
			}
			if got := e.Stats().Allocations; got != allocs {
				t.Errorf("allocations grew from %d to %d on an identical draw", allocs, got)
			}
		})
	}
}

func TestRenderWithoutMode(t *testing.T) {
	e := newTestEngine(t)
	if dt, err := e.Render(); err != nil || dt != 0 {
		t.Errorf("Render() = %v, %v; want 0, nil", dt, err)
	}
}

func TestAnimateOff(t *testing.T) {
	e, clock := newClockedEngine(t)
	if err := e.DrawCellularAutomata(16, WithAnimate(false), WithSimSpeed(1)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		clock.advance(16 * time.Millisecond)
		if _, err := e.Render(); err != nil {
			t.Fatal(err)
		}
	}
	if e.Options().Animate {
		t.Error("Animate option not applied")
	}
	if n := e.active.(*mode.Automaton).Steps(); n != 0 {
		t.Errorf("automaton stepped %d times with Animate off", n)
	}
}

func TestClear(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Clear(2, -1, 0.5, 1); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	want := gputypes.Color{R: 1, G: 0, B: 0.5, A: 1}
	if got := e.clearColor(time.Now()); got != want {
		t.Errorf("clear color = %+v, want %+v", got, want)
	}
}

func TestDefaultBackground(t *testing.T) {
	e, _ := newClockedEngine(t)
	c := e.clearColor(e.start)
	if c.R != 0.05 || c.A != 1 {
		t.Errorf("background at t=0 = %+v, want R=0.05 A=1", c)
	}
	if c.G >= c.R || c.B <= c.R {
		t.Errorf("background %+v is not blue-tinted", c)
	}
}

func TestResize(t *testing.T) {
	e := newTestEngine(t)
	if err := e.DrawFractalTree(5); err != nil {
		t.Fatal(err)
	}
	allocs := e.Stats().Allocations
	if err := e.Resize(128, 32); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if w, h := e.Size(); w != 128 || h != 32 {
		t.Errorf("Size() = %dx%d, want 128x32", w, h)
	}
	if e.Stats().Allocations != allocs {
		t.Error("Resize rebuilt mode resources")
	}
	if _, err := e.Render(); err != nil {
		t.Fatalf("Render after Resize failed: %v", err)
	}
	if err := e.Resize(0, 10); err == nil {
		t.Error("Resize(0, 10) succeeded")
	}
}

func TestDispose(t *testing.T) {
	e := newTestEngine(t)
	if err := e.DrawFlowField(8); err != nil {
		t.Fatal(err)
	}
	if err := e.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if err := e.Dispose(); err != nil {
		t.Errorf("second Dispose = %v, want nil", err)
	}
	if e.State() != StateDisposed {
		t.Errorf("State() = %s, want disposed", e.State())
	}

	calls := map[string]error{
		"DrawPolygonRow": e.DrawPolygonRow(1),
		"DrawParticles":  e.DrawParticles(1),
		"DrawFlowField":  e.DrawFlowField(1),
		"DrawAutomata":   e.DrawCellularAutomata(1),
		"DrawTree":       e.DrawFractalTree(1),
		"Clear":          e.Clear(0, 0, 0, 1),
		"Resize":         e.Resize(10, 10),
		"Start":          e.Start(&ManualScheduler{}),
		"SetPointer":     e.SetPointer(Pointer{}),
	}
	_, calls["Render"] = e.Render()
	_, calls["Paint"] = e.Paint(0, 0)
	_, calls["Snapshot"] = e.Snapshot()
	for name, err := range calls {
		if !errors.Is(err, ErrDisposed) {
			t.Errorf("%s after Dispose = %v, want ErrDisposed", name, err)
		}
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("%s after Dispose = %v, want ErrInvalidState", name, err)
		}
	}
}

func TestUninitializedEngine(t *testing.T) {
	var e Engine
	if err := e.DrawPolygonRow(3); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("DrawPolygonRow on zero Engine = %v, want ErrNotInitialized", err)
	}
	if _, err := e.Render(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Render on zero Engine = %v, want ErrInvalidState", err)
	}
	if err := e.Dispose(); err != nil {
		t.Errorf("Dispose on zero Engine = %v", err)
	}
}

func TestPaint(t *testing.T) {
	e := newTestEngine(t)
	if err := e.DrawPolygonRow(3); err != nil {
		t.Fatal(err)
	}
	if changed, err := e.Paint(0, 0); err != nil || changed {
		t.Errorf("Paint on polygon row = %v, %v; want false, nil", changed, err)
	}
	if err := e.DrawCellularAutomata(16, WithDensity(0)); err != nil {
		t.Fatal(err)
	}
	if changed, err := e.Paint(0, 0); err != nil || !changed {
		t.Errorf("Paint on automaton = %v, %v; want true, nil", changed, err)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateUninitialized, "uninitialized"},
		{StateReady, "ready"},
		{StateDisposed, "disposed"},
		{State(9), "State(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	if !errors.Is(ErrNotInitialized, ErrInvalidState) {
		t.Error("ErrNotInitialized does not match ErrInvalidState")
	}
	if !errors.Is(ErrDisposed, ErrInvalidState) {
		t.Error("ErrDisposed does not match ErrInvalidState")
	}
	if errors.Is(ErrDisposed, ErrNotInitialized) {
		t.Error("ErrDisposed matches ErrNotInitialized")
	}

	wrapped := fmt.Errorf("shapes: activate tree: %w", &CompileError{Label: "tree", Diagnostic: "unexpected token"})
	var ce *CompileError
	if !errors.As(wrapped, &ce) || ce.Diagnostic != "unexpected token" {
		t.Errorf("errors.As(%v, *CompileError) failed", wrapped)
	}
}
