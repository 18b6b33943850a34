package shapes

import (
	"testing"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/shapes/internal/mode"
)

func TestHandlePointerMoveAndLeave(t *testing.T) {
	e := newTestEngine(t) // 64x48
	if err := e.DrawParticles(20); err != nil {
		t.Fatal(err)
	}
	move := gpucontext.PointerEvent{Type: gpucontext.PointerMove, X: 48, Y: 12, Button: gpucontext.ButtonNone}
	if err := e.HandlePointer(move); err != nil {
		t.Fatalf("HandlePointer(move) failed: %v", err)
	}
	p := e.Options().Pointer
	if !p.Present || p.X != 0.5 || p.Y != 0.5 {
		t.Errorf("pointer after move = %+v, want (0.5, 0.5) present", p)
	}

	if err := e.HandlePointer(gpucontext.PointerEvent{Type: gpucontext.PointerLeave}); err != nil {
		t.Fatal(err)
	}
	if e.Options().Pointer.Present {
		t.Error("pointer still present after leave")
	}
}

func TestHandlePointerOutside(t *testing.T) {
	e := newTestEngine(t)
	ev := gpucontext.PointerEvent{Type: gpucontext.PointerMove, X: -5, Y: 10}
	if err := e.HandlePointer(ev); err != nil {
		t.Fatal(err)
	}
	if e.Options().Pointer.Present {
		t.Error("pointer outside the target reported present")
	}
}

func TestHandlePointerTouchUp(t *testing.T) {
	e := newTestEngine(t)
	down := gpucontext.PointerEvent{Type: gpucontext.PointerDown, X: 32, Y: 24, PointerType: gpucontext.PointerTypeTouch}
	if err := e.HandlePointer(down); err != nil {
		t.Fatal(err)
	}
	if !e.Options().Pointer.Present {
		t.Fatal("touch down did not set the pointer")
	}
	up := down
	up.Type = gpucontext.PointerUp
	if err := e.HandlePointer(up); err != nil {
		t.Fatal(err)
	}
	if e.Options().Pointer.Present {
		t.Error("touch up kept the pointer present")
	}
}

func TestHandlePointerPaints(t *testing.T) {
	e := newTestEngine(t)
	if err := e.DrawCellularAutomata(16, WithDensity(0), WithPaused(true)); err != nil {
		t.Fatal(err)
	}
	m := e.active.(*mode.Automaton)
	send := func(ev gpucontext.PointerEvent) uint64 {
		t.Helper()
		if err := e.HandlePointer(ev); err != nil {
			t.Fatal(err)
		}
		if _, err := e.Render(); err != nil {
			t.Fatal(err)
		}
		return m.PaintedCells()
	}

	hover := gpucontext.PointerEvent{Type: gpucontext.PointerMove, X: 32, Y: 24, Button: gpucontext.ButtonNone}
	if n := send(hover); n != 0 {
		t.Fatalf("hover painted %d cells", n)
	}

	down := gpucontext.PointerEvent{Type: gpucontext.PointerDown, X: 32, Y: 24, Button: gpucontext.ButtonLeft, Buttons: gpucontext.ButtonsLeft}
	painted := send(down)
	if painted == 0 {
		t.Fatal("primary button press painted nothing")
	}

	drag := gpucontext.PointerEvent{Type: gpucontext.PointerMove, X: 8, Y: 8, Button: gpucontext.ButtonNone, Buttons: gpucontext.ButtonsLeft}
	if send(drag) <= painted {
		t.Error("drag with primary button did not paint")
	}
	if m.Steps() != 0 {
		t.Errorf("paused automaton stepped %d times", m.Steps())
	}
}
