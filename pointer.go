package shapes

import (
	"github.com/gogpu/gpucontext"
)

// HandlePointer feeds a host pointer event to the engine. Positions are
// in pixels from the top-left corner of the target. Moving over the
// surface sets the pointer the particle and flow modes react to; leaving
// or canceling clears it. Pressing or dragging with the primary button
// paints in modes that have a brush.
func (e *Engine) HandlePointer(ev gpucontext.PointerEvent) error {
	if err := e.check(); err != nil {
		return err
	}
	switch ev.Type {
	case gpucontext.PointerLeave, gpucontext.PointerCancel:
		return e.SetPointer(Pointer{})
	case gpucontext.PointerUp:
		if ev.PointerType == gpucontext.PointerTypeTouch {
			return e.SetPointer(Pointer{})
		}
	}

	x, y, ok := e.normalize(ev.X, ev.Y)
	if !ok {
		return e.SetPointer(Pointer{})
	}
	if err := e.SetPointer(Pointer{X: x, Y: y, Present: true}); err != nil {
		return err
	}
	painting := (ev.Type == gpucontext.PointerDown && ev.Button == gpucontext.ButtonLeft) ||
		(ev.Type == gpucontext.PointerMove && ev.Buttons.HasLeft())
	if painting {
		_, err := e.Paint(x, y)
		return err
	}
	return nil
}

// normalize maps pixel coordinates to normalized device coordinates with
// y up. It reports false outside the target.
func (e *Engine) normalize(px, py float64) (x, y float32, ok bool) {
	w, h := e.Size()
	if w == 0 || h == 0 || px < 0 || py < 0 || px > float64(w) || py > float64(h) {
		return 0, 0, false
	}
	return float32(2*px/float64(w) - 1), float32(1 - 2*py/float64(h)), true
}
