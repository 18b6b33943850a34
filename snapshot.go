package shapes

import (
	"fmt"
	"image"

	"github.com/gogpu/shapes/internal/gpu"
)

// ErrNotReadable is returned by Snapshot when the engine renders into a
// window surface.
var ErrNotReadable = gpu.ErrNotReadable

// Snapshot copies the last rendered frame of an offscreen engine into an
// RGBA image. It waits for the GPU and is meant for tests and exports, not
// for the frame loop.
func (e *Engine) Snapshot() (*image.RGBA, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	px, w, h, err := e.ctx.ReadPixels()
	if err != nil {
		return nil, fmt.Errorf("shapes: snapshot: %w", err)
	}
	return &image.RGBA{
		Pix:    px,
		Stride: int(w) * 4,
		Rect:   image.Rect(0, 0, int(w), int(h)),
	}, nil
}
