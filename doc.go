// Package shapes renders animated 2D shapes on the GPU through the
// gogpu WebGPU HAL.
//
// # Overview
//
// An Engine draws one of five modes at a time into a window surface or an
// offscreen texture:
//
//   - Polygon row: a row of polygons, the i-th with i+3 sides
//   - Particles: instanced discs attracted by the pointer
//   - Flow field: particles advected by a layered sine field
//   - Cellular automaton: Conway's Game of Life with fading trails
//   - Fractal tree: a static skeleton swayed by the vertex shader
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/gputypes"
//	    "github.com/gogpu/shapes"
//	    _ "github.com/gogpu/wgpu/hal/allbackends"
//	)
//
//	dev, err := shapes.OpenDevice(gputypes.BackendVulkan)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	e, err := shapes.Init(ctx, dev, 800, 600)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Dispose()
//
//	e.DrawPolygonRow(8, shapes.WithVariant(shapes.VariantStar))
//	for range 60 {
//	    e.Render()
//	}
//	img, _ := e.Snapshot()
//
// Any gpucontext.DeviceProvider that exposes a hal.Device and hal.Queue,
// directly or through HalDevice and HalQueue methods, can be passed to
// Init, so the engine can share a device with a host application.
//
// # Modes and Resources
//
// Calling a Draw method with the active mode and the same primary
// argument reapplies the options in place. Any other call releases the
// active mode's GPU objects before the new mode allocates its own, so at
// most one mode is resident. Stats reports the live objects.
//
// # Options
//
// Every option has a default (DefaultRenderOptions). Out-of-range values
// are clamped and non-finite ones fall back to the previous value; options
// never cause errors.
//
// # Frame Loop
//
// Render draws one frame and returns the time since the previous call.
// Start drives Render from a FrameScheduler; TickerScheduler and
// ManualScheduler are provided.
//
// The Engine is not safe for concurrent use.
package shapes
