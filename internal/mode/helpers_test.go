package mode

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/shapes/internal/geom"
	"github.com/gogpu/shapes/internal/gpu"
)

// createNoopDevice opens a device on the noop backend.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// newTestContext returns a Context rendering into a 64x48 offscreen target.
func newTestContext(t *testing.T) *gpu.Context {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	target, err := gpu.NewTextureTarget(gputypes.TextureFormatRGBA8Unorm, 64, 48)
	if err != nil {
		cleanup()
		t.Fatalf("NewTextureTarget failed: %v", err)
	}
	c, err := gpu.NewContext(device, queue, target)
	if err != nil {
		cleanup()
		t.Fatalf("NewContext failed: %v", err)
	}
	t.Cleanup(func() {
		c.Destroy()
		cleanup()
	})
	return c
}

// testParams returns the parameter set the engine would pass by default.
func testParams() Params {
	return Params{
		Animate:      true,
		Scale:        1,
		Spacing:      1,
		Variant:      geom.VariantRegular,
		ParticleSize: 4,
		MaxSpeed:     1,
		FlowScale:    0.2,
		FlowSpeed:    0.5,
		SimSpeed:     1,
		BrushRadius:  2,
		Density:      0.25,
		BranchCount:  2,
		WindStrength: 0.05,
		Seed:         1,
	}
}

// renderFrame runs one Prepare/Draw/Submit cycle of m.
func renderFrame(t *testing.T, c *gpu.Context, m Mode) {
	t.Helper()
	f, err := c.BeginFrame(gputypes.Color{A: 1})
	if err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	w, h := f.Size()
	if err := m.Prepare(FrameInfo{Width: w, Height: h}); err != nil {
		f.Discard()
		t.Fatalf("%s Prepare failed: %v", m.Kind(), err)
	}
	m.Draw(f.Pass())
	if err := f.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
}
