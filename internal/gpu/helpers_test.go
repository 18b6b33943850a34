package gpu

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
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
func newTestContext(t *testing.T) *Context {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	target, err := NewTextureTarget(gputypes.TextureFormatRGBA8Unorm, 64, 48)
	if err != nil {
		cleanup()
		t.Fatalf("NewTextureTarget failed: %v", err)
	}
	c, err := NewContext(device, queue, target)
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
