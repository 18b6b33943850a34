package shapes

import (
	"context"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	_ "github.com/gogpu/wgpu/hal/noop" // registers gputypes.BackendEmpty
)

// openNoopDevice opens a headless device on the noop backend.
func openNoopDevice(t *testing.T) *Device {
	t.Helper()
	dev, err := OpenDevice(gputypes.BackendEmpty)
	if err != nil {
		t.Fatalf("OpenDevice failed: %v", err)
	}
	t.Cleanup(dev.Close)
	return dev
}

// fakeClock is a frame clock advanced by tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// newTestEngine creates a 64x48 offscreen engine on the noop backend.
func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	dev := openNoopDevice(t)
	e, err := Init(context.Background(), dev, 64, 48, opts...)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { _ = e.Dispose() })
	return e
}

// newClockedEngine is newTestEngine with a manual clock.
func newClockedEngine(t *testing.T, opts ...EngineOption) (*Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1000, 0)}
	e := newTestEngine(t, append([]EngineOption{WithClock(clock.now)}, opts...)...)
	return e, clock
}
