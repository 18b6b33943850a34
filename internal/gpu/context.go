package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Context errors.
var (
	// ErrNilDevice is returned when a Context is created without a device.
	ErrNilDevice = errors.New("gpu: device is nil")

	// ErrNilQueue is returned when a Context is created without a queue.
	ErrNilQueue = errors.New("gpu: queue is nil")

	// ErrNilTarget is returned when a Context is created without a target.
	ErrNilTarget = errors.New("gpu: render target is nil")

	// ErrContextDestroyed is returned when operating on a destroyed Context.
	ErrContextDestroyed = errors.New("gpu: context has been destroyed")
)

// Releaser is implemented by every handle a Context hands out.
// Release is idempotent.
type Releaser interface {
	Release()
}

// pendingSubmission is a command buffer the GPU may still be executing.
type pendingSubmission struct {
	index   uint64
	cmdBuf  hal.CommandBuffer
	encoder hal.CommandEncoder
}

// retiredObject is a device object released by its owner while a
// submission that may reference it was still in flight.
type retiredObject struct {
	after   uint64
	destroy func()
}

// Context is the graphics context of one engine: a device, its queue, the
// render target frames are drawn into, and the accounting of everything
// allocated against them.
//
// Context is not safe for concurrent use.
type Context struct {
	device  hal.Device
	queue   hal.Queue
	target  Target
	tracker *Tracker

	pending       []pendingSubmission
	retired       []retiredObject
	lastSubmitted uint64
	destroyed     bool
}

// NewContext binds a device, queue and render target into a Context.
// The target is configured for the device before NewContext returns; the
// Context owns it from then on and destroys it in Destroy.
func NewContext(device hal.Device, queue hal.Queue, target Target) (*Context, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if queue == nil {
		return nil, ErrNilQueue
	}
	if target == nil {
		return nil, ErrNilTarget
	}
	c := &Context{
		device:  device,
		queue:   queue,
		target:  target,
		tracker: NewTracker(),
	}
	if err := target.configure(c); err != nil {
		return nil, fmt.Errorf("gpu: configure target: %w", err)
	}
	w, h := target.Size()
	slogger().Debug("gpu: context created",
		"target", fmt.Sprintf("%T", target), "width", w, "height", h, "format", target.Format())
	return c, nil
}

// Device returns the underlying HAL device.
func (c *Context) Device() hal.Device { return c.device }

// Queue returns the underlying HAL queue.
func (c *Context) Queue() hal.Queue { return c.queue }

// Target returns the render target.
func (c *Context) Target() Target { return c.target }

// Format returns the color format of the render target. Programs created
// through this Context render to this format.
func (c *Context) Format() gputypes.TextureFormat { return c.target.Format() }

// Tracker returns the live-resource tracker.
func (c *Context) Tracker() *Tracker { return c.tracker }

// Resize reconfigures the render target. Existing programs and buffers are
// unaffected.
func (c *Context) Resize(width, height uint32) error {
	if c.destroyed {
		return ErrContextDestroyed
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidTextureSize, width, height)
	}
	if err := c.target.resize(c, width, height); err != nil {
		return fmt.Errorf("gpu: resize target: %w", err)
	}
	return nil
}

// Release releases every handle in order. Nil handles are skipped.
func (c *Context) Release(handles ...Releaser) {
	for _, h := range handles {
		if h == nil {
			continue
		}
		h.Release()
	}
}

// retire destroys a device object once no in-flight submission can
// reference it. With nothing in flight the object is destroyed at once.
func (c *Context) retire(destroy func()) {
	if len(c.pending) == 0 {
		destroy()
		return
	}
	c.retired = append(c.retired, retiredObject{after: c.lastSubmitted, destroy: destroy})
}

// reclaim frees command buffers and retired objects whose submissions the
// queue reports as complete. It never blocks.
func (c *Context) reclaim() {
	if len(c.pending) == 0 && len(c.retired) == 0 {
		return
	}
	done := c.queue.PollCompleted()
	keptRetired := c.retired[:0]
	for _, r := range c.retired {
		if r.after <= done {
			r.destroy()
			continue
		}
		keptRetired = append(keptRetired, r)
	}
	for i := len(keptRetired); i < len(c.retired); i++ {
		c.retired[i] = retiredObject{}
	}
	c.retired = keptRetired

	kept := c.pending[:0]
	for _, p := range c.pending {
		if p.index <= done {
			c.device.FreeCommandBuffer(p.cmdBuf)
			p.encoder.Destroy()
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(c.pending); i++ {
		c.pending[i] = pendingSubmission{}
	}
	c.pending = kept
}

// waitIdle blocks until the device is idle and frees every pending
// command buffer. Used on teardown and readback only.
func (c *Context) waitIdle() {
	if err := c.device.WaitIdle(); err != nil {
		slogger().Warn("gpu: wait idle failed", "err", err)
	}
	for _, p := range c.pending {
		c.device.FreeCommandBuffer(p.cmdBuf)
		p.encoder.Destroy()
	}
	c.pending = nil
	for _, r := range c.retired {
		r.destroy()
	}
	c.retired = nil
}

// Destroy waits for in-flight work, then destroys the render target.
// Objects handed out by the Context must be released by their owners
// first. Safe to call multiple times.
func (c *Context) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.waitIdle()
	c.target.destroy(c)
	if n := c.tracker.Stats().Total(); n != 0 {
		slogger().Warn("gpu: context destroyed with live resources", "stats", c.tracker.Stats().String())
	}
	slogger().Debug("gpu: context destroyed")
}
