package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNilSurface is returned when a surface target is created without a
// surface.
var ErrNilSurface = errors.New("gpu: surface is nil")

// Target is the color attachment frames are rendered into: a presentable
// surface or an offscreen texture.
type Target interface {
	// Format returns the color format of the attachment.
	Format() gputypes.TextureFormat

	// Size returns the current attachment size in pixels.
	Size() (width, height uint32)

	configure(c *Context) error
	resize(c *Context, width, height uint32) error
	// acquire returns the view for one frame and a function that finishes
	// it. finish(true) presents (surface targets); finish(false) discards.
	acquire(c *Context) (hal.TextureView, func(submitted bool) error, error)
	destroy(c *Context)
}

// SurfaceTarget renders into a window surface and presents every frame.
type SurfaceTarget struct {
	surface hal.Surface
	format  gputypes.TextureFormat
	width   uint32
	height  uint32
	mode    gputypes.PresentMode

	configured bool
}

// NewSurfaceTarget creates a target for surface. The surface is configured
// when the target is bound to a Context. Zero format selects BGRA8Unorm.
func NewSurfaceTarget(surface hal.Surface, format gputypes.TextureFormat, width, height uint32) (*SurfaceTarget, error) {
	if surface == nil {
		return nil, ErrNilSurface
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: surface %dx%d", ErrInvalidTextureSize, width, height)
	}
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	return &SurfaceTarget{
		surface: surface,
		format:  format,
		width:   width,
		height:  height,
		mode:    gputypes.PresentModeFifo,
	}, nil
}

// Format implements Target.
func (t *SurfaceTarget) Format() gputypes.TextureFormat { return t.format }

// Size implements Target.
func (t *SurfaceTarget) Size() (uint32, uint32) { return t.width, t.height }

func (t *SurfaceTarget) configure(c *Context) error {
	err := t.surface.Configure(c.device, &hal.SurfaceConfiguration{
		Width:       t.width,
		Height:      t.height,
		Format:      t.format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: t.mode,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
	})
	if err != nil {
		return fmt.Errorf("configure surface: %w", err)
	}
	t.configured = true
	return nil
}

func (t *SurfaceTarget) resize(c *Context, width, height uint32) error {
	if width == t.width && height == t.height {
		return nil
	}
	c.waitIdle()
	t.width, t.height = width, height
	return t.configure(c)
}

func (t *SurfaceTarget) acquire(c *Context) (hal.TextureView, func(bool) error, error) {
	acquired, err := t.surface.AcquireTexture(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire surface texture: %w", err)
	}
	if acquired.Suboptimal {
		slogger().Debug("gpu: surface suboptimal", "width", t.width, "height", t.height)
	}
	tex := acquired.Texture
	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "surface_frame_view",
		Format:        t.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.surface.DiscardTexture(tex)
		return nil, nil, fmt.Errorf("create surface view: %w", err)
	}
	finish := func(submitted bool) error {
		device := c.device
		c.retire(func() { device.DestroyTextureView(view) })
		if !submitted {
			t.surface.DiscardTexture(tex)
			return nil
		}
		if err := c.queue.Present(t.surface, tex, nil); err != nil {
			return fmt.Errorf("present: %w", err)
		}
		return nil
	}
	return view, finish, nil
}

func (t *SurfaceTarget) destroy(c *Context) {
	if !t.configured {
		return
	}
	t.surface.Unconfigure(c.device)
	t.configured = false
}

// TextureTarget renders into an offscreen texture that can be read back.
type TextureTarget struct {
	format gputypes.TextureFormat
	width  uint32
	height uint32

	texture hal.Texture
	view    hal.TextureView
}

// NewTextureTarget creates an offscreen target. Zero format selects
// BGRA8Unorm.
func NewTextureTarget(format gputypes.TextureFormat, width, height uint32) (*TextureTarget, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: offscreen %dx%d", ErrInvalidTextureSize, width, height)
	}
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	return &TextureTarget{format: format, width: width, height: height}, nil
}

// Format implements Target.
func (t *TextureTarget) Format() gputypes.TextureFormat { return t.format }

// Size implements Target.
func (t *TextureTarget) Size() (uint32, uint32) { return t.width, t.height }

func (t *TextureTarget) configure(c *Context) error {
	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "offscreen_target",
		Size:          hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        t.format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create offscreen texture: %w", err)
	}
	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "offscreen_target_view",
		Format:        t.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		c.device.DestroyTexture(tex)
		return fmt.Errorf("create offscreen view: %w", err)
	}
	t.texture, t.view = tex, view
	return nil
}

func (t *TextureTarget) resize(c *Context, width, height uint32) error {
	if width == t.width && height == t.height {
		return nil
	}
	c.waitIdle()
	t.destroy(c)
	t.width, t.height = width, height
	return t.configure(c)
}

func (t *TextureTarget) acquire(_ *Context) (hal.TextureView, func(bool) error, error) {
	if t.view == nil {
		return nil, nil, fmt.Errorf("offscreen target: %w", ErrTextureReleased)
	}
	return t.view, func(bool) error { return nil }, nil
}

func (t *TextureTarget) destroy(c *Context) {
	if t.view != nil {
		c.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.texture != nil {
		c.device.DestroyTexture(t.texture)
		t.texture = nil
	}
}
