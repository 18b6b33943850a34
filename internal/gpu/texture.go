package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Texture errors.
var (
	// ErrInvalidTextureSize is returned for zero-sized textures.
	ErrInvalidTextureSize = errors.New("gpu: invalid texture size")

	// ErrInvalidChannels is returned when a state texture is requested with
	// a channel count other than 1 or 4.
	ErrInvalidChannels = errors.New("gpu: state textures have 1 or 4 channels")

	// ErrTextureReleased is returned when operating on a released texture.
	ErrTextureReleased = errors.New("gpu: texture has been released")

	// ErrTextureDataSize is returned when uploaded data does not match the
	// texture dimensions.
	ErrTextureDataSize = errors.New("gpu: texture data size mismatch")

	// ErrTextureRegion is returned when a region write falls outside the
	// texture.
	ErrTextureRegion = errors.New("gpu: texture region out of bounds")
)

// StateTexture is a floating-point texture holding simulation state.
// Texels are sampled with nearest filtering and clamp-to-edge addressing,
// so edge texels repeat outward rather than wrapping. A state texture is
// also a render attachment, so one simulation step can render the next
// state into it with RenderToTexture.
type StateTexture struct {
	ctx      *Context
	label    string
	width    uint32
	height   uint32
	channels uint32
	format   gputypes.TextureFormat

	texture hal.Texture
	view    hal.TextureView
	sampler hal.Sampler

	staging []byte
}

// CreateStateTexture creates a width×height float texture with 1 (R32Float)
// or 4 (RGBA32Float) channels, its view and its sampler.
func (c *Context) CreateStateTexture(label string, width, height, channels uint32) (*StateTexture, error) {
	if c.destroyed {
		return nil, ErrContextDestroyed
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %q is %dx%d", ErrInvalidTextureSize, label, width, height)
	}
	var format gputypes.TextureFormat
	switch channels {
	case 1:
		format = gputypes.TextureFormatR32Float
	case 4:
		format = gputypes.TextureFormatRGBA32Float
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChannels, channels)
	}

	st := &StateTexture{
		ctx:      c,
		label:    label,
		width:    width,
		height:   height,
		channels: channels,
		format:   format,
	}

	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage: gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst |
			gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create state texture %q: %w", label, err)
	}
	st.texture = tex
	c.tracker.add(KindTexture, st.byteSize())

	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		st.Release()
		return nil, fmt.Errorf("gpu: create state texture view %q: %w", label, err)
	}
	st.view = view
	c.tracker.add(KindTextureView, 0)

	sampler, err := c.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        label + "_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		st.Release()
		return nil, fmt.Errorf("gpu: create state sampler %q: %w", label, err)
	}
	st.sampler = sampler
	c.tracker.add(KindSampler, 0)

	return st, nil
}

// Width returns the texture width in texels.
func (st *StateTexture) Width() uint32 { return st.width }

// Height returns the texture height in texels.
func (st *StateTexture) Height() uint32 { return st.height }

// Format returns R32Float or RGBA32Float.
func (st *StateTexture) Format() gputypes.TextureFormat { return st.format }

// Write uploads the whole texture. data holds width*height*channels values
// in row-major order.
func (st *StateTexture) Write(data []float32) error {
	return st.WriteRegion(0, 0, st.width, st.height, data)
}

// WriteRegion uploads a w×h block of texels with its top-left corner at
// (x, y). data holds w*h*channels values in row-major order. Texels
// outside the block keep their contents.
func (st *StateTexture) WriteRegion(x, y, w, h uint32, data []float32) error {
	if st.texture == nil {
		return ErrTextureReleased
	}
	if w == 0 || h == 0 || uint64(x)+uint64(w) > uint64(st.width) || uint64(y)+uint64(h) > uint64(st.height) {
		return fmt.Errorf("%w: %q is %dx%d, region %dx%d at (%d, %d)",
			ErrTextureRegion, st.label, st.width, st.height, w, h, x, y)
	}
	want := int(w) * int(h) * int(st.channels)
	if len(data) != want {
		return fmt.Errorf("%w: %q wants %d values, got %d", ErrTextureDataSize, st.label, want, len(data))
	}
	if cap(st.staging) < want*4 {
		st.staging = make([]byte, want*4)
	}
	buf := st.staging[:want*4]
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	err := st.ctx.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  st.texture,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: x, Y: y},
			Aspect:   gputypes.TextureAspectAll,
		},
		buf,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * st.channels * 4,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("gpu: write state texture %q: %w", st.label, err)
	}
	return nil
}

// Release destroys the sampler, view and texture. Safe to call multiple
// times.
func (st *StateTexture) Release() {
	if st == nil {
		return
	}
	device := st.ctx.device
	if st.sampler != nil {
		s := st.sampler
		st.ctx.retire(func() { device.DestroySampler(s) })
		st.ctx.tracker.remove(KindSampler, 0)
		st.sampler = nil
	}
	if st.view != nil {
		v := st.view
		st.ctx.retire(func() { device.DestroyTextureView(v) })
		st.ctx.tracker.remove(KindTextureView, 0)
		st.view = nil
	}
	if st.texture != nil {
		t := st.texture
		st.ctx.retire(func() { device.DestroyTexture(t) })
		st.ctx.tracker.remove(KindTexture, st.byteSize())
		st.texture = nil
	}
	st.staging = nil
}

func (st *StateTexture) byteSize() uint64 {
	return uint64(st.width) * uint64(st.height) * uint64(st.channels) * 4
}

// viewBinding and samplerBinding return bind group resources for the
// texture's view and sampler.
func (st *StateTexture) viewBinding() gputypes.BindingResource {
	return gputypes.TextureViewBinding{TextureView: st.view.NativeHandle()}
}

func (st *StateTexture) samplerBinding() gputypes.BindingResource {
	return gputypes.SamplerBinding{Sampler: st.sampler.NativeHandle()}
}
