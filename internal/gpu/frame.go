package gpu

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Frame errors.
var (
	// ErrFrameFinished is returned when a frame is submitted twice.
	ErrFrameFinished = errors.New("gpu: frame already finished")

	// ErrNotReadable is returned when reading back a target that is not an
	// offscreen texture.
	ErrNotReadable = errors.New("gpu: render target cannot be read back")
)

// copyPitchAlignment is the required BytesPerRow alignment for
// texture-to-buffer copies.
const copyPitchAlignment = 256

// Frame is one encoded render pass into the context's target.
type Frame struct {
	ctx     *Context
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	finish  func(submitted bool) error
	width   uint32
	height  uint32
	done    bool
}

// BeginFrame acquires the target, opens a command encoder and begins a
// render pass that clears to the given color. The viewport covers the
// whole target.
func (c *Context) BeginFrame(clear gputypes.Color) (*Frame, error) {
	if c.destroyed {
		return nil, ErrContextDestroyed
	}
	c.reclaim()

	view, finish, err := c.target.acquire(c)
	if err != nil {
		return nil, fmt.Errorf("gpu: begin frame: %w", err)
	}
	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "frame_encoder",
	})
	if err != nil {
		_ = finish(false)
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("frame"); err != nil {
		encoder.Destroy()
		_ = finish(false)
		return nil, fmt.Errorf("gpu: begin encoding: %w", err)
	}

	w, h := c.target.Size()
	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "frame_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clear,
		}},
	})
	pass.SetViewport(0, 0, float32(w), float32(h), 0, 1)

	return &Frame{
		ctx:     c,
		encoder: encoder,
		pass:    pass,
		finish:  finish,
		width:   w,
		height:  h,
	}, nil
}

// Pass returns the open render pass.
func (f *Frame) Pass() hal.RenderPassEncoder { return f.pass }

// Size returns the frame size in pixels.
func (f *Frame) Size() (uint32, uint32) { return f.width, f.height }

// Submit ends the pass, submits the command buffer and presents surface
// targets. The command buffer is freed on a later frame once the queue
// reports it complete.
func (f *Frame) Submit() error {
	if f.done {
		return ErrFrameFinished
	}
	f.done = true
	f.pass.End()

	cmdBuf, err := f.encoder.EndEncoding()
	if err != nil {
		f.encoder.Destroy()
		_ = f.finish(false)
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	c := f.ctx
	idx, err := c.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		c.device.FreeCommandBuffer(cmdBuf)
		f.encoder.Destroy()
		_ = f.finish(false)
		return fmt.Errorf("gpu: submit: %w", err)
	}
	c.lastSubmitted = idx
	c.pending = append(c.pending, pendingSubmission{index: idx, cmdBuf: cmdBuf, encoder: f.encoder})
	return f.finish(true)
}

// Discard abandons the frame without submitting it.
func (f *Frame) Discard() {
	if f.done {
		return
	}
	f.done = true
	f.pass.End()
	f.encoder.DiscardEncoding()
	f.encoder.Destroy()
	_ = f.finish(false)
}

// RenderToTexture records one render pass into dst and submits it. The
// pass does not clear: record must cover every texel it means to change.
// The texture is a render attachment only for the duration of the pass
// and returns to shader-read use afterwards. Submissions keep queue
// order, so a frame submitted later samples the result.
func (c *Context) RenderToTexture(dst *StateTexture, label string, record func(pass hal.RenderPassEncoder)) error {
	if c.destroyed {
		return ErrContextDestroyed
	}
	if dst == nil || dst.texture == nil {
		return ErrTextureReleased
	}
	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		encoder.Destroy()
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: dst.texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageTextureBinding,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    dst.view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	pass.SetViewport(0, 0, float32(dst.width), float32(dst.height), 0, 1)
	record(pass)
	pass.End()
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: dst.texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageTextureBinding,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.Destroy()
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	idx, err := c.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		c.device.FreeCommandBuffer(cmdBuf)
		encoder.Destroy()
		return fmt.Errorf("gpu: submit %s: %w", label, err)
	}
	c.lastSubmitted = idx
	c.pending = append(c.pending, pendingSubmission{index: idx, cmdBuf: cmdBuf, encoder: encoder})
	return nil
}

// ReadPixels copies the offscreen target into a tightly packed RGBA byte
// slice. It waits for the GPU and is meant for snapshots, not the frame
// loop.
func (c *Context) ReadPixels() ([]byte, uint32, uint32, error) {
	if c.destroyed {
		return nil, 0, 0, ErrContextDestroyed
	}
	t, ok := c.target.(*TextureTarget)
	if !ok || t.texture == nil {
		return nil, 0, 0, ErrNotReadable
	}
	w, h := t.width, t.height
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	defer c.device.DestroyBuffer(staging)

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "readback_encoder"})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		encoder.Destroy()
		return nil, 0, 0, fmt.Errorf("gpu: begin encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.texture, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.texture, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.Destroy()
		return nil, 0, 0, fmt.Errorf("gpu: end encoding: %w", err)
	}
	idx, err := c.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		c.device.FreeCommandBuffer(cmdBuf)
		encoder.Destroy()
		return nil, 0, 0, fmt.Errorf("gpu: submit readback: %w", err)
	}
	c.lastSubmitted = idx
	c.pending = append(c.pending, pendingSubmission{index: idx, cmdBuf: cmdBuf, encoder: encoder})
	c.waitIdle()

	mapping, err := c.device.MapBuffer(staging, 0, stagingSize)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("gpu: map staging buffer: %w", err)
	}
	raw := unsafe.Slice((*byte)(mapping.Ptr), stagingSize)
	pixels := make([]byte, uint64(bytesPerRow)*uint64(h))
	for row := uint32(0); row < h; row++ {
		src := raw[uint64(row)*uint64(alignedBytesPerRow):]
		copy(pixels[uint64(row)*uint64(bytesPerRow):uint64(row+1)*uint64(bytesPerRow)], src[:bytesPerRow])
	}
	if err := c.device.UnmapBuffer(staging); err != nil {
		slogger().Warn("gpu: unmap staging buffer", "err", err)
	}
	if t.format == gputypes.TextureFormatBGRA8Unorm {
		swapRedBlue(pixels)
	}
	return pixels, w, h, nil
}

// swapRedBlue converts BGRA to RGBA in place.
func swapRedBlue(px []byte) {
	for i := 0; i+3 < len(px); i += 4 {
		px[i], px[i+2] = px[i+2], px[i]
	}
}
