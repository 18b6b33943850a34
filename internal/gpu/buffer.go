package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer errors.
var (
	// ErrInvalidBufferSize is returned when a buffer size is zero.
	ErrInvalidBufferSize = errors.New("gpu: invalid buffer size")

	// ErrBufferReleased is returned when operating on a released buffer.
	ErrBufferReleased = errors.New("gpu: buffer has been released")

	// ErrBufferOverflow is returned when an upload does not fit the buffer.
	ErrBufferOverflow = errors.New("gpu: upload exceeds buffer size")
)

// bufferAlign is the size granularity of every allocation. WriteBuffer
// requires sizes and offsets in multiples of 4 bytes.
const bufferAlign = 4

// Buffer is a device-resident buffer allocated through a Context.
type Buffer struct {
	ctx   *Context
	label string
	usage gputypes.BufferUsage
	size  uint64
	raw   hal.Buffer
}

// AllocateBuffer creates a buffer of at least size bytes. CopyDst is added
// to usage so the buffer can always be uploaded to.
func (c *Context) AllocateBuffer(label string, size uint64, usage gputypes.BufferUsage) (*Buffer, error) {
	if c.destroyed {
		return nil, ErrContextDestroyed
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: %q has size 0", ErrInvalidBufferSize, label)
	}
	b := &Buffer{
		ctx:   c,
		label: label,
		usage: usage | gputypes.BufferUsageCopyDst,
	}
	if err := b.allocate(alignSize(size)); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Buffer) allocate(size uint64) error {
	raw, err := b.ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.label,
		Size:  size,
		Usage: b.usage,
	})
	if err != nil {
		return fmt.Errorf("gpu: create buffer %q: %w", b.label, err)
	}
	b.raw = raw
	b.size = size
	b.ctx.tracker.add(KindBuffer, size)
	return nil
}

// Raw returns the HAL buffer, or nil after Release.
func (b *Buffer) Raw() hal.Buffer { return b.raw }

// Size returns the allocated size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Upload writes data at offset 0. The data is padded to the 4-byte write
// granularity with zeros when needed.
func (b *Buffer) Upload(data []byte) error {
	return b.UploadAt(0, data)
}

// UploadAt writes data at the given byte offset.
func (b *Buffer) UploadAt(offset uint64, data []byte) error {
	if b.raw == nil {
		return ErrBufferReleased
	}
	if len(data) == 0 {
		return nil
	}
	if rem := len(data) % bufferAlign; rem != 0 {
		padded := make([]byte, len(data)+bufferAlign-rem)
		copy(padded, data)
		data = padded
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("%w: %q %d+%d > %d", ErrBufferOverflow, b.label, offset, len(data), b.size)
	}
	if err := b.ctx.queue.WriteBuffer(b.raw, offset, data); err != nil {
		return fmt.Errorf("gpu: write buffer %q: %w", b.label, err)
	}
	return nil
}

// Reserve grows the buffer so it holds at least size bytes. Growth
// reallocates and discards the previous contents; callers re-upload.
// Bind groups referencing the old allocation must be recreated, which is
// signalled by the returned bool.
func (b *Buffer) Reserve(size uint64) (bool, error) {
	if b.raw == nil {
		return false, ErrBufferReleased
	}
	if size <= b.size {
		return false, nil
	}
	newSize := b.size * 2
	if newSize < size {
		newSize = size
	}
	old, oldSize := b.raw, b.size
	device := b.ctx.device
	b.ctx.retire(func() { device.DestroyBuffer(old) })
	b.ctx.tracker.remove(KindBuffer, oldSize)
	b.raw = nil
	if err := b.allocate(alignSize(newSize)); err != nil {
		return false, err
	}
	slogger().Debug("gpu: buffer grown", "label", b.label, "from", oldSize, "to", b.size)
	return true, nil
}

// Release destroys the buffer. Safe to call multiple times.
func (b *Buffer) Release() {
	if b == nil || b.raw == nil {
		return
	}
	raw, device := b.raw, b.ctx.device
	b.ctx.retire(func() { device.DestroyBuffer(raw) })
	b.ctx.tracker.remove(KindBuffer, b.size)
	b.raw = nil
}

// binding returns the whole-buffer binding for bind group entries.
func (b *Buffer) binding() gputypes.BindingResource {
	return gputypes.BufferBinding{Buffer: b.raw.NativeHandle(), Offset: 0, Size: b.size}
}

func alignSize(size uint64) uint64 {
	return (size + bufferAlign - 1) &^ (bufferAlign - 1)
}
