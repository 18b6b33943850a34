package shapes

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoAdapter is returned by OpenDevice when the backend reports no
// adapters.
var ErrNoAdapter = errors.New("shapes: no GPU adapters found")

// Device is a headless device provider. It owns the HAL instance and
// device it opened and implements gpucontext.DeviceProvider, so it can be
// passed to Init by hosts that have no windowing framework.
type Device struct {
	instance hal.Instance
	adapter  hal.Adapter
	info     gputypes.AdapterInfo
	device   hal.Device
	queue    hal.Queue
}

var _ gpucontext.DeviceProvider = (*Device)(nil)

// OpenDevice opens a device on a registered HAL backend. Backends
// register themselves when their package is imported, for example through
// github.com/gogpu/wgpu/hal/allbackends. Discrete adapters are preferred,
// then integrated ones, then the first reported.
func OpenDevice(backend gputypes.Backend) (*Device, error) {
	b, ok := hal.GetBackend(backend)
	if !ok {
		return nil, fmt.Errorf("%w: backend %s is not registered", ErrInitialization, backend)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrInitialization, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrInitialization, ErrNoAdapter)
	}
	selected := selectAdapter(adapters)
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %w", ErrInitialization, err)
	}
	Logger().Info("shapes: adapter selected",
		"name", selected.Info.Name, "type", selected.Info.DeviceType, "backend", backend)
	return &Device{
		instance: instance,
		adapter:  selected.Adapter,
		info:     selected.Info,
		device:   openDev.Device,
		queue:    openDev.Queue,
	}, nil
}

func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for _, want := range []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU} {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return &adapters[i]
			}
		}
	}
	return &adapters[0]
}

// Device implements gpucontext.DeviceProvider.
func (d *Device) Device() gpucontext.Device { return d.device }

// Queue implements gpucontext.DeviceProvider.
func (d *Device) Queue() gpucontext.Queue { return d.queue }

// SurfaceFormat implements gpucontext.DeviceProvider. A headless device
// has no surface.
func (d *Device) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }

// Adapter implements gpucontext.DeviceProvider.
func (d *Device) Adapter() gpucontext.Adapter { return d.adapter }

// AdapterInfo implements gpucontext.DeviceProvider.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo {
	info := gpucontext.AdapterInfo{Name: d.info.Name, Type: gpucontext.AdapterTypeUnknown}
	switch d.info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		info.Type = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		info.Type = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		info.Type = gpucontext.AdapterTypeSoftware
	}
	return info
}

// HalDevice returns the hal.Device.
func (d *Device) HalDevice() any { return d.device }

// HalQueue returns the hal.Queue.
func (d *Device) HalQueue() any { return d.queue }

// Instance returns the HAL instance, for creating window surfaces.
func (d *Device) Instance() hal.Instance { return d.instance }

// Close destroys the device and instance. Engines created on the device
// must be disposed first. Safe to call multiple times.
func (d *Device) Close() {
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
		d.queue = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}

// halDevice extracts the HAL device and queue from a provider. Providers
// either expose them through HalDevice/HalQueue or return them directly
// from Device/Queue.
func halDevice(p gpucontext.DeviceProvider) (hal.Device, hal.Queue, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	var dev, queue any
	if hp, ok := p.(halProvider); ok {
		dev, queue = hp.HalDevice(), hp.HalQueue()
	} else {
		dev, queue = p.Device(), p.Queue()
	}
	d, ok := dev.(hal.Device)
	if !ok || d == nil {
		return nil, nil, ErrNoDevice
	}
	q, ok := queue.(hal.Queue)
	if !ok || q == nil {
		return nil, nil, ErrNoDevice
	}
	return d, q, nil
}
