package gpu

import (
	"fmt"
	"strings"
	"sync"
)

// ResourceKind identifies a class of GPU object owned by a Context.
type ResourceKind int

const (
	// KindBuffer is a vertex, instance, uniform or staging buffer.
	KindBuffer ResourceKind = iota
	// KindTexture is a state texture or offscreen render target.
	KindTexture
	// KindTextureView is a view onto a texture.
	KindTextureView
	// KindSampler is a texture sampler.
	KindSampler
	// KindShaderModule is a compiled shader module.
	KindShaderModule
	// KindBindGroupLayout is a bind group layout.
	KindBindGroupLayout
	// KindPipelineLayout is a pipeline layout.
	KindPipelineLayout
	// KindRenderPipeline is a render pipeline.
	KindRenderPipeline
	// KindBindGroup is a bind group.
	KindBindGroup

	numResourceKinds
)

var resourceKindNames = [numResourceKinds]string{
	"buffer",
	"texture",
	"texture_view",
	"sampler",
	"shader_module",
	"bind_group_layout",
	"pipeline_layout",
	"render_pipeline",
	"bind_group",
}

// String returns the snake_case name of the kind.
func (k ResourceKind) String() string {
	if k < 0 || k >= numResourceKinds {
		return fmt.Sprintf("ResourceKind(%d)", int(k))
	}
	return resourceKindNames[k]
}

// TrackerStats is a point-in-time snapshot of a Tracker.
type TrackerStats struct {
	// Live is the number of live objects per kind, indexed by ResourceKind.
	Live [numResourceKinds]int

	// Bytes is the total size of live buffers and textures.
	Bytes uint64

	// Allocations is the number of objects ever registered.
	Allocations uint64

	// Releases is the number of objects ever released.
	Releases uint64
}

// Count returns the number of live objects of the given kind.
func (s TrackerStats) Count(kind ResourceKind) int {
	if kind < 0 || kind >= numResourceKinds {
		return 0
	}
	return s.Live[kind]
}

// Total returns the number of live objects of every kind.
func (s TrackerStats) Total() int {
	n := 0
	for _, c := range s.Live {
		n += c
	}
	return n
}

// String returns a compact human-readable summary listing non-zero kinds.
func (s TrackerStats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resources[%d live, %d KB", s.Total(), s.Bytes/1024)
	for k, c := range s.Live {
		if c == 0 {
			continue
		}
		fmt.Fprintf(&b, ", %s=%d", ResourceKind(k), c)
	}
	b.WriteString("]")
	return b.String()
}

// Tracker counts the GPU objects a Context has allocated and not yet
// released. Counting is done by the wrappers in this package at the point
// where they call into the device, so the counts are exact even on backends
// whose handles are indistinguishable placeholders.
//
// Tracker is safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	live        [numResourceKinds]int
	bytes       uint64
	allocations uint64
	releases    uint64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// add registers one live object of the given kind and size.
func (t *Tracker) add(kind ResourceKind, size uint64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live[kind]++
	t.bytes += size
	t.allocations++
}

// remove unregisters one object. Releasing more objects than were
// registered indicates a double release in the caller and is logged.
func (t *Tracker) remove(kind ResourceKind, size uint64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live[kind] == 0 {
		slogger().Warn("gpu: release without matching allocation", "kind", kind.String())
		return
	}
	t.live[kind]--
	if size > t.bytes {
		t.bytes = 0
	} else {
		t.bytes -= size
	}
	t.releases++
}

// Stats returns a snapshot of the current counts.
func (t *Tracker) Stats() TrackerStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrackerStats{
		Live:        t.live,
		Bytes:       t.bytes,
		Allocations: t.allocations,
		Releases:    t.releases,
	}
}
