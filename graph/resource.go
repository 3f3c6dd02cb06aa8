// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import "github.com/vkgraph/core/driver"

// ResourceKind is the tag of the VirtualResource closed sum.
type ResourceKind int

// Resource kinds.
const (
	// Data is a CPU-side payload piped between passes. It never
	// gets a physical GPU allocation.
	Data ResourceKind = iota
	// UploadBuffer is a host-visible buffer sized by its writer.
	UploadBuffer
	// Buffer is a device buffer, optionally backed by an
	// externally-owned handle.
	Buffer
	// Image is a device image, optionally backed by an
	// externally-owned handle (e.g. a swapchain image).
	Image
)

// Location classifies where a Buffer's memory lives.
type Location int

// Buffer locations.
const (
	Upload Location = iota
	Staging
	Gpu
	Readback
)

// Persist is an opaque token that lets a virtual resource's
// physical slot survive beyond the frame that declared it. The
// zero value means "no persistence": the slot is eligible for
// reuse/eviction like any other cache entry once its lifetime
// ends. A non-zero Persist pins the slot in the cache until
// Engine.Release is called with the same token.
type Persist uint64

// ExternalSync bridges in-graph work with a submission outside the
// graph (a swapchain present, an asynchronous upload, a compute
// job submitted independently). It may appear on the "before" side
// of a resource's first usage (an incoming wait) or the "after"
// side of its last usage (an outgoing signal).
type ExternalSync struct {
	Sem   driver.Semaphore
	Value uint64 // ignored for driver.SemaphoreBinary
	Usage Usage
	Queue driver.QueueFamily
}

// ResourceDesc describes a virtual resource at the point it is
// declared via PassBuilder.Output. Only the fields relevant to
// Kind are meaningful; this mirrors the donor's own tagged-struct
// style for driver.Barrier/driver.Transition rather than an
// interface-per-variant design.
type ResourceDesc struct {
	Kind ResourceKind

	// Data.
	Ptr       any
	InitState any

	// UploadBuffer, Buffer.
	Size     int64
	Ext      driver.Buffer // non-nil for an externally-owned Buffer
	Location Location
	Persist  Persist

	// Image.
	Extent  driver.Dim3D
	Format  driver.PixelFmt
	Levels  int
	Layers  int
	Samples int
	ExtImg  driver.Image // non-nil for an externally-owned Image
	ExtLay  driver.Layout

	// Buffer, Image: optional external synchronization bridging
	// this resource's first/last in-graph use with work outside
	// the graph (swapchain acquire/present is the common case for
	// images; an async upload fence is the common case for
	// buffers).
	Before *ExternalSync
	After  *ExternalSync

	// Label is an optional debug name. It appears in the cache's
	// Debug-level log line when a new physical resource is
	// allocated for this resource.
	Label string
}

// lifetime is an inclusive range of topological pass indices.
type lifetime struct{ start, end int }

// disjoint reports whether l and o share no pass index.
func (l lifetime) disjoint(o lifetime) bool { return l.end < o.start || o.end < l.start }

// union returns the smallest lifetime containing both l and o.
func (l lifetime) union(o lifetime) lifetime {
	u := l
	if o.start < u.start {
		u.start = o.start
	}
	if o.end > u.end {
		u.end = o.end
	}
	return u
}

// usageEntry records that a pass touched a resource with a given
// usage; usageEntry values form the ordered per-resource usage map
// the synchronizer walks.
type usageEntry struct {
	pass  int
	usage Usage
}

// virtualResource is one entry in a Frame's append-only resource
// vector. Resources are addressed by their index in that vector,
// never by pointer (§9).
type virtualResource struct {
	desc     ResourceDesc
	lifetime lifetime
	usage    []usageEntry
	physical int // index into the compiling frame's physical slots; -1 until aliased
}

// PhysicalKind is the tag of the resolved Physical resource union.
type PhysicalKind int

// Physical resource kinds.
const (
	// DataHandle never touches the cache: it passes the CPU
	// payload straight through to the consuming pass.
	DataHandle PhysicalKind = iota
	UploadBufferHandle
	BufferHandle
	ImageHandle
)

// physical is a concrete GPU allocation backing one or more
// virtual resources with disjoint lifetimes.
type physical struct {
	kind PhysicalKind

	buf  driver.Buffer
	addr int64 // mapped offset/address bookkeeping for UploadBufferHandle rings

	img    driver.Image
	view   driver.ImageView
	desc   imageDesc // used as the merge/bucket key, and to (re)create views
	format driver.PixelFmt
	usage  driver.Usage

	size int64 // current (possibly grown) size, for BufferHandle
	ptr  any   // CPU payload, for DataHandle

	lifetime lifetime
	persist  Persist
	label    string
}

// imageDesc is the merge-candidate key for internal images: two
// images are mergeable iff they agree on every field here (format
// compatibility is checked separately, since compatible formats
// need not be identical).
type imageDesc struct {
	extent  driver.Dim3D
	levels  int
	layers  int
	samples int
}
