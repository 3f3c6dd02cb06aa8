// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"github.com/vkgraph/core/driver"
)

// cacheKey groups physical resources that may stand in for one
// another: a newly aliased slot first tries to reuse an entry whose
// key matches exactly (kind and usage flags, plus the exact size for
// buffers, or the image description and format compatibility class
// for images) before asking the driver for a new allocation.
type cacheKey struct {
	kind    PhysicalKind
	size    int64
	desc    imageDesc
	class   int // formatClass(format); images only
	usage   driver.Usage
}

// cacheEntry is one physical allocation owned by the Cache, along
// with the bookkeeping needed to reuse or evict it.
type cacheEntry struct {
	key      cacheKey
	buf      driver.Buffer
	img      driver.Image
	view     driver.ImageView
	format   driver.PixelFmt
	inUse    bool
	persist  Persist
	lastUsed uint64
}

// Cache owns every physical GPU allocation backing the render
// graph's virtual resources across frames. It is keyed by
// cacheKey, so a newly aliased slot can reuse an idle existing entry
// with an equal key (same size or image description, same format
// class, identical usage flags; a larger buffer or a usage superset
// is not reused) instead of always allocating fresh memory — the
// same role
// engine/staging.go's bitm-indexed free list plays for staging
// buffers, generalized to arbitrary buffers and images.
type Cache struct {
	gpu     driver.GPU
	entries []cacheEntry
	byKey   map[cacheKey][]int

	// Events are pooled through a plain free-list rather than a
	// bitm: the in-flight event count is small (bounded by the
	// number of non-adjacent pass gaps per frame) and need not pay
	// for bit-packed bookkeeping.
	events     []driver.Event
	eventsFree []int

	// pendingFree holds Destroyers evicted while still possibly in
	// flight; advance(slot) destroys them once the engine knows slot's
	// prior occupant has finished executing.
	pendingFree [MaxFrame][]driver.Destroyer

	frame   uint64
	horizon uint64
}

// newCache creates a Cache bound to gpu.
func newCache(gpu driver.GPU, horizon int) *Cache {
	return &Cache{gpu: gpu, byKey: map[cacheKey][]int{}, horizon: uint64(horizon)}
}

// keyOf derives the reuse key for a physical slot produced by the
// aliaser.
func keyOf(p *physical) cacheKey {
	k := cacheKey{kind: p.kind, usage: p.usage}
	switch p.kind {
	case UploadBufferHandle, BufferHandle:
		k.size = p.size
	case ImageHandle:
		k.desc = p.desc
		k.class = formatClass(p.format)
	}
	return k
}

// acquire resolves p to a concrete driver handle, reusing an idle
// cached entry whose key equals p's or creating a new allocation.
// It mutates p in place with the resolved handles.
func (c *Cache) acquire(p *physical) error {
	if p.kind == DataHandle {
		return nil
	}
	// Externally-owned resources bypass the cache entirely: their
	// handle was supplied by the caller via ResourceDesc.Ext/ExtImg.
	if p.buf != nil || p.img != nil {
		return nil
	}

	key := keyOf(p)
	if idxs := c.byKey[key]; len(idxs) > 0 {
		for n, idx := range idxs {
			e := &c.entries[idx]
			if e.inUse {
				continue
			}
			if p.kind == ImageHandle && !formatCompatible(e.format, p.format) {
				continue
			}
			e.inUse = true
			e.lastUsed = c.frame
			p.buf, p.img, p.view = e.buf, e.img, e.view
			c.byKey[key] = append(idxs[:n], idxs[n+1:]...)
			return nil
		}
	}
	return c.allocate(p, key)
}

// allocate creates a brand new physical resource for p and records
// it as a new (in-use) cache entry.
func (c *Cache) allocate(p *physical, key cacheKey) error {
	switch p.kind {
	case UploadBufferHandle:
		buf, err := c.gpu.NewBuffer(p.size, true, p.usage)
		if err != nil {
			return newAllocError(err)
		}
		p.buf = buf
	case BufferHandle:
		buf, err := c.gpu.NewBuffer(p.size, false, p.usage)
		if err != nil {
			return newAllocError(err)
		}
		p.buf = buf
	case ImageHandle:
		img, err := c.gpu.NewImage(p.format, p.desc.extent, p.desc.layers, p.desc.levels,
			p.desc.samples, p.usage)
		if err != nil {
			return newAllocError(err)
		}
		p.img = img
	}
	c.entries = append(c.entries, cacheEntry{
		key: key, buf: p.buf, img: p.img, view: p.view, format: p.format,
		inUse: true, lastUsed: c.frame,
	})
	logger().Debug("cache: new physical allocation", "label", p.label, "kind", p.kind, "size", p.size)
	return nil
}

// release returns p's handle to the free pool for future reuse,
// unless it carries a non-zero Persist token (in which case
// Engine.Release must be called explicitly to free it).
func (c *Cache) release(p *physical) {
	if p.kind == DataHandle || (p.buf == nil && p.img == nil) {
		return
	}
	key := keyOf(p)
	for i := range c.entries {
		e := &c.entries[i]
		if e.buf != p.buf || e.img != p.img {
			continue
		}
		if p.persist != 0 {
			e.persist = p.persist
			return
		}
		e.inUse = false
		e.lastUsed = c.frame
		c.byKey[key] = append(c.byKey[key], i)
		return
	}
}

// acquireEvent returns a driver.Event from the recycling pool,
// creating one if none is free.
func (c *Cache) acquireEvent() (driver.Event, int, error) {
	if n := len(c.eventsFree); n > 0 {
		idx := c.eventsFree[n-1]
		c.eventsFree = c.eventsFree[:n-1]
		return c.events[idx], idx, nil
	}
	ev, err := c.gpu.NewEvent()
	if err != nil {
		return nil, 0, err
	}
	c.events = append(c.events, ev)
	return ev, len(c.events) - 1, nil
}

// releaseEvent returns an event to the recycling pool.
func (c *Cache) releaseEvent(idx int) { c.eventsFree = append(c.eventsFree, idx) }

// advance marks the start of a new frame, draining Destroyers
// deferred for the in-flight slot now known to have completed, and
// evicting cache entries idle beyond the configured horizon.
func (c *Cache) advance(slot int) {
	for _, d := range c.pendingFree[slot] {
		d.Destroy()
	}
	c.pendingFree[slot] = c.pendingFree[slot][:0]
	c.frame++
	c.evict()
}

// evict moves every unused, unpersisted entry older than the
// horizon into the next in-flight slot's pending-free list.
func (c *Cache) evict() {
	if c.horizon == 0 {
		return
	}
	next := int(c.frame % MaxFrame)
	for i := range c.entries {
		e := &c.entries[i]
		if e.inUse || e.persist != 0 {
			continue
		}
		if c.frame-e.lastUsed < c.horizon {
			continue
		}
		if e.view != nil {
			c.pendingFree[next] = append(c.pendingFree[next], e.view)
		}
		if e.img != nil {
			c.pendingFree[next] = append(c.pendingFree[next], e.img)
		}
		if e.buf != nil {
			c.pendingFree[next] = append(c.pendingFree[next], e.buf)
		}
		e.buf, e.img, e.view = nil, nil, nil
	}
}

// releasePersisted frees every entry pinned under token, regardless
// of the eviction horizon. Called by Engine.Release.
func (c *Cache) releasePersisted(token Persist) {
	next := int(c.frame % MaxFrame)
	for i := range c.entries {
		e := &c.entries[i]
		if e.persist != token {
			continue
		}
		if e.view != nil {
			c.pendingFree[next] = append(c.pendingFree[next], e.view)
		}
		if e.img != nil {
			c.pendingFree[next] = append(c.pendingFree[next], e.img)
		}
		if e.buf != nil {
			c.pendingFree[next] = append(c.pendingFree[next], e.buf)
		}
		e.buf, e.img, e.view, e.persist = nil, nil, nil, 0
	}
}
