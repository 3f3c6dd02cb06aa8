// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import "github.com/vkgraph/core/driver"

// CompiledFrame is the output of Compile: a Frame's virtual
// resources resolved to physical driver handles, together with the
// synchronization plan the executor applies around each pass.
type CompiledFrame struct {
	frame  *Frame
	alias  *aliasResult
	sync   *frameSync
	values map[int]any

	eventIdx []int // cache event-pool indices acquired for this frame's event edges
}

// Compile aliases f's virtual resources onto physical slots,
// resolves those slots to concrete driver handles via the engine's
// cache, and derives the barrier/event/semaphore plan that makes
// every declared access safe. The returned CompiledFrame is ready
// for Execute.
func Compile(f *Frame) (*CompiledFrame, error) {
	alias := aliasFrame(f)

	sync, err := synchronizeFrame(f, alias)
	if err != nil {
		return nil, err
	}

	if err := resolvePhysical(f.eng.cache, alias.slots); err != nil {
		return nil, err
	}

	values := make(map[int]any, f.resources.Len())
	res := f.resources.Slice()
	for i := range res {
		slot := alias.resourceMap[i]
		if slot < 0 {
			values[i] = res[i].desc.Ptr
			continue
		}
		p := &alias.slots[slot]
		switch p.kind {
		case UploadBufferHandle, BufferHandle:
			values[i] = p.buf
		case ImageHandle:
			values[i] = p.view
		}
	}

	return &CompiledFrame{frame: f, alias: alias, sync: sync, values: values}, nil
}

// resolvePhysical acquires a concrete driver handle for every
// physical slot from the cache, and creates a whole-resource image
// view for any ImageHandle slot that does not already carry an
// externally-supplied one.
func resolvePhysical(c *Cache, slots []physical) error {
	for i := range slots {
		p := &slots[i]
		if err := c.acquire(p); err != nil {
			return err
		}
		if p.kind == ImageHandle && p.view == nil && p.img != nil {
			v, err := p.img.NewView(viewTypeFor(p.desc), 0, p.desc.layers, 0, p.desc.levels)
			if err != nil {
				return newAllocError(err)
			}
			p.view = v
		}
	}
	return nil
}

// viewTypeFor picks the view type spanning the whole of an image
// described by d. Render-graph resources are never declared as
// cubemaps or cube arrays directly (a pass that needs a cube view
// onto a graph-owned image constructs it itself from the resolved
// driver.Image via PassContext), so only the plain 1D/2D/3D/array
// forms are chosen here.
func viewTypeFor(d imageDesc) driver.ViewType {
	switch {
	case d.extent.Height <= 1 && d.extent.Depth <= 1:
		if d.layers > 1 {
			return driver.IView1DArray
		}
		return driver.IView1D
	case d.extent.Depth > 1:
		return driver.IView3D
	case d.layers > 1:
		return driver.IView2DArray
	default:
		return driver.IView2D
	}
}
