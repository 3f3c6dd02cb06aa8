// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import "github.com/vkgraph/core/driver"

// aliasResult is the output of aliasing a Frame's virtual
// resources: resourceMap[virtual id] is the index into Slots the
// resource was assigned to, or -1 for Data resources (which never
// get a physical slot). Physical descriptors in Slots are not yet
// bound to driver handles — Compile acquires those from the
// Engine's Cache.
type aliasResult struct {
	resourceMap []int
	slots       []physical
}

// usageFlags ORs the driver.Usage creation flags implied by every
// usage kind recorded against a resource. Usage kinds without a
// corresponding driver flag (transfer, host, present — the backend
// allows copy/host access unconditionally) contribute nothing.
func usageFlags(vr *virtualResource) driver.Usage {
	var u driver.Usage
	for _, e := range vr.usage {
		switch e.usage.Kind {
		case IndexBuffer:
			u |= driver.UIndexData
		case VertexBuffer:
			u |= driver.UVertexData
		case ShaderReadUniform:
			u |= driver.UShaderConst
		case ShaderReadStorage:
			u |= driver.UShaderRead
		case ShaderReadSampled:
			u |= driver.UShaderSample
		case ShaderWriteStorage:
			u |= driver.UShaderWrite
		case ColorAttachmentRead, ColorAttachmentWrite,
			DepthStencilAttachmentRead, DepthStencilAttachmentWrite:
			u |= driver.URenderTarget
		case IndirectBuffer, AccelStructBuildRead, AccelStructBuildWrite,
			AccelStructBuildScratch, CustomLayout, General:
			u |= driver.UGeneric
		}
	}
	return u
}

// mergeable reports whether two virtual resources may share a
// physical slot, per §4.2: both internal buffers, or both internal
// images agreeing on extent/levels/layers/samples with
// format-compatible formats. External handles, persisted
// resources, and Data/UploadBuffer resources are never mergeable.
func mergeable(a, b *virtualResource) bool {
	if a.desc.Kind != b.desc.Kind {
		return false
	}
	switch a.desc.Kind {
	case Buffer:
		return a.desc.Ext == nil && b.desc.Ext == nil &&
			a.desc.Persist == 0 && b.desc.Persist == 0
	case Image:
		if a.desc.ExtImg != nil || b.desc.ExtImg != nil {
			return false
		}
		if a.desc.Persist != 0 || b.desc.Persist != 0 {
			return false
		}
		ad := imageDesc{a.desc.Extent, a.desc.Levels, a.desc.Layers, a.desc.Samples}
		bd := imageDesc{b.desc.Extent, b.desc.Levels, b.desc.Layers, b.desc.Samples}
		return ad == bd && formatCompatible(a.desc.Format, b.desc.Format)
	default:
		return false
	}
}

// aliasFrame partitions f's virtual resources into physical slots.
// Mergeable resources are bucketed (one bucket for all internal
// buffers, one bucket per distinct image descriptor) and linearly
// scanned for the first slot with an independent (disjoint)
// lifetime, per §4.2's algorithm; non-mergeable resources (Data,
// UploadBuffer, externally-owned, or persisted) each get their own
// slot.
func aliasFrame(f *Frame) *aliasResult {
	res := f.resources.Slice()
	out := &aliasResult{resourceMap: make([]int, len(res))}

	var bufBucket []int // indices into out.slots
	imgBuckets := map[imageDesc][]int{}

	for i := range res {
		vr := &res[i]

		if vr.desc.Kind == Data {
			out.resourceMap[i] = -1
			vr.physical = -1
			continue
		}
		if vr.desc.Kind == UploadBuffer {
			out.resourceMap[i] = out.newSlot(UploadBufferHandle, vr)
			vr.physical = out.resourceMap[i]
			continue
		}

		var bucket []int
		var imgKey imageDesc
		isImage := vr.desc.Kind == Image
		switch vr.desc.Kind {
		case Buffer:
			if vr.desc.Ext != nil || vr.desc.Persist != 0 {
				out.resourceMap[i] = out.newSlot(BufferHandle, vr)
				vr.physical = out.resourceMap[i]
				continue
			}
			bucket = bufBucket
		case Image:
			if vr.desc.ExtImg != nil || vr.desc.Persist != 0 {
				out.resourceMap[i] = out.newSlot(ImageHandle, vr)
				vr.physical = out.resourceMap[i]
				continue
			}
			imgKey = imageDesc{vr.desc.Extent, vr.desc.Levels, vr.desc.Layers, vr.desc.Samples}
			bucket = imgBuckets[imgKey]
		}

		merged := false
		for _, slotIdx := range bucket {
			slot := &out.slots[slotIdx]
			if !slot.lifetime.disjoint(vr.lifetime) {
				continue
			}
			if isImage && !formatCompatible(slot.format, vr.desc.Format) {
				continue
			}
			slot.lifetime = slot.lifetime.union(vr.lifetime)
			slot.usage |= usageFlags(vr)
			if !isImage && vr.desc.Size > slot.size {
				slot.size = vr.desc.Size
			}
			out.resourceMap[i] = slotIdx
			merged = true
			break
		}
		if !merged {
			kind := BufferHandle
			if isImage {
				kind = ImageHandle
			}
			idx := out.newSlot(kind, vr)
			bucket = append(bucket, idx)
			out.resourceMap[i] = idx
		}
		vr.physical = out.resourceMap[i]
		if isImage {
			imgBuckets[imgKey] = bucket
		} else {
			bufBucket = bucket
		}
	}
	return out
}

// newSlot appends a fresh physical descriptor for vr and returns
// its index.
func (r *aliasResult) newSlot(kind PhysicalKind, vr *virtualResource) int {
	p := physical{
		kind:     kind,
		lifetime: vr.lifetime,
		persist:  vr.desc.Persist,
		label:    vr.desc.Label,
		usage:    usageFlags(vr),
	}
	switch kind {
	case UploadBufferHandle, BufferHandle:
		p.size = vr.desc.Size
		p.buf = vr.desc.Ext
	case ImageHandle:
		p.desc = imageDesc{vr.desc.Extent, vr.desc.Levels, vr.desc.Layers, vr.desc.Samples}
		p.format = vr.desc.Format
		p.img = vr.desc.ExtImg
	}
	r.slots = append(r.slots, p)
	return len(r.slots) - 1
}
