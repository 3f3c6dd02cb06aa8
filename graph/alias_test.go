// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"testing"

	"github.com/vkgraph/core/driver"
)

func bufRes(size int64, start, end int) virtualResource {
	return virtualResource{
		desc:     ResourceDesc{Kind: Buffer, Size: size},
		lifetime: lifetime{start, end},
		physical: -1,
	}
}

func imgRes(ext driver.Dim3D, format driver.PixelFmt, start, end int) virtualResource {
	return virtualResource{
		desc: ResourceDesc{
			Kind: Image, Extent: ext, Format: format, Levels: 1, Layers: 1, Samples: 1,
		},
		lifetime: lifetime{start, end},
		physical: -1,
	}
}

func TestAliasMergesDisjointBuffers(t *testing.T) {
	f := &Frame{}
	f.resources.Alloc(bufRes(1024, 0, 1))
	f.resources.Alloc(bufRes(1024, 2, 3))

	out := aliasFrame(f)
	if len(out.slots) != 1 {
		t.Fatalf("aliasFrame slot count:\nhave %d\nwant 1", len(out.slots))
	}
	if out.resourceMap[0] != out.resourceMap[1] {
		t.Fatalf("disjoint buffers were not merged onto the same slot: %v", out.resourceMap)
	}
}

func TestAliasSeparatesOverlappingBuffers(t *testing.T) {
	f := &Frame{}
	f.resources.Alloc(bufRes(1024, 0, 2))
	f.resources.Alloc(bufRes(1024, 1, 3))

	out := aliasFrame(f)
	if len(out.slots) != 2 {
		t.Fatalf("aliasFrame slot count:\nhave %d\nwant 2", len(out.slots))
	}
	if out.resourceMap[0] == out.resourceMap[1] {
		t.Fatalf("overlapping buffers were merged onto the same slot")
	}
}

func TestAliasSeparatesIncompatibleImageFormats(t *testing.T) {
	ext := driver.Dim3D{Width: 256, Height: 256, Depth: 1}
	f := &Frame{}
	f.resources.Alloc(imgRes(ext, driver.RGBA8un, 0, 1))
	f.resources.Alloc(imgRes(ext, driver.D32f, 2, 3))

	out := aliasFrame(f)
	if out.resourceMap[0] == out.resourceMap[1] {
		t.Fatalf("format-incompatible images were merged onto the same slot")
	}
}

func TestAliasMergesCompatibleImageFormats(t *testing.T) {
	ext := driver.Dim3D{Width: 256, Height: 256, Depth: 1}
	f := &Frame{}
	f.resources.Alloc(imgRes(ext, driver.RGBA8un, 0, 1))
	f.resources.Alloc(imgRes(ext, driver.RGBA8sRGB, 2, 3))

	out := aliasFrame(f)
	if out.resourceMap[0] != out.resourceMap[1] {
		t.Fatalf("format-compatible disjoint images were not merged")
	}
}

func TestAliasNeverMergesDataResources(t *testing.T) {
	f := &Frame{}
	f.resources.Alloc(virtualResource{desc: ResourceDesc{Kind: Data}, lifetime: lifetime{0, 1}})
	f.resources.Alloc(virtualResource{desc: ResourceDesc{Kind: Data}, lifetime: lifetime{2, 3}})

	out := aliasFrame(f)
	if out.resourceMap[0] != -1 || out.resourceMap[1] != -1 {
		t.Fatalf("Data resources must not be assigned a physical slot: %v", out.resourceMap)
	}
	if len(out.slots) != 0 {
		t.Fatalf("Data resources must not allocate any slot:\nhave %d\nwant 0", len(out.slots))
	}
}

func TestAliasPersistedBufferNeverMerges(t *testing.T) {
	f := &Frame{}
	f.resources.Alloc(virtualResource{
		desc:     ResourceDesc{Kind: Buffer, Size: 256, Persist: 1},
		lifetime: lifetime{0, 1},
		physical: -1,
	})
	f.resources.Alloc(bufRes(256, 2, 3))

	out := aliasFrame(f)
	if out.resourceMap[0] == out.resourceMap[1] {
		t.Fatalf("a persisted resource must never share a slot with another resource")
	}
}
