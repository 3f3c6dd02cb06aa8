// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"testing"

	"github.com/vkgraph/core/driver"
)

func withPasses(f *Frame, n int) {
	for i := 0; i < n; i++ {
		f.passes.Alloc(passEntry{index: i})
	}
}

func TestBuildGroupsMergesAdjacentReadsSameLayout(t *testing.T) {
	vr := &virtualResource{usage: []usageEntry{
		{0, Usage{Kind: ColorAttachmentWrite}},
		{1, Usage{Kind: ShaderReadSampled, Stage: Fragment}},
		{2, Usage{Kind: ShaderReadSampled, Stage: Fragment}},
	}}
	groups := buildGroups(vr)
	if len(groups) != 2 {
		t.Fatalf("buildGroups count:\nhave %d\nwant 2", len(groups))
	}
	if groups[0].start != 0 || groups[0].end != 0 || !groups[0].write {
		t.Fatalf("buildGroups[0]:\nhave %+v\nwant a singleton write group at pass 0", groups[0])
	}
	if groups[1].start != 1 || groups[1].end != 2 || groups[1].write {
		t.Fatalf("buildGroups[1]:\nhave %+v\nwant a merged read group spanning passes 1-2", groups[1])
	}
}

func TestBuildGroupsSeparatesDifferentLayoutReads(t *testing.T) {
	vr := &virtualResource{usage: []usageEntry{
		{0, Usage{Kind: ColorAttachmentWrite}},
		{1, Usage{Kind: ShaderReadSampled, Stage: Fragment}},
		{2, Usage{Kind: ShaderReadStorage, Stage: Compute}},
	}}
	groups := buildGroups(vr)
	if len(groups) != 3 {
		t.Fatalf("buildGroups count:\nhave %d\nwant 3 (sampled and storage reads use different layouts)", len(groups))
	}
}

func TestSynchronizeAdjacentPassesUseBarrier(t *testing.T) {
	f := &Frame{}
	withPasses(f, 2)
	f.resources.Alloc(virtualResource{
		desc: ResourceDesc{Kind: Image, Extent: driver.Dim3D{Width: 64, Height: 64, Depth: 1},
			Format: driver.RGBA8un, Levels: 1, Layers: 1, Samples: 1},
		lifetime: lifetime{0, 1},
		usage: []usageEntry{
			{0, Usage{Kind: ColorAttachmentWrite}},
			{1, Usage{Kind: ShaderReadSampled, Stage: Fragment}},
		},
	})

	alias := aliasFrame(f)
	fs, err := synchronizeFrame(f, alias)
	if err != nil {
		t.Fatalf("synchronizeFrame: %v", err)
	}

	var found bool
	for _, e := range fs.edges {
		if e.After == 0 && e.Before == 1 {
			found = true
			if e.Kind != edgeBarrier {
				t.Fatalf("adjacent-pass dependency:\nhave edgeEvent\nwant edgeBarrier")
			}
		}
	}
	if !found {
		t.Fatalf("no sync edge found between pass 0 and pass 1: %+v", fs.edges)
	}
}

func TestSynchronizeGapUsesEvent(t *testing.T) {
	f := &Frame{}
	withPasses(f, 3)
	f.resources.Alloc(virtualResource{
		desc: ResourceDesc{Kind: Image, Extent: driver.Dim3D{Width: 64, Height: 64, Depth: 1},
			Format: driver.RGBA8un, Levels: 1, Layers: 1, Samples: 1},
		lifetime: lifetime{0, 2},
		usage: []usageEntry{
			{0, Usage{Kind: ColorAttachmentWrite}},
			{2, Usage{Kind: ShaderReadSampled, Stage: Fragment}},
		},
	})

	alias := aliasFrame(f)
	fs, err := synchronizeFrame(f, alias)
	if err != nil {
		t.Fatalf("synchronizeFrame: %v", err)
	}

	var found bool
	for _, e := range fs.edges {
		if e.After == 0 && e.Before == 2 {
			found = true
			if e.Kind != edgeEvent {
				t.Fatalf("dependency across an intervening pass:\nhave edgeBarrier\nwant edgeEvent")
			}
		}
	}
	if !found {
		t.Fatalf("no sync edge found between pass 0 and pass 2: %+v", fs.edges)
	}
}

func TestSynchronizeExternalBeforeEmitsQueueFamilyAcquire(t *testing.T) {
	f := &Frame{}
	withPasses(f, 1)
	before := &ExternalSync{
		Usage: Usage{Kind: TransferWrite},
		Queue: driver.QueueTransfer,
	}
	f.resources.Alloc(virtualResource{
		desc: ResourceDesc{Kind: Image, Extent: driver.Dim3D{Width: 64, Height: 64, Depth: 1},
			Format: driver.RGBA8un, Levels: 1, Layers: 1, Samples: 1, Before: before},
		lifetime: lifetime{0, 0},
		usage:    []usageEntry{{0, Usage{Kind: ShaderReadSampled, Stage: Fragment}}},
	})

	alias := aliasFrame(f)
	fs, err := synchronizeFrame(f, alias)
	if err != nil {
		t.Fatalf("synchronizeFrame: %v", err)
	}

	var found bool
	for _, e := range fs.edges {
		if e.Before != 0 {
			continue
		}
		found = true
		if e.QueueBefore != driver.QueueTransfer || e.QueueAfter != driver.QueueGraphics {
			t.Fatalf("acquire edge queues:\nhave (%v, %v)\nwant (QueueTransfer, QueueGraphics)", e.QueueBefore, e.QueueAfter)
		}
		if e.LayoutBefore != driver.LCopyDst {
			t.Fatalf("acquire edge LayoutBefore:\nhave %v\nwant driver.LCopyDst", e.LayoutBefore)
		}
		if e.LayoutAfter != driver.LShaderRead {
			t.Fatalf("acquire edge LayoutAfter:\nhave %v\nwant driver.LShaderRead", e.LayoutAfter)
		}
	}
	if len(fs.waits) != 1 {
		t.Fatalf("synchronizeFrame waits:\nhave %d\nwant 1", len(fs.waits))
	}
	if !found {
		t.Fatalf("no sync edge found leading into pass 0: %+v", fs.edges)
	}
}

func TestSynchronizeExternalAfterDerivesLayoutFromUsage(t *testing.T) {
	f := &Frame{}
	withPasses(f, 1)
	after := &ExternalSync{
		Usage: Usage{Kind: TransferRead},
		Queue: driver.QueueTransfer,
	}
	f.resources.Alloc(virtualResource{
		desc: ResourceDesc{Kind: Buffer, Size: 256, After: after},
		lifetime: lifetime{0, 0},
		usage:    []usageEntry{{0, Usage{Kind: ShaderWriteStorage, Stage: Compute}}},
	})

	alias := aliasFrame(f)
	fs, err := synchronizeFrame(f, alias)
	if err != nil {
		t.Fatalf("synchronizeFrame: %v", err)
	}

	var found bool
	for _, e := range fs.edges {
		if e.Before != f.PassCount() {
			continue
		}
		found = true
		if e.LayoutAfter != driver.LCopySrc {
			t.Fatalf("release edge LayoutAfter for a TransferRead release:\nhave %v\nwant driver.LCopySrc", e.LayoutAfter)
		}
		if e.AccessAfter != driver.ACopyRead {
			t.Fatalf("release edge AccessAfter:\nhave %v\nwant driver.ACopyRead", e.AccessAfter)
		}
		if e.QueueAfter != driver.QueueTransfer {
			t.Fatalf("release edge QueueAfter:\nhave %v\nwant driver.QueueTransfer", e.QueueAfter)
		}
	}
	if !found {
		t.Fatalf("no release edge found at f.PassCount(): %+v", fs.edges)
	}
}

func TestSynchronizeRejectsMultipleSignalsOnSameSlot(t *testing.T) {
	f := &Frame{}
	withPasses(f, 2)
	sem := &ExternalSync{}
	f.resources.Alloc(virtualResource{
		desc: ResourceDesc{Kind: Buffer, Size: 256, After: sem},
		lifetime: lifetime{0, 0},
		usage:    []usageEntry{{0, Usage{Kind: ShaderWriteStorage, Stage: Compute}}},
	})
	f.resources.Alloc(virtualResource{
		desc: ResourceDesc{Kind: Buffer, Size: 256, After: sem},
		lifetime: lifetime{1, 1},
		usage:    []usageEntry{{1, Usage{Kind: ShaderWriteStorage, Stage: Compute}}},
	})

	alias := aliasFrame(f)
	if _, err := synchronizeFrame(f, alias); err == nil {
		t.Fatal("synchronizeFrame: expected ErrMultiSignal when two merged resources both signal")
	}
}
