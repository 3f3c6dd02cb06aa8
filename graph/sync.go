// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"fmt"
	"sort"

	"github.com/vkgraph/core/driver"
)

// edgeKind distinguishes an immediate pipeline barrier/transition
// from an event-based dependency spanning one or more intervening
// passes that do not touch the resource.
type edgeKind int

const (
	edgeBarrier edgeKind = iota
	edgeEvent
)

// syncEdge is one scheduled dependency between two accesses of the
// same physical resource slot. After/Before are pass indices: After
// is the last pass the source access belongs to (-1 if the source
// is the resource's initial, undefined state), Before is the first
// pass of the destination access (f.PassCount() if the destination
// is an outgoing external signal with no further in-graph use).
//
// Adjacent accesses (Before == After+1) become an edgeBarrier,
// applied immediately before pass Before. Accesses separated by one
// or more untouched passes become an edgeEvent: execute.go signals
// it right after pass After finishes and waits on it right before
// pass Before begins, letting unrelated work on the intervening
// passes proceed unstalled. The driver.Event backing an edgeEvent is
// resolved from the engine's event cache at execute time, keyed by
// this edge's position in the compiled frame's edge list.
type syncEdge struct {
	Kind     edgeKind
	PhysSlot int
	IsImage  bool

	After  int
	Before int

	SyncBefore, SyncAfter     driver.Sync
	AccessBefore, AccessAfter driver.Access
	LayoutBefore, LayoutAfter driver.Layout

	QueueBefore, QueueAfter driver.QueueFamily
}

// frameSync is the Synchronizer's output: the edges to apply around
// each pass, plus the external semaphore waits/signals the executor
// must attach to the frame's queue submission(s).
type frameSync struct {
	edges   []syncEdge
	waits   []driver.SemaphoreWait
	signals []driver.SemaphoreSignal
}

// accessGroup is a maximal run of a resource's usage entries that
// share a synchronization scope: every read in the run shares the
// same image layout (§4.3's read-read merge), and a write is always
// its own singleton group, since any later access — read or write —
// hazards against it.
type accessGroup struct {
	start, end int // inclusive pass index range
	sync       driver.Sync
	access     driver.Access
	layout     driver.Layout
	write      bool
}

// buildGroups walks vr's usage entries in pass order and merges
// consecutive reads sharing a layout into a single accessGroup.
func buildGroups(vr *virtualResource) []accessGroup {
	var groups []accessGroup
	for _, e := range vr.usage {
		sync, acc, lay := usageInfo(e.usage)
		write := e.usage.IsWrite()
		if n := len(groups); n > 0 {
			last := &groups[n-1]
			if !write && !last.write && last.layout == lay {
				last.end = e.pass
				last.sync |= sync
				last.access |= acc
				continue
			}
		}
		groups = append(groups, accessGroup{
			start: e.pass, end: e.pass,
			sync: sync, access: acc, layout: lay, write: write,
		})
	}
	return groups
}

// synchronizeFrame derives the full set of barriers, events, and
// external semaphore operations needed to make f's declared
// resource accesses safe, given the physical slot assignment alias
// already computed.
//
// Access groups are computed per virtual resource (the granularity
// at which usage is declared), but edges are anchored to the
// physical slot the resource was aliased to, since that is the
// memory the GPU actually serializes access to. When a slot backs
// more than one virtual resource (disjoint lifetimes), the first
// group of every resource but the first to occupy the slot is
// preceded by a discard transition: the memory is being reinterpreted
// for an unrelated resource, so its prior contents cannot be
// preserved across the boundary regardless of what was last done to
// it.
func synchronizeFrame(f *Frame, alias *aliasResult) (*frameSync, error) {
	fs := &frameSync{}
	res := f.resources.Slice()

	// Group virtual resources by the physical slot they were
	// aliased to, so multi-occupant slots can be chained in
	// lifetime order.
	bySlot := map[int][]int{} // physSlot -> virtual resource indices
	for i := range res {
		slot := alias.resourceMap[i]
		if slot < 0 {
			continue // Data: never synchronized
		}
		bySlot[slot] = append(bySlot[slot], i)
	}

	signalled := map[int]bool{} // physSlot -> already has an outgoing After
	for slot, members := range bySlot {
		sort.Slice(members, func(a, b int) bool {
			return res[members[a]].lifetime.start < res[members[b]].lifetime.start
		})
		isImage := alias.slots[slot].kind == ImageHandle

		prevEnd := -1 // pass index of the previous occupant's last group end; -1 before anything
		prevSync, prevAccess, prevLayout := driver.SNone, driver.ANone, driver.LUndefined
		first := true

		for _, vi := range members {
			vr := &res[vi]
			groups := buildGroups(vr)
			if len(groups) == 0 {
				continue
			}

			if vr.desc.After != nil {
				if signalled[slot] {
					return nil, newConfigError(ErrMultiSignal, fmt.Sprintf("physical slot %d", slot))
				}
				signalled[slot] = true
			}

			for gi, g := range groups {
				// A new occupant's first group reinterprets shared
				// memory for an unrelated resource: whatever layout
				// the previous occupant left it in is meaningless,
				// so the transition always discards from Undefined.
				discard := isImage && gi == 0 && !first
				layBefore := prevLayout
				if discard {
					layBefore = driver.LUndefined
				}

				beforeSync := vr.desc.Before != nil && gi == 0
				var qfotQueue driver.QueueFamily
				var qfotSync driver.Sync
				var qfotAccess driver.Access
				var qfotLayout driver.Layout
				if beforeSync {
					qfotSync, qfotAccess, qfotLayout = usageInfo(vr.desc.Before.Usage)
					qfotQueue = vr.desc.Before.Queue
					fs.waits = append(fs.waits, driver.SemaphoreWait{
						Sem: vr.desc.Before.Sem, Value: vr.desc.Before.Value,
						Stage: g.sync,
					})
					layBefore = qfotLayout
				}

				if first && gi == 0 {
					// Initial use of this physical slot: only a
					// discard transition is needed (a plain barrier
					// for a buffer), there being no prior access to
					// hazard against. When the incoming access
					// originates from a different queue family
					// (e.g. a transfer upload handing off to
					// graphics), this doubles as the queue family
					// ownership transfer acquire operation, carrying
					// the source queue's layout/access/sync forward
					// instead of treating the resource as undefined.
					queueBefore := driver.QueueGraphics
					layoutBefore := driver.LUndefined
					syncBefore, accessBefore := driver.SNone, driver.ANone
					if beforeSync {
						queueBefore = qfotQueue
						layoutBefore = qfotLayout
						syncBefore, accessBefore = qfotSync, qfotAccess
					}
					fs.edges = append(fs.edges, syncEdge{
						Kind: edgeBarrier, PhysSlot: slot, IsImage: isImage,
						After: -1, Before: g.start,
						LayoutBefore: layoutBefore, LayoutAfter: g.layout,
						SyncBefore: syncBefore, AccessBefore: accessBefore,
						SyncAfter: g.sync, AccessAfter: g.access,
						QueueBefore: queueBefore, QueueAfter: driver.QueueGraphics,
					})
				} else {
					gap := g.start - prevEnd
					kind := edgeBarrier
					if gap > 1 {
						kind = edgeEvent
					}
					syncBefore, accessBefore := prevSync, prevAccess
					queueBefore := driver.QueueGraphics
					if beforeSync {
						syncBefore, accessBefore = qfotSync, qfotAccess
						queueBefore = qfotQueue
					}
					fs.edges = append(fs.edges, syncEdge{
						Kind: kind, PhysSlot: slot, IsImage: isImage,
						After: prevEnd, Before: g.start,
						SyncBefore: syncBefore, AccessBefore: accessBefore, LayoutBefore: layBefore,
						SyncAfter: g.sync, AccessAfter: g.access, LayoutAfter: g.layout,
						QueueBefore: queueBefore, QueueAfter: driver.QueueGraphics,
					})
				}

				prevEnd, prevSync, prevAccess, prevLayout = g.end, g.sync, g.access, g.layout
				first = false
			}

			if vr.desc.After != nil {
				_, accessAfter, layoutAfter := usageInfo(vr.desc.After.Usage)
				fs.edges = append(fs.edges, syncEdge{
					Kind: edgeBarrier, PhysSlot: slot, IsImage: isImage,
					After: prevEnd, Before: f.PassCount(),
					SyncBefore: prevSync, AccessBefore: prevAccess, LayoutBefore: prevLayout,
					SyncAfter: vr.desc.After.Usage.Stage.stageMask(), AccessAfter: accessAfter,
					LayoutAfter: layoutAfter,
					QueueBefore: driver.QueueGraphics, QueueAfter: vr.desc.After.Queue,
				})
				fs.signals = append(fs.signals, driver.SemaphoreSignal{
					Sem: vr.desc.After.Sem, Value: vr.desc.After.Value,
					Stage: vr.desc.After.Usage.Stage.stageMask(),
				})
			}
		}
	}

	sort.SliceStable(fs.edges, func(i, j int) bool { return fs.edges[i].Before < fs.edges[j].Before })
	return fs, nil
}
