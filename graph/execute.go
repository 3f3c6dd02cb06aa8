// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"errors"

	"github.com/vkgraph/core/driver"
)

// Execute records cf's passes into a fresh command buffer, applying
// the compiled synchronization plan around each one, and submits
// the result to the GPU. It returns as soon as submission succeeds;
// the caller is not blocked on GPU completion. Resources acquired
// from the cache for this frame are returned to it, and any events
// used are recycled, once the submission's completion channel
// fires.
func (e *Engine) Execute(cf *CompiledFrame) error {
	cb, err := e.gpu.NewCmdBuffer()
	if err != nil {
		return newAllocError(err)
	}
	if err := cb.Begin(); err != nil {
		return newDeviceLostError(err)
	}

	byBefore := map[int][]int{} // pass index -> edge indices anchored Before it
	byAfter := map[int][]int{}  // pass index -> edge indices anchored After it
	for i, ed := range cf.sync.edges {
		byBefore[ed.Before] = append(byBefore[ed.Before], i)
		if ed.Kind == edgeEvent {
			byAfter[ed.After] = append(byAfter[ed.After], i)
		}
	}

	events := make(map[int]driver.Event, len(cf.sync.edges))

	applyBefore := func(pos int) error {
		var barriers []driver.Barrier
		var transitions []driver.Transition
		for _, ei := range byBefore[pos] {
			ed := &cf.sync.edges[ei]
			switch ed.Kind {
			case edgeBarrier:
				b, t, isImg := edgeToBarrier(cf.alias.slots, ed)
				if isImg {
					transitions = append(transitions, t)
				} else {
					barriers = append(barriers, b)
				}
			case edgeEvent:
				ev := events[ei]
				if ev == nil {
					continue
				}
				b, t, isImg := edgeToBarrier(cf.alias.slots, ed)
				if isImg {
					cb.WaitEvent(ev, nil, []driver.Transition{t})
				} else {
					cb.WaitEvent(ev, []driver.Barrier{b}, nil)
				}
			}
		}
		if len(barriers) > 0 {
			cb.Barrier(barriers)
		}
		if len(transitions) > 0 {
			cb.Transition(transitions)
		}
		return nil
	}

	applyAfter := func(pos int) error {
		for _, ei := range byAfter[pos] {
			ed := &cf.sync.edges[ei]
			ev, idx, err := e.cache.acquireEvent()
			if err != nil {
				return newAllocError(err)
			}
			events[ei] = ev
			cf.eventIdx = append(cf.eventIdx, idx)
			b, t, isImg := edgeToBarrier(cf.alias.slots, ed)
			if isImg {
				cb.SetEvent(ev, nil, []driver.Transition{t})
			} else {
				cb.SetEvent(ev, []driver.Barrier{b}, nil)
			}
		}
		return nil
	}

	passes := cf.frame.passes.Slice()
	for i := range passes {
		if err := applyBefore(i); err != nil {
			return err
		}
		ctx := &PassContext{
			GPU: e.gpu, Cmd: cb, pass: &passes[i],
			vals: valuesFor(cf.values, passes[i].touch),
		}
		if err := passes[i].fn(ctx); err != nil {
			var stale *ShaderStaleError
			if !errors.As(err, &stale) {
				return err
			}
			logger().Warn("stale shader retained", "pass", passes[i].name, "error", err)
		}
		if err := applyAfter(i); err != nil {
			return err
		}
	}
	if err := applyBefore(cf.frame.PassCount()); err != nil {
		return err
	}

	if err := cb.End(); err != nil {
		return newDeviceLostError(err)
	}

	ch := make(chan error, 1)
	info := driver.SubmitInfo{CmdBuffers: []driver.CmdBuffer{cb}, Waits: cf.sync.waits, Signals: cf.sync.signals}
	if err := e.gpu.Submit(driver.QueueGraphics, info, ch); err != nil {
		return newDeviceLostError(err)
	}

	slot := cf.frame.index
	go func() {
		err := <-ch
		cb.Destroy()
		for _, idx := range cf.eventIdx {
			e.cache.releaseEvent(idx)
		}
		for i := range cf.alias.slots {
			e.cache.release(&cf.alias.slots[i])
		}
		e.retire(slot, err)
	}()
	return nil
}

// valuesFor narrows the full per-frame value map down to the ids a
// single pass actually touched.
func valuesFor(all map[int]any, touch []int) map[int]any {
	m := make(map[int]any, len(touch))
	for _, id := range touch {
		m[id] = all[id]
	}
	return m
}

// edgeToBarrier converts a syncEdge into the driver.Barrier or
// driver.Transition it represents, resolving its image view from
// the physical slot it targets.
func edgeToBarrier(slots []physical, ed *syncEdge) (driver.Barrier, driver.Transition, bool) {
	base := driver.Barrier{
		SyncBefore: ed.SyncBefore, SyncAfter: ed.SyncAfter,
		AccessBefore: ed.AccessBefore, AccessAfter: ed.AccessAfter,
	}
	if !ed.IsImage {
		return base, driver.Transition{}, false
	}
	return driver.Barrier{}, driver.Transition{
		Barrier:      base,
		LayoutBefore: ed.LayoutBefore,
		LayoutAfter:  ed.LayoutAfter,
		View:         slots[ed.PhysSlot].view,
		QueueBefore:  ed.QueueBefore,
		QueueAfter:   ed.QueueAfter,
	}, true
}
