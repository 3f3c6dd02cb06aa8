// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"fmt"

	"github.com/vkgraph/core/driver"
)

// ReadID identifies a virtual resource for use with
// PassBuilder.Reference.
type ReadID int

// WriteID identifies a virtual resource for use with
// PassBuilder.Rewrite, which records a later pass writing the
// same resource in place (extending its lifetime rather than
// minting a new one).
type WriteID int

// PassContext is handed to a pass callback at execution time. Every
// virtual resource id used by the pass has already been resolved to
// a physical driver handle.
type PassContext struct {
	GPU  driver.GPU
	Cmd  driver.CmdBuffer
	pass *passEntry
	vals map[int]any
}

// Resource resolves a virtual resource id (a ReadID or WriteID,
// passed as an int) to the physical value the pass should operate
// on: a driver.Buffer for a buffer, a driver.ImageView for an
// image, or the resource's Data pointer for a Data resource.
func (c *PassContext) Resource(id int) any { return c.vals[id] }

// PassFunc is a user-supplied pass body.
type PassFunc func(ctx *PassContext) error

// passEntry is one entry in a Frame's append-only pass vector.
type passEntry struct {
	name  string
	index int
	fn    PassFunc
	touch []int // virtual resource ids this pass declared or referenced, in call order
}

// Frame accumulates a user-declared DAG of passes for a single
// render-graph frame. Passes are appended in topological order:
// each call to Pass receives the next pass index, and Reference
// may only name a resource id returned by an earlier Output call
// in the same Frame.
//
// A Frame is single-use: once Compile has consumed it, start a new
// one for the next frame. All Frame-local data lives in arenas
// owned by the Frame; Engine.Begin creates fresh arenas for every
// frame.
type Frame struct {
	eng       *Engine
	index     int // in-flight frame slot, 0..MaxFrame-1, assigned round-robin by Engine.Begin
	passes    Arena[passEntry]
	resources Arena[virtualResource]
	err       error // not set by any builder method; builders return their ConfigError directly
}

// newFrame is called by Engine.Begin.
func newFrame(eng *Engine, slot int) *Frame {
	f := &Frame{eng: eng, index: slot}
	f.passes.items = make([]passEntry, 0, eng.cfg.ArenaBlock)
	f.resources.items = make([]virtualResource, 0, eng.cfg.ArenaBlock)
	return f
}

// Pass opens a new pass named name and returns a builder for
// declaring its resource usages. fn is invoked by the executor
// when this pass's turn comes, after the preceding sync record has
// been applied.
func (f *Frame) Pass(name string, fn PassFunc) *PassBuilder {
	idx := f.passes.Alloc(passEntry{name: name, index: f.passes.Len(), fn: fn})
	return &PassBuilder{frame: f, index: idx}
}

// PassCount returns the number of passes declared so far.
func (f *Frame) PassCount() int { return f.passes.Len() }

// PassBuilder declares the virtual resources touched by a single
// pass.
type PassBuilder struct {
	frame *Frame
	index int
}

// Output declares a new virtual resource, written by this pass.
// The returned ReadID may be passed to Reference by any later
// pass in the same Frame to record a read of the value this pass
// produced; the returned WriteID may be passed to Rewrite by a
// later pass to record an in-place modification of the same
// physical slot.
func (p *PassBuilder) Output(desc ResourceDesc, usage Usage) (ReadID, WriteID) {
	id := p.frame.resources.Alloc(virtualResource{
		desc:     desc,
		lifetime: lifetime{start: p.index, end: p.index},
		physical: -1,
	})
	p.frame.resources.At(id).usage = append(p.frame.resources.At(id).usage, usageEntry{p.index, usage})
	pe := p.frame.passes.At(p.index)
	pe.touch = append(pe.touch, id)
	return ReadID(id), WriteID(id)
}

// Reference records a read of a resource previously returned by
// Output (possibly by an earlier pass). It extends the resource's
// lifetime to include this pass and appends the usage to its usage
// map. It returns a ConfigError wrapping ErrUnknownID if id was
// never produced by this Frame.
func (p *PassBuilder) Reference(id ReadID, usage Usage) error {
	vr, err := p.frame.lookup(int(id))
	if err != nil {
		return err
	}
	if p.index > vr.lifetime.end {
		vr.lifetime.end = p.index
	}
	vr.usage = append(vr.usage, usageEntry{p.index, usage})
	pe := p.frame.passes.At(p.index)
	pe.touch = append(pe.touch, int(id))
	return nil
}

// Rewrite records that this pass writes the resource identified by
// id in place, rather than minting a fresh virtual resource. The
// resource's lifetime is extended to include this pass, as with
// Reference. It returns a new WriteID (numerically identical to
// id) for further chaining.
func (p *PassBuilder) Rewrite(id WriteID, usage Usage) (WriteID, error) {
	vr, err := p.frame.lookup(int(id))
	if err != nil {
		return 0, err
	}
	if p.index > vr.lifetime.end {
		vr.lifetime.end = p.index
	}
	vr.usage = append(vr.usage, usageEntry{p.index, usage})
	pe := p.frame.passes.At(p.index)
	pe.touch = append(pe.touch, int(id))
	return id, nil
}

// lookup resolves a resource id to its arena entry, rejecting ids
// that were never minted by Output in this Frame.
func (f *Frame) lookup(id int) (*virtualResource, error) {
	if id < 0 || id >= f.resources.Len() {
		return nil, newConfigError(ErrUnknownID, fmt.Sprintf("resource id %d", id))
	}
	return f.resources.At(id), nil
}
