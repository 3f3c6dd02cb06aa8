// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"sync"

	"github.com/vkgraph/core/driver"
)

// Engine owns the GPU handle and the cross-frame resource cache a
// render graph compiles and executes against. It generalizes the
// engine package's ctxt singleton into an explicit, instantiable
// container, since an application may legitimately drive more than
// one independent graph (e.g. a main swapchain graph and an
// offscreen bake graph) against the same driver.GPU.
type Engine struct {
	gpu   driver.GPU
	cache *Cache
	cfg   Config

	mu       sync.Mutex
	sem      chan struct{}
	nextSlot int
}

// NewEngine creates an Engine driving gpu, applying any zero fields
// of cfg from DefaultConfig.
func NewEngine(gpu driver.GPU, cfg Config) *Engine {
	dfl := DefaultConfig()
	if cfg.InFlight <= 0 {
		cfg.InFlight = dfl.InFlight
	}
	if cfg.InFlight > MaxFrame {
		cfg.InFlight = MaxFrame
	}
	if cfg.ArenaBlock < MinArenaBlock {
		cfg.ArenaBlock = dfl.ArenaBlock
	}
	if cfg.CacheHorizon <= 0 {
		cfg.CacheHorizon = dfl.CacheHorizon
	}
	return &Engine{
		gpu:   gpu,
		cache: newCache(gpu, cfg.CacheHorizon),
		cfg:   cfg,
		sem:   make(chan struct{}, cfg.InFlight),
	}
}

// GPU returns the driver.GPU this Engine drives.
func (e *Engine) GPU() driver.GPU { return e.gpu }

// Begin starts a new Frame, blocking until fewer than Config.InFlight
// frames are outstanding on the GPU.
func (e *Engine) Begin() *Frame {
	e.sem <- struct{}{}
	e.mu.Lock()
	slot := e.nextSlot
	e.nextSlot = (e.nextSlot + 1) % MaxFrame
	e.mu.Unlock()
	return newFrame(e, slot)
}

// Release frees every physical resource pinned under token,
// regardless of the cache's normal eviction horizon. Call this once
// a Persist-tagged resource (e.g. a history buffer kept across
// frames for temporal accumulation) is truly no longer needed.
func (e *Engine) Release(token Persist) { e.cache.releasePersisted(token) }

// retire is called once a frame's submission is known to have
// completed (successfully or not), freeing the in-flight slot for
// reuse and advancing the cache's eviction clock.
func (e *Engine) retire(slot int, err error) {
	if err != nil {
		logger().Error("frame execution failed", "slot", slot, "error", err)
	}
	e.cache.advance(slot)
	<-e.sem
}
