// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

// Arena is a per-frame bump arena for a single kind of graph-local
// value. Graph-local structures (passes, virtual resources, usage
// records, barrier/event/semaphore lists) allocate from an Arena
// instead of individually, so the whole frame can be torn down by
// resetting a handful of slice lengths rather than tracking
// pointer lifetimes between compiler stages (§9's "arena +
// indices, not pointers").
//
// Values are addressed by integer index, never by pointer. An index
// is valid until the next Reset: Reset keeps the backing array to
// avoid reallocating every frame but logically empties it, so At
// panics for any index that has not been allocated again since.
type Arena[T any] struct {
	items []T
}

// Alloc appends v and returns its index.
func (a *Arena[T]) Alloc(v T) int {
	a.items = append(a.items, v)
	return len(a.items) - 1
}

// At returns a pointer to the item at index i, valid until the
// next Alloc (which may move the backing array) or Reset.
func (a *Arena[T]) At(i int) *T { return &a.items[i] }

// Len returns the number of items currently allocated.
func (a *Arena[T]) Len() int { return len(a.items) }

// Slice returns the arena's backing items. The returned slice is
// invalidated by the next Alloc or Reset.
func (a *Arena[T]) Slice() []T { return a.items }

// Reset empties the arena, keeping its backing array so that the
// next frame's allocations reuse the same memory.
func (a *Arena[T]) Reset() { a.items = a.items[:0] }
