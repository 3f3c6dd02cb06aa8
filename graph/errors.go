// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"errors"
	"fmt"
)

const graphPrefix = "graph: "

// ConfigError reports an invalid pass graph: an unknown resource
// id passed to Reference/Rewrite (reported when the call is made),
// or two resources aliased onto the same physical slot that both
// carry a signalling external sync (reported by Compile).
type ConfigError struct {
	Cause error
	Detail string
}

func (e *ConfigError) Error() string {
	return graphPrefix + e.Cause.Error() + ": " + e.Detail
}

func (e *ConfigError) Unwrap() error { return e.Cause }

func newConfigError(cause error, detail string) error {
	return &ConfigError{Cause: cause, Detail: detail}
}

// AllocError wraps a resource allocation failure (out of host or
// device memory, or any other error returned by the driver while
// acquiring a physical resource from the cache).
type AllocError struct {
	Cause error
}

func (e *AllocError) Error() string {
	return graphPrefix + "resource allocation failed: " + e.Cause.Error()
}

func (e *AllocError) Unwrap() error { return e.Cause }

func newAllocError(cause error) error { return &AllocError{cause} }

// DeviceLostError wraps a fatal, unrecoverable driver error. It is
// always propagated to the host; there is no partial-frame
// rollback of GPU state.
type DeviceLostError struct {
	Cause error
}

func (e *DeviceLostError) Error() string {
	return graphPrefix + "device lost: " + e.Cause.Error()
}

func (e *DeviceLostError) Unwrap() error { return e.Cause }

func newDeviceLostError(cause error) error { return &DeviceLostError{cause} }

// ShaderStaleError is a non-fatal condition: a pipeline's shader
// failed to (re)compile, so the pipeline keeps executing with its
// last-good handle. When a pass returns it, Engine.Execute logs it
// at Warn level and carries on instead of returning it.
type ShaderStaleError struct {
	Cause error
}

func (e *ShaderStaleError) Error() string {
	return graphPrefix + "shader stale: " + e.Cause.Error()
}

func (e *ShaderStaleError) Unwrap() error { return e.Cause }

// MeshletWarning reports that a group's simplification target was
// not reached. The group is retained as-is at its current LOD;
// the build still produces a usable (if less aggressively reduced)
// result, so this is returned alongside the result rather than as
// a build-stopping error.
type MeshletWarning struct {
	Group int
	Tris  int
	Want  int
}

func (w *MeshletWarning) String() string {
	return fmt.Sprintf("group %d stuck at %d triangles (wanted <= %d)", w.Group, w.Tris, w.Want)
}

var (
	// ErrUnknownID is wrapped by ConfigError when a pass
	// references a resource id that was never declared.
	ErrUnknownID = errors.New("unknown resource id")

	// ErrFormatIncompatible names a format incompatibility between
	// a write and a later read. No function in this package
	// returns it.
	ErrFormatIncompatible = errors.New("incompatible image format")

	// ErrMultiSignal is wrapped by ConfigError when Compile finds
	// more than one resource declaring a signalling external sync
	// (ResourceDesc.After) on the same physical slot.
	ErrMultiSignal = errors.New("multiple signalling external syncs on a resource still read downstream")

	// ErrNoWriter names a resource referenced without a producing
	// write. No function in this package returns it.
	ErrNoWriter = errors.New("resource has no producing write")
)
