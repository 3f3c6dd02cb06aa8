// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import "github.com/vkgraph/core/driver"

// ShaderStage identifies the programmable stage(s) a shader-facing
// usage executes in. driver.Sync has no per-stage granularity for
// the pre-rasterization pipeline (vertex/tessellation/task/mesh/
// geometry all collapse to driver.SVertexShading), so every
// non-fragment, non-compute stage below maps onto that one value;
// this mirrors the coarseness driver.SGraphics already embraces for
// the fixed-function stages.
type ShaderStage int

// Shader stages.
const (
	Vertex ShaderStage = iota
	TessControl
	TessEval
	Task
	Mesh
	Geometry
	Fragment
	Compute
	RayTracing
	Any
)

// UsageKind is the closed set of ways a virtual resource may be
// read or written by a pass.
type UsageKind int

// Usage kinds.
const (
	IndirectBuffer UsageKind = iota
	IndexBuffer
	VertexBuffer
	ShaderReadUniform
	ShaderReadStorage
	ShaderReadSampled
	ShaderWriteStorage
	TransferRead
	TransferWrite
	HostRead
	HostWrite
	ColorAttachmentRead
	ColorAttachmentWrite
	DepthStencilAttachmentRead
	DepthStencilAttachmentWrite
	AccelStructBuildRead
	AccelStructBuildWrite
	AccelStructBuildScratch
	Present
	CustomLayout
	General
	Nothing
)

// Usage describes how a single pass touches a virtual resource.
// Stage is only meaningful for the shader-facing kinds (ShaderRead*,
// ShaderWriteStorage, General, CustomLayout); Layout is only
// meaningful for CustomLayout, and Access and Write are only
// meaningful for CustomLayout and General. General grants the
// caller an escape hatch
// for usages the taxonomy does not otherwise name (e.g. atomic
// read-modify-write from an arbitrary stage).
type Usage struct {
	Kind   UsageKind
	Stage  ShaderStage
	Layout driver.Layout
	Access driver.Access
	Write  bool
}

// stageMask converts a ShaderStage to the driver.Sync flags that
// must complete (or not yet have started, depending on which side
// of a barrier it appears on) for the usage to be valid.
func (s ShaderStage) stageMask() driver.Sync {
	switch s {
	case Fragment:
		return driver.SFragmentShading
	case Compute, RayTracing:
		return driver.SComputeShading
	case Any:
		return driver.SAll
	default:
		// Vertex, TessControl, TessEval, Task, Mesh, Geometry.
		return driver.SVertexShading
	}
}

// IsWrite reports whether u modifies the resource it is applied to.
func (u Usage) IsWrite() bool {
	switch u.Kind {
	case ShaderWriteStorage,
		TransferWrite,
		HostWrite,
		ColorAttachmentWrite,
		DepthStencilAttachmentWrite,
		AccelStructBuildWrite,
		AccelStructBuildScratch:
		return true
	case General, CustomLayout:
		return u.Write
	default:
		return false
	}
}

// usageInfo maps a Usage to the (stage, access, layout) triple that
// the synchronizer needs to build barriers, per the usage taxonomy's
// pure deterministic mapping.
func usageInfo(u Usage) (sync driver.Sync, acc driver.Access, lay driver.Layout) {
	switch u.Kind {
	case IndirectBuffer:
		return driver.SDraw, driver.AAnyRead, driver.LUndefined
	case IndexBuffer:
		return driver.SVertexInput, driver.AIndexBufRead, driver.LUndefined
	case VertexBuffer:
		return driver.SVertexInput, driver.AVertexBufRead, driver.LUndefined
	case ShaderReadUniform, ShaderReadStorage, ShaderReadSampled:
		lay = driver.LUndefined
		if u.Kind == ShaderReadSampled {
			lay = driver.LShaderRead
		}
		return u.Stage.stageMask(), driver.AShaderRead, lay
	case ShaderWriteStorage:
		return u.Stage.stageMask(), driver.AShaderWrite, driver.LCommon
	case TransferRead:
		return driver.SCopy, driver.ACopyRead, driver.LCopySrc
	case TransferWrite:
		return driver.SCopy, driver.ACopyWrite, driver.LCopyDst
	case HostRead:
		return driver.SNone, driver.AAnyRead, driver.LUndefined
	case HostWrite:
		return driver.SNone, driver.AAnyWrite, driver.LUndefined
	case ColorAttachmentRead:
		return driver.SColorOutput, driver.AColorRead, driver.LColorTarget
	case ColorAttachmentWrite:
		return driver.SColorOutput, driver.AColorWrite, driver.LColorTarget
	case DepthStencilAttachmentRead:
		return driver.SDSOutput, driver.ADSRead, driver.LDSRead
	case DepthStencilAttachmentWrite:
		return driver.SDSOutput, driver.ADSWrite, driver.LDSTarget
	case AccelStructBuildRead:
		return driver.SComputeShading, driver.AShaderRead, driver.LUndefined
	case AccelStructBuildWrite, AccelStructBuildScratch:
		return driver.SComputeShading, driver.AShaderWrite, driver.LUndefined
	case Present:
		return driver.SNone, driver.ANone, driver.LPresent
	case CustomLayout:
		return u.Stage.stageMask(), u.Access, u.Layout
	case General:
		return u.Stage.stageMask(), u.Access, driver.LCommon
	case Nothing:
		return driver.SNone, driver.ANone, driver.LUndefined
	default:
		return driver.SNone, driver.ANone, driver.LUndefined
	}
}
