// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import "github.com/vkgraph/core/driver"

// formatClass assigns driver.PixelFmt values to a compatibility
// class: two formats may be used interchangeably by an image view
// iff they share a class. Classes group by channel count and bit
// depth, matching how Vulkan's own VK_FORMAT_COMPATIBILITY_CLASS_*
// groups view-compatible formats (e.g. RGBA8 UNORM/SRGB and BGRA8
// UNORM/SRGB share one 32-bit-four-component class despite the
// differing channel order). Depth/stencil formats are never
// interchangeable with each other or with color formats, so each
// gets a singleton class.
//
// noFormat is returned for a sentinel "no format" value (used by
// non-image resources); it is compatible with anything.
const noFormat = -1

func formatClass(f driver.PixelFmt) int {
	switch f {
	case driver.RGBA8un, driver.RGBA8n, driver.RGBA8sRGB, driver.BGRA8un, driver.BGRA8sRGB:
		return 0
	case driver.RG8un, driver.RG8n:
		return 1
	case driver.R8un, driver.R8n:
		return 2
	case driver.RGBA16f:
		return 3
	case driver.RG16f:
		return 4
	case driver.R16f:
		return 5
	case driver.RGBA32f:
		return 6
	case driver.RG32f:
		return 7
	case driver.R32f:
		return 8
	case driver.D16un:
		return 9
	case driver.D32f:
		return 10
	case driver.S8ui:
		return 11
	case driver.D24unS8ui:
		return 12
	case driver.D32fS8ui:
		return 13
	default:
		return 14
	}
}

// formatCompatible reports whether two formats are view-compatible,
// per §6's format compatibility table. noFormat is compatible with
// any format.
func formatCompatible(a, b driver.PixelFmt) bool {
	if a == driver.PixelFmt(noFormat) || b == driver.PixelFmt(noFormat) {
		return true
	}
	return formatClass(a) == formatClass(b)
}
