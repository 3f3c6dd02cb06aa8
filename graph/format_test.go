// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"testing"

	"github.com/vkgraph/core/driver"
)

func TestFormatClass(t *testing.T) {
	for _, x := range [...]struct {
		a, b driver.PixelFmt
		want bool
	}{
		{driver.RGBA8un, driver.RGBA8sRGB, true},
		{driver.RGBA8un, driver.BGRA8un, true},
		{driver.RGBA8un, driver.BGRA8sRGB, true},
		{driver.RG8un, driver.RG8n, true},
		{driver.R8un, driver.R8n, true},
		{driver.RGBA16f, driver.RG16f, false},
		{driver.RGBA32f, driver.RGBA16f, false},
		{driver.D16un, driver.D32f, false},
		{driver.D24unS8ui, driver.D32fS8ui, false},
		{driver.RGBA8un, driver.R8un, false},
		{driver.S8ui, driver.D16un, false},
	} {
		if have := formatCompatible(x.a, x.b); have != x.want {
			t.Fatalf("formatCompatible(%v, %v):\nhave %t\nwant %t", x.a, x.b, have, x.want)
		}
		// formatCompatible must be symmetric.
		if have := formatCompatible(x.b, x.a); have != x.want {
			t.Fatalf("formatCompatible(%v, %v):\nhave %t\nwant %t", x.b, x.a, have, x.want)
		}
	}
}

func TestFormatCompatibleNoFormat(t *testing.T) {
	if !formatCompatible(driver.PixelFmt(noFormat), driver.RGBA8un) {
		t.Fatal("formatCompatible(noFormat, RGBA8un):\nhave false\nwant true")
	}
	if !formatCompatible(driver.RGBA8un, driver.PixelFmt(noFormat)) {
		t.Fatal("formatCompatible(RGBA8un, noFormat):\nhave false\nwant true")
	}
}
