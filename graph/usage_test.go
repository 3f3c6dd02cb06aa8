// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"testing"

	"github.com/vkgraph/core/driver"
)

func TestUsageIsWrite(t *testing.T) {
	for _, x := range [...]struct {
		u    Usage
		want bool
	}{
		{Usage{Kind: ShaderReadStorage}, false},
		{Usage{Kind: ShaderWriteStorage}, true},
		{Usage{Kind: TransferRead}, false},
		{Usage{Kind: TransferWrite}, true},
		{Usage{Kind: ColorAttachmentRead}, false},
		{Usage{Kind: ColorAttachmentWrite}, true},
		{Usage{Kind: General, Write: true}, true},
		{Usage{Kind: General, Write: false}, false},
		{Usage{Kind: CustomLayout, Write: true}, true},
		{Usage{Kind: Nothing}, false},
	} {
		if have := x.u.IsWrite(); have != x.want {
			t.Fatalf("Usage{%v}.IsWrite:\nhave %t\nwant %t", x.u.Kind, have, x.want)
		}
	}
}

func TestUsageInfoDeterministic(t *testing.T) {
	u := Usage{Kind: ShaderReadSampled, Stage: Fragment}
	s1, a1, l1 := usageInfo(u)
	s2, a2, l2 := usageInfo(u)
	if s1 != s2 || a1 != a2 || l1 != l2 {
		t.Fatalf("usageInfo not deterministic for identical input %v", u)
	}
	if s1 != driver.SFragmentShading || a1 != driver.AShaderRead || l1 != driver.LShaderRead {
		t.Fatalf("usageInfo(%v):\nhave (%v, %v, %v)\nwant (%v, %v, %v)",
			u, s1, a1, l1, driver.SFragmentShading, driver.AShaderRead, driver.LShaderRead)
	}
}

func TestStageMaskCoarsening(t *testing.T) {
	for _, s := range [...]ShaderStage{Vertex, TessControl, TessEval, Task, Mesh, Geometry} {
		if have := s.stageMask(); have != driver.SVertexShading {
			t.Fatalf("ShaderStage(%d).stageMask:\nhave %v\nwant %v", s, have, driver.SVertexShading)
		}
	}
	if have := Any.stageMask(); have != driver.SAll {
		t.Fatalf("Any.stageMask:\nhave %v\nwant %v", have, driver.SAll)
	}
}
