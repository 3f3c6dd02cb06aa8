// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import "github.com/vkgraph/core/linear"

// gridMesh builds an n x n quad grid on the XY plane (z=0), each
// quad split into two triangles, as a cheap stand-in for a dense
// mesh with a predictable triangle count (2*n*n).
func gridMesh(n int) (vertices []Vertex, indices []uint32) {
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			vertices = append(vertices, Vertex{
				Position: linear.V3{float32(x), float32(y), 0},
				Normal:   linear.V3{0, 0, 1},
				UV:       [2]float32{float32(x) / float32(n), float32(y) / float32(n)},
			})
		}
	}
	idx := func(x, y int) uint32 { return uint32(y*(n+1) + x) }
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			a, b, c, d := idx(x, y), idx(x+1, y), idx(x+1, y+1), idx(x, y+1)
			indices = append(indices, a, b, c, a, c, d)
		}
	}
	return
}
