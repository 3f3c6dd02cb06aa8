// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import "github.com/vkgraph/core/linear"

// MaxMeshletVerts and MaxMeshletTris bound a single Meshlet, per
// §4.6: at most 128 unique vertices and 124 triangles.
const (
	MaxMeshletVerts = 128
	MaxMeshletTris  = 124

	// maxGroupMeshlets is MeshletGroup's declared capacity. The
	// partitioner in group.go targets groups of size <= 8 (k =
	// ceil(n/8), per §4.6 step 1); 12 is the struct's hard cap,
	// leaving headroom for an uneven last bucket rather than a
	// value the partitioner is expected to hit exactly.
	maxGroupMeshlets = 12

	// groupPartitionTarget is the divisor used to compute k for
	// the k-way graph partition of meshlets into groups.
	groupPartitionTarget = 8
)

// Vertex is a single mesh vertex: position, normal and a single UV
// set. The QEM simplifier in simplify.go treats normal and UV as
// weighted attribute dimensions alongside position.
type Vertex struct {
	Position linear.V3
	Normal   linear.V3
	UV       [2]float32
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max linear.V3
}

// Union sets b to the smallest box containing both b and o.
func (b *AABB) Union(o AABB) {
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i] {
			b.Min[i] = o.Min[i]
		}
		if o.Max[i] > b.Max[i] {
			b.Max[i] = o.Max[i]
		}
	}
}

// Center returns the box's midpoint.
func (b AABB) Center() linear.V3 {
	var c linear.V3
	var sum linear.V3
	sum.Add(&b.Min, &b.Max)
	c.Scale(0.5, &sum)
	return c
}

// SurfaceArea returns the box's surface area, used by the BVH
// builder's SAH split heuristic.
func (b AABB) SurfaceArea() float32 {
	var d linear.V3
	d.Sub(&b.Max, &b.Min)
	if d[0] < 0 || d[1] < 0 || d[2] < 0 {
		return 0
	}
	return 2 * (d[0]*d[1] + d[1]*d[2] + d[2]*d[0])
}

// emptyAABB returns a box suitable as the identity element of Union.
func emptyAABB() AABB {
	const inf = float32(1e30)
	return AABB{Min: linear.V3{inf, inf, inf}, Max: linear.V3{-inf, -inf, -inf}}
}

// Sphere is a bounding sphere, used as a meshlet's LOD sphere.
type Sphere struct {
	Center linear.V3
	Radius float32
}

// Union sets s to the smallest sphere containing both s and o.
// A zero-radius s centred at the origin is treated as empty and
// replaced by o.
func (s *Sphere) Union(o Sphere) {
	if s.Radius == 0 && s.Center == (linear.V3{}) {
		*s = o
		return
	}
	var d linear.V3
	d.Sub(&o.Center, &s.Center)
	dist := d.Len()
	if dist+o.Radius <= s.Radius {
		return
	}
	if dist+s.Radius <= o.Radius {
		*s = o
		return
	}
	newRadius := (dist + s.Radius + o.Radius) / 2
	var dir linear.V3
	dir.Norm(&d)
	var off linear.V3
	off.Scale(newRadius-s.Radius, &dir)
	var center linear.V3
	center.Add(&s.Center, &off)
	s.Center = center
	s.Radius = newRadius
}

// Meshlet is a cluster of at most MaxMeshletVerts vertices and
// MaxMeshletTris triangles, plus the LOD metadata needed at
// runtime to pick between it and its parent. VertOffset/VertCount
// index Mesh.Vertices; IndexOffset/TriCount index Mesh.Indices,
// which stores meshlet-local vertex indices (0-based within
// [VertOffset, VertOffset+VertCount)), three per triangle.
type Meshlet struct {
	VertOffset    int
	VertCount     int
	IndexOffset   int
	TriCount      int
	AABB          AABB
	LODSphere     Sphere
	Error         float32 // this meshlet's own simplification error
	ParentError   float32 // inherited from the group that produced it at the next coarser LOD
	MaxEdgeLength float32
}

// MeshletGroup is a set of meshlets forming a connected patch,
// produced by the k-way graph partition in group.go and consumed
// by both the simplifier (simplify.go) and the BVH builder
// (bvh.go).
type MeshletGroup struct {
	Meshlets    []int // indices into Mesh.Meshlets as Build appended them, before compactMeshlets reorders it (its synthetic trailing group holds post-reorder indices)
	AABB        AABB
	LODSphere   Sphere
	ParentError float32
	LOD         int

	// MeshletOffset/MeshletCount describe this group's contiguous
	// range within Mesh.Meshlets after compactMeshlets reorders
	// the meshlet slice group-by-group; the BVH builder's leaves
	// reference meshlets through this range rather than through
	// Meshlets, matching the persisted (offset, count) format of
	// §4.7/§4.8.
	MeshletOffset int
	MeshletCount  int
}

// BvhChild is one of a BvhNode's eight slots. Count == 0xFF marks
// an internal child: Offset then indexes another BvhNode (not a
// meshlet range).
type BvhChild struct {
	AABB        AABB
	LODSphere   Sphere
	ParentError float32
	Offset      uint32
	Count       uint8
}

// internalChild marks a BvhChild slot as pointing at another node
// rather than a meshlet range, per §4.7's conversion step.
const internalChild = 0xFF

// BvhNode is the flat, 8-ary BVH record written by bvh.go and
// consumed by the GPU packer.
type BvhNode struct {
	Children [8]BvhChild
}

// Mesh is the virtualized mesh container: a full LOD chain of
// meshlets sharing one vertex/index pool, plus the BVH that
// indexes them. It serializes per §6's bincode-style container
// format (see pack.go) and packs into one GPU buffer (pack.go).
type Mesh struct {
	Vertices     []Vertex
	Indices      []uint32
	Meshlets     []Meshlet
	Groups       []MeshletGroup
	BVH          []BvhNode
	BVHDepth     int
	AABB         AABB
	MaterialUUID [16]byte
}
