// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/vkgraph/core/linear"
)

// weldScale quantizes vertex positions before welding. Two
// positions that round to the same multiple of 1/weldScale on every
// axis are considered co-located for the purpose of computing a
// partitioning identity.
const weldScale = 8192.0

type quantPos [3]int32

func quantize(p linear.V3) quantPos {
	return quantPos{
		int32(math32.Round(p[0] * weldScale)),
		int32(math32.Round(p[1] * weldScale)),
		int32(math32.Round(p[2] * weldScale)),
	}
}

// weldRemap computes, for every vertex, the index of the first
// vertex sharing its (quantized) position. Per §4.6, this is used
// only to establish a partitioning identity for boundary detection
// and group connectivity — it never merges distinct attribute data
// in the output mesh.
func weldRemap(vertices []Vertex) []int {
	seen := make(map[quantPos]int, len(vertices))
	remap := make([]int, len(vertices))
	for i, v := range vertices {
		q := quantize(v.Position)
		if id, ok := seen[q]; ok {
			remap[i] = id
		} else {
			seen[q] = i
			remap[i] = i
		}
	}
	return remap
}

func canonEdge(a, b int) [2]int {
	if a > b {
		return [2]int{b, a}
	}
	return [2]int{a, b}
}

// rawMeshlet is a partition result prior to being appended into a
// Mesh's shared vertex/index pool.
type rawMeshlet struct {
	verts         []uint32 // raw indices into the input vertex slice
	tris          [][3]uint8
	aabb          AABB
	sphere        Sphere
	maxEdgeLength float32
}

// partition clusters an indexed triangle list into meshlets of at
// most MaxMeshletVerts unique vertices and MaxMeshletTris
// triangles, using a cone-weighted greedy algorithm: each meshlet
// grows by repeatedly annexing the adjacent triangle that best
// preserves vertex reuse and normal coherence, per §4.6.
func partition(vertices []Vertex, indices []uint32) []rawMeshlet {
	remap := weldRemap(vertices)
	triCount := len(indices) / 3
	if triCount == 0 {
		return nil
	}

	tri := func(t int) [3]uint32 { return [3]uint32{indices[t*3], indices[t*3+1], indices[t*3+2]} }

	// Triangle adjacency: two triangles are adjacent iff they
	// share an edge whose endpoints coincide under remap.
	edgeTris := map[[2]int][]int{}
	for t := 0; t < triCount; t++ {
		v := tri(t)
		for i := 0; i < 3; i++ {
			a, b := remap[v[i]], remap[v[(i+1)%3]]
			e := canonEdge(a, b)
			edgeTris[e] = append(edgeTris[e], t)
		}
	}
	neighbors := make([][]int, triCount)
	for _, ts := range edgeTris {
		if len(ts) < 2 {
			continue
		}
		for _, a := range ts {
			for _, b := range ts {
				if a != b {
					neighbors[a] = append(neighbors[a], b)
				}
			}
		}
	}

	triNormal := func(t int) linear.V3 {
		v := tri(t)
		p0, p1, p2 := vertices[v[0]].Position, vertices[v[1]].Position, vertices[v[2]].Position
		var e0, e1, n linear.V3
		e0.Sub(&p1, &p0)
		e1.Sub(&p2, &p0)
		n.Cross(&e0, &e1)
		if l := n.Len(); l > 1e-12 {
			var u linear.V3
			u.Scale(1/l, &n)
			return u
		}
		return n
	}

	used := make([]bool, triCount)
	var out []rawMeshlet

	for seed := 0; seed < triCount; seed++ {
		if used[seed] {
			continue
		}

		localVertMap := map[uint32]uint8{}
		var localVerts []uint32
		var localTris [][3]uint8
		var coneSum linear.V3
		aabb := emptyAABB()
		candidates := map[int]bool{}
		var maxEdge float32

		addVert := func(raw uint32) uint8 {
			if id, ok := localVertMap[raw]; ok {
				return id
			}
			id := uint8(len(localVerts))
			localVertMap[raw] = id
			localVerts = append(localVerts, raw)
			p := vertices[raw].Position
			if p[0] < aabb.Min[0] {
				aabb.Min[0] = p[0]
			}
			if p[1] < aabb.Min[1] {
				aabb.Min[1] = p[1]
			}
			if p[2] < aabb.Min[2] {
				aabb.Min[2] = p[2]
			}
			if p[0] > aabb.Max[0] {
				aabb.Max[0] = p[0]
			}
			if p[1] > aabb.Max[1] {
				aabb.Max[1] = p[1]
			}
			if p[2] > aabb.Max[2] {
				aabb.Max[2] = p[2]
			}
			return id
		}

		addTri := func(t int) {
			used[t] = true
			v := tri(t)
			lv := [3]uint8{addVert(v[0]), addVert(v[1]), addVert(v[2])}
			localTris = append(localTris, lv)
			n := triNormal(t)
			coneSum.Add(&coneSum, &n)
			for i := 0; i < 3; i++ {
				p0 := vertices[v[i]].Position
				p1 := vertices[v[(i+1)%3]].Position
				var d linear.V3
				d.Sub(&p1, &p0)
				if l := d.Len(); l > maxEdge {
					maxEdge = l
				}
			}
			delete(candidates, t)
			for _, n := range neighbors[t] {
				if !used[n] {
					candidates[n] = true
				}
			}
		}

		addTri(seed)

		for len(localTris) < MaxMeshletTris {
			var best int = -1
			var bestScore float32 = -1e30
			var bestNew int
			var norm linear.V3
			if l := coneSum.Len(); l > 1e-12 {
				norm.Scale(1/l, &coneSum)
			}
			// Deterministic iteration order for reproducible builds.
			keys := make([]int, 0, len(candidates))
			for c := range candidates {
				keys = append(keys, c)
			}
			sort.Ints(keys)
			for _, c := range keys {
				v := tri(c)
				newVerts := 0
				for _, raw := range v {
					if _, ok := localVertMap[raw]; !ok {
						newVerts++
					}
				}
				if len(localVerts)+newVerts > MaxMeshletVerts {
					continue
				}
				n := triNormal(c)
				coherence := n.Dot(&norm)
				score := coherence*2 - float32(newVerts)
				if score > bestScore {
					bestScore = score
					best = c
					bestNew = newVerts
				}
			}
			if best < 0 {
				break
			}
			if len(localVerts)+bestNew > MaxMeshletVerts {
				break
			}
			addTri(best)
		}

		var sphere Sphere
		sphere.Center = aabb.Center()
		for _, raw := range localVerts {
			var d linear.V3
			d.Sub(&vertices[raw].Position, &sphere.Center)
			if r := d.Len(); r > sphere.Radius {
				sphere.Radius = r
			}
		}

		out = append(out, rawMeshlet{
			verts:         localVerts,
			tris:          localTris,
			aabb:          aabb,
			sphere:        sphere,
			maxEdgeLength: maxEdge,
		})
	}
	return out
}

// appendMeshlets copies raw meshlets' vertex/index data into m's
// shared pools and returns the resulting Meshlet records. Error
// and ParentError are left zero; the LOD builder fills them in.
func appendMeshlets(m *Mesh, vertices []Vertex, raw []rawMeshlet) []Meshlet {
	out := make([]Meshlet, len(raw))
	for i, rm := range raw {
		vOff := len(m.Vertices)
		for _, raw := range rm.verts {
			m.Vertices = append(m.Vertices, vertices[raw])
		}
		iOff := len(m.Indices)
		for _, t := range rm.tris {
			m.Indices = append(m.Indices, uint32(t[0]), uint32(t[1]), uint32(t[2]))
		}
		out[i] = Meshlet{
			VertOffset:    vOff,
			VertCount:     len(rm.verts),
			IndexOffset:   iOff,
			TriCount:      len(rm.tris),
			AABB:          rm.aabb,
			LODSphere:     rm.sphere,
			MaxEdgeLength: rm.maxEdgeLength,
		}
	}
	return out
}
