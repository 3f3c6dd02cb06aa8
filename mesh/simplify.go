// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import (
	"sort"

	"github.com/vkgraph/core/linear"
)

// quadric is a symmetric 4x4 error matrix stored as its 10 unique
// coefficients (upper triangle), following Garland & Heckbert's
// QEM. Only position accumulates a quadric; simplify.go adds the
// normal and UV deviation of a collapse to the quadric error as
// separate terms weighted by Config.NormalWeight (default 2) and
// Config.UVWeight (default 0.5).
type quadric [10]float32

// planeQuadric builds the quadric of the plane through p with
// unit normal n (Ax+By+Cz+D=0 fundamental error form).
func planeQuadric(p, n linear.V3) quadric {
	a, b, c := n[0], n[1], n[2]
	d := -(a*p[0] + b*p[1] + c*p[2])
	return quadric{
		a * a, a * b, a * c, a * d,
		b * b, b * c, b * d,
		c * c, c * d,
		d * d,
	}
}

func (q *quadric) add(o quadric) {
	for i := range q {
		q[i] += o[i]
	}
}

// eval returns v^T Q v for point v (the squared geometric error).
func (q quadric) eval(v linear.V3) float32 {
	x, y, z := v[0], v[1], v[2]
	return q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z +
		q[9]
}

// edgeCollapse is a candidate half-edge collapse: merge src into
// dst, with the combined quadric error it would incur.
type edgeCollapse struct {
	src, dst int
	err      float32
}

// simplifyResult is what simplifyMesh returns: a reduced index
// buffer over the same vertex slice (some vertices become
// unreferenced, not removed — the caller's meshlet regeneration
// only looks at referenced vertices), the resulting triangle
// count, and whether the target was reached.
type simplifyResult struct {
	indices  []uint32
	triCount int
	reached  bool
	// errEstimate is the largest per-collapse cost accepted while
	// reaching this result: a relative (not geometrically
	// calibrated) proxy for the error the group's simplified
	// representation introduces, propagated as the Error of the
	// group's regenerated meshlets and the ParentError of the
	// group's original member meshlets.
	errEstimate float32
}

// simplifyMesh runs an edge-collapse QEM simplifier over
// (vertices, indices), targeting targetTris triangles, locking any
// vertex whose (welded) id is in locked. It accepts a collapse
// only when doing so keeps every locked vertex immovable: the
// implementation never selects a collapse with a locked src.
func simplifyMesh(vertices []Vertex, indices []uint32, remap []int, locked map[int]bool, normalWeight, uvWeight float32, targetTris int) simplifyResult {
	triCount := len(indices) / 3
	if triCount <= targetTris {
		return simplifyResult{indices: append([]uint32(nil), indices...), triCount: triCount, reached: true}
	}

	quadrics := make(map[int]quadric, len(vertices))
	addQuad := func(v int, q quadric) {
		qq := quadrics[v]
		qq.add(q)
		quadrics[v] = qq
	}
	for t := 0; t < triCount; t++ {
		i0, i1, i2 := indices[t*3], indices[t*3+1], indices[t*3+2]
		p0, p1, p2 := vertices[i0].Position, vertices[i1].Position, vertices[i2].Position
		var e0, e1, n linear.V3
		e0.Sub(&p1, &p0)
		e1.Sub(&p2, &p0)
		n.Cross(&e0, &e1)
		if l := n.Len(); l > 1e-12 {
			var u linear.V3
			u.Scale(1/l, &n)
			n = u
		}
		q := planeQuadric(p0, n)
		addQuad(int(i0), q)
		addQuad(int(i1), q)
		addQuad(int(i2), q)
	}

	// Attribute error is approximated as the squared normal and UV
	// deviation a collapse would introduce, scaled by the
	// configured weights; it is folded additively onto the
	// geometric QEM error rather than built as its own quadric,
	// which keeps the collapse cost function a single scalar.
	attrErr := func(a, b int) float32 {
		var dn linear.V3
		na, nb := vertices[a].Normal, vertices[b].Normal
		dn.Sub(&na, &nb)
		nErr := dn.Dot(&dn) * normalWeight
		ua, ub := vertices[a].UV, vertices[b].UV
		du0, du1 := ua[0]-ub[0], ua[1]-ub[1]
		uErr := (du0*du0 + du1*du1) * uvWeight
		return nErr + uErr
	}

	cur := append([]uint32(nil), indices...)
	curTris := triCount
	var maxErr float32

	for curTris > targetTris {
		// Build the current edge set and score every collapse.
		type edgeKey = [2]uint32
		seen := map[edgeKey]bool{}
		var candidates []edgeCollapse
		for t := 0; t < curTris; t++ {
			tri := [3]uint32{cur[t*3], cur[t*3+1], cur[t*3+2]}
			for i := 0; i < 3; i++ {
				a, b := tri[i], tri[(i+1)%3]
				lo, hi := a, b
				if lo > hi {
					lo, hi = hi, lo
				}
				k := edgeKey{lo, hi}
				if seen[k] {
					continue
				}
				seen[k] = true
				if locked[remap[a]] && locked[remap[b]] {
					continue
				}
				src, dst := a, b
				if locked[remap[dst]] {
					src, dst = dst, src
				}
				if locked[remap[src]] {
					continue
				}
				qa, qb := quadrics[int(src)], quadrics[int(dst)]
				merged := qa
				merged.add(qb)
				geoErr := merged.eval(vertices[dst].Position)
				cost := geoErr + attrErr(int(src), int(dst))
				candidates = append(candidates, edgeCollapse{src: int(src), dst: int(dst), err: cost})
			}
		}
		if len(candidates) == 0 {
			break
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].err < candidates[j].err })

		// Apply a batch of the cheapest, mutually-independent
		// collapses per pass (greedy, not globally optimal, but
		// avoids the O(tris^2) cost of a fully incremental
		// priority-queue simplifier for the group sizes §4.6
		// operates on, which are bounded by a handful of
		// meshlets' worth of triangles).
		moved := map[int]uint32{}
		touched := map[int]bool{}
		for _, c := range candidates {
			if touched[c.src] || touched[c.dst] {
				continue
			}
			moved[c.src] = uint32(c.dst)
			touched[c.src] = true
			touched[c.dst] = true
			q := quadrics[c.dst]
			q.add(quadrics[c.src])
			quadrics[c.dst] = q
			if c.err > maxErr {
				maxErr = c.err
			}
			if curTris-countDegenerate(cur, curTris, moved) <= targetTris {
				break
			}
		}
		if len(moved) == 0 {
			break
		}

		next := make([]uint32, 0, len(cur))
		nextTris := 0
		for t := 0; t < curTris; t++ {
			a, b, c := cur[t*3], cur[t*3+1], cur[t*3+2]
			if r, ok := moved[int(a)]; ok {
				a = r
			}
			if r, ok := moved[int(b)]; ok {
				b = r
			}
			if r, ok := moved[int(c)]; ok {
				c = r
			}
			if a == b || b == c || a == c {
				continue
			}
			next = append(next, a, b, c)
			nextTris++
		}
		if nextTris == curTris {
			break // no progress; avoid an infinite loop
		}
		cur, curTris = next, nextTris
	}

	return simplifyResult{indices: cur, triCount: curTris, reached: curTris <= targetTris, errEstimate: maxErr}
}

// countDegenerate estimates, without rebuilding the index buffer,
// how many of the first curTris triangles would become degenerate
// (and thus dropped) if moved were applied. Used only to decide
// when a collapse batch has done enough work.
func countDegenerate(indices []uint32, triCount int, moved map[int]uint32) int {
	n := 0
	for t := 0; t < triCount; t++ {
		a, b, c := indices[t*3], indices[t*3+1], indices[t*3+2]
		if r, ok := moved[int(a)]; ok {
			a = r
		}
		if r, ok := moved[int(b)]; ok {
			b = r
		}
		if r, ok := moved[int(c)]; ok {
			c = r
		}
		if a == b || b == c || a == c {
			n++
		}
	}
	return n
}

// boundaryVertices computes, for a set of meshlets drawn from a
// shared vertex/index pool, the welded vertex ids that lie on an
// edge shared with a meshlet outside the group — these must not
// move during simplification, per §4.6 step 2.
func boundaryVertices(vertices []Vertex, raw []rawMeshlet, remap []int, group []int) map[int]bool {
	inGroup := make(map[int]bool, len(group))
	for _, mi := range group {
		inGroup[mi] = true
	}
	edgeOwner := map[[2]int][]int{}
	for mi, rm := range raw {
		for _, t := range rm.tris {
			v := [3]uint32{rm.verts[t[0]], rm.verts[t[1]], rm.verts[t[2]]}
			for i := 0; i < 3; i++ {
				a, b := remap[v[i]], remap[v[(i+1)%3]]
				e := canonEdge(a, b)
				edgeOwner[e] = append(edgeOwner[e], mi)
			}
		}
	}
	boundary := map[int]bool{}
	for e, owners := range edgeOwner {
		inside, outside := false, false
		for _, o := range owners {
			if inGroup[o] {
				inside = true
			} else {
				outside = true
			}
		}
		if inside && outside {
			boundary[e[0]] = true
			boundary[e[1]] = true
		}
	}
	return boundary
}

// groupTriangleCount sums the triangle counts of the given
// meshlets, computed from rawMeshlets.
func groupTriangleCount(raw []rawMeshlet, group []int) int {
	n := 0
	for _, mi := range group {
		n += len(raw[mi].tris)
	}
	return n
}

// buildGroupMesh merges a group's meshlets (given as indices into
// raw/levelVertices) into a single compacted vertex/index buffer,
// per §4.6 step 3's "merge the group's meshlet triangle list".
// localToLevel[i] records which levelVertices index group-local
// vertex i came from, so callers can translate welded-vertex
// membership (boundary locks) into the group-local numbering.
func buildGroupMesh(levelVertices []Vertex, raw []rawMeshlet, group []int) (groupVerts []Vertex, groupIndices []uint32, localToLevel []int) {
	localMap := map[uint32]int{}
	for _, mi := range group {
		rm := raw[mi]
		for _, t := range rm.tris {
			var tri [3]uint32
			for k := 0; k < 3; k++ {
				levelIdx := rm.verts[t[k]]
				id, ok := localMap[levelIdx]
				if !ok {
					id = len(groupVerts)
					localMap[levelIdx] = id
					groupVerts = append(groupVerts, levelVertices[levelIdx])
					localToLevel = append(localToLevel, int(levelIdx))
				}
				tri[k] = uint32(id)
			}
			groupIndices = append(groupIndices, tri[0], tri[1], tri[2])
		}
	}
	return
}

// rebaseRaw copies a rawMeshlet's vertex data into dstVerts and
// returns an equivalent rawMeshlet indexing the enlarged slice.
// Used to carry a stuck group's meshlets forward into the next
// LOD round's shared working vertex pool unchanged.
func rebaseRaw(rm rawMeshlet, srcVerts []Vertex, dstVerts *[]Vertex) rawMeshlet {
	base := uint32(len(*dstVerts))
	newVerts := make([]uint32, len(rm.verts))
	for i, v := range rm.verts {
		*dstVerts = append(*dstVerts, srcVerts[v])
		newVerts[i] = base + uint32(i)
	}
	return rawMeshlet{
		verts:         newVerts,
		tris:          rm.tris,
		aabb:          rm.aabb,
		sphere:        rm.sphere,
		maxEdgeLength: rm.maxEdgeLength,
	}
}
