// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import (
	"errors"
	"sort"
)

// ErrUnreachableMeshlet is returned by Build when the flattened
// BVH's reachability check (§4.7) finds a meshlet that no
// traversal from the root reaches.
var ErrUnreachableMeshlet = errors.New("mesh: meshlet unreachable from BVH root")

// compactMeshlets reorders m.Meshlets so that every group's
// members occupy a contiguous run, recording the run in
// MeshletOffset/MeshletCount. Meshlets belonging to no group (the
// final round's regenerated output, if the LOD loop terminated
// before grouping them again) are collected into one synthetic
// trailing group tagged at the next LOD past the last grouped
// level.
func compactMeshlets(m *Mesh) {
	covered := make([]bool, len(m.Meshlets))
	next := make([]Meshlet, 0, len(m.Meshlets))
	for gi := range m.Groups {
		g := &m.Groups[gi]
		g.MeshletOffset = len(next)
		for _, mi := range g.Meshlets {
			next = append(next, m.Meshlets[mi])
			covered[mi] = true
		}
		g.MeshletCount = len(g.Meshlets)
	}

	var orphanLOD int
	for _, g := range m.Groups {
		if g.LOD > orphanLOD {
			orphanLOD = g.LOD
		}
	}
	var orphan MeshletGroup
	orphan.AABB = emptyAABB()
	orphan.LOD = orphanLOD + 1
	orphan.MeshletOffset = len(next)
	for mi, ok := range covered {
		if ok {
			continue
		}
		orphan.Meshlets = append(orphan.Meshlets, len(next))
		next = append(next, m.Meshlets[mi])
		orphan.AABB.Union(m.Meshlets[mi].AABB)
		orphan.LODSphere.Union(m.Meshlets[mi].LODSphere)
	}
	orphan.MeshletCount = len(orphan.Meshlets)
	if orphan.MeshletCount > 0 {
		m.Groups = append(m.Groups, orphan)
	}

	m.Meshlets = next
}

func leafChild(g *MeshletGroup) BvhChild {
	return BvhChild{
		AABB:        g.AABB,
		LODSphere:   g.LODSphere,
		ParentError: g.ParentError,
		Offset:      uint32(g.MeshletOffset),
		Count:       uint8(g.MeshletCount),
	}
}

// splitSAH partitions items into two halves along the axis and
// position minimizing the surface-area-heuristic cost
// split*area(left) + (n-split)*area(right), per §4.7.
func splitSAH(items []BvhChild) (left, right []BvhChild) {
	n := len(items)
	if n <= 1 {
		return items, nil
	}

	var bestAxis, bestSplit = -1, 0
	var bestCost float32
	var bestOrder []BvhChild

	for axis := 0; axis < 3; axis++ {
		ordered := append([]BvhChild(nil), items...)
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].AABB.Center()[axis] < ordered[j].AABB.Center()[axis]
		})
		prefixArea := make([]float32, n+1)
		suffixArea := make([]float32, n+1)
		box := emptyAABB()
		for i := 0; i < n; i++ {
			box.Union(ordered[i].AABB)
			prefixArea[i+1] = box.SurfaceArea()
		}
		box = emptyAABB()
		for i := n - 1; i >= 0; i-- {
			box.Union(ordered[i].AABB)
			suffixArea[i] = box.SurfaceArea()
		}
		for split := 1; split < n; split++ {
			cost := float32(split)*prefixArea[split] + float32(n-split)*suffixArea[split]
			if bestAxis == -1 || cost < bestCost {
				bestCost, bestAxis, bestSplit, bestOrder = cost, axis, split, ordered
			}
		}
	}
	if bestAxis == -1 {
		return items[:n/2], items[n/2:]
	}
	return append([]BvhChild(nil), bestOrder[:bestSplit]...), append([]BvhChild(nil), bestOrder[bestSplit:]...)
}

// splitInto8 applies three successive SAH binary splits to reach
// an 8-way fan-out, per §4.7.
func splitInto8(items []BvhChild) [8][]BvhChild {
	a, b := splitSAH(items)
	a1, a2 := splitSAH(a)
	b1, b2 := splitSAH(b)
	c1, c2 := splitSAH(a1)
	c3, c4 := splitSAH(a2)
	c5, c6 := splitSAH(b1)
	c7, c8 := splitSAH(b2)
	return [8][]BvhChild{c1, c2, c3, c4, c5, c6, c7, c8}
}

// build8ary recursively clusters items (each either a group leaf
// or an already-materialized subtree) into an 8-ary tree, writing
// internal nodes to nodes and returning the BvhChild that
// represents the whole set: a single item passes through
// unwrapped (the "degenerate roots collapse into their parent"
// rule applies uniformly at every level, not just the top).
func build8ary(items []BvhChild, nodes *[]BvhNode, depth int, maxDepth *int) BvhChild {
	if depth > *maxDepth {
		*maxDepth = depth
	}
	if len(items) == 0 {
		return BvhChild{}
	}
	if len(items) == 1 {
		return items[0]
	}

	buckets := splitInto8(items)
	nodeIdx := len(*nodes)
	*nodes = append(*nodes, BvhNode{})

	var node BvhNode
	agg := BvhChild{AABB: emptyAABB()}
	any := false
	for i, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		c := build8ary(bucket, nodes, depth+1, maxDepth)
		node.Children[i] = c
		agg.AABB.Union(c.AABB)
		agg.LODSphere.Union(c.LODSphere)
		if c.ParentError > agg.ParentError {
			agg.ParentError = c.ParentError
		}
		any = true
	}
	(*nodes)[nodeIdx] = node
	if !any {
		*nodes = (*nodes)[:nodeIdx]
		return BvhChild{}
	}
	agg.Offset = uint32(nodeIdx)
	agg.Count = internalChild
	return agg
}

// buildBVH implements §4.7: a per-LOD 8-ary subtree for every LOD
// tier, wrapped into a single root by a further 8-ary build over
// the per-LOD roots (collapsing the wrap away if there is only one
// tier). It returns the flat node vector, the tree's maximum
// depth, and an error if the reachability check fails.
func buildBVH(groups []MeshletGroup) ([]BvhNode, int, error) {
	if len(groups) == 0 {
		return nil, 0, nil
	}

	byLOD := map[int][]int{}
	for gi := range groups {
		byLOD[groups[gi].LOD] = append(byLOD[groups[gi].LOD], gi)
	}
	lods := make([]int, 0, len(byLOD))
	for lod := range byLOD {
		lods = append(lods, lod)
	}
	sort.Ints(lods)

	var nodes []BvhNode
	maxDepth := 0
	var lodRoots []BvhChild
	for _, lod := range lods {
		idxs := byLOD[lod]
		leaves := make([]BvhChild, len(idxs))
		for i, gi := range idxs {
			leaves[i] = leafChild(&groups[gi])
		}
		lodRoots = append(lodRoots, build8ary(leaves, &nodes, 1, &maxDepth))
	}

	var root BvhChild
	if len(lodRoots) == 1 {
		root = lodRoots[0]
	} else {
		root = build8ary(lodRoots, &nodes, 1, &maxDepth)
	}

	if root.Count == internalChild {
		// Swap the root into index 0 and patch the one reference to
		// whatever node previously sat there.
		if r := root.Offset; r != 0 {
			nodes[0], nodes[r] = nodes[r], nodes[0]
			for i := range nodes {
				for c := range nodes[i].Children {
					ch := &nodes[i].Children[c]
					if ch.Count == internalChild && ch.Offset == 0 {
						ch.Offset = r
					}
				}
			}
		}
	} else {
		if len(nodes) == 0 {
			nodes = append(nodes, BvhNode{})
		}
		nodes[0] = BvhNode{Children: [8]BvhChild{root}}
		if maxDepth < 1 {
			maxDepth = 1
		}
	}

	if err := checkReachability(nodes, groups); err != nil {
		return nil, 0, err
	}
	return nodes, maxDepth, nil
}

// checkReachability walks the flat BVH from the root and asserts
// that a traversal reaches every meshlet referenced by any group
// exactly once, per §4.7's reachability check.
func checkReachability(nodes []BvhNode, groups []MeshletGroup) error {
	totalMeshlets := 0
	for _, g := range groups {
		totalMeshlets += g.MeshletCount
	}
	if len(nodes) == 0 {
		if totalMeshlets == 0 {
			return nil
		}
		return ErrUnreachableMeshlet
	}

	reached := make(map[int]bool)
	dup := false
	var visit func(idx int)
	visit = func(idx int) {
		node := nodes[idx]
		for _, c := range node.Children {
			if c.Count == 0 && c.Offset == 0 {
				continue // unused slot
			}
			if c.Count == internalChild {
				visit(int(c.Offset))
				continue
			}
			for i := 0; i < int(c.Count); i++ {
				if reached[int(c.Offset)+i] {
					dup = true
				}
				reached[int(c.Offset)+i] = true
			}
		}
	}
	visit(0)

	if dup || len(reached) != totalMeshlets {
		return ErrUnreachableMeshlet
	}
	return nil
}
