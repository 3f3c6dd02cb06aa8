// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import "sort"

// buildAdjacency computes a meshlet adjacency graph weighted by
// the number of welded (positionally coincident) vertices two
// meshlets have in common, an approximation of shared boundary
// edge count per §4.6 step 1 that avoids an exact per-edge
// boundary walk.
func buildAdjacency(vertices []Vertex, raw []rawMeshlet) []map[int]int {
	remap := weldRemap(vertices)
	byWelded := map[int][]int{}
	for mi, rm := range raw {
		seen := map[int]bool{}
		for _, v := range rm.verts {
			w := remap[v]
			if !seen[w] {
				seen[w] = true
				byWelded[w] = append(byWelded[w], mi)
			}
		}
	}
	adj := make([]map[int]int, len(raw))
	for i := range adj {
		adj[i] = map[int]int{}
	}
	for _, ms := range byWelded {
		if len(ms) < 2 {
			continue
		}
		for _, a := range ms {
			for _, b := range ms {
				if a != b {
					adj[a][b]++
				}
			}
		}
	}
	return adj
}

// coarsenStep records one level of heavy-edge matching: members[c]
// lists the pre-coarsening node ids merged into coarse node c, and
// parent[i] is the coarse node fine node i was merged into.
type coarsenStep struct {
	members   [][]int
	parent    []int
	sizeAbove int // node count before this coarsening
}

func coarsenOnce(adj []map[int]int) coarsenStep {
	n := len(adj)
	matched := make([]bool, n)
	parent := make([]int, n)
	var members [][]int

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return len(adj[order[a]]) > len(adj[order[b]]) })

	for _, i := range order {
		if matched[i] {
			continue
		}
		bestJ, bestW := -1, -1
		for j, w := range adj[i] {
			if !matched[j] && w > bestW {
				bestW, bestJ = w, j
			}
		}
		id := len(members)
		if bestJ >= 0 {
			matched[i], matched[bestJ] = true, true
			parent[i], parent[bestJ] = id, id
			members = append(members, []int{i, bestJ})
		} else {
			matched[i] = true
			parent[i] = id
			members = append(members, []int{i})
		}
	}

	return coarsenStep{members: members, parent: parent, sizeAbove: n}
}

// coarseAdj builds the coarser level's adjacency from a fine
// level's adjacency and the matching computed by coarsenOnce.
func (s coarsenStep) coarseAdj(adj []map[int]int) []map[int]int {
	coarseAdj := make([]map[int]int, len(s.members))
	for i := range coarseAdj {
		coarseAdj[i] = map[int]int{}
	}
	for i, neigh := range adj {
		ci := s.parent[i]
		for j, w := range neigh {
			cj := s.parent[j]
			if cj == ci {
				continue
			}
			coarseAdj[ci][cj] += w
		}
	}
	return coarseAdj
}

// coarseWeight sums a fine level's node weights into the coarser
// level's nodes per the same matching.
func (s coarsenStep) coarseWeight(weight []int) []int {
	out := make([]int, len(s.members))
	for i, w := range weight {
		out[s.parent[i]] += w
	}
	return out
}

// regionGrow computes an initial k-way partition of the coarsest
// graph by growing k regions outward from well-spaced seeds,
// balancing on cumulative node weight and preferring, at each
// step, the unassigned frontier node with the heaviest edge to the
// region's seed (any unassigned frontier node if none has one).
func regionGrow(adj []map[int]int, weight []int, k int) []int {
	n := len(adj)
	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}
	if n == 0 {
		return assign
	}
	if k > n {
		k = n
	}

	// Seeds spread across the node index range; cheap stand-in
	// for a true max-distance seed selection.
	seeds := make([]int, k)
	for i := 0; i < k; i++ {
		seeds[i] = (i * n) / k
	}
	total := 0
	for _, w := range weight {
		total += w
	}
	target := total / k
	if target == 0 {
		target = 1
	}

	load := make([]int, k)
	frontier := make([]map[int]bool, k)
	for g, s := range seeds {
		if assign[s] != -1 {
			continue // seed collision on tiny graphs
		}
		assign[s] = g
		load[g] += weight[s]
		frontier[g] = map[int]bool{}
		for nb := range adj[s] {
			if assign[nb] == -1 {
				frontier[g][nb] = true
			}
		}
	}

	remaining := n
	for _, a := range assign {
		if a != -1 {
			remaining--
		}
	}

	for remaining > 0 {
		progressed := false
		for g := 0; g < k; g++ {
			if load[g] >= target {
				continue
			}
			bestNode, bestScore := -1, -1
			for node := range frontier[g] {
				if assign[node] != -1 {
					continue
				}
				if adj[node][seeds[g]] > bestScore {
					bestScore = adj[node][seeds[g]]
					bestNode = node
				}
			}
			if bestNode == -1 {
				for node := range frontier[g] {
					if assign[node] == -1 {
						bestNode = node
						break
					}
				}
			}
			if bestNode == -1 {
				continue
			}
			assign[bestNode] = g
			load[g] += weight[bestNode]
			delete(frontier[g], bestNode)
			for nb := range adj[bestNode] {
				if assign[nb] == -1 {
					frontier[g][nb] = true
				}
			}
			remaining--
			progressed = true
		}
		if !progressed {
			break
		}
	}

	// Disconnected leftovers: assign to the least-loaded bucket.
	for node, a := range assign {
		if a != -1 {
			continue
		}
		lg := 0
		for g := 1; g < k; g++ {
			if load[g] < load[lg] {
				lg = g
			}
		}
		assign[node] = lg
		load[lg] += weight[node]
	}
	return assign
}

// partitionKWay runs a from-scratch multilevel k-way graph
// partition (heavy-edge coarsening, region-growing initial
// partition, direct projection back to the original graph — no
// boundary refinement pass, a deliberate simplification of the
// METIS algorithm this approximates) and returns, for every node
// in [0, n), its assigned group id in [0, k).
func partitionKWay(n int, adj []map[int]int, k int) []int {
	if k < 1 {
		k = 1
	}
	if n == 0 {
		return nil
	}
	if k >= n {
		assign := make([]int, n)
		for i := range assign {
			assign[i] = i % k
		}
		return assign
	}

	curAdj := adj
	curWeight := make([]int, n)
	for i := range curWeight {
		curWeight[i] = 1
	}
	var steps []coarsenStep
	for len(curAdj) > 2*k && len(steps) < 24 {
		step := coarsenOnce(curAdj)
		curAdj = step.coarseAdj(curAdj)
		curWeight = step.coarseWeight(curWeight)
		steps = append(steps, step)
	}

	assign := regionGrow(curAdj, curWeight, k)

	for l := len(steps) - 1; l >= 0; l-- {
		expanded := make([]int, steps[l].sizeAbove)
		for coarseNode, members := range steps[l].members {
			for _, fine := range members {
				expanded[fine] = assign[coarseNode]
			}
		}
		assign = expanded
	}
	return assign
}

// buildGroups partitions a LOD level's meshlets into k =
// ceil(n/groupPartitionTarget) regions, per §4.6 step 1, splitting
// any region larger than maxGroupMeshlets (groups may hold more than
// groupPartitionTarget meshlets, up to that cap), then computes
// each group's bounding box and unioned LOD sphere.
func buildGroups(lod int, vertices []Vertex, raw []rawMeshlet, meshlets []Meshlet) []MeshletGroup {
	n := len(meshlets)
	if n == 0 {
		return nil
	}
	adj := buildAdjacency(vertices, raw)
	k := (n + groupPartitionTarget - 1) / groupPartitionTarget
	assign := partitionKWay(n, adj, k)

	byGroup := map[int][]int{}
	for mi, g := range assign {
		byGroup[g] = append(byGroup[g], mi)
	}

	var groups []MeshletGroup
	for g := 0; g < k; g++ {
		members := byGroup[g]
		if len(members) == 0 {
			continue
		}
		sort.Ints(members)
		for len(members) > maxGroupMeshlets {
			// Hard cap exceeded (rare, e.g. a very unbalanced
			// region-grow outcome): split the overflow into
			// additional groups rather than violate the cap.
			groups = append(groups, buildOneGroup(lod, members[:maxGroupMeshlets], meshlets))
			members = members[maxGroupMeshlets:]
		}
		groups = append(groups, buildOneGroup(lod, members, meshlets))
	}
	return groups
}

func buildOneGroup(lod int, members []int, meshlets []Meshlet) MeshletGroup {
	g := MeshletGroup{Meshlets: append([]int(nil), members...), AABB: emptyAABB(), LOD: lod}
	for _, mi := range members {
		m := meshlets[mi]
		g.AABB.Union(m.AABB)
		g.LODSphere.Union(m.LODSphere)
	}
	return g
}
