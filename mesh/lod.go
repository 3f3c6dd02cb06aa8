// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vkgraph/core/graph"
)

// groupOutcome is one group's processed result for a LOD round:
// either it was simplified and regenerated into new, coarser
// meshlets, or it got stuck and is carried forward unchanged.
type groupOutcome struct {
	group       MeshletGroup
	accepted    bool
	newRaw      []rawMeshlet
	newVerts    []Vertex
	errEstimate float32
	origTris    int
}

// Build runs the full meshlet/LOD/BVH pipeline over an indexed
// triangle mesh: partitioning (meshlet.go), grouping (group.go),
// per-group QEM simplification (simplify.go) driven round by round
// until termination, then BVH construction (bvh.go). It returns
// the packed virtual mesh plus any warnings for groups whose
// simplification target was never reached.
func Build(vertices []Vertex, indices []uint32, materialUUID [16]byte, cfg Config) (*Mesh, []*graph.MeshletWarning, error) {
	m := &Mesh{MaterialUUID: materialUUID, AABB: emptyAABB()}
	var warnings []*graph.MeshletWarning

	levelVerts := append([]Vertex(nil), vertices...)
	levelIndices := append([]uint32(nil), indices...)
	stuckAttempts := map[int]int{} // keyed by a stable group identity (see below)
	lod := 0

	const maxRounds = 64
	for round := 0; round < maxRounds; round++ {
		raw := partition(levelVerts, levelIndices)
		if len(raw) == 0 {
			break
		}
		start := len(m.Meshlets)
		newMeshlets := appendMeshlets(m, levelVerts, raw)
		m.Meshlets = append(m.Meshlets, newMeshlets...)
		for _, ml := range newMeshlets {
			m.AABB.Union(ml.AABB)
		}

		groups := buildGroups(lod, levelVerts, raw, newMeshlets)
		for gi := range groups {
			for k := range groups[gi].Meshlets {
				groups[gi].Meshlets[k] += start
			}
		}
		m.Groups = append(m.Groups, groups...)

		if len(newMeshlets) <= 1 {
			break // a single meshlet cannot be grouped/simplified further
		}

		remap := weldRemap(levelVerts)
		outcomes := make([]groupOutcome, len(groups))

		eg, _ := errgroup.WithContext(context.Background())
		eg.SetLimit(cfg.workers())
		for gi := range groups {
			gi := gi
			eg.Go(func() error {
				outcomes[gi] = processGroup(levelVerts, raw, remap, groups[gi], start, cfg)
				return nil
			})
		}
		_ = eg.Wait() // processGroup never returns an error; group errors surface as !accepted

		var nextVerts []Vertex
		var nextRaw []rawMeshlet
		stuckTriCount := 0
		producedTris := 0

		for gi, oc := range outcomes {
			identity := groupIdentity(groups[gi])
			if oc.accepted {
				stuckAttempts[identity] = 0
				regen := appendMeshlets(m, oc.newVerts, oc.newRaw)
				for i := range regen {
					regen[i].LODSphere = oc.group.LODSphere
					regen[i].Error = oc.errEstimate
				}
				m.Meshlets = append(m.Meshlets, regen...)
				for _, gm := range groups[gi].Meshlets {
					m.Meshlets[gm].ParentError = oc.errEstimate
				}
				for _, rm := range oc.newRaw {
					producedTris += len(rm.tris)
					nextRaw = append(nextRaw, rebaseRaw(rm, oc.newVerts, &nextVerts))
				}
				continue
			}

			stuckAttempts[identity]++
			stuckTriCount += oc.origTris
			if stuckAttempts[identity] >= maxStuckAttempts {
				warnings = append(warnings, &graph.MeshletWarning{
					Group: len(m.Groups) - len(groups) + gi,
					Tris:  oc.origTris,
					Want:  oc.origTris / 2,
				})
				continue // permanently flushed: not carried forward
			}
			// Retry next round: carry the group's original
			// (unsimplified) meshlets forward unchanged.
			local := make([]int, len(groups[gi].Meshlets))
			for i, gm := range groups[gi].Meshlets {
				local[i] = gm - start
			}
			for _, mi := range local {
				nextRaw = append(nextRaw, rebaseRaw(raw[mi], levelVerts, &nextVerts))
			}
			producedTris += groupTriangleCount(raw, local)
		}

		if len(nextRaw) == 0 {
			break
		}
		if producedTris < stuckTriCount/3 && stuckTriCount > 0 {
			break
		}

		levelVerts = nextVerts
		levelIndices = flattenRaw(nextRaw)
		lod++
	}

	compactMeshlets(m)
	bvh, depth, err := buildBVH(m.Groups)
	if err != nil {
		return nil, warnings, err
	}
	m.BVH = bvh
	m.BVHDepth = depth

	return m, warnings, nil
}

// processGroup runs boundary computation and simplification for a
// single group (§4.6 steps 2-3), returning whether the target
// triangle count was reached and, if so, the regenerated meshlets
// for the next LOD level.
func processGroup(levelVerts []Vertex, raw []rawMeshlet, remap []int, g MeshletGroup, globalStart int, cfg Config) groupOutcome {
	local := make([]int, len(g.Meshlets))
	for i, gm := range g.Meshlets {
		local[i] = gm - globalStart
	}
	origTris := groupTriangleCount(raw, local)

	boundary := boundaryVertices(levelVerts, raw, remap, local)
	groupVerts, groupIndices, localToLevel := buildGroupMesh(levelVerts, raw, local)
	groupRemap := make([]int, len(localToLevel))
	for i, levelIdx := range localToLevel {
		groupRemap[i] = remap[levelIdx]
	}

	target := origTris / 2
	result := simplifyMesh(groupVerts, groupIndices, groupRemap, boundary, cfg.NormalWeight, cfg.UVWeight, target)
	accept := float32(result.triCount) <= 0.55*float32(origTris)

	oc := groupOutcome{group: g, accepted: accept, errEstimate: result.errEstimate, origTris: origTris}
	if accept {
		newRaw := partition(groupVerts, result.indices)
		oc.newRaw = newRaw
		oc.newVerts = groupVerts
	}
	return oc
}

// flattenRaw concatenates a set of rawMeshlets (which must already
// share one vertex pool, as rebaseRaw guarantees) into a single
// triangle-index buffer suitable for the next round's partition
// and adjacency build.
func flattenRaw(raw []rawMeshlet) []uint32 {
	var out []uint32
	for _, rm := range raw {
		for _, t := range rm.tris {
			out = append(out, rm.verts[t[0]], rm.verts[t[1]], rm.verts[t[2]])
		}
	}
	return out
}

// groupIdentity gives a stable retry-count key for a group across
// rounds, based on its sorted member meshlet ids.
func groupIdentity(g MeshletGroup) int {
	h := 0
	for _, mi := range g.Meshlets {
		h = h*31 + mi
	}
	return h
}
