// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import "testing"

func quadMesh() ([]Vertex, []uint32) {
	vertices := []Vertex{
		{Position: [3]float32{0, 0, 0}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{1, 0, 0}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{1, 1, 0}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{0, 1, 0}, Normal: [3]float32{0, 0, 1}},
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}
	return vertices, indices
}

func TestSimplifyMeshLockedAllBoundary(t *testing.T) {
	vertices, indices := quadMesh()
	remap := weldRemap(vertices)
	locked := map[int]bool{remap[0]: true, remap[1]: true, remap[2]: true, remap[3]: true}

	result := simplifyMesh(vertices, indices, remap, locked, 2, 0.5, 1)
	if result.triCount != 2 {
		t.Fatalf("simplifyMesh with all vertices locked must not collapse anything:\nhave %d tris\nwant 2", result.triCount)
	}
	if result.reached {
		t.Fatal("simplifyMesh reported reached=true despite never reaching the target")
	}
}

func TestSimplifyMeshReducesUnlocked(t *testing.T) {
	vertices, indices := gridMesh(6) // 72 triangles, fully interior mesh has unlocked vertices
	remap := weldRemap(vertices)
	locked := map[int]bool{} // nothing locked

	origTris := len(indices) / 3
	target := origTris / 2
	result := simplifyMesh(vertices, indices, remap, locked, 2, 0.5, target)
	if result.triCount > origTris {
		t.Fatalf("simplifyMesh increased triangle count: have %d want <= %d", result.triCount, origTris)
	}
	if result.triCount >= origTris {
		t.Fatalf("simplifyMesh with no locked vertices made no progress: have %d tris (orig %d)", result.triCount, origTris)
	}
}

func TestPlaneQuadricZeroOnPlane(t *testing.T) {
	p := [3]float32{1, 2, 3}
	n := [3]float32{0, 0, 1}
	q := planeQuadric(p, n)
	// Any point on the z=3 plane through p must evaluate to ~0 error.
	onPlane := [3]float32{-5, 10, 3}
	if e := q.eval(onPlane); e > 1e-6 || e < -1e-6 {
		t.Fatalf("planeQuadric.eval on-plane point: have %v want ~0", e)
	}
	offPlane := [3]float32{1, 2, 4}
	if e := q.eval(offPlane); e <= 0 {
		t.Fatalf("planeQuadric.eval off-plane point must be positive: have %v", e)
	}
}

func TestBoundaryVerticesSharedEdge(t *testing.T) {
	vertices, indices := gridMesh(10) // 200 triangles, forces >1 meshlet
	raw := partition(vertices, indices)
	if len(raw) < 2 {
		t.Skip("grid too small to produce multiple meshlets for this check")
	}
	remap := weldRemap(vertices)
	group := []int{0}
	boundary := boundaryVertices(vertices, raw, remap, group)
	// Any welded vertex referenced by meshlet 0 and some other meshlet
	// must be flagged; at least one such vertex should exist unless
	// meshlet 0 happens to be fully isolated (not expected for a grid).
	found := false
	inGroup := map[int]bool{0: true}
	for mi, rm := range raw {
		if inGroup[mi] {
			continue
		}
		for _, v := range rm.verts {
			if boundary[remap[v]] {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected at least one boundary vertex between adjacent meshlets")
	}
}
