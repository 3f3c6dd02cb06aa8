// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import "testing"

func TestPartitionCaps(t *testing.T) {
	vertices, indices := gridMesh(20)
	raw := partition(vertices, indices)
	if len(raw) == 0 {
		t.Fatal("partition returned no meshlets for a non-empty mesh")
	}
	totalTris := 0
	for _, rm := range raw {
		if len(rm.verts) > MaxMeshletVerts {
			t.Fatalf("meshlet exceeds MaxMeshletVerts: have %d want <= %d", len(rm.verts), MaxMeshletVerts)
		}
		if len(rm.tris) > MaxMeshletTris {
			t.Fatalf("meshlet exceeds MaxMeshletTris: have %d want <= %d", len(rm.tris), MaxMeshletTris)
		}
		if len(rm.tris) == 0 {
			t.Fatal("meshlet has zero triangles")
		}
		totalTris += len(rm.tris)
	}
	wantTris := len(indices) / 3
	if totalTris != wantTris {
		t.Fatalf("partition dropped or duplicated triangles:\nhave %d\nwant %d", totalTris, wantTris)
	}
}

func TestWeldRemapCoincidentPositions(t *testing.T) {
	vertices := []Vertex{
		{Position: [3]float32{0, 0, 0}},
		{Position: [3]float32{0, 0, 0}}, // exact duplicate, different slot
		{Position: [3]float32{1, 0, 0}},
		{Position: [3]float32{0, 0, 0.00001}}, // within weld tolerance
		{Position: [3]float32{5, 5, 5}},
	}
	remap := weldRemap(vertices)
	if remap[0] != remap[1] {
		t.Fatalf("coincident vertices not welded: remap[0]=%d remap[1]=%d", remap[0], remap[1])
	}
	if remap[0] != remap[3] {
		t.Fatalf("near-coincident vertex not welded within tolerance: remap[0]=%d remap[3]=%d", remap[0], remap[3])
	}
	if remap[2] == remap[0] {
		t.Fatalf("distinct positions incorrectly welded: remap[0]=%d remap[2]=%d", remap[0], remap[2])
	}
	if remap[4] != 4 {
		t.Fatalf("isolated vertex must remap to itself: have %d want 4", remap[4])
	}
}

func TestCanonEdgeOrdering(t *testing.T) {
	if e := canonEdge(3, 1); e != [2]int{1, 3} {
		t.Fatalf("canonEdge(3,1):\nhave %v\nwant {1 3}", e)
	}
	if e := canonEdge(1, 3); e != [2]int{1, 3} {
		t.Fatalf("canonEdge(1,3):\nhave %v\nwant {1 3}", e)
	}
}
