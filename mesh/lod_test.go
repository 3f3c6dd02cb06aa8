// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import "testing"

// TestBuildLODChain exercises Build end to end on a dense grid
// (roughly the S6 scenario's triangle count), checking the
// invariants from §8's testable properties that apply to the
// meshlet/LOD/BVH pipeline: a base LOD of many small meshlets, at
// least one meshlet carrying a positive ParentError,
// and a fully reachable BVH.
func TestBuildLODChain(t *testing.T) {
	vertices, indices := gridMesh(71) // 10082 triangles
	var uuid [16]byte
	m, warnings, err := Build(vertices, indices, uuid, DefaultConfig())
	if err != nil {
		t.Fatalf("Build returned an error: %v", err)
	}
	_ = warnings

	baseCount := 0
	for _, g := range m.Groups {
		if g.LOD == 0 {
			baseCount += g.MeshletCount
		}
	}
	if baseCount < 80 {
		t.Fatalf("base LOD meshlet count: have %d want >= 80", baseCount)
	}

	sawParentError := false
	for _, ml := range m.Meshlets {
		if ml.ParentError > 0 {
			sawParentError = true
			break
		}
	}
	if !sawParentError {
		t.Error("expected at least one meshlet with ParentError > 0 after a multi-round LOD build")
	}

	if len(m.BVH) == 0 {
		t.Fatal("Build produced no BVH nodes")
	}
	if err := checkReachability(m.BVH, m.Groups); err != nil {
		t.Fatalf("final BVH failed its reachability check: %v", err)
	}
}

func TestBuildSingleTriangle(t *testing.T) {
	vertices := []Vertex{
		{Position: [3]float32{0, 0, 0}},
		{Position: [3]float32{1, 0, 0}},
		{Position: [3]float32{0, 1, 0}},
	}
	indices := []uint32{0, 1, 2}
	var uuid [16]byte
	m, _, err := Build(vertices, indices, uuid, DefaultConfig())
	if err != nil {
		t.Fatalf("Build returned an error: %v", err)
	}
	if len(m.Meshlets) != 1 {
		t.Fatalf("single-triangle mesh: have %d meshlets want 1", len(m.Meshlets))
	}
	if err := checkReachability(m.BVH, m.Groups); err != nil {
		t.Fatalf("reachability check failed: %v", err)
	}
}
