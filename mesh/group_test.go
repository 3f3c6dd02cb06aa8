// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import "testing"

func TestPartitionKWayCoverage(t *testing.T) {
	// A chain graph 0-1-2-...-19.
	n := 20
	adj := make([]map[int]int, n)
	for i := range adj {
		adj[i] = map[int]int{}
		if i > 0 {
			adj[i][i-1] = 1
		}
		if i < n-1 {
			adj[i][i+1] = 1
		}
	}
	k := 5
	assign := partitionKWay(n, adj, k)
	if len(assign) != n {
		t.Fatalf("partitionKWay returned %d assignments, want %d", len(assign), n)
	}
	counts := make([]int, k)
	for _, g := range assign {
		if g < 0 || g >= k {
			t.Fatalf("assignment out of range: %d (k=%d)", g, k)
		}
		counts[g]++
	}
	for g, c := range counts {
		if c == 0 {
			t.Fatalf("group %d received no nodes", g)
		}
	}
}

func TestPartitionKWayTrivialCases(t *testing.T) {
	if got := partitionKWay(0, nil, 4); got != nil {
		t.Fatalf("partitionKWay(0, ...): have %v want nil", got)
	}
	adj := []map[int]int{{}, {}, {}}
	assign := partitionKWay(3, adj, 8) // k >= n
	if len(assign) != 3 {
		t.Fatalf("partitionKWay with k>=n: have len %d want 3", len(assign))
	}
	seen := map[int]bool{}
	for _, g := range assign {
		seen[g] = true
	}
	if len(seen) != 3 {
		t.Fatalf("partitionKWay with k>=n must assign distinct groups: have %d distinct want 3", len(seen))
	}
}

func TestBuildGroupsRespectCap(t *testing.T) {
	vertices, indices := gridMesh(30)
	raw := partition(vertices, indices)
	m := &Mesh{AABB: emptyAABB()}
	meshlets := appendMeshlets(m, vertices, raw)

	groups := buildGroups(0, vertices, raw, meshlets)
	if len(groups) == 0 {
		t.Fatal("buildGroups returned no groups for a non-empty meshlet set")
	}

	seen := make([]bool, len(meshlets))
	total := 0
	for _, g := range groups {
		if len(g.Meshlets) > maxGroupMeshlets {
			t.Fatalf("group exceeds maxGroupMeshlets: have %d want <= %d", len(g.Meshlets), maxGroupMeshlets)
		}
		if len(g.Meshlets) == 0 {
			t.Fatal("empty group produced")
		}
		for _, mi := range g.Meshlets {
			if seen[mi] {
				t.Fatalf("meshlet %d assigned to more than one group", mi)
			}
			seen[mi] = true
			total++
		}
	}
	if total != len(meshlets) {
		t.Fatalf("buildGroups dropped meshlets:\nhave %d\nwant %d", total, len(meshlets))
	}
}
