// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package graph

import "testing"

func TestLifetimeDisjoint(t *testing.T) {
	for _, x := range [...]struct {
		a, b lifetime
		want bool
	}{
		{lifetime{0, 2}, lifetime{3, 5}, true},
		{lifetime{3, 5}, lifetime{0, 2}, true},
		{lifetime{0, 2}, lifetime{2, 4}, false},
		{lifetime{0, 5}, lifetime{1, 2}, false},
		{lifetime{1, 1}, lifetime{1, 1}, false},
		{lifetime{0, 0}, lifetime{1, 1}, true},
	} {
		if have := x.a.disjoint(x.b); have != x.want {
			t.Fatalf("lifetime.disjoint(%v, %v):\nhave %t\nwant %t", x.a, x.b, have, x.want)
		}
	}
}

func TestLifetimeUnion(t *testing.T) {
	for _, x := range [...]struct {
		a, b, want lifetime
	}{
		{lifetime{0, 2}, lifetime{3, 5}, lifetime{0, 5}},
		{lifetime{3, 5}, lifetime{0, 2}, lifetime{0, 5}},
		{lifetime{1, 4}, lifetime{2, 3}, lifetime{1, 4}},
		{lifetime{2, 3}, lifetime{1, 4}, lifetime{1, 4}},
	} {
		if have := x.a.union(x.b); have != x.want {
			t.Fatalf("lifetime.union(%v, %v):\nhave %v\nwant %v", x.a, x.b, have, x.want)
		}
	}
}
