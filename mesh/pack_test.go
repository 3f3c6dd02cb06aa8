// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import (
	"encoding/binary"
	"reflect"
	"testing"
)

func TestRecordSizes(t *testing.T) {
	if meshletRecordSize != 60 {
		t.Fatalf("meshletRecordSize: have %d want 60", meshletRecordSize)
	}
	if bvhNodeRecordSize != 392 {
		t.Fatalf("bvhNodeRecordSize: have %d want 392", bvhNodeRecordSize)
	}
}

func smallMesh() *Mesh {
	m := &Mesh{
		Vertices: []Vertex{
			{Position: [3]float32{0, 0, 0}, Normal: [3]float32{0, 0, 1}, UV: [2]float32{0, 0}},
			{Position: [3]float32{1, 0, 0}, Normal: [3]float32{0, 0, 1}, UV: [2]float32{1, 0}},
			{Position: [3]float32{0, 1, 0}, Normal: [3]float32{0, 0, 1}, UV: [2]float32{0, 1}},
		},
		Indices: []uint32{0, 1, 2},
		Meshlets: []Meshlet{
			{VertOffset: 0, VertCount: 3, IndexOffset: 0, TriCount: 1,
				AABB:      AABB{Min: [3]float32{0, 0, 0}, Max: [3]float32{1, 1, 0}},
				LODSphere: Sphere{Center: [3]float32{0.5, 0.5, 0}, Radius: 1},
				Error:     0.25, MaxEdgeLength: 1.41},
		},
		AABB: AABB{Min: [3]float32{0, 0, 0}, Max: [3]float32{1, 1, 0}},
	}
	m.BVH = []BvhNode{{Children: [8]BvhChild{
		{AABB: m.AABB, LODSphere: m.Meshlets[0].LODSphere, Offset: 0, Count: 1},
	}}}
	m.BVHDepth = 1
	for i := range m.MaterialUUID {
		m.MaterialUUID[i] = byte(i)
	}
	return m
}

func TestPackGPUBufferLayout(t *testing.T) {
	m := smallMesh()
	buf := PackGPUBuffer(m)

	wantLen := len(m.BVH)*bvhNodeRecordSize + len(m.Meshlets)*meshletRecordSize +
		len(m.Vertices)*vertexRecordSize + len(m.Indices)*4
	if len(buf) != wantLen {
		t.Fatalf("PackGPUBuffer length: have %d want %d", len(buf), wantLen)
	}

	meshletBase := len(m.BVH) * bvhNodeRecordSize
	vertexBase := meshletBase + len(m.Meshlets)*meshletRecordSize
	vOff := binary.LittleEndian.Uint32(buf[meshletBase+44:])
	if int(vOff) != vertexBase {
		t.Fatalf("meshlet vertex_byte_offset: have %d want %d", vOff, vertexBase)
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	m := smallMesh()
	data, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(m, got) {
		t.Fatalf("round trip mismatch:\nhave %+v\nwant %+v", got, m)
	}
}

func TestUnmarshalTruncated(t *testing.T) {
	if _, err := Unmarshal([]byte{1, 2, 3}); err == nil {
		t.Fatal("Unmarshal on truncated data should return an error")
	}
}
