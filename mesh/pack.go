// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

const packPrefix = "mesh: "

// Record sizes, per §6's external interface layout.
const (
	meshletRecordSize = 60
	bvhChildSize      = 24 + 16 + 4 + 4 + 1 // aabb + sphere + error + offset + count
	bvhNodeRecordSize = bvhChildSize * 8    // 392
	vertexRecordSize  = 12 + 12 + 8         // position + normal + uv
)

// PackGPUBuffer lays m out as a single contiguous buffer in the
// order BVH nodes, meshlets, vertices, indices, per §4.8. Every
// offset field (a meshlet's vertex/index byte offsets, a BVH
// child's node/meshlet offset) is rewritten in terms of byte
// position within the returned buffer rather than the in-memory
// slice indices Mesh itself uses.
func PackGPUBuffer(m *Mesh) []byte {
	bvhBase := 0
	meshletBase := bvhBase + len(m.BVH)*bvhNodeRecordSize
	vertexBase := meshletBase + len(m.Meshlets)*meshletRecordSize
	indexBase := vertexBase + len(m.Vertices)*vertexRecordSize
	total := indexBase + len(m.Indices)*4

	buf := make([]byte, total)

	for i, n := range m.BVH {
		packBvhNode(buf[bvhBase+i*bvhNodeRecordSize:], n, bvhBase, meshletBase)
	}
	for i, ml := range m.Meshlets {
		packMeshlet(buf[meshletBase+i*meshletRecordSize:], ml, vertexBase, indexBase)
	}
	for i, v := range m.Vertices {
		packVertex(buf[vertexBase+i*vertexRecordSize:], v)
	}
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(buf[indexBase+i*4:], idx)
	}
	return buf
}

func packAABB(dst []byte, b AABB) {
	o := 0
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(dst[o:], f32bits(b.Min[i]))
		o += 4
	}
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(dst[o:], f32bits(b.Max[i]))
		o += 4
	}
}

func packSphere(dst []byte, s Sphere) {
	o := 0
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(dst[o:], f32bits(s.Center[i]))
		o += 4
	}
	binary.LittleEndian.PutUint32(dst[o:], f32bits(s.Radius))
}

func packVertex(dst []byte, v Vertex) {
	o := 0
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(dst[o:], f32bits(v.Position[i]))
		o += 4
	}
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(dst[o:], f32bits(v.Normal[i]))
		o += 4
	}
	binary.LittleEndian.PutUint32(dst[o:], f32bits(v.UV[0]))
	o += 4
	binary.LittleEndian.PutUint32(dst[o:], f32bits(v.UV[1]))
}

// packMeshlet writes a 60-byte meshlet record, rewriting
// VertOffset/IndexOffset (slice indices) into byte offsets within
// the shared vertex/index regions of the packed buffer.
func packMeshlet(dst []byte, ml Meshlet, vertexBase, indexBase int) {
	packAABB(dst, ml.AABB)
	packSphere(dst[24:], ml.LODSphere)
	o := 24 + 16
	binary.LittleEndian.PutUint32(dst[o:], f32bits(ml.Error))
	o += 4
	binary.LittleEndian.PutUint32(dst[o:], uint32(vertexBase+ml.VertOffset*vertexRecordSize))
	o += 4
	binary.LittleEndian.PutUint32(dst[o:], uint32(indexBase+ml.IndexOffset*4))
	o += 4
	dst[o] = uint8(ml.VertCount)
	o++
	dst[o] = uint8(ml.TriCount)
	o++
	dst[o], dst[o+1] = 0, 0 // pad
	o += 2
	binary.LittleEndian.PutUint32(dst[o:], f32bits(ml.MaxEdgeLength))
}

// packBvhNode writes a 392-byte BVH node record: eight 49-byte
// child slots, each an aabb, a bounding sphere, a parent error, a
// byte offset (into the packed buffer's BVH or meshlet region,
// depending on Count) and the child's meshlet count (0xFF for an
// internal child).
func packBvhNode(dst []byte, n BvhNode, bvhBase, meshletBase int) {
	for i, c := range n.Children {
		slot := dst[i*bvhChildSize:]
		packAABB(slot, c.AABB)
		packSphere(slot[24:], c.LODSphere)
		o := 24 + 16
		binary.LittleEndian.PutUint32(slot[o:], f32bits(c.ParentError))
		o += 4
		var off uint32
		if c.Count == internalChild {
			off = uint32(bvhBase + int(c.Offset)*bvhNodeRecordSize)
		} else {
			off = uint32(meshletBase + int(c.Offset)*meshletRecordSize)
		}
		binary.LittleEndian.PutUint32(slot[o:], off)
		o += 4
		slot[o] = c.Count
	}
}

// Marshal serializes m as a length-prefixed, bincode-style
// container: vertices, indices, meshlets, bvh, bvh_depth, aabb,
// material_uuid, per §6. Unlike PackGPUBuffer, offsets are left as
// the slice indices Mesh itself uses — this form is meant to be
// read back by Unmarshal, not uploaded to the GPU directly.
func Marshal(m *Mesh) ([]byte, error) {
	var buf bytes.Buffer
	w := func(v any) error { return binary.Write(&buf, binary.LittleEndian, v) }

	if err := w(uint32(len(m.Vertices))); err != nil {
		return nil, err
	}
	for _, v := range m.Vertices {
		if err := w(v.Position); err != nil {
			return nil, err
		}
		if err := w(v.Normal); err != nil {
			return nil, err
		}
		if err := w(v.UV); err != nil {
			return nil, err
		}
	}

	if err := w(uint32(len(m.Indices))); err != nil {
		return nil, err
	}
	if err := w(m.Indices); err != nil {
		return nil, err
	}

	if err := w(uint32(len(m.Meshlets))); err != nil {
		return nil, err
	}
	for _, ml := range m.Meshlets {
		fields := []any{
			uint32(ml.VertOffset), uint32(ml.VertCount),
			uint32(ml.IndexOffset), uint32(ml.TriCount),
			ml.AABB.Min, ml.AABB.Max,
			ml.LODSphere.Center, ml.LODSphere.Radius,
			ml.Error, ml.ParentError, ml.MaxEdgeLength,
		}
		for _, f := range fields {
			if err := w(f); err != nil {
				return nil, err
			}
		}
	}

	if err := w(uint32(len(m.BVH))); err != nil {
		return nil, err
	}
	for _, n := range m.BVH {
		for _, c := range n.Children {
			fields := []any{
				c.AABB.Min, c.AABB.Max,
				c.LODSphere.Center, c.LODSphere.Radius,
				c.ParentError, c.Offset, c.Count,
			}
			for _, f := range fields {
				if err := w(f); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := w(uint32(m.BVHDepth)); err != nil {
		return nil, err
	}
	if err := w(m.AABB.Min); err != nil {
		return nil, err
	}
	if err := w(m.AABB.Max); err != nil {
		return nil, err
	}
	if err := w(m.MaterialUUID); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal reads the container format Marshal produces.
func Unmarshal(data []byte) (*Mesh, error) {
	r := bytes.NewReader(data)
	read := func(v any) error { return binary.Read(r, binary.LittleEndian, v) }
	newErr := func(reason string) error { return errors.New(packPrefix + reason) }

	m := &Mesh{}

	var nv uint32
	if err := read(&nv); err != nil {
		return nil, newErr("truncated vertex count")
	}
	m.Vertices = make([]Vertex, nv)
	for i := range m.Vertices {
		v := &m.Vertices[i]
		if err := read(&v.Position); err != nil {
			return nil, err
		}
		if err := read(&v.Normal); err != nil {
			return nil, err
		}
		if err := read(&v.UV); err != nil {
			return nil, err
		}
	}

	var ni uint32
	if err := read(&ni); err != nil {
		return nil, newErr("truncated index count")
	}
	m.Indices = make([]uint32, ni)
	if err := read(m.Indices); err != nil {
		return nil, err
	}

	var nm uint32
	if err := read(&nm); err != nil {
		return nil, newErr("truncated meshlet count")
	}
	m.Meshlets = make([]Meshlet, nm)
	for i := range m.Meshlets {
		ml := &m.Meshlets[i]
		var vOff, vCnt, iOff, tCnt uint32
		for _, f := range []*uint32{&vOff, &vCnt, &iOff, &tCnt} {
			if err := read(f); err != nil {
				return nil, err
			}
		}
		ml.VertOffset, ml.VertCount = int(vOff), int(vCnt)
		ml.IndexOffset, ml.TriCount = int(iOff), int(tCnt)
		for _, f := range []any{&ml.AABB.Min, &ml.AABB.Max, &ml.LODSphere.Center, &ml.LODSphere.Radius,
			&ml.Error, &ml.ParentError, &ml.MaxEdgeLength} {
			if err := read(f); err != nil {
				return nil, err
			}
		}
	}

	var nn uint32
	if err := read(&nn); err != nil {
		return nil, newErr("truncated bvh node count")
	}
	m.BVH = make([]BvhNode, nn)
	for i := range m.BVH {
		for c := range m.BVH[i].Children {
			child := &m.BVH[i].Children[c]
			for _, f := range []any{&child.AABB.Min, &child.AABB.Max, &child.LODSphere.Center,
				&child.LODSphere.Radius, &child.ParentError, &child.Offset, &child.Count} {
				if err := read(f); err != nil {
					return nil, err
				}
			}
		}
	}

	var depth uint32
	if err := read(&depth); err != nil {
		return nil, newErr("truncated bvh depth")
	}
	m.BVHDepth = int(depth)

	if err := read(&m.AABB.Min); err != nil {
		return nil, err
	}
	if err := read(&m.AABB.Max); err != nil {
		return nil, err
	}
	if err := read(&m.MaterialUUID); err != nil {
		return nil, err
	}

	if r.Len() != 0 {
		return nil, newErr("trailing data after material uuid")
	}
	return m, nil
}

func f32bits(f float32) uint32 { return math.Float32bits(f) }
