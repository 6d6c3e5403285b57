// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/gpu"
	"github.com/gogpu/g3d/world"
)

// Vertex layout shared by every shader: position (vec3), uv (vec2),
// color (vec4), normal (vec3), tightly packed.
const (
	VertexStride = (3 + 2 + 4 + 3) * 4

	VertexOffsetPosition = 0
	VertexOffsetUV       = 12
	VertexOffsetColor    = 20
	VertexOffsetNormal   = 36
)

// ErrEmptyMesh is returned by Mesh.Update without vertices or triangles.
var ErrEmptyMesh = errors.New("graphics: mesh has no vertices or triangles")

// Submesh is a range of the index buffer drawn with one material.
type Submesh struct {
	Start int
	Count int
}

// Mesh is indexed triangle geometry uploaded to a vertex and an index buffer.
//
// Fill the exported slices, then call Update. Optional attributes may be
// left empty; missing colors default to white. Without Submeshes the whole
// index buffer is one submesh.
type Mesh struct {
	Vertices  []mgl32.Vec3
	UV        []mgl32.Vec2
	Colors    []Color
	Normals   []mgl32.Vec3
	Triangles []uint16
	Submeshes []Submesh

	device  gpu.Device
	dynamic bool
	vb, ib  *gpu.Buffer
	bounds  world.Bounds
}

// NewMesh creates an empty mesh. Dynamic meshes may change vertex and
// index counts between updates.
func NewMesh(dev gpu.Device, dynamic bool) *Mesh {
	return &Mesh{device: dev, dynamic: dynamic}
}

// VertexBuffer returns the uploaded vertex buffer, or nil.
func (m *Mesh) VertexBuffer() *gpu.Buffer { return m.vb }

// IndexBuffer returns the uploaded index buffer, or nil.
func (m *Mesh) IndexBuffer() *gpu.Buffer { return m.ib }

// Bounds returns the bounding box computed by the last Update.
func (m *Mesh) Bounds() world.Bounds { return m.bounds }

// SubmeshCount returns the number of submeshes.
func (m *Mesh) SubmeshCount() int {
	if len(m.Submeshes) == 0 {
		return 1
	}
	return len(m.Submeshes)
}

// IndexRange returns the index range of a submesh.
func (m *Mesh) IndexRange(submesh int) (start, count int) {
	if len(m.Submeshes) == 0 {
		return 0, len(m.Triangles)
	}
	s := m.Submeshes[submesh]
	return s.Start, s.Count
}

// Update recomputes the bounds and uploads vertices and indices.
func (m *Mesh) Update() error {
	if len(m.Vertices) == 0 || len(m.Triangles) == 0 {
		return ErrEmptyMesh
	}
	m.bounds = computeBounds(m.Vertices)

	vsize := uint64(len(m.Vertices) * VertexStride)
	isize := uint64(alignUp(len(m.Triangles)*2, 4))

	var err error
	if m.vb, err = m.ensure(m.vb, gpu.BufferTypeVertex, vsize, "mesh vertices"); err != nil {
		return err
	}
	if m.ib, err = m.ensure(m.ib, gpu.BufferTypeIndex, isize, "mesh indices"); err != nil {
		return err
	}

	if err := m.vb.Fill(m.writeVertices); err != nil {
		return fmt.Errorf("graphics: upload vertices: %w", err)
	}
	if err := m.ib.Fill(func(data []byte) {
		for i, idx := range m.Triangles {
			binary.LittleEndian.PutUint16(data[i*2:], idx)
		}
	}); err != nil {
		return fmt.Errorf("graphics: upload indices: %w", err)
	}
	return nil
}

// ensure returns a buffer of at least size bytes, recreating buf when it
// is too small.
func (m *Mesh) ensure(buf *gpu.Buffer, typ gpu.BufferType, size uint64, label string) (*gpu.Buffer, error) {
	if buf != nil && buf.Size() >= size {
		return buf, nil
	}
	if buf != nil {
		if !m.dynamic {
			slogger().Debug("graphics: static mesh grew, recreating buffer", "label", label)
		}
		if err := buf.Destroy(); err != nil {
			return nil, err
		}
	}
	buf = gpu.NewBuffer(m.device)
	buf.SetLabel(label)
	if err := buf.Create(typ, size, m.dynamic); err != nil {
		return nil, err
	}
	return buf, nil
}

func (m *Mesh) writeVertices(data []byte) {
	put := func(off int, f float32) {
		binary.LittleEndian.PutUint32(data[off:], math.Float32bits(f))
	}
	for i, p := range m.Vertices {
		base := i * VertexStride
		put(base+VertexOffsetPosition, p[0])
		put(base+VertexOffsetPosition+4, p[1])
		put(base+VertexOffsetPosition+8, p[2])

		var uv mgl32.Vec2
		if i < len(m.UV) {
			uv = m.UV[i]
		}
		put(base+VertexOffsetUV, uv[0])
		put(base+VertexOffsetUV+4, uv[1])

		c := White
		if i < len(m.Colors) {
			c = m.Colors[i]
		}
		put(base+VertexOffsetColor, c.R)
		put(base+VertexOffsetColor+4, c.G)
		put(base+VertexOffsetColor+8, c.B)
		put(base+VertexOffsetColor+12, c.A)

		var n mgl32.Vec3
		if i < len(m.Normals) {
			n = m.Normals[i]
		}
		put(base+VertexOffsetNormal, n[0])
		put(base+VertexOffsetNormal+4, n[1])
		put(base+VertexOffsetNormal+8, n[2])
	}
}

func computeBounds(vs []mgl32.Vec3) world.Bounds {
	b := world.Bounds{Min: vs[0], Max: vs[0]}
	for _, v := range vs[1:] {
		for k := 0; k < 3; k++ {
			b.Min[k] = min(b.Min[k], v[k])
			b.Max[k] = max(b.Max[k], v[k])
		}
	}
	return b
}

// Destroy releases the buffers.
func (m *Mesh) Destroy() {
	for _, buf := range []*gpu.Buffer{m.vb, m.ib} {
		if buf == nil {
			continue
		}
		if err := buf.Destroy(); err != nil {
			slogger().Warn("graphics: destroy mesh buffer", "err", err)
		}
	}
	m.vb, m.ib = nil, nil
}

// NewQuadMesh returns a quad spanning [-1, 1] on X and Y at Z = 0, with UV
// origin at the top left.
func NewQuadMesh(dev gpu.Device) (*Mesh, error) {
	m := NewMesh(dev, false)
	m.Vertices = []mgl32.Vec3{{-1, 1, 0}, {-1, -1, 0}, {1, -1, 0}, {1, 1, 0}}
	m.UV = []mgl32.Vec2{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
	m.Normals = []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	m.Triangles = []uint16{0, 1, 2, 0, 2, 3}
	if err := m.Update(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewCubeMesh returns an axis-aligned cube of the given edge size with one
// color per face, wound counter-clockwise seen from outside.
func NewCubeMesh(dev gpu.Device, size float32, faceColors [6]Color) (*Mesh, error) {
	h := size / 2
	faces := [6]struct {
		normal mgl32.Vec3
		corner [4]mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{h, h, -h}, {h, -h, -h}, {h, -h, h}, {h, h, h}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-h, h, h}, {-h, -h, h}, {-h, -h, -h}, {-h, h, -h}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-h, h, h}, {-h, h, -h}, {h, h, -h}, {h, h, h}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-h, -h, -h}, {-h, -h, h}, {h, -h, h}, {h, -h, -h}}},
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{h, h, h}, {h, -h, h}, {-h, -h, h}, {-h, h, h}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{-h, h, -h}, {-h, -h, -h}, {h, -h, -h}, {h, h, -h}}},
	}
	m := NewMesh(dev, false)
	for i, f := range faces {
		base := uint16(len(m.Vertices))
		for _, c := range f.corner {
			m.Vertices = append(m.Vertices, c)
			m.Normals = append(m.Normals, f.normal)
			m.Colors = append(m.Colors, faceColors[i])
		}
		m.UV = append(m.UV, mgl32.Vec2{0, 0}, mgl32.Vec2{0, 1}, mgl32.Vec2{1, 1}, mgl32.Vec2{1, 0})
		m.Triangles = append(m.Triangles, base, base+2, base+1, base, base+3, base+2)
	}
	if err := m.Update(); err != nil {
		return nil, err
	}
	return m, nil
}
