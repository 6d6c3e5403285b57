// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/shader"
)

func TestUniformLayout(t *testing.T) {
	pass := &ShaderPass{Uniforms: []UniformField{
		{"alpha", UniformFloat},
		{"tint", UniformVec4},
		{"uv", UniformMat4},
		{"cutoff", UniformFloat},
	}}
	tests := []struct {
		name string
		off  int
	}{
		{"alpha", 0},
		{"tint", 16},
		{"uv", 32},
		{"cutoff", 96},
	}
	for _, tt := range tests {
		off, _, ok := pass.uniformOffset(tt.name)
		if !ok || off != tt.off {
			t.Errorf("offset(%s) = %d, %v; want %d", tt.name, off, ok, tt.off)
		}
	}
	if _, _, ok := pass.uniformOffset("missing"); ok {
		t.Error("offset of unknown field")
	}
	if got := pass.UniformSize(); got != 112 {
		t.Errorf("UniformSize = %d, want 112", got)
	}
}

func readFloat(data []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}

func TestMaterialUpdateUniforms(t *testing.T) {
	dev := newMemDevice()
	d := newFakeDisplay(1, 1)
	d.dev = dev
	s := NewShader(d, "test", &ShaderPass{
		Name:    "p",
		Program: &shader.Program{},
		Uniforms: []UniformField{
			{"color", UniformVec4},
			{"scale", UniformFloat},
		},
	})
	m := NewMaterial(dev, s)
	m.SetColor("color", Color{0.25, 0.5, 0.75, 1})
	m.SetFloat("scale", 3)
	m.SetFloat("ignored", 9)

	if err := m.UpdateUniforms(0); err != nil {
		t.Fatalf("UpdateUniforms: %v", err)
	}
	buf := m.UniformBuffer(0)
	if buf == nil || buf.Size() != 32 {
		t.Fatalf("uniform buffer = %v", buf)
	}
	data, err := dev.MapMemory(buf.Memory(), 0, buf.Size())
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0.25, 0.5, 0.75, 1, 3}
	for i, f := range want {
		if got := readFloat(data, i*4); got != f {
			t.Errorf("float[%d] = %v, want %v", i, got, f)
		}
	}

	// Clean passes are not uploaded again.
	data[0] = 0xFF
	if err := m.UpdateUniforms(0); err != nil {
		t.Fatal(err)
	}
	if data[0] != 0xFF {
		t.Error("clean pass re-uploaded")
	}
	m.SetVector("color", mgl32.Vec4{1, 1, 1, 1})
	if err := m.UpdateUniforms(0); err != nil {
		t.Fatal(err)
	}
	if readFloat(data, 0) != 1 {
		t.Error("dirty pass not uploaded")
	}

	if err := m.UpdateUniforms(1); !errors.Is(err, ErrPassIndex) {
		t.Errorf("UpdateUniforms(1) = %v, want ErrPassIndex", err)
	}

	m.Destroy()
	if m.UniformBuffer(0) != nil {
		t.Error("buffer kept after Destroy")
	}
}

func TestMaterialProperties(t *testing.T) {
	d := newFakeDisplay(1, 1)
	s := NewShader(d, "test", &ShaderPass{Name: "p"})
	m := NewMaterial(d.dev, s)

	if c, ok := m.Color("color"); !ok || c != White {
		t.Errorf("default color = %v, %v", c, ok)
	}
	m.SetFloat("f", 2)
	if f, ok := m.Float("f"); !ok || f != 2 {
		t.Errorf("Float = %v, %v", f, ok)
	}
	if _, ok := m.Float("nope"); ok {
		t.Error("unknown property reported set")
	}
	if NewMaterial(d.dev, s).ID() == m.ID() {
		t.Error("material IDs collide")
	}
}

func TestShaderPassPrepareErrors(t *testing.T) {
	d := newFakeDisplay(1, 1)
	s := NewShader(d, "bare", &ShaderPass{Name: "p"})
	if err := s.PreparePass(0); !errors.Is(err, ErrNoProgram) {
		t.Errorf("PreparePass without program = %v, want ErrNoProgram", err)
	}
	if err := s.PreparePass(3); !errors.Is(err, ErrPassIndex) {
		t.Errorf("PreparePass(3) = %v, want ErrPassIndex", err)
	}
}

func TestShaderPassKeyChangesWithState(t *testing.T) {
	a := &ShaderPass{State: DefaultRenderState}
	b := &ShaderPass{State: DefaultRenderState}
	if a.Key() != b.Key() {
		t.Fatal("equal passes have different keys")
	}
	b.State.Blend = BlendAlpha
	if a.Key() == b.Key() {
		t.Error("blend mode not part of the key")
	}
	b = &ShaderPass{State: DefaultRenderState, Textured: true}
	if a.Key() == b.Key() {
		t.Error("textured flag not part of the key")
	}
}

func TestMeshUpdate(t *testing.T) {
	dev := newMemDevice()
	m := NewMesh(dev, true)
	if err := m.Update(); !errors.Is(err, ErrEmptyMesh) {
		t.Fatalf("empty Update = %v, want ErrEmptyMesh", err)
	}

	m.Vertices = []mgl32.Vec3{{-1, 0, 2}, {1, 3, 0}, {0, -2, 1}}
	m.Triangles = []uint16{0, 1, 2}
	if err := m.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	b := m.Bounds()
	if b.Min != (mgl32.Vec3{-1, -2, 0}) || b.Max != (mgl32.Vec3{1, 3, 2}) {
		t.Errorf("bounds = %+v", b)
	}
	if m.VertexBuffer().Size() != 3*VertexStride {
		t.Errorf("vertex buffer size = %d", m.VertexBuffer().Size())
	}
	vb := m.VertexBuffer()

	data, err := dev.MapMemory(vb.Memory(), 0, vb.Size())
	if err != nil {
		t.Fatal(err)
	}
	// Second vertex: position then default white color.
	if readFloat(data, VertexStride+VertexOffsetPosition+4) != 3 {
		t.Error("position not packed")
	}
	if readFloat(data, VertexStride+VertexOffsetColor+12) != 1 {
		t.Error("default color alpha not packed")
	}

	// Growing recreates the buffers; shrinking keeps them.
	m.Vertices = append(m.Vertices, mgl32.Vec3{0, 0, 0})
	m.Triangles = append(m.Triangles, 0, 2, 3)
	if err := m.Update(); err != nil {
		t.Fatal(err)
	}
	if m.VertexBuffer() == vb {
		t.Error("vertex buffer not recreated after growth")
	}
	vb = m.VertexBuffer()
	m.Vertices = m.Vertices[:3]
	m.Triangles = m.Triangles[:3]
	if err := m.Update(); err != nil {
		t.Fatal(err)
	}
	if m.VertexBuffer() != vb {
		t.Error("vertex buffer recreated after shrink")
	}

	m.Destroy()
	if m.VertexBuffer() != nil || len(dev.buffers) != 0 {
		t.Error("Destroy left buffers behind")
	}
}

func TestCubeMeshSubmesh(t *testing.T) {
	m, err := NewCubeMesh(newMemDevice(), 2, [6]Color{})
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Vertices) != 24 || m.SubmeshCount() != 1 {
		t.Fatalf("vertices = %d, submeshes = %d", len(m.Vertices), m.SubmeshCount())
	}
	if start, count := m.IndexRange(0); start != 0 || count != 36 {
		t.Errorf("IndexRange = %d, %d", start, count)
	}
	// Each face winds counter-clockwise around its outward normal.
	for f := 0; f < 6; f++ {
		i := m.Triangles[f*6:]
		a, b, c := m.Vertices[i[0]], m.Vertices[i[1]], m.Vertices[i[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Dot(m.Normals[i[0]]) <= 0 {
			t.Errorf("face %d wound clockwise", f)
		}
	}
	if m.Bounds().Max != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("bounds = %+v", m.Bounds())
	}
}
