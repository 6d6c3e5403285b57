// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/gpu"
)

var materialIDs atomic.Uint64

// Material binds a Shader to a set of property values.
//
// Each shader pass gets its own uniform buffer laid out by the pass's
// Uniforms. Setting a property marks every pass dirty; UpdateUniforms
// uploads a dirty pass with Buffer.UpdateRange.
type Material struct {
	id     uint64
	shader *Shader
	device gpu.Device

	values  map[string][16]float32
	texture *RenderTexture

	buffers []*gpu.Buffer
	dirty   []bool
}

// NewMaterial creates a material for s. Uniform buffers are created on dev
// when first uploaded.
func NewMaterial(dev gpu.Device, s *Shader) *Material {
	m := &Material{
		id:      materialIDs.Add(1),
		shader:  s,
		device:  dev,
		values:  make(map[string][16]float32),
		buffers: make([]*gpu.Buffer, s.PassCount()),
		dirty:   make([]bool, s.PassCount()),
	}
	m.SetColor("color", White)
	return m
}

// ID is unique per material and orders draw calls.
func (m *Material) ID() uint64 { return m.id }

// Shader returns the material's shader.
func (m *Material) Shader() *Shader { return m.shader }

func (m *Material) set(name string, v [16]float32) {
	m.values[name] = v
	for i := range m.dirty {
		m.dirty[i] = true
	}
}

// SetFloat sets a float property.
func (m *Material) SetFloat(name string, f float32) {
	m.set(name, [16]float32{f})
}

// SetVector sets a vec4 property.
func (m *Material) SetVector(name string, v mgl32.Vec4) {
	m.set(name, [16]float32{v[0], v[1], v[2], v[3]})
}

// SetColor sets a vec4 property from a color.
func (m *Material) SetColor(name string, c Color) {
	m.set(name, [16]float32{c.R, c.G, c.B, c.A})
}

// SetMatrix sets a mat4 property.
func (m *Material) SetMatrix(name string, mat mgl32.Mat4) {
	m.set(name, mat)
}

// Float returns a float property.
func (m *Material) Float(name string) (float32, bool) {
	v, ok := m.values[name]
	return v[0], ok
}

// Color returns a vec4 property as a color.
func (m *Material) Color(name string) (Color, bool) {
	v, ok := m.values[name]
	return Color{v[0], v[1], v[2], v[3]}, ok
}

// SetTexture sets the texture sampled by textured passes.
func (m *Material) SetTexture(t *RenderTexture) { m.texture = t }

// Texture returns the sampled texture, or nil.
func (m *Material) Texture() *RenderTexture { return m.texture }

// UniformBuffer returns the uniform buffer of a pass, or nil before the
// first upload.
func (m *Material) UniformBuffer(pass int) *gpu.Buffer { return m.buffers[pass] }

// UpdateUniforms uploads the property block of pass if it changed.
func (m *Material) UpdateUniforms(pass int) error {
	if pass < 0 || pass >= m.shader.PassCount() {
		return fmt.Errorf("%w: %s[%d]", ErrPassIndex, m.shader.Name, pass)
	}
	sp := m.shader.Pass(pass)
	size := sp.UniformSize()
	if size == 0 {
		return nil
	}

	buf := m.buffers[pass]
	if buf == nil {
		buf = gpu.NewBuffer(m.device)
		buf.SetLabel(fmt.Sprintf("material:%s[%d]", m.shader.Name, pass))
		if err := buf.Create(gpu.BufferTypeUniform, uint64(size), true); err != nil {
			return err
		}
		m.buffers[pass] = buf
		m.dirty[pass] = true
	}
	if !m.dirty[pass] {
		return nil
	}

	data := make([]byte, size)
	for name, v := range m.values {
		off, typ, ok := sp.uniformOffset(name)
		if !ok {
			continue
		}
		n, _ := typ.layout()
		for i := 0; i < n/4; i++ {
			binary.LittleEndian.PutUint32(data[off+i*4:], math.Float32bits(v[i]))
		}
	}
	if err := buf.UpdateRange(0, data); err != nil {
		return err
	}
	m.dirty[pass] = false
	return nil
}

// Bind binds the material's uniform buffer and texture for pass.
func (m *Material) Bind(b Binder, pass int) error {
	if buf := m.buffers[pass]; buf != nil {
		if err := b.BindUniform(GroupMaterial, buf); err != nil {
			return err
		}
	}
	if m.shader.Pass(pass).Textured && m.texture != nil {
		if err := b.BindTexture(GroupTexture, m.texture.Handle()); err != nil {
			return err
		}
	}
	return nil
}

// Destroy releases the uniform buffers.
func (m *Material) Destroy() {
	for i, buf := range m.buffers {
		if buf != nil {
			if err := buf.Destroy(); err != nil {
				slogger().Warn("graphics: destroy material buffer", "shader", m.shader.Name, "err", err)
			}
			m.buffers[i] = nil
		}
	}
}
