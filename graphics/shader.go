// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/gogpu/g3d/shader"
)

// BlendMode selects the color blend equation of a pass.
type BlendMode int

const (
	// BlendOpaque writes the source color.
	BlendOpaque BlendMode = iota
	// BlendAlpha is straight alpha blending.
	BlendAlpha
	// BlendPremultiplied is premultiplied alpha blending.
	BlendPremultiplied
	// BlendAdditive adds the source to the destination.
	BlendAdditive
)

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

// Render queues order draw calls within a camera.
const (
	QueueBackground  = 1000
	QueueGeometry    = 2000
	QueueTransparent = 3000
	QueueOverlay     = 4000
)

// RenderState is the fixed-function state of a shader pass.
type RenderState struct {
	Blend      BlendMode
	Cull       CullMode
	DepthTest  bool
	DepthWrite bool
	Queue      int
}

// DefaultRenderState is opaque geometry with depth testing.
var DefaultRenderState = RenderState{
	Blend:      BlendOpaque,
	Cull:       CullBack,
	DepthTest:  true,
	DepthWrite: true,
	Queue:      QueueGeometry,
}

// UniformType is the type of a material uniform field.
type UniformType int

const (
	UniformFloat UniformType = iota
	UniformVec4
	UniformMat4
)

func (t UniformType) layout() (size, align int) {
	switch t {
	case UniformFloat:
		return 4, 4
	case UniformVec4:
		return 16, 16
	case UniformMat4:
		return 64, 16
	default:
		panic(fmt.Sprintf("graphics: unknown uniform type %d", int(t)))
	}
}

// UniformField is one member of a pass's material uniform block.
type UniformField struct {
	Name string
	Type UniformType
}

// ShaderPass is one pipeline of a Shader.
type ShaderPass struct {
	Name    string
	Program *shader.Program
	State   RenderState

	// Uniforms is the material block layout in declaration order.
	Uniforms []UniformField

	// Textured passes sample a texture bound to GroupTexture.
	Textured bool
}

// Key identifies the pipeline built from the pass. It changes when the
// program is reloaded.
func (p *ShaderPass) Key() uint64 {
	var buf [40]byte
	key := uint64(0)
	version := uint64(0)
	if p.Program != nil {
		key = p.Program.Key()
		version = p.Program.Version()
	}
	putUint64(buf[0:], key)
	putUint64(buf[8:], version)
	putUint64(buf[16:], uint64(p.State.Blend)|uint64(p.State.Cull)<<8)
	var flags uint64
	if p.State.DepthTest {
		flags |= 1
	}
	if p.State.DepthWrite {
		flags |= 2
	}
	if p.Textured {
		flags |= 4
	}
	putUint64(buf[24:], flags)
	putUint64(buf[32:], uint64(len(p.Uniforms)))
	return xxhash.Sum64(buf[:])
}

// UniformSize returns the size of the material block, rounded to 16 bytes.
func (p *ShaderPass) UniformSize() int {
	size := 0
	for _, f := range p.Uniforms {
		s, a := f.Type.layout()
		size = alignUp(size, a) + s
	}
	return alignUp(size, 16)
}

// uniformOffset returns the byte offset of the named field.
func (p *ShaderPass) uniformOffset(name string) (offset int, typ UniformType, ok bool) {
	for _, f := range p.Uniforms {
		s, a := f.Type.layout()
		offset = alignUp(offset, a)
		if f.Name == name {
			return offset, f.Type, true
		}
		offset += s
	}
	return 0, 0, false
}

func alignUp(v, a int) int { return (v + a - 1) &^ (a - 1) }

func putUint64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }

// Shader is an ordered list of passes drawn for every submesh that uses it.
type Shader struct {
	Name   string
	Passes []*ShaderPass

	display Display
	active  int
}

// NewShader creates a shader whose pipelines live on display.
func NewShader(display Display, name string, passes ...*ShaderPass) *Shader {
	return &Shader{Name: name, Passes: passes, display: display, active: -1}
}

// PassCount returns the number of passes.
func (s *Shader) PassCount() int { return len(s.Passes) }

// Pass returns pass i.
func (s *Shader) Pass(i int) *ShaderPass { return s.Passes[i] }

// Queue returns the render queue of the first pass.
func (s *Shader) Queue() int {
	if len(s.Passes) == 0 {
		return QueueGeometry
	}
	return s.Passes[0].State.Queue
}

// PreparePass builds the GPU objects of pass i.
func (s *Shader) PreparePass(i int) error {
	if i < 0 || i >= len(s.Passes) {
		return fmt.Errorf("%w: %s[%d]", ErrPassIndex, s.Name, i)
	}
	pass := s.Passes[i]
	if pass.Program == nil {
		return fmt.Errorf("%w: %s[%d]", ErrNoProgram, s.Name, i)
	}
	return s.display.PreparePipeline(pass)
}

// BeginPass binds the pipeline of pass i on rp.
func (s *Shader) BeginPass(rp *RenderPass, i int) error {
	if i < 0 || i >= len(s.Passes) {
		return fmt.Errorf("%w: %s[%d]", ErrPassIndex, s.Name, i)
	}
	if err := rp.BindPipeline(s.Passes[i]); err != nil {
		return fmt.Errorf("graphics: bind %s[%d]: %w", s.Name, i, err)
	}
	s.active = i
	return nil
}

// EndPass closes pass i.
func (s *Shader) EndPass(i int) {
	if s.active == i {
		s.active = -1
	}
}

// ActivePass returns the pass between BeginPass and EndPass, or -1.
func (s *Shader) ActivePass() int { return s.active }

// NewUnlitShader returns the builtin unlit shader.
func NewUnlitShader(display Display, lib *shader.Library) (*Shader, error) {
	prog, err := lib.Load(shader.Unlit)
	if err != nil {
		return nil, err
	}
	return NewShader(display, shader.Unlit, &ShaderPass{
		Name:     "forward",
		Program:  prog,
		State:    DefaultRenderState,
		Uniforms: []UniformField{{Name: "color", Type: UniformVec4}},
	}), nil
}

// NewBlitShader returns the builtin full-screen copy shader.
func NewBlitShader(display Display, lib *shader.Library) (*Shader, error) {
	prog, err := lib.Load(shader.Blit)
	if err != nil {
		return nil, err
	}
	return NewShader(display, shader.Blit, &ShaderPass{
		Name:    "blit",
		Program: prog,
		State: RenderState{
			Blend: BlendOpaque,
			Cull:  CullNone,
			Queue: QueueOverlay,
		},
		Uniforms: []UniformField{{Name: "color", Type: UniformVec4}},
		Textured: true,
	}), nil
}
