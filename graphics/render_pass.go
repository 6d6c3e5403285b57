// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"fmt"

	"github.com/gogpu/g3d/gpu"
)

// RenderPassState represents the state of a render pass.
type RenderPassState int

const (
	// RenderPassStateIdle means the pass has not begun or has been reset.
	RenderPassStateIdle RenderPassState = iota

	// RenderPassStateRecording means the pass is recording commands.
	RenderPassStateRecording

	// RenderPassStateEnded means End was called; the command buffer is ready
	// to submit.
	RenderPassStateEnded
)

// String returns the string representation of RenderPassState.
func (s RenderPassState) String() string {
	switch s {
	case RenderPassStateIdle:
		return "Idle"
	case RenderPassStateRecording:
		return "Recording"
	case RenderPassStateEnded:
		return "Ended"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// RenderPass renders into a render texture or the display back buffer.
//
// A pass can be reused: Begin opens a new command buffer each time.
//
// State Machine:
//
//	Idle/Ended -> Begin() -> Recording -> End() -> Ended
type RenderPass struct {
	display Display
	color   *RenderTexture
	depth   *RenderTexture
	clear   ClearFlags
	rect    Rect

	state RenderPassState
	cb    CommandBuffer
}

// NewRenderPass creates a pass. A nil color renders to the back buffer.
func NewRenderPass(display Display, color, depth *RenderTexture, clear ClearFlags, rect Rect) *RenderPass {
	return &RenderPass{
		display: display,
		color:   color,
		depth:   depth,
		clear:   clear,
		rect:    rect,
	}
}

// State returns the current pass state.
func (p *RenderPass) State() RenderPassState { return p.state }

// Color returns the color target, or nil for the back buffer.
func (p *RenderPass) Color() *RenderTexture { return p.color }

// Depth returns the depth target, or nil.
func (p *RenderPass) Depth() *RenderTexture { return p.depth }

// Width returns the current width of the target in pixels.
func (p *RenderPass) Width() int {
	if p.color != nil {
		return p.color.Width()
	}
	return p.display.Width()
}

// Height returns the current height of the target in pixels.
func (p *RenderPass) Height() int {
	if p.color != nil {
		return p.color.Height()
	}
	return p.display.Height()
}

// Begin opens a command buffer for the pass and sets the viewport.
func (p *RenderPass) Begin(clearColor Color) error {
	if p.state == RenderPassStateRecording {
		return ErrPassRecording
	}
	desc := &PassDescriptor{
		Color:      p.color.Handle(),
		Depth:      p.depth.Handle(),
		Clear:      p.clear,
		ClearColor: clearColor,
		ClearDepth: 1,
	}
	if p.color != nil {
		desc.Label = p.color.label
	}
	cb, err := p.display.BeginCommandBuffer(desc)
	if err != nil {
		return fmt.Errorf("graphics: begin render pass: %w", err)
	}
	p.cb = cb
	p.state = RenderPassStateRecording

	x, y, w, h := p.rect.Pixels(p.Width(), p.Height())
	cb.SetViewport(x, y, w, h)
	return nil
}

// End finishes recording.
func (p *RenderPass) End() error {
	if err := p.checkRecording(); err != nil {
		return err
	}
	p.state = RenderPassStateEnded
	return p.cb.End()
}

// CommandBuffer returns the buffer recorded by the last Begin/End.
func (p *RenderPass) CommandBuffer() CommandBuffer { return p.cb }

func (p *RenderPass) checkRecording() error {
	if p.state != RenderPassStateRecording {
		return ErrPassNotRecording
	}
	return nil
}

// SetViewport overrides the pixel viewport.
func (p *RenderPass) SetViewport(x, y, width, height int) error {
	if err := p.checkRecording(); err != nil {
		return err
	}
	p.cb.SetViewport(x, y, width, height)
	return nil
}

// BindPipeline binds the pipeline of a shader pass.
func (p *RenderPass) BindPipeline(pass *ShaderPass) error {
	if err := p.checkRecording(); err != nil {
		return err
	}
	return p.cb.BindPipeline(pass)
}

// BindUniform binds a uniform buffer to a bind group slot.
func (p *RenderPass) BindUniform(group int, buf *gpu.Buffer) error {
	if err := p.checkRecording(); err != nil {
		return err
	}
	return p.cb.BindUniform(group, buf)
}

// BindTexture binds a texture to a bind group slot.
func (p *RenderPass) BindTexture(group int, tex TextureHandle) error {
	if err := p.checkRecording(); err != nil {
		return err
	}
	return p.cb.BindTexture(group, tex)
}

// BindVertexArray binds vertex and index data.
func (p *RenderPass) BindVertexArray(vertex, index *gpu.Buffer) error {
	if err := p.checkRecording(); err != nil {
		return err
	}
	p.cb.BindVertexArray(vertex, index)
	return nil
}

// DrawIndexed draws count indices starting at start.
func (p *RenderPass) DrawIndexed(start, count int) error {
	if err := p.checkRecording(); err != nil {
		return err
	}
	p.cb.DrawIndexed(start, count)
	return nil
}
