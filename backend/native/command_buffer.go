// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/gpu"
	"github.com/gogpu/g3d/graphics"
)

// ErrCommandBufferEnded is returned when recording into a finished
// command buffer.
var ErrCommandBufferEnded = errors.New("native: command buffer already ended")

// commandBuffer records one render pass into a HAL command encoder.
type commandBuffer struct {
	display *Display
	label   string

	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	cmd     hal.CommandBuffer

	color gputypes.TextureFormat
	depth gputypes.TextureFormat

	pipeline hal.RenderPipeline
}

var _ graphics.CommandBuffer = (*commandBuffer)(nil)

// loadOp returns the load operation for an attachment.
func loadOp(clear bool) gputypes.LoadOp {
	if clear {
		return gputypes.LoadOpClear
	}
	return gputypes.LoadOpLoad
}

func beginCommandBuffer(d *Display, desc *graphics.PassDescriptor, color, depth *texture) (*commandBuffer, error) {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: desc.Label})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(desc.Label); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}

	rpDesc := &hal.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    color.view,
			LoadOp:  loadOp(desc.Clear.Has(graphics.ClearFlagsColor)),
			StoreOp: gputypes.StoreOpStore,
			ClearValue: gputypes.Color{
				R: float64(desc.ClearColor.R),
				G: float64(desc.ClearColor.G),
				B: float64(desc.ClearColor.B),
				A: float64(desc.ClearColor.A),
			},
		}},
	}
	cb := &commandBuffer{
		display: d,
		label:   desc.Label,
		encoder: encoder,
		color:   halFormat(color.format),
		depth:   gputypes.TextureFormatUndefined,
	}
	if depth != nil {
		clearDepth := desc.Clear.Has(graphics.ClearFlagsDepth)
		rpDesc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              depth.view,
			DepthLoadOp:       loadOp(clearDepth),
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   desc.ClearDepth,
			StencilLoadOp:     loadOp(clearDepth),
			StencilStoreOp:    gputypes.StoreOpStore,
			StencilClearValue: 0,
		}
		cb.depth = halFormat(depth.format)
	}

	cb.pass = encoder.BeginRenderPass(rpDesc)
	d.bindings.bindPlaceholders(cb.pass)
	return cb, nil
}

func (cb *commandBuffer) recording() error {
	if cb.pass == nil {
		return fmt.Errorf("%w: %q", ErrCommandBufferEnded, cb.label)
	}
	return nil
}

// BindPipeline binds the cached pipeline of pass for this buffer's
// attachment formats.
func (cb *commandBuffer) BindPipeline(pass *graphics.ShaderPass) error {
	if err := cb.recording(); err != nil {
		return err
	}
	p, err := cb.display.pipelines.GetOrCreate(pass, cb.color, cb.depth)
	if err != nil {
		return err
	}
	if p != cb.pipeline {
		cb.pass.SetPipeline(p)
		cb.pipeline = p
	}
	return nil
}

// BindUniform binds buf to one of the uniform groups.
func (cb *commandBuffer) BindUniform(group int, buf *gpu.Buffer) error {
	if err := cb.recording(); err != nil {
		return err
	}
	if group < graphics.GroupCamera || group > graphics.GroupMaterial {
		return fmt.Errorf("native: group %d is not a uniform group", group)
	}
	if buf == nil || !buf.Created() {
		return fmt.Errorf("native: bind group %d: %w", group, gpu.ErrBufferNotCreated)
	}
	bg, err := cb.display.bindings.uniformGroup(buf.Handle())
	if err != nil {
		return err
	}
	cb.pass.SetBindGroup(uint32(group), bg, nil) //nolint:gosec // checked range
	return nil
}

// BindTexture binds a display texture to the texture group.
func (cb *commandBuffer) BindTexture(group int, h graphics.TextureHandle) error {
	if err := cb.recording(); err != nil {
		return err
	}
	if group != graphics.GroupTexture {
		return fmt.Errorf("native: group %d is not a texture group", group)
	}
	t, ok := cb.display.texture(h)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTexture, h)
	}
	bg, err := cb.display.bindings.textureGroup(t)
	if err != nil {
		return err
	}
	cb.pass.SetBindGroup(graphics.GroupTexture, bg, nil)
	return nil
}

// BindVertexBuffer binds interleaved vertices to slot 0.
func (cb *commandBuffer) BindVertexBuffer(buf *gpu.Buffer) {
	if cb.pass == nil || buf == nil {
		return
	}
	if hb, _, ok := cb.display.dev.halBuffer(buf.Handle()); ok {
		cb.pass.SetVertexBuffer(0, hb, 0)
	}
}

// BindIndexBuffer binds 16-bit indices.
func (cb *commandBuffer) BindIndexBuffer(buf *gpu.Buffer) {
	if cb.pass == nil || buf == nil {
		return
	}
	if hb, _, ok := cb.display.dev.halBuffer(buf.Handle()); ok {
		cb.pass.SetIndexBuffer(hb, gputypes.IndexFormatUint16, 0)
	}
}

// BindVertexArray binds vertex and index buffers together.
func (cb *commandBuffer) BindVertexArray(vertex, index *gpu.Buffer) {
	cb.BindVertexBuffer(vertex)
	cb.BindIndexBuffer(index)
}

// SetViewport sets the pixel viewport with the full depth range.
func (cb *commandBuffer) SetViewport(x, y, width, height int) {
	if cb.pass == nil {
		return
	}
	cb.pass.SetViewport(float32(x), float32(y), float32(width), float32(height), 0, 1)
}

// DrawIndexed draws count indices starting at start.
func (cb *commandBuffer) DrawIndexed(start, count int) {
	if cb.pass == nil || count <= 0 {
		return
	}
	cb.pass.DrawIndexed(uint32(count), 1, uint32(start), 0, 0) //nolint:gosec // index ranges fit uint32
}

// End finishes the render pass and the encoder.
func (cb *commandBuffer) End() error {
	if err := cb.recording(); err != nil {
		return err
	}
	cb.pass.End()
	cb.pass = nil
	cmd, err := cb.encoder.EndEncoding()
	if err != nil {
		cb.encoder.DiscardEncoding()
		return fmt.Errorf("native: end encoding %q: %w", cb.label, err)
	}
	cb.cmd = cmd
	return nil
}

// take hands the finished HAL command buffer over to the caller.
func (cb *commandBuffer) take() (hal.CommandBuffer, bool) {
	cmd := cb.cmd
	cb.cmd = nil
	return cmd, cmd != nil
}
