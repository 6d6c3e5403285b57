// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/gpu"
	"github.com/gogpu/g3d/graphics"
)

// bindings owns the fixed pipeline layout shared by every shader:
//
//	group 0: camera uniform
//	group 1: object uniform
//	group 2: material uniform
//	group 3: texture and sampler
//
// Uniform bind groups are cached per buffer and dropped when the buffer
// is destroyed. Placeholder groups keep unused slots valid.
type bindings struct {
	device hal.Device
	dev    *Device

	uniformLayout hal.BindGroupLayout
	textureLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	sampler       hal.Sampler

	placeholderBuf     gpu.BufferHandle
	placeholderUniform hal.BindGroup
	placeholderTexture *texture

	mu       sync.Mutex
	uniforms map[gpu.BufferHandle]hal.BindGroup
}

const placeholderUniformSize = 256

func newBindings(dev *Device) (*bindings, error) {
	device, _ := dev.HAL()
	b := &bindings{
		device:   device,
		dev:      dev,
		uniforms: make(map[gpu.BufferHandle]hal.BindGroup),
	}
	if err := b.create(); err != nil {
		b.destroy()
		return nil, err
	}
	dev.OnDestroyBuffer(b.forget)
	return b, nil
}

func (b *bindings) create() error {
	var err error
	b.uniformLayout, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "g3d_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}},
	})
	if err != nil {
		return fmt.Errorf("native: create uniform layout: %w", err)
	}

	b.textureLayout, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "g3d_texture_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("native: create texture layout: %w", err)
	}

	b.pipeLayout, err = b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "g3d_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{
			b.uniformLayout, b.uniformLayout, b.uniformLayout, b.textureLayout,
		},
	})
	if err != nil {
		return fmt.Errorf("native: create pipeline layout: %w", err)
	}

	b.sampler, err = b.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "g3d_linear_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("native: create sampler: %w", err)
	}

	b.placeholderBuf, err = b.dev.CreateBuffer(&gpu.BufferDescriptor{
		Label: "g3d_placeholder_uniform",
		Size:  placeholderUniformSize,
		Type:  gpu.BufferTypeUniform,
	})
	if err != nil {
		return err
	}
	b.placeholderUniform, err = b.uniformGroup(b.placeholderBuf)
	if err != nil {
		return err
	}

	b.placeholderTexture, err = newTexture(b.device, "g3d_placeholder_texture", 1, 1, graphics.TextureFormatRGBA8)
	if err != nil {
		return err
	}
	if _, err := b.textureGroup(b.placeholderTexture); err != nil {
		return err
	}
	return nil
}

// uniformGroup returns the cached bind group of a uniform buffer.
func (b *bindings) uniformGroup(h gpu.BufferHandle) (hal.BindGroup, error) {
	b.mu.Lock()
	bg, ok := b.uniforms[h]
	b.mu.Unlock()
	if ok {
		return bg, nil
	}

	buf, size, ok := b.dev.halBuffer(h)
	if !ok {
		return nil, fmt.Errorf("%w: uniform buffer %d", gpu.ErrInvalidHandle, h)
	}
	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "g3d_uniform_bind",
		Layout: b.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(), Offset: 0, Size: size,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create uniform bind group: %w", err)
	}

	b.mu.Lock()
	b.uniforms[h] = bg
	b.mu.Unlock()
	return bg, nil
}

// textureGroup returns the bind group sampling t, creating it on first use.
func (b *bindings) textureGroup(t *texture) (hal.BindGroup, error) {
	if t.group != nil {
		return t.group, nil
	}
	if t.format.IsDepth() {
		return nil, fmt.Errorf("%w: cannot sample %s", ErrTextureKind, t.format)
	}
	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "g3d_texture_bind",
		Layout: b.textureLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: b.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create texture bind group: %w", err)
	}
	t.group = bg
	return bg, nil
}

// forget drops the bind group of a destroyed buffer.
func (b *bindings) forget(h gpu.BufferHandle) {
	b.mu.Lock()
	bg, ok := b.uniforms[h]
	delete(b.uniforms, h)
	b.mu.Unlock()
	if ok {
		b.device.DestroyBindGroup(bg)
	}
}

// bindPlaceholders fills every group with a valid binding.
func (b *bindings) bindPlaceholders(rp hal.RenderPassEncoder) {
	for g := graphics.GroupCamera; g <= graphics.GroupMaterial; g++ {
		rp.SetBindGroup(uint32(g), b.placeholderUniform, nil) //nolint:gosec // group index is 0..2
	}
	rp.SetBindGroup(graphics.GroupTexture, b.placeholderTexture.group, nil)
}

func (b *bindings) destroy() {
	b.mu.Lock()
	groups := b.uniforms
	b.uniforms = make(map[gpu.BufferHandle]hal.BindGroup)
	b.mu.Unlock()
	for _, bg := range groups {
		b.device.DestroyBindGroup(bg)
	}
	b.placeholderUniform = nil
	if b.placeholderBuf != gpu.InvalidHandle {
		b.dev.DestroyBuffer(b.placeholderBuf)
		b.placeholderBuf = gpu.InvalidHandle
	}
	if b.placeholderTexture != nil {
		b.placeholderTexture.destroy(b.device)
		b.placeholderTexture = nil
	}
	if b.sampler != nil {
		b.device.DestroySampler(b.sampler)
		b.sampler = nil
	}
	if b.pipeLayout != nil {
		b.device.DestroyPipelineLayout(b.pipeLayout)
		b.pipeLayout = nil
	}
	if b.textureLayout != nil {
		b.device.DestroyBindGroupLayout(b.textureLayout)
		b.textureLayout = nil
	}
	if b.uniformLayout != nil {
		b.device.DestroyBindGroupLayout(b.uniformLayout)
		b.uniformLayout = nil
	}
}
