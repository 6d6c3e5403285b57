// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/graphics"
)

// Texture errors.
var (
	// ErrUnknownTexture is returned for a handle the display did not create.
	ErrUnknownTexture = errors.New("native: unknown texture")

	// ErrTextureKind is returned when a depth texture is used as color or
	// the other way around.
	ErrTextureKind = errors.New("native: wrong texture kind for attachment")
)

// halFormat maps a graphics format to its HAL format.
func halFormat(f graphics.TextureFormat) gputypes.TextureFormat {
	switch f {
	case graphics.TextureFormatRGBA8:
		return gputypes.TextureFormatRGBA8Unorm
	case graphics.TextureFormatBGRA8:
		return gputypes.TextureFormatBGRA8Unorm
	case graphics.TextureFormatRGBA16F:
		return gputypes.TextureFormatRGBA16Float
	case graphics.TextureFormatDepth24Stencil8:
		return gputypes.TextureFormatDepth24PlusStencil8
	case graphics.TextureFormatDepth32F:
		return gputypes.TextureFormatDepth32Float
	default:
		return gputypes.TextureFormatUndefined
	}
}

// texture is a render target with its default view. Color targets also
// carry the bind group that samples them.
type texture struct {
	tex    hal.Texture
	view   hal.TextureView
	format graphics.TextureFormat
	width  int
	height int

	group hal.BindGroup
}

func newTexture(device hal.Device, label string, width, height int, format graphics.TextureFormat) (*texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", graphics.ErrInvalidSize, width, height)
	}
	usage := gputypes.TextureUsageRenderAttachment
	if !format.IsDepth() {
		usage |= gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	}
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              uint32(width),  //nolint:gosec // checked positive
			Height:             uint32(height), //nolint:gosec // checked positive
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        halFormat(format),
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create texture %q: %w", label, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("native: create texture view %q: %w", label, err)
	}
	return &texture{tex: tex, view: view, format: format, width: width, height: height}, nil
}

func (t *texture) destroy(device hal.Device) {
	if t.group != nil {
		device.DestroyBindGroup(t.group)
		t.group = nil
	}
	if t.view != nil {
		device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
		t.tex = nil
	}
}
