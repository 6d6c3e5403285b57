// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"fmt"
	"sync"
)

// RenderTexture is an offscreen color or depth target owned by a Display.
type RenderTexture struct {
	display Display
	label   string
	width   int
	height  int
	format  TextureFormat
	handle  TextureHandle
}

// NewRenderTexture creates a width x height texture on d.
func NewRenderTexture(d Display, label string, width, height int, format TextureFormat) (*RenderTexture, error) {
	t := &RenderTexture{display: d, label: label, format: format}
	if err := t.create(width, height); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *RenderTexture) create(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	h, err := t.display.CreateTexture(&TextureDescriptor{
		Label:  t.label,
		Width:  width,
		Height: height,
		Format: t.format,
	})
	if err != nil {
		return fmt.Errorf("graphics: create render texture %q: %w", t.label, err)
	}
	t.handle = h
	t.width = width
	t.height = height
	return nil
}

// Width returns the texture width in pixels.
func (t *RenderTexture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *RenderTexture) Height() int { return t.height }

// Format returns the pixel format.
func (t *RenderTexture) Format() TextureFormat { return t.format }

// Handle returns the display texture handle, or zero after Destroy.
func (t *RenderTexture) Handle() TextureHandle {
	if t == nil {
		return 0
	}
	return t.handle
}

// Resize recreates the texture at a new size. Contents are lost.
func (t *RenderTexture) Resize(width, height int) error {
	if width == t.width && height == t.height && t.handle != 0 {
		return nil
	}
	t.Destroy()
	return t.create(width, height)
}

// Destroy releases the texture. Safe to call more than once.
func (t *RenderTexture) Destroy() {
	if t.handle == 0 {
		return
	}
	t.display.DestroyTexture(t.handle)
	t.handle = 0
}

type poolKey struct {
	width, height int
	format        TextureFormat
}

// RenderTexturePool hands out temporary render textures and recycles
// released ones with the same size and format.
type RenderTexturePool struct {
	display Display

	mu    sync.Mutex
	free  map[poolKey][]*RenderTexture
	inUse map[*RenderTexture]struct{}
}

// NewRenderTexturePool creates an empty pool on d.
func NewRenderTexturePool(d Display) *RenderTexturePool {
	return &RenderTexturePool{
		display: d,
		free:    make(map[poolKey][]*RenderTexture),
		inUse:   make(map[*RenderTexture]struct{}),
	}
}

// Name implements the engine subsystem contract.
func (p *RenderTexturePool) Name() string { return "render-texture" }

// Init implements the engine subsystem contract.
func (p *RenderTexturePool) Init() error { return nil }

// Deinit destroys every pooled texture, including ones still in use.
func (p *RenderTexturePool) Deinit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, list := range p.free {
		for _, t := range list {
			t.Destroy()
		}
	}
	for t := range p.inUse {
		t.Destroy()
	}
	clear(p.free)
	clear(p.inUse)
}

// GetTemporary returns a texture of the given size and format.
func (p *RenderTexturePool) GetTemporary(width, height int, format TextureFormat) (*RenderTexture, error) {
	key := poolKey{width, height, format}

	p.mu.Lock()
	if list := p.free[key]; len(list) > 0 {
		t := list[len(list)-1]
		p.free[key] = list[:len(list)-1]
		p.inUse[t] = struct{}{}
		p.mu.Unlock()
		return t, nil
	}
	p.mu.Unlock()

	t, err := NewRenderTexture(p.display, "temporary", width, height, format)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.inUse[t] = struct{}{}
	p.mu.Unlock()
	return t, nil
}

// ReleaseTemporary returns t to the pool.
func (p *RenderTexturePool) ReleaseTemporary(t *RenderTexture) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.inUse[t]; !ok {
		return
	}
	delete(p.inUse, t)
	key := poolKey{t.width, t.height, t.format}
	p.free[key] = append(p.free[key], t)
}

// Purge destroys every released texture.
func (p *RenderTexturePool) Purge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, list := range p.free {
		for _, t := range list {
			t.Destroy()
		}
	}
	clear(p.free)
}
