// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package native

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/gpu"
	"github.com/gogpu/g3d/graphics"
)

// Display errors.
var (
	// ErrPaused is returned by BeginFrame while the display is paused.
	ErrPaused = errors.New("native: display is paused")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("native: display is closed")

	// ErrForeignCommandBuffer is returned when SubmitQueue receives a
	// command buffer recorded by another display.
	ErrForeignCommandBuffer = errors.New("native: command buffer not recorded by this display")
)

const (
	backBufferFormat = graphics.TextureFormatBGRA8
	backDepthFormat  = graphics.TextureFormatDepth24Stencil8
)

// Display implements graphics.Display on a HAL device. The back buffer is
// an offscreen color and depth pair sized to the display.
//
// Thread Safety: Display is not safe for concurrent use.
type Display struct {
	mu sync.Mutex

	dev    *Device
	device hal.Device
	label  string

	bindings  *bindings
	pipelines *PipelineCache

	width, height int
	back          *texture
	backDepth     *texture

	textures map[graphics.TextureHandle]*texture
	nextTex  graphics.TextureHandle

	paused bool
	closed bool

	// release runs after Close, owning the device when the display opened it.
	release func()
}

var _ graphics.Display = (*Display)(nil)

// NewDisplay creates a display of width x height over dev.
func NewDisplay(dev *Device, label string, width, height int) (*Display, error) {
	device, _ := dev.HAL()
	b, err := newBindings(dev)
	if err != nil {
		return nil, err
	}
	d := &Display{
		dev:       dev,
		device:    device,
		label:     label,
		bindings:  b,
		pipelines: NewPipelineCache(device, b.pipeLayout),
		textures:  make(map[graphics.TextureHandle]*texture),
		nextTex:   1,
	}
	if err := d.createBackBuffer(width, height); err != nil {
		b.destroy()
		return nil, err
	}
	return d, nil
}

func (d *Display) createBackBuffer(width, height int) error {
	back, err := newTexture(d.device, d.label+"_back_buffer", width, height, backBufferFormat)
	if err != nil {
		return err
	}
	depth, err := newTexture(d.device, d.label+"_back_depth", width, height, backDepthFormat)
	if err != nil {
		back.destroy(d.device)
		return err
	}
	d.back, d.backDepth = back, depth
	d.width, d.height = width, height
	return nil
}

func (d *Display) destroyBackBuffer() {
	if d.back != nil {
		d.back.destroy(d.device)
		d.back = nil
	}
	if d.backDepth != nil {
		d.backDepth.destroy(d.device)
		d.backDepth = nil
	}
}

// Device returns the buffer device.
func (d *Display) Device() gpu.Device { return d.dev }

// Width returns the back buffer width.
func (d *Display) Width() int { return d.width }

// Height returns the back buffer height.
func (d *Display) Height() int { return d.height }

// BackBufferFormat returns BGRA8.
func (d *Display) BackBufferFormat() graphics.TextureFormat { return backBufferFormat }

// SetLogger sets the logger of the native backend.
func (d *Display) SetLogger(l *slog.Logger) { SetLogger(l) }

// Pipelines returns the display's pipeline cache.
func (d *Display) Pipelines() *PipelineCache { return d.pipelines }

// BeginFrame fails while paused or closed.
func (d *Display) BeginFrame() error {
	switch {
	case d.closed:
		return ErrClosed
	case d.paused:
		return ErrPaused
	}
	return nil
}

// EndFrame is a no-op; submissions are already queued.
func (d *Display) EndFrame() error {
	if d.closed {
		return ErrClosed
	}
	return nil
}

// SwapBuffers waits for the frame's submissions.
func (d *Display) SwapBuffers() error {
	if d.closed {
		return ErrClosed
	}
	return d.dev.WaitIdle()
}

// texture resolves a handle created by CreateTexture.
func (d *Display) texture(h graphics.TextureHandle) (*texture, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[h]
	return t, ok
}

// BeginCommandBuffer starts a render pass. A zero Color targets the back
// buffer; with it a zero Depth selects the back buffer's depth.
func (d *Display) BeginCommandBuffer(desc *graphics.PassDescriptor) (graphics.CommandBuffer, error) {
	if d.closed {
		return nil, ErrClosed
	}
	var color, depth *texture
	if desc.Color == 0 {
		color = d.back
		if desc.Depth == 0 {
			depth = d.backDepth
		}
	} else {
		t, ok := d.texture(desc.Color)
		if !ok {
			return nil, fmt.Errorf("%w: color %d", ErrUnknownTexture, desc.Color)
		}
		color = t
	}
	if color.format.IsDepth() {
		return nil, fmt.Errorf("%w: color attachment is %s", ErrTextureKind, color.format)
	}
	if desc.Depth != 0 {
		t, ok := d.texture(desc.Depth)
		if !ok {
			return nil, fmt.Errorf("%w: depth %d", ErrUnknownTexture, desc.Depth)
		}
		if !t.format.IsDepth() {
			return nil, fmt.Errorf("%w: depth attachment is %s", ErrTextureKind, t.format)
		}
		depth = t
	}
	return beginCommandBuffer(d, desc, color, depth)
}

// SubmitQueue submits a finished command buffer without waiting.
func (d *Display) SubmitQueue(cb graphics.CommandBuffer) error {
	if d.closed {
		return ErrClosed
	}
	c, ok := cb.(*commandBuffer)
	if !ok || c.display != d {
		return ErrForeignCommandBuffer
	}
	cmd, ok := c.take()
	if !ok {
		return fmt.Errorf("native: submit %q: not ended", c.label)
	}
	return d.dev.submit(cmd)
}

// WaitQueueIdle waits for every submission.
func (d *Display) WaitQueueIdle() error {
	return d.dev.WaitIdle()
}

// PreparePipeline builds the pass pipeline for the back buffer formats.
func (d *Display) PreparePipeline(pass *graphics.ShaderPass) error {
	if d.closed {
		return ErrClosed
	}
	_, err := d.pipelines.GetOrCreate(pass, halFormat(backBufferFormat), halFormat(backDepthFormat))
	return err
}

// CreateTexture creates a render texture owned by the display.
func (d *Display) CreateTexture(desc *graphics.TextureDescriptor) (graphics.TextureHandle, error) {
	if d.closed {
		return 0, ErrClosed
	}
	t, err := newTexture(d.device, desc.Label, desc.Width, desc.Height, desc.Format)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	h := d.nextTex
	d.nextTex++
	d.textures[h] = t
	d.mu.Unlock()
	return h, nil
}

// DestroyTexture releases a texture. Unknown handles are ignored.
func (d *Display) DestroyTexture(h graphics.TextureHandle) {
	d.mu.Lock()
	t, ok := d.textures[h]
	delete(d.textures, h)
	d.mu.Unlock()
	if ok {
		t.destroy(d.device)
	}
}

// OnResize recreates the back buffer. Zero sizes are ignored.
func (d *Display) OnResize(width, height int) {
	if d.closed || width <= 0 || height <= 0 || (width == d.width && height == d.height) {
		return
	}
	if err := d.dev.WaitIdle(); err != nil {
		slogger().Warn("native: wait idle before resize", "err", err)
	}
	d.destroyBackBuffer()
	if err := d.createBackBuffer(width, height); err != nil {
		slogger().Error("native: recreate back buffer", "width", width, "height", height, "err", err)
		return
	}
	slogger().Debug("native: display resized", "width", width, "height", height)
}

// OnPause stops frames until OnResume.
func (d *Display) OnPause() { d.paused = true }

// OnResume allows frames again.
func (d *Display) OnResume() { d.paused = false }

// Paused reports whether the display is paused.
func (d *Display) Paused() bool { return d.paused }

// Close waits for the GPU and releases every texture, pipeline and binding.
func (d *Display) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	err := d.dev.WaitIdle()

	d.mu.Lock()
	textures := d.textures
	d.textures = make(map[graphics.TextureHandle]*texture)
	d.mu.Unlock()
	for _, t := range textures {
		t.destroy(d.device)
	}
	d.destroyBackBuffer()
	d.pipelines.DestroyAll()
	d.bindings.destroy()

	if d.release != nil {
		d.release()
	}
	return err
}
