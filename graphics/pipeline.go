// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/g3d/world"
)

// drawItem is one submesh pass queued by a camera.
type drawItem struct {
	renderer Renderer
	submesh  int
	material *Material
	pass     int
	queue    int
}

// Pipeline owns the cameras and renders them every frame.
type Pipeline struct {
	display Display
	world   *world.World
	pool    *RenderTexturePool
	gfx     *Graphics

	cameras    []*Camera
	nextSerial uint64
	drawCalls  int

	items     []drawItem
	post      [2]*RenderTexture
	postDepth *RenderTexture
}

// NewPipeline creates a pipeline drawing the renderers of w on display.
// Post-processing targets come from pool.
func NewPipeline(display Display, w *world.World, pool *RenderTexturePool) *Pipeline {
	return &Pipeline{display: display, world: w, pool: pool}
}

// Name implements the engine subsystem contract.
func (p *Pipeline) Name() string { return "camera" }

// Init implements the engine subsystem contract.
func (p *Pipeline) Init() error { return nil }

// Deinit releases every camera's GPU state and the post-processing targets.
func (p *Pipeline) Deinit() {
	for _, c := range p.cameras {
		c.release()
	}
	p.cameras = nil
	p.releasePostTargets()
	if p.gfx != nil {
		p.gfx.release()
	}
}

// Display returns the display rendered to.
func (p *Pipeline) Display() Display { return p.display }

// World returns the rendered world.
func (p *Pipeline) World() *world.World { return p.world }

func (p *Pipeline) register(c *Camera) {
	p.nextSerial++
	c.serial = p.nextSerial
	p.cameras = append(p.cameras, c)
}

func (p *Pipeline) unregister(c *Camera) {
	if i := slices.Index(p.cameras, c); i >= 0 {
		p.cameras = slices.Delete(p.cameras, i, i+1)
	}
}

// Cameras returns the registered cameras in render order: ascending depth,
// then registration order.
func (p *Pipeline) Cameras() []*Camera {
	cams := slices.Clone(p.cameras)
	slices.SortStableFunc(cams, func(a, b *Camera) int {
		return cmp.Compare(a.depth, b.depth)
	})
	return cams
}

// DrawCalls returns the number of draw calls issued since ResetStats.
func (p *Pipeline) DrawCalls() int { return p.drawCalls }

// ResetStats zeroes the draw call counter.
func (p *Pipeline) ResetStats() { p.drawCalls = 0 }

// RenderAll renders every camera that can render, in order. The first error
// aborts the frame.
func (p *Pipeline) RenderAll() error {
	for _, c := range p.Cameras() {
		if !c.CanRender() {
			continue
		}
		if err := p.renderCamera(c); err != nil {
			return fmt.Errorf("graphics: camera %q: %w", c.GameObject().Name(), err)
		}
	}
	return nil
}

func (p *Pipeline) renderCamera(c *Camera) error {
	c.UpdateMatrices()
	if err := c.uploadUniform(p.display.Device()); err != nil {
		return err
	}
	p.collect(c)

	var rp *RenderPass
	if len(c.postProcesses) > 0 {
		w, h := c.viewportSize()
		front, err := p.postTargets(w, h, c.postFormat())
		if err != nil {
			return err
		}
		rp = NewRenderPass(p.display, front, p.postDepth, c.clearFlags, FullRect)
	} else {
		rp = c.pass()
	}

	if err := rp.Begin(c.clearColor); err != nil {
		return err
	}
	for i := range p.items {
		if err := p.draw(rp, c, &p.items[i]); err != nil {
			return err
		}
	}
	if err := rp.End(); err != nil {
		return err
	}
	if err := p.display.SubmitQueue(rp.CommandBuffer()); err != nil {
		return fmt.Errorf("graphics: submit: %w", err)
	}

	if len(c.postProcesses) > 0 {
		if err := p.postProcess(c); err != nil {
			return err
		}
	}
	if c.postRender != nil {
		c.postRender(c)
	}
	return nil
}

// collect fills p.items with the visible draws of c, sorted by queue,
// material and pass.
func (p *Pipeline) collect(c *Camera) {
	p.items = p.items[:0]
	for _, wr := range p.world.Registry().Renderers() {
		r, ok := wr.(Renderer)
		if !ok || !p.visible(c, r) {
			continue
		}
		mats := r.Materials()
		if c.renderMode == RenderModeShadowMap && c.replacement != nil {
			mats = []*Material{c.replacement}
		}
		for sub := 0; sub < r.SubmeshCount(); sub++ {
			var mat *Material
			switch {
			case sub < len(mats):
				mat = mats[sub]
			case c.renderMode == RenderModeShadowMap && len(mats) == 1:
				mat = mats[0]
			}
			if mat == nil {
				continue
			}
			s := mat.Shader()
			for pass := range s.PassCount() {
				p.items = append(p.items, drawItem{
					renderer: r,
					submesh:  sub,
					material: mat,
					pass:     pass,
					queue:    s.Pass(pass).State.Queue,
				})
			}
		}
	}
	slices.SortStableFunc(p.items, func(a, b drawItem) int {
		return cmp.Or(
			cmp.Compare(a.queue, b.queue),
			cmp.Compare(a.material.ID(), b.material.ID()),
			cmp.Compare(a.pass, b.pass),
		)
	})
}

func (p *Pipeline) visible(c *Camera, r Renderer) bool {
	obj := r.GameObject()
	if c.cullingMask&obj.LayerMask() == 0 {
		return false
	}
	if f, ok := r.(CameraFilter); ok && !f.RendersFor(c) {
		return false
	}
	if r.VertexBuffer() == nil || r.IndexBuffer() == nil {
		return false
	}
	if c.frustumCulling {
		b := r.Bounds()
		if !b.Empty() && !c.frustum.IntersectsBounds(b.Transform(obj.Transform().LocalToWorld())) {
			return false
		}
	}
	return true
}

func (p *Pipeline) draw(rp *RenderPass, c *Camera, it *drawItem) error {
	s := it.material.Shader()
	if err := s.PreparePass(it.pass); err != nil {
		return err
	}
	if err := it.material.UpdateUniforms(it.pass); err != nil {
		return err
	}
	obj, err := it.renderer.ObjectUniform(p.display.Device())
	if err != nil {
		return err
	}
	if err := s.BeginPass(rp, it.pass); err != nil {
		return err
	}
	defer s.EndPass(it.pass)

	if err := rp.BindUniform(GroupCamera, c.uniform); err != nil {
		return err
	}
	if err := rp.BindUniform(GroupObject, obj); err != nil {
		return err
	}
	if err := it.material.Bind(rp, it.pass); err != nil {
		return err
	}
	if err := rp.BindVertexArray(it.renderer.VertexBuffer(), it.renderer.IndexBuffer()); err != nil {
		return err
	}
	start, count := it.renderer.IndexRange(it.submesh)
	if err := rp.DrawIndexed(start, count); err != nil {
		return err
	}
	p.drawCalls++
	return nil
}

// postTargets returns the front ping-pong target, reallocating both targets
// and the shared depth buffer when the size or format changed.
func (p *Pipeline) postTargets(w, h int, format TextureFormat) (*RenderTexture, error) {
	if t := p.post[0]; t != nil && t.Width() == w && t.Height() == h && t.Format() == format {
		return t, nil
	}
	p.releasePostTargets()
	for i := range p.post {
		t, err := p.pool.GetTemporary(w, h, format)
		if err != nil {
			p.releasePostTargets()
			return nil, err
		}
		p.post[i] = t
	}
	d, err := p.pool.GetTemporary(w, h, TextureFormatDepth24Stencil8)
	if err != nil {
		p.releasePostTargets()
		return nil, err
	}
	p.postDepth = d
	return p.post[0], nil
}

func (p *Pipeline) releasePostTargets() {
	for i, t := range p.post {
		if t != nil {
			p.pool.ReleaseTemporary(t)
			p.post[i] = nil
		}
	}
	if p.postDepth != nil {
		p.pool.ReleaseTemporary(p.postDepth)
		p.postDepth = nil
	}
}

// postProcess runs the camera's chain, swapping front and back after each
// step. The last step writes into the camera's own target.
func (p *Pipeline) postProcess(c *Camera) error {
	if p.gfx == nil {
		return ErrNoDisplay
	}
	front, back := p.post[0], p.post[1]
	last := len(c.postProcesses) - 1
	for i, pp := range c.postProcesses {
		if i == last {
			return p.gfx.Blit(front, c.color, pp.Material, pp.Pass, c.rect)
		}
		if err := p.gfx.Blit(front, back, pp.Material, pp.Pass, FullRect); err != nil {
			return err
		}
		front, back = back, front
	}
	return nil
}

// OnResize drops cached render passes and post-processing targets, and
// purges the pool of textures sized for the old window. Camera matrices
// are left alone.
func (p *Pipeline) OnResize(width, height int) {
	for _, c := range p.cameras {
		c.renderPass = nil
	}
	p.releasePostTargets()
	p.pool.Purge()
}

// OnPause drops cached render passes.
func (p *Pipeline) OnPause() {
	for _, c := range p.cameras {
		c.renderPass = nil
	}
}
