// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package graphics renders a world through cameras onto a Display.
//
// A Display abstracts the GPU backend: it records command buffers against
// a PassDescriptor, owns textures, and builds pipelines from ShaderPass
// values. Backends register themselves with RegisterBackend, the same way
// the native Vulkan backend does in its init function.
//
// Each frame Graphics.Render begins the display frame, lets the Pipeline
// render every camera in depth order, and presents. Cameras cull renderers
// by layer, by frustum and through CameraFilter, sort the draws by render
// queue and material, then run their post-processing chain through Blit.
package graphics

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/world"
)

type blitKey struct {
	dst  *RenderTexture
	rect Rect
}

// Graphics drives the per-frame rendering of a world.
type Graphics struct {
	display  Display
	pipeline *Pipeline
	shaders  *shader.Library

	blitPasses   map[blitKey]*RenderPass
	quad         *Mesh
	blitShader   *Shader
	blitMaterial *Material

	frames atomic.Uint64
}

// New creates the renderer for w on display. Shaders are loaded from lib;
// post-processing targets come from pool.
func New(display Display, w *world.World, lib *shader.Library, pool *RenderTexturePool) *Graphics {
	g := &Graphics{
		display:    display,
		shaders:    lib,
		blitPasses: make(map[blitKey]*RenderPass),
	}
	g.pipeline = NewPipeline(display, w, pool)
	g.pipeline.gfx = g
	return g
}

// Display returns the display rendered to.
func (g *Graphics) Display() Display { return g.display }

// Pipeline returns the camera pipeline.
func (g *Graphics) Pipeline() *Pipeline { return g.pipeline }

// Shaders returns the shader library.
func (g *Graphics) Shaders() *shader.Library { return g.shaders }

// Frames returns the number of frames presented.
func (g *Graphics) Frames() uint64 { return g.frames.Load() }

// DrawCalls returns the draw calls issued by the last frame.
func (g *Graphics) DrawCalls() int { return g.pipeline.DrawCalls() }

// Render draws and presents one frame.
func (g *Graphics) Render() error {
	if err := g.display.BeginFrame(); err != nil {
		return fmt.Errorf("graphics: begin frame: %w", err)
	}
	g.pipeline.ResetStats()
	if err := g.pipeline.RenderAll(); err != nil {
		return err
	}
	if err := g.display.EndFrame(); err != nil {
		return fmt.Errorf("graphics: end frame: %w", err)
	}
	if err := g.display.SwapBuffers(); err != nil {
		return fmt.Errorf("graphics: present: %w", err)
	}
	g.frames.Add(1)
	return nil
}

// ensureBlit creates the full-screen quad and the default blit material.
func (g *Graphics) ensureBlit() error {
	if g.quad == nil {
		q, err := NewQuadMesh(g.display.Device())
		if err != nil {
			return err
		}
		g.quad = q
	}
	if g.blitMaterial == nil {
		if g.shaders == nil {
			return fmt.Errorf("%w: %s", ErrNoProgram, shader.Blit)
		}
		s, err := NewBlitShader(g.display, g.shaders)
		if err != nil {
			return err
		}
		g.blitShader = s
		g.blitMaterial = NewMaterial(g.display.Device(), s)
	}
	return nil
}

// BlitMaterial returns the default copy material, creating it on first use.
func (g *Graphics) BlitMaterial() (*Material, error) {
	if err := g.ensureBlit(); err != nil {
		return nil, err
	}
	return g.blitMaterial, nil
}

// Blit draws src into dst through pass of mat, covering rect of dst. A nil
// dst is the back buffer; a nil mat copies with the default material.
// Render passes are cached per destination and rect.
func (g *Graphics) Blit(src, dst *RenderTexture, mat *Material, pass int, rect Rect) error {
	if err := g.ensureBlit(); err != nil {
		return err
	}
	if mat == nil {
		mat, pass = g.blitMaterial, 0
	}
	key := blitKey{dst: dst, rect: rect}
	rp, ok := g.blitPasses[key]
	if !ok {
		rp = NewRenderPass(g.display, dst, nil, ClearFlagsNone, rect)
		g.blitPasses[key] = rp
	}

	mat.SetTexture(src)
	if err := mat.Shader().PreparePass(pass); err != nil {
		return err
	}
	if err := mat.UpdateUniforms(pass); err != nil {
		return err
	}
	if err := rp.Begin(Clear); err != nil {
		return err
	}
	if err := g.DrawQuad(rp, mat, pass); err != nil {
		return err
	}
	if err := rp.End(); err != nil {
		return err
	}
	if err := g.display.SubmitQueue(rp.CommandBuffer()); err != nil {
		return fmt.Errorf("graphics: submit blit: %w", err)
	}
	return nil
}

// DrawQuad draws the full-screen quad with pass of mat into a recording
// render pass.
func (g *Graphics) DrawQuad(rp *RenderPass, mat *Material, pass int) error {
	if err := g.ensureBlit(); err != nil {
		return err
	}
	s := mat.Shader()
	if err := s.BeginPass(rp, pass); err != nil {
		return err
	}
	defer s.EndPass(pass)
	if err := mat.Bind(rp, pass); err != nil {
		return err
	}
	if err := rp.BindVertexArray(g.quad.VertexBuffer(), g.quad.IndexBuffer()); err != nil {
		return err
	}
	start, count := g.quad.IndexRange(0)
	if err := rp.DrawIndexed(start, count); err != nil {
		return err
	}
	g.pipeline.drawCalls++
	return nil
}

// OnResize drops cached passes and resizes the display.
func (g *Graphics) OnResize(width, height int) {
	clear(g.blitPasses)
	g.pipeline.OnResize(width, height)
	g.display.OnResize(width, height)
}

// OnPause drops cached passes and pauses the display.
func (g *Graphics) OnPause() {
	clear(g.blitPasses)
	g.pipeline.OnPause()
	g.display.OnPause()
}

// OnResume resumes the display.
func (g *Graphics) OnResume() {
	g.display.OnResume()
}

// release frees the builtin blit resources.
func (g *Graphics) release() {
	clear(g.blitPasses)
	if g.blitMaterial != nil {
		g.blitMaterial.Destroy()
		g.blitMaterial = nil
		g.blitShader = nil
	}
	if g.quad != nil {
		g.quad.Destroy()
		g.quad = nil
	}
}
