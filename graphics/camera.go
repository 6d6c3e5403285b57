// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/gpu"
	"github.com/gogpu/g3d/world"
)

// RenderMode selects what a camera draws.
type RenderMode int

const (
	// RenderModeNormal draws every visible renderer with its own materials.
	RenderModeNormal RenderMode = iota
	// RenderModeShadowMap draws every visible renderer with the camera's
	// replacement material, typically into a depth target.
	RenderModeShadowMap
)

// cameraUniformSize is view, projection and view-projection matrices
// followed by the camera position.
const cameraUniformSize = 3*64 + 16

// clipDepthFix maps OpenGL clip depth [-1, 1] to [0, 1].
var clipDepthFix = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// PostProcess is one full-screen step applied after a camera renders.
type PostProcess struct {
	Material *Material
	Pass     int
}

// Camera renders the world from its GameObject's transform.
//
// Cameras register with a Pipeline when created and unregister when their
// component is destroyed. The Pipeline renders them in ascending depth,
// ties broken by registration order.
type Camera struct {
	world.ComponentBase

	pipeline *Pipeline
	serial   uint64

	depth          int
	clearFlags     ClearFlags
	clearColor     Color
	rect           Rect
	cullingMask    uint32
	orthographic   bool
	orthoSize      float32
	fov            float32
	near, far      float32
	hdr            bool
	frustumCulling bool
	renderMode     RenderMode
	replacement    *Material

	color       *RenderTexture
	depthTarget *RenderTexture

	externalView *mgl32.Mat4
	externalProj *mgl32.Mat4

	matrixDirty      bool
	transformVersion uint64
	view, proj       mgl32.Mat4
	viewProj         mgl32.Mat4
	frustum          Frustum

	uniform       *gpu.Buffer
	uniformDirty  bool
	renderPass    *RenderPass
	postProcesses []PostProcess
	postRender    func(*Camera)
}

// NewCamera creates a camera registered with p. Attach it to a GameObject
// before it can render.
func NewCamera(p *Pipeline) *Camera {
	c := &Camera{
		pipeline:       p,
		clearFlags:     ClearFlagsColorAndDepth,
		clearColor:     Black,
		rect:           FullRect,
		cullingMask:    0xFFFFFFFF,
		orthoSize:      1,
		fov:            60,
		near:           0.3,
		far:            1000,
		frustumCulling: true,
		matrixDirty:    true,
	}
	p.register(c)
	return c
}

// Ref returns a weak reference to the camera.
func (c *Camera) Ref() CameraRef { return CameraRef{serial: c.serial} }

// Pipeline returns the pipeline the camera is registered with.
func (c *Camera) Pipeline() *Pipeline { return c.pipeline }

// Depth returns the render order key.
func (c *Camera) Depth() int { return c.depth }

// SetDepth changes the render order key. Lower depths render first.
func (c *Camera) SetDepth(depth int) { c.depth = depth }

// ClearFlags returns what the camera clears before rendering.
func (c *Camera) ClearFlags() ClearFlags { return c.clearFlags }

// SetClearFlags changes what the camera clears.
func (c *Camera) SetClearFlags(f ClearFlags) {
	c.clearFlags = f
	c.renderPass = nil
}

// ClearColor returns the clear color.
func (c *Camera) ClearColor() Color { return c.clearColor }

// SetClearColor changes the clear color.
func (c *Camera) SetClearColor(col Color) { c.clearColor = col }

// Rect returns the normalized viewport.
func (c *Camera) Rect() Rect { return c.rect }

// SetRect changes the normalized viewport.
func (c *Camera) SetRect(r Rect) {
	c.rect = r
	c.renderPass = nil
	c.matrixDirty = true
}

// CullingMask returns the layer mask of drawn objects.
func (c *Camera) CullingMask() uint32 { return c.cullingMask }

// SetCullingMask changes the layer mask of drawn objects.
func (c *Camera) SetCullingMask(mask uint32) { c.cullingMask = mask }

// Orthographic reports whether the projection is orthographic.
func (c *Camera) Orthographic() bool { return c.orthographic }

// SetOrthographic switches between orthographic and perspective projection.
func (c *Camera) SetOrthographic(ortho bool) {
	c.orthographic = ortho
	c.matrixDirty = true
}

// OrthographicSize returns half the vertical view size in orthographic mode.
func (c *Camera) OrthographicSize() float32 { return c.orthoSize }

// SetOrthographicSize changes half the vertical view size.
func (c *Camera) SetOrthographicSize(size float32) {
	c.orthoSize = size
	c.matrixDirty = true
}

// FieldOfView returns the vertical field of view in degrees.
func (c *Camera) FieldOfView() float32 { return c.fov }

// SetFieldOfView changes the vertical field of view in degrees.
func (c *Camera) SetFieldOfView(deg float32) {
	c.fov = deg
	c.matrixDirty = true
}

// ClipPlanes returns the near and far distances.
func (c *Camera) ClipPlanes() (near, far float32) { return c.near, c.far }

// SetClipPlanes changes the near and far distances.
func (c *Camera) SetClipPlanes(near, far float32) {
	c.near, c.far = near, far
	c.matrixDirty = true
}

// HDR reports whether post-processing targets use a float format.
func (c *Camera) HDR() bool { return c.hdr }

// SetHDR selects float post-processing targets.
func (c *Camera) SetHDR(hdr bool) { c.hdr = hdr }

// FrustumCulling reports whether renderers outside the frustum are skipped.
func (c *Camera) FrustumCulling() bool { return c.frustumCulling }

// SetFrustumCulling enables or disables frustum culling.
func (c *Camera) SetFrustumCulling(enabled bool) { c.frustumCulling = enabled }

// RenderMode returns the render mode.
func (c *Camera) RenderMode() RenderMode { return c.renderMode }

// SetRenderMode changes the render mode. Shadow map cameras draw with
// replacement.
func (c *Camera) SetRenderMode(mode RenderMode, replacement *Material) {
	c.renderMode = mode
	c.replacement = replacement
}

// RenderTarget returns the color and depth targets; nil color is the back
// buffer.
func (c *Camera) RenderTarget() (color, depth *RenderTexture) {
	return c.color, c.depthTarget
}

// SetRenderTarget renders into offscreen textures. A nil color renders to
// the back buffer.
func (c *Camera) SetRenderTarget(color, depth *RenderTexture) {
	c.color = color
	c.depthTarget = depth
	c.renderPass = nil
}

// SetViewMatrix overrides the view matrix. Pass nil to derive it from the
// transform again.
func (c *Camera) SetViewMatrix(m *mgl32.Mat4) {
	c.externalView = m
	c.matrixDirty = true
}

// SetProjectionMatrix overrides the projection matrix. Pass nil to derive
// it from the camera settings again.
func (c *Camera) SetProjectionMatrix(m *mgl32.Mat4) {
	c.externalProj = m
	c.matrixDirty = true
}

// AddPostProcess appends a full-screen step to the camera's chain.
func (c *Camera) AddPostProcess(mat *Material, pass int) {
	c.postProcesses = append(c.postProcesses, PostProcess{Material: mat, Pass: pass})
}

// ClearPostProcesses removes every post-processing step.
func (c *Camera) ClearPostProcesses() { c.postProcesses = nil }

// SetPostRender sets a callback run after the camera and its
// post-processing have been submitted.
func (c *Camera) SetPostRender(fn func(*Camera)) { c.postRender = fn }

// TargetWidth returns the width of the render target in pixels.
func (c *Camera) TargetWidth() int {
	if c.color != nil {
		return c.color.Width()
	}
	return c.pipeline.display.Width()
}

// TargetHeight returns the height of the render target in pixels.
func (c *Camera) TargetHeight() int {
	if c.color != nil {
		return c.color.Height()
	}
	return c.pipeline.display.Height()
}

// viewportSize returns the pixel size of the camera rect on its target.
func (c *Camera) viewportSize() (w, h int) {
	_, _, w, h = c.rect.Pixels(c.TargetWidth(), c.TargetHeight())
	return max(w, 1), max(h, 1)
}

func (c *Camera) postFormat() TextureFormat {
	switch {
	case c.hdr:
		return TextureFormatRGBA16F
	case c.color != nil:
		return c.color.Format()
	default:
		return c.pipeline.display.BackBufferFormat()
	}
}

// CanRender reports whether the camera is enabled, attached to an active
// object that is live in its world, and has a non-empty target.
func (c *Camera) CanRender() bool {
	obj := c.GameObject()
	if obj == nil || obj.Deleted() || !obj.ActiveInHierarchy() || !c.Enabled() {
		return false
	}
	if w := obj.World(); w == nil || !w.Contains(obj) {
		return false
	}
	return c.TargetWidth() > 0 && c.TargetHeight() > 0
}

// ViewMatrix returns the view matrix computed by the last render.
func (c *Camera) ViewMatrix() mgl32.Mat4 { return c.view }

// ProjectionMatrix returns the projection matrix computed by the last render.
func (c *Camera) ProjectionMatrix() mgl32.Mat4 { return c.proj }

// ViewProjectionMatrix returns projection * view.
func (c *Camera) ViewProjectionMatrix() mgl32.Mat4 { return c.viewProj }

// Frustum returns the frustum computed by the last render.
func (c *Camera) Frustum() Frustum { return c.frustum }

// ScreenToViewportPoint converts pixel coordinates of the target into
// normalized viewport coordinates. Z is passed through.
func (c *Camera) ScreenToViewportPoint(p mgl32.Vec3) mgl32.Vec3 {
	w := float32(c.TargetWidth())
	h := float32(c.TargetHeight())
	return mgl32.Vec3{
		(p[0]/w - c.rect.X) / c.rect.W,
		(p[1]/h - c.rect.Y) / c.rect.H,
		p[2],
	}
}

// UpdateMatrices recomputes the matrices and frustum if the camera settings
// or its transform changed since the last call.
func (c *Camera) UpdateMatrices() {
	t := c.Transform()
	v := t.Version()
	if !c.matrixDirty && v == c.transformVersion {
		return
	}
	c.matrixDirty = false
	c.transformVersion = v
	c.uniformDirty = true

	if c.externalView != nil {
		c.view = *c.externalView
	} else {
		eye := t.Position()
		c.view = mgl32.LookAtV(eye, eye.Add(t.Forward()), t.Up())
	}

	if c.externalProj != nil {
		c.proj = *c.externalProj
	} else {
		w := float32(c.TargetWidth()) * c.rect.W
		h := float32(c.TargetHeight()) * c.rect.H
		aspect := float32(1)
		if h > 0 {
			aspect = w / h
		}
		var p mgl32.Mat4
		if c.orthographic {
			top := c.orthoSize
			right := top * aspect
			p = mgl32.Ortho(-right, right, -top, top, c.near, c.far)
		} else {
			p = mgl32.Perspective(mgl32.DegToRad(c.fov), aspect, c.near, c.far)
		}
		c.proj = clipDepthFix.Mul4(p)
	}

	c.viewProj = c.proj.Mul4(c.view)
	c.frustum = FrustumFromMatrix(c.viewProj)
}

// uploadUniform writes the camera block if the matrices changed.
func (c *Camera) uploadUniform(dev gpu.Device) error {
	if c.uniform == nil {
		buf := gpu.NewBuffer(dev)
		buf.SetLabel("camera uniform")
		if err := buf.Create(gpu.BufferTypeUniform, cameraUniformSize, true); err != nil {
			return err
		}
		c.uniform = buf
		c.uniformDirty = true
	}
	if !c.uniformDirty {
		return nil
	}
	var data [cameraUniformSize]byte
	putMat4(data[0:], c.view)
	putMat4(data[64:], c.proj)
	putMat4(data[128:], c.viewProj)
	pos := c.Transform().Position()
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(data[192+i*4:], math.Float32bits(pos[i]))
	}
	binary.LittleEndian.PutUint32(data[204:], math.Float32bits(1))
	if err := c.uniform.UpdateRange(0, data[:]); err != nil {
		return err
	}
	c.uniformDirty = false
	return nil
}

// UniformBuffer returns the camera uniform buffer, or nil before the first
// render.
func (c *Camera) UniformBuffer() *gpu.Buffer { return c.uniform }

// pass returns the cached render pass, creating it if needed.
func (c *Camera) pass() *RenderPass {
	if c.renderPass == nil {
		c.renderPass = NewRenderPass(c.pipeline.display, c.color, c.depthTarget, c.clearFlags, c.rect)
	}
	return c.renderPass
}

// OnDestroy unregisters the camera and releases its uniform buffer.
func (c *Camera) OnDestroy() {
	c.pipeline.unregister(c)
	c.release()
}

func (c *Camera) release() {
	c.renderPass = nil
	if c.uniform != nil {
		if err := c.uniform.Destroy(); err != nil {
			slogger().Warn("graphics: destroy camera uniform", "err", err)
		}
		c.uniform = nil
	}
}

// CameraRef is a weak reference to a Camera. It resolves to nothing once
// the camera has been destroyed.
type CameraRef struct {
	serial uint64
}

// Resolve returns the referenced camera if it is still registered with p.
func (r CameraRef) Resolve(p *Pipeline) (*Camera, bool) {
	if r.serial == 0 || p == nil {
		return nil, false
	}
	for _, c := range p.cameras {
		if c.serial == r.serial {
			return c, true
		}
	}
	return nil, false
}

// Valid reports whether the reference was set.
func (r CameraRef) Valid() bool { return r.serial != 0 }
