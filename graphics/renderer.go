// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/g3d/gpu"
	"github.com/gogpu/g3d/world"
)

// Renderer is a world renderer that can be drawn by a Camera.
type Renderer interface {
	world.Renderer

	// Materials returns one material per submesh. Submeshes without a
	// material are skipped.
	Materials() []*Material

	// ObjectUniform returns the per-draw uniform buffer holding the model
	// matrix, uploading it if the transform changed.
	ObjectUniform(dev gpu.Device) (*gpu.Buffer, error)
}

// CameraFilter is implemented by renderers drawn by some cameras only.
type CameraFilter interface {
	RendersFor(cam *Camera) bool
}

// modelUniformSize is one mat4.
const modelUniformSize = 64

// RendererBase holds the materials and the model uniform of a renderer.
// Embed it in renderer components.
type RendererBase struct {
	world.ComponentBase

	materials []*Material
	uniform   *gpu.Buffer
	version   uint64
}

// Materials returns the materials, one per submesh.
func (r *RendererBase) Materials() []*Material { return r.materials }

// SetMaterials replaces the materials.
func (r *RendererBase) SetMaterials(m ...*Material) { r.materials = m }

// SetMaterial replaces the materials with a single one.
func (r *RendererBase) SetMaterial(m *Material) { r.materials = []*Material{m} }

// ObjectUniform uploads the model matrix when the transform changed since
// the last call.
func (r *RendererBase) ObjectUniform(dev gpu.Device) (*gpu.Buffer, error) {
	t := r.Transform()
	if r.uniform == nil {
		buf := gpu.NewBuffer(dev)
		buf.SetLabel("object uniform")
		if err := buf.Create(gpu.BufferTypeUniform, modelUniformSize, true); err != nil {
			return nil, err
		}
		r.uniform = buf
		r.version = 0
	}
	if v := t.Version(); v != r.version {
		var data [modelUniformSize]byte
		putMat4(data[:], t.LocalToWorld())
		if err := r.uniform.UpdateRange(0, data[:]); err != nil {
			return nil, err
		}
		r.version = v
	}
	return r.uniform, nil
}

// OnDestroy releases the model uniform.
func (r *RendererBase) OnDestroy() {
	if r.uniform != nil {
		if err := r.uniform.Destroy(); err != nil {
			slogger().Warn("graphics: destroy object uniform", "err", err)
		}
		r.uniform = nil
	}
}

func putMat4(dst []byte, m [16]float32) {
	for i, f := range m {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(f))
	}
}

// MeshRenderer draws a Mesh.
type MeshRenderer struct {
	RendererBase
	mesh *Mesh
}

// NewMeshRenderer returns a renderer drawing mesh with the given materials.
func NewMeshRenderer(mesh *Mesh, materials ...*Material) *MeshRenderer {
	r := &MeshRenderer{mesh: mesh}
	r.materials = materials
	return r
}

// Mesh returns the drawn mesh.
func (r *MeshRenderer) Mesh() *Mesh { return r.mesh }

// SetMesh replaces the drawn mesh.
func (r *MeshRenderer) SetMesh(m *Mesh) { r.mesh = m }

// VertexBuffer implements world.Renderer.
func (r *MeshRenderer) VertexBuffer() *gpu.Buffer {
	if r.mesh == nil {
		return nil
	}
	return r.mesh.VertexBuffer()
}

// IndexBuffer implements world.Renderer.
func (r *MeshRenderer) IndexBuffer() *gpu.Buffer {
	if r.mesh == nil {
		return nil
	}
	return r.mesh.IndexBuffer()
}

// IndexRange implements world.Renderer.
func (r *MeshRenderer) IndexRange(submesh int) (start, count int) {
	return r.mesh.IndexRange(submesh)
}

// SubmeshCount implements world.Renderer.
func (r *MeshRenderer) SubmeshCount() int {
	if r.mesh == nil {
		return 0
	}
	return r.mesh.SubmeshCount()
}

// Bounds implements world.Renderer.
func (r *MeshRenderer) Bounds() world.Bounds {
	if r.mesh == nil {
		return world.Bounds{}
	}
	return r.mesh.Bounds()
}

// CanvasRenderer draws screen overlay geometry for a single camera.
type CanvasRenderer struct {
	MeshRenderer
	camera CameraRef
}

// NewCanvasRenderer returns a canvas renderer bound to cam.
func NewCanvasRenderer(cam *Camera, mesh *Mesh, materials ...*Material) *CanvasRenderer {
	r := &CanvasRenderer{camera: cam.Ref()}
	r.mesh = mesh
	r.materials = materials
	return r
}

// Camera returns the bound camera, or false once it is gone.
func (r *CanvasRenderer) Camera(p *Pipeline) (*Camera, bool) {
	return r.camera.Resolve(p)
}

// SetCamera binds the renderer to cam.
func (r *CanvasRenderer) SetCamera(cam *Camera) { r.camera = cam.Ref() }

// RendersFor implements CameraFilter.
func (r *CanvasRenderer) RendersFor(cam *Camera) bool {
	c, ok := r.camera.Resolve(cam.pipeline)
	return ok && c == cam
}
