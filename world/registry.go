// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package world

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/gpu"
)

// Renderer is a component that submits geometry to cameras.
type Renderer interface {
	Component

	// VertexBuffer returns the vertex data, or nil when nothing is uploaded.
	VertexBuffer() *gpu.Buffer

	// IndexBuffer returns the 16-bit index data, or nil.
	IndexBuffer() *gpu.Buffer

	// IndexRange returns the first index and the index count of a submesh.
	IndexRange(submesh int) (start, count int)

	// SubmeshCount returns the number of submeshes.
	SubmeshCount() int

	// Bounds returns the local-space bounding box.
	Bounds() Bounds
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max mgl32.Vec3
}

// Center returns the box center.
func (b Bounds) Center() mgl32.Vec3 { return b.Min.Add(b.Max).Mul(0.5) }

// Extents returns half the box size.
func (b Bounds) Extents() mgl32.Vec3 { return b.Max.Sub(b.Min).Mul(0.5) }

// Empty reports whether the box has no volume on any axis.
func (b Bounds) Empty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// Transform returns the box enclosing b after applying m.
func (b Bounds) Transform(m mgl32.Mat4) Bounds {
	out := Bounds{
		Min: mgl32.Vec3{m[12], m[13], m[14]},
		Max: mgl32.Vec3{m[12], m[13], m[14]},
	}
	// Arvo's method: accumulate min/max of each matrix term.
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			e := m[col*4+row]
			a := e * b.Min[col]
			c := e * b.Max[col]
			if a > c {
				a, c = c, a
			}
			out.Min[row] += a
			out.Max[row] += c
		}
	}
	return out
}

// Filter selects renderers for FindRenderers.
type Filter struct {
	// IncludeInactive keeps renderers whose object is inactive in the hierarchy.
	IncludeInactive bool

	// IncludeDisabled keeps disabled renderers.
	IncludeDisabled bool

	// StaticOnly keeps only renderers on static objects.
	StaticOnly bool
}

// Accepts reports whether r on a non-deleted object passes the filter.
func (f Filter) Accepts(r Renderer) bool {
	obj := r.GameObject()
	if obj == nil || obj.Deleted() {
		return false
	}
	if !f.IncludeInactive && !obj.ActiveInHierarchy() {
		return false
	}
	if f.StaticOnly && !obj.IsStatic() {
		return false
	}
	if !f.IncludeDisabled && !r.Enabled() {
		return false
	}
	return true
}

// RendererHandle is a weak reference to a renderer component.
type RendererHandle struct {
	Object    ObjectID
	Component uint64
}

// Registry is the cached list of renderers eligible for drawing.
//
// The list holds handles rather than components. Renderers resolves each
// handle through the world and skips any whose object has been swept or
// deleted or whose component has been removed, so a stale list yields fewer
// renderers, never dangling ones.
type Registry struct {
	world   *World
	dirty   atomic.Bool
	handles []RendererHandle
}

// SetDirty requests a rebuild at the end of the next World.Update.
// Safe to call from any goroutine.
func (r *Registry) SetDirty() { r.dirty.Store(true) }

// IsDirty reports whether a rebuild is pending.
func (r *Registry) IsDirty() bool { return r.dirty.Load() }

// Rebuild rescans every live object of w in order.
func (r *Registry) Rebuild(w *World) {
	// Clear first so marks raised during the scan survive.
	r.dirty.Store(false)
	r.handles = r.handles[:0]
	w.eachRenderer(Filter{}, func(rd Renderer) {
		r.handles = append(r.handles, RendererHandle{
			Object:    rd.GameObject().ID(),
			Component: rd.Serial(),
		})
	})
	slogger().Debug("world: renderer registry rebuilt", "renderers", len(r.handles))
}

// Handles returns the cached handles. The slice must not be modified.
func (r *Registry) Handles() []RendererHandle { return r.handles }

// Renderers resolves the cached handles, skipping stale ones.
func (r *Registry) Renderers() []Renderer {
	out := make([]Renderer, 0, len(r.handles))
	for _, h := range r.handles {
		if rd, ok := r.world.Resolve(h); ok {
			out = append(out, rd)
		}
	}
	return out
}

// Len returns the number of cached handles.
func (r *Registry) Len() int { return len(r.handles) }

// Name implements the engine subsystem contract.
func (r *Registry) Name() string { return "renderer" }

// Init implements the engine subsystem contract.
func (r *Registry) Init() error {
	r.SetDirty()
	return nil
}

// Deinit drops the cached handles.
func (r *Registry) Deinit() {
	r.handles = nil
	r.SetDirty()
}
