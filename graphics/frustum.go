// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/world"
)

// Plane is n·p + D = 0 with n pointing inside the frustum.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// Distance returns the signed distance of p to the plane.
func (pl Plane) Distance(p mgl32.Vec3) float32 {
	return pl.Normal.Dot(p) + pl.D
}

// Frustum is the left, right, bottom, top, near and far planes of a
// view-projection matrix.
type Frustum [6]Plane

// FrustumFromMatrix extracts the planes of m for clip depth in [0, 1].
func FrustumFromMatrix(m mgl32.Mat4) Frustum {
	row := func(i int) mgl32.Vec4 { return m.Row(i) }
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	raw := [6]mgl32.Vec4{
		r3.Add(r0),
		r3.Sub(r0),
		r3.Add(r1),
		r3.Sub(r1),
		r2,
		r3.Sub(r2),
	}
	var f Frustum
	for i, p := range raw {
		n := mgl32.Vec3{p[0], p[1], p[2]}
		l := n.Len()
		if l == 0 {
			continue
		}
		f[i] = Plane{Normal: n.Mul(1 / l), D: p[3] / l}
	}
	return f
}

// ContainsPoint reports whether p is inside every plane.
func (f Frustum) ContainsPoint(p mgl32.Vec3) bool {
	for _, pl := range f {
		if pl.Distance(p) < 0 {
			return false
		}
	}
	return true
}

// IntersectsBounds reports whether a world-space box is at least partly
// inside. Boxes near corners may be reported inside; never the reverse.
func (f Frustum) IntersectsBounds(b world.Bounds) bool {
	for _, pl := range f {
		var p mgl32.Vec3
		for k := 0; k < 3; k++ {
			if pl.Normal[k] >= 0 {
				p[k] = b.Max[k]
			} else {
				p[k] = b.Min[k]
			}
		}
		if pl.Distance(p) < 0 {
			return false
		}
	}
	return true
}
