// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package world

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// transformStamp hands out strictly increasing change stamps.
var transformStamp atomic.Uint64

// Transform is the local placement of a GameObject relative to its parent.
//
// Every change takes a fresh stamp from a global counter. Version returns the
// newest stamp on the path to the root, so a consumer caching anything derived
// from LocalToWorld only needs to compare one number.
type Transform struct {
	obj *GameObject

	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
	stamp    uint64
}

func newTransform(obj *GameObject) *Transform {
	return &Transform{
		obj:      obj,
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
		stamp:    transformStamp.Add(1),
	}
}

func (t *Transform) touch() { t.stamp = transformStamp.Add(1) }

// GameObject returns the owning object.
func (t *Transform) GameObject() *GameObject { return t.obj }

// LocalPosition returns the position relative to the parent.
func (t *Transform) LocalPosition() mgl32.Vec3 { return t.position }

// SetLocalPosition sets the position relative to the parent.
func (t *Transform) SetLocalPosition(p mgl32.Vec3) {
	t.position = p
	t.touch()
}

// LocalRotation returns the rotation relative to the parent.
func (t *Transform) LocalRotation() mgl32.Quat { return t.rotation }

// SetLocalRotation sets the rotation relative to the parent.
func (t *Transform) SetLocalRotation(q mgl32.Quat) {
	t.rotation = q.Normalize()
	t.touch()
}

// LocalScale returns the scale relative to the parent.
func (t *Transform) LocalScale() mgl32.Vec3 { return t.scale }

// SetLocalScale sets the scale relative to the parent.
func (t *Transform) SetLocalScale(s mgl32.Vec3) {
	t.scale = s
	t.touch()
}

// LocalMatrix returns translation * rotation * scale.
func (t *Transform) LocalMatrix() mgl32.Mat4 {
	m := mgl32.Translate3D(t.position[0], t.position[1], t.position[2])
	m = m.Mul4(t.rotation.Mat4())
	return m.Mul4(mgl32.Scale3D(t.scale[0], t.scale[1], t.scale[2]))
}

// LocalToWorld returns the matrix transforming local space into world space.
func (t *Transform) LocalToWorld() mgl32.Mat4 {
	m := t.LocalMatrix()
	for p := t.obj.parent; p != nil; p = p.parent {
		m = p.transform.LocalMatrix().Mul4(m)
	}
	return m
}

// WorldToLocal returns the inverse of LocalToWorld.
func (t *Transform) WorldToLocal() mgl32.Mat4 {
	return t.LocalToWorld().Inv()
}

// Position returns the world-space position.
func (t *Transform) Position() mgl32.Vec3 {
	return mgl32.TransformCoordinate(mgl32.Vec3{}, t.LocalToWorld())
}

// Rotation returns the world-space rotation.
func (t *Transform) Rotation() mgl32.Quat {
	q := t.rotation
	for p := t.obj.parent; p != nil; p = p.parent {
		q = p.transform.rotation.Mul(q)
	}
	return q
}

// Forward returns the world-space +Z axis.
func (t *Transform) Forward() mgl32.Vec3 { return t.Rotation().Rotate(mgl32.Vec3{0, 0, 1}) }

// Up returns the world-space +Y axis.
func (t *Transform) Up() mgl32.Vec3 { return t.Rotation().Rotate(mgl32.Vec3{0, 1, 0}) }

// Right returns the world-space +X axis.
func (t *Transform) Right() mgl32.Vec3 { return t.Rotation().Rotate(mgl32.Vec3{1, 0, 0}) }

// LookAt rotates the transform so Forward points at target.
func (t *Transform) LookAt(target, up mgl32.Vec3) {
	dir := target.Sub(t.Position())
	if dir.Len() == 0 {
		return
	}
	f := dir.Normalize()
	r := up.Cross(f)
	if r.Len() == 0 {
		return
	}
	r = r.Normalize()
	u := f.Cross(r)
	q := mgl32.Mat4ToQuat(mgl32.Mat4FromCols(r.Vec4(0), u.Vec4(0), f.Vec4(0), mgl32.Vec4{0, 0, 0, 1}))
	if p := t.obj.parent; p != nil {
		q = p.transform.Rotation().Inverse().Mul(q)
	}
	t.SetLocalRotation(q)
}

// Version returns the newest change stamp of this transform or any ancestor.
// It changes whenever LocalToWorld may have changed.
func (t *Transform) Version() uint64 {
	v := t.stamp
	for p := t.obj.parent; p != nil; p = p.parent {
		if s := p.transform.stamp; s > v {
			v = s
		}
	}
	return v
}
