// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/jakecoffman/cp"

	"github.com/gogpu/g3d/world"
)

// BodyType selects how a body takes part in the simulation.
type BodyType int

const (
	// Dynamic bodies are moved by the simulation.
	Dynamic BodyType = iota
	// Kinematic bodies follow their transform and push dynamic bodies.
	Kinematic
	// Static bodies never move.
	Static
)

// RigidBody is a component giving its object a body and a collision shape.
// A positive Radius makes a circle; otherwise Size is a box.
type RigidBody struct {
	world.ComponentBase

	Type       BodyType
	Mass       float64
	Size       mgl32.Vec2
	Radius     float64
	Friction   float64
	Elasticity float64

	space *Space
	body  *cp.Body
	shape *cp.Shape
	cs    *cp.Space
}

// NewRigidBody creates a unit dynamic box simulated by space.
func NewRigidBody(space *Space) *RigidBody {
	return &RigidBody{
		space:    space,
		Mass:     1,
		Size:     mgl32.Vec2{1, 1},
		Friction: 0.7,
	}
}

// Start adds the body to the space at the transform's pose.
func (b *RigidBody) Start() { b.space.add(b) }

// OnDestroy removes the body from the space.
func (b *RigidBody) OnDestroy() { b.space.remove(b) }

// Attached reports whether the body is in a simulation.
func (b *RigidBody) Attached() bool { return b.cs != nil }

// Position returns the simulated position.
func (b *RigidBody) Position() mgl32.Vec2 {
	if b.body == nil {
		return mgl32.Vec2{}
	}
	p := b.body.Position()
	return mgl32.Vec2{float32(p.X), float32(p.Y)}
}

// Velocity returns the linear velocity.
func (b *RigidBody) Velocity() mgl32.Vec2 {
	if b.body == nil {
		return mgl32.Vec2{}
	}
	v := b.body.Velocity()
	return mgl32.Vec2{float32(v.X), float32(v.Y)}
}

// SetVelocity sets the linear velocity.
func (b *RigidBody) SetVelocity(v mgl32.Vec2) {
	if b.body != nil {
		b.body.SetVelocity(float64(v[0]), float64(v[1]))
	}
}

// ApplyImpulse applies an impulse at the body's center.
func (b *RigidBody) ApplyImpulse(j mgl32.Vec2) {
	if b.body != nil {
		b.body.ApplyImpulseAtWorldPoint(vec(j), b.body.Position())
	}
}

func (b *RigidBody) dynamic() bool   { return b.Type == Dynamic && b.body != nil }
func (b *RigidBody) kinematic() bool { return b.Type == Kinematic && b.body != nil }

func (b *RigidBody) attach(cs *cp.Space) {
	tr := b.Transform()
	pos := tr.LocalPosition()
	angle := zAngle(tr.LocalRotation())

	switch b.Type {
	case Static:
		b.body = cp.NewStaticBody()
	case Kinematic:
		b.body = cp.NewKinematicBody()
	default:
		mass := b.Mass
		if mass <= 0 {
			mass = 1
		}
		var moment float64
		if b.Radius > 0 {
			moment = cp.MomentForCircle(mass, 0, b.Radius, cp.Vector{})
		} else {
			moment = cp.MomentForBox(mass, float64(b.Size[0]), float64(b.Size[1]))
		}
		b.body = cp.NewBody(mass, moment)
	}
	b.body.SetPosition(cp.Vector{X: float64(pos[0]), Y: float64(pos[1])})
	b.body.SetAngle(angle)

	if b.Radius > 0 {
		b.shape = cp.NewCircle(b.body, b.Radius, cp.Vector{})
	} else {
		b.shape = cp.NewBox(b.body, float64(b.Size[0]), float64(b.Size[1]), 0)
	}
	b.shape.SetFriction(b.Friction)
	b.shape.SetElasticity(b.Elasticity)

	cs.AddBody(b.body)
	cs.AddShape(b.shape)
	b.cs = cs
}

func (b *RigidBody) detach() {
	if b.cs == nil {
		return
	}
	b.cs.RemoveShape(b.shape)
	b.cs.RemoveBody(b.body)
	b.cs = nil
	b.shape = nil
	b.body = nil
}

// pullPose writes the simulated pose into the transform.
func (b *RigidBody) pullPose() {
	tr := b.Transform()
	if tr == nil {
		return
	}
	p := b.body.Position()
	z := tr.LocalPosition()[2]
	tr.SetLocalPosition(mgl32.Vec3{float32(p.X), float32(p.Y), z})
	tr.SetLocalRotation(mgl32.QuatRotate(float32(b.body.Angle()), mgl32.Vec3{0, 0, 1}))
}

// pushPose moves a kinematic body to its transform.
func (b *RigidBody) pushPose() {
	tr := b.Transform()
	if tr == nil {
		return
	}
	p := tr.LocalPosition()
	b.body.SetPosition(cp.Vector{X: float64(p[0]), Y: float64(p[1])})
	b.body.SetAngle(zAngle(tr.LocalRotation()))
}

// zAngle returns the rotation of q about Z.
func zAngle(q mgl32.Quat) float64 {
	f := q.Rotate(mgl32.Vec3{1, 0, 0})
	return math.Atan2(float64(f[1]), float64(f[0]))
}
