// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package physics is the engine's physics subsystem, a Chipmunk space from
// github.com/jakecoffman/cp stepped once per World.Update.
//
// Simulation is planar: bodies move in the XY plane of their object's
// local transform and rotate about Z. Z position and the other rotation
// axes are left alone.
package physics

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/jakecoffman/cp"

	"github.com/gogpu/g3d/world"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

func slogger() *slog.Logger { return loggerPtr.Load() }

// SetLogger sets the logger of the physics package. nil disables logging.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// DefaultTimestep is one 60 Hz frame.
const DefaultTimestep = time.Second / 60

// DefaultGravity pulls down the Y axis.
var DefaultGravity = mgl32.Vec2{0, -9.81}

// Space owns the simulation and every RigidBody added to it.
//
// Space is driven from the simulation goroutine only.
type Space struct {
	space      *cp.Space
	timestep   time.Duration
	gravity    mgl32.Vec2
	iterations uint

	bodies []*RigidBody
	steps  uint64
}

var _ world.Physics = (*Space)(nil)

// Option configures a Space.
type Option func(*Space)

// WithTimestep sets the fixed step. Non-positive values keep the default.
func WithTimestep(d time.Duration) Option {
	return func(s *Space) {
		if d > 0 {
			s.timestep = d
		}
	}
}

// WithGravity sets the gravity vector.
func WithGravity(g mgl32.Vec2) Option {
	return func(s *Space) { s.gravity = g }
}

// WithIterations sets the solver iteration count.
func WithIterations(n uint) Option {
	return func(s *Space) { s.iterations = n }
}

// NewSpace creates a space; the simulation itself starts in Init.
func NewSpace(opts ...Option) *Space {
	s := &Space{
		timestep:   DefaultTimestep,
		gravity:    DefaultGravity,
		iterations: 10,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements the engine subsystem contract.
func (s *Space) Name() string { return "physics" }

// Init creates the simulation.
func (s *Space) Init() error {
	s.space = cp.NewSpace()
	s.space.Iterations = s.iterations
	s.space.SetGravity(vec(s.gravity))
	s.steps = 0
	slogger().Info("physics: init", "timestep", s.timestep, "gravity", s.gravity)
	return nil
}

// Deinit detaches every body and drops the simulation.
func (s *Space) Deinit() {
	for _, b := range s.bodies {
		b.detach()
	}
	s.bodies = nil
	s.space = nil
	slogger().Info("physics: deinit", "steps", s.steps)
}

// Steps returns the number of steps taken since Init.
func (s *Space) Steps() uint64 { return s.steps }

// Timestep returns the fixed step.
func (s *Space) Timestep() time.Duration { return s.timestep }

// Gravity returns the gravity vector.
func (s *Space) Gravity() mgl32.Vec2 { return s.gravity }

// BodyCount returns the number of bodies in the simulation.
func (s *Space) BodyCount() int { return len(s.bodies) }

// Step advances the simulation by one timestep and writes dynamic body
// poses back into their transforms.
func (s *Space) Step() {
	if s.space == nil {
		return
	}
	for _, b := range s.bodies {
		if b.kinematic() {
			b.pushPose()
		}
	}
	s.space.Step(s.timestep.Seconds())
	s.steps++
	for _, b := range s.bodies {
		if b.dynamic() {
			b.pullPose()
		}
	}
}

func (s *Space) add(b *RigidBody) {
	if s.space == nil {
		slogger().Warn("physics: body started before Init", "object", b.GameObject().Name())
		return
	}
	b.attach(s.space)
	s.bodies = append(s.bodies, b)
}

func (s *Space) remove(b *RigidBody) {
	for i, o := range s.bodies {
		if o == b {
			s.bodies = append(s.bodies[:i], s.bodies[i+1:]...)
			break
		}
	}
	b.detach()
}

func vec(v mgl32.Vec2) cp.Vector { return cp.Vector{X: float64(v[0]), Y: float64(v[1])} }
