// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package tween animates values over time with a world component.
//
// A Tweener waits for its delay, then maps elapsed time to a progress in
// [0, 1], shapes it with a Curve and hands the result to its Set function:
//
//	tw := tween.NewPosition(mgl32.Vec3{}, mgl32.Vec3{0, 2, 0})
//	tw.Duration = time.Second
//	tw.Style = tween.PingPong
//	obj.AddComponent(tw)
package tween

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/world"
)

// Style selects what happens when a tween reaches its end.
type Style int

const (
	// Once stops at the end, calls OnFinish and disables the tweener.
	Once Style = iota
	// Loop restarts from the beginning.
	Loop
	// PingPong reverses direction at each end.
	PingPong
)

// String returns the string representation of Style.
func (s Style) String() string {
	switch s {
	case Once:
		return "Once"
	case Loop:
		return "Loop"
	case PingPong:
		return "PingPong"
	default:
		return "Unknown"
	}
}

// Curve shapes linear progress.
type Curve func(t float32) float32

// Common curves.
var (
	Linear    Curve = func(t float32) float32 { return t }
	EaseIn    Curve = func(t float32) float32 { return t * t }
	EaseOut   Curve = func(t float32) float32 { return t * (2 - t) }
	EaseInOut Curve = func(t float32) float32 {
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t
	}
)

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

// Tweener is a component that drives Set from its start time.
type Tweener struct {
	world.ComponentBase

	Delay    time.Duration
	Duration time.Duration
	Style    Style
	Curve    Curve

	// Set receives the shaped progress every update.
	Set func(t float32)

	// OnFinish runs once when a Once tween completes.
	OnFinish func()

	clock    Clock
	start    time.Time
	finished bool
}

// New creates a one-second linear Once tween calling set.
func New(set func(t float32)) *Tweener {
	return &Tweener{
		Duration: time.Second,
		Curve:    Linear,
		Set:      set,
		clock:    time.Now,
	}
}

// SetClock replaces the time source.
func (tw *Tweener) SetClock(c Clock) { tw.clock = c }

// Finished reports whether a Once tween has completed.
func (tw *Tweener) Finished() bool { return tw.finished }

// Restart begins the tween again from now.
func (tw *Tweener) Restart() {
	tw.start = tw.clock()
	tw.finished = false
	tw.SetEnabled(true)
}

// Start records the start time.
func (tw *Tweener) Start() {
	if tw.clock == nil {
		tw.clock = time.Now
	}
	tw.start = tw.clock()
}

// Update advances the tween.
func (tw *Tweener) Update() {
	if tw.finished {
		return
	}
	elapsed := tw.clock().Sub(tw.start) - tw.Delay
	if elapsed < 0 {
		return
	}
	t, done := tw.progress(elapsed)
	curve := tw.Curve
	if curve == nil {
		curve = Linear
	}
	if tw.Set != nil {
		tw.Set(curve(t))
	}
	if done {
		tw.finished = true
		tw.SetEnabled(false)
		if tw.OnFinish != nil {
			tw.OnFinish()
		}
	}
}

// progress maps elapsed time to linear progress.
func (tw *Tweener) progress(elapsed time.Duration) (t float32, done bool) {
	if tw.Duration <= 0 {
		return 1, tw.Style == Once
	}
	p := elapsed.Seconds() / tw.Duration.Seconds()
	switch tw.Style {
	case Loop:
		return float32(p - math.Floor(p)), false
	case PingPong:
		p = math.Mod(p, 2)
		if p > 1 {
			p = 2 - p
		}
		return float32(p), false
	default:
		if p >= 1 {
			return 1, true
		}
		return float32(p), false
	}
}

// NewPosition tweens the local position of the owning object.
func NewPosition(from, to mgl32.Vec3) *Tweener {
	tw := New(nil)
	tw.Set = func(t float32) {
		if tr := tw.Transform(); tr != nil {
			tr.SetLocalPosition(lerp(from, to, t))
		}
	}
	return tw
}

// NewScale tweens the local scale of the owning object.
func NewScale(from, to mgl32.Vec3) *Tweener {
	tw := New(nil)
	tw.Set = func(t float32) {
		if tr := tw.Transform(); tr != nil {
			tr.SetLocalScale(lerp(from, to, t))
		}
	}
	return tw
}

// NewRotation tweens the local rotation of the owning object.
func NewRotation(from, to mgl32.Quat) *Tweener {
	tw := New(nil)
	tw.Set = func(t float32) {
		if tr := tw.Transform(); tr != nil {
			tr.SetLocalRotation(mgl32.QuatSlerp(from, to, t))
		}
	}
	return tw
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
