// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package tween

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/world"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestTweenerStyles(t *testing.T) {
	tests := []struct {
		style   Style
		elapsed time.Duration
		want    float32
	}{
		{Once, 500 * time.Millisecond, 0.5},
		{Once, 3 * time.Second, 1},
		{Loop, 1250 * time.Millisecond, 0.25},
		{PingPong, 1250 * time.Millisecond, 0.75},
		{PingPong, 2250 * time.Millisecond, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.style.String(), func(t *testing.T) {
			clock := &fakeClock{now: time.Unix(0, 0)}
			var got float32
			tw := New(func(v float32) { got = v })
			tw.Style = tt.style
			tw.SetClock(clock.Now)
			tw.Start()
			clock.advance(tt.elapsed)
			tw.Update()
			if !mgl32.FloatEqualThreshold(got, tt.want, 1e-5) {
				t.Errorf("progress after %v = %v, want %v", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestTweenerDelayAndFinish(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	calls, finished := 0, 0
	tw := New(func(float32) { calls++ })
	tw.Delay = time.Second
	tw.Curve = EaseIn
	tw.OnFinish = func() { finished++ }
	tw.SetClock(clock.Now)
	tw.Start()

	clock.advance(500 * time.Millisecond)
	tw.Update()
	if calls != 0 {
		t.Error("Set called during delay")
	}
	clock.advance(2 * time.Second)
	tw.Update()
	tw.Update()
	if finished != 1 || !tw.Finished() || tw.Enabled() {
		t.Errorf("finished = %d, Finished() = %v, Enabled() = %v", finished, tw.Finished(), tw.Enabled())
	}
	if calls != 1 {
		t.Errorf("Set called %d times, want 1", calls)
	}

	tw.Restart()
	if tw.Finished() || !tw.Enabled() {
		t.Error("Restart did not reset the tween")
	}
}

func TestCurves(t *testing.T) {
	for name, c := range map[string]Curve{"linear": Linear, "in": EaseIn, "out": EaseOut, "inout": EaseInOut} {
		if c(0) != 0 || c(1) != 1 {
			t.Errorf("%s: endpoints = %v, %v", name, c(0), c(1))
		}
	}
	if EaseIn(0.5) >= 0.5 || EaseOut(0.5) <= 0.5 {
		t.Error("ease curves do not bend the right way")
	}
}

func TestPositionTweenInWorld(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	w := world.New()
	obj := world.NewGameObject("mover")
	tw := NewPosition(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{10, 0, 0})
	tw.SetClock(clock.Now)
	obj.AddComponent(tw)
	w.AddGameObject(obj)

	w.Update()
	clock.advance(250 * time.Millisecond)
	w.Update()
	if got := obj.Transform().LocalPosition(); !got.ApproxEqual(mgl32.Vec3{2.5, 0, 0}) {
		t.Errorf("position = %v, want {2.5 0 0}", got)
	}
}
