// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"errors"
	"testing"
)

func TestRenderPassStateMachine(t *testing.T) {
	d := newFakeDisplay(100, 50)
	rp := NewRenderPass(d, nil, nil, ClearFlagsColor, Rect{0.5, 0, 0.5, 1})

	if rp.State() != RenderPassStateIdle {
		t.Fatalf("initial state = %v", rp.State())
	}
	if err := rp.DrawIndexed(0, 3); !errors.Is(err, ErrPassNotRecording) {
		t.Errorf("DrawIndexed before Begin = %v, want ErrPassNotRecording", err)
	}
	if err := rp.End(); !errors.Is(err, ErrPassNotRecording) {
		t.Errorf("End before Begin = %v, want ErrPassNotRecording", err)
	}

	if err := rp.Begin(White); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if rp.State() != RenderPassStateRecording {
		t.Fatalf("state = %v, want Recording", rp.State())
	}
	if err := rp.Begin(White); !errors.Is(err, ErrPassRecording) {
		t.Errorf("second Begin = %v, want ErrPassRecording", err)
	}
	if err := rp.DrawIndexed(0, 3); err != nil {
		t.Errorf("DrawIndexed: %v", err)
	}
	if err := rp.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if rp.State() != RenderPassStateEnded {
		t.Fatalf("state = %v, want Ended", rp.State())
	}

	cb := rp.CommandBuffer().(*fakeCommandBuffer)
	if cb.desc.ClearColor != White || cb.desc.Clear != ClearFlagsColor {
		t.Errorf("desc = %+v", cb.desc)
	}
	if cb.ops[0] != "viewport 50 0 50 50" || cb.ops[1] != "draw 0 3" {
		t.Errorf("ops = %v", cb.ops)
	}

	// A pass is reusable.
	if err := rp.Begin(Black); err != nil {
		t.Fatalf("Begin after End: %v", err)
	}
	if rp.CommandBuffer() == CommandBuffer(cb) {
		t.Error("Begin reused the previous command buffer")
	}
}

func TestRenderPassStateString(t *testing.T) {
	tests := []struct {
		s    RenderPassState
		want string
	}{
		{RenderPassStateIdle, "Idle"},
		{RenderPassStateRecording, "Recording"},
		{RenderPassStateEnded, "Ended"},
		{RenderPassState(9), "Unknown(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}

func TestRenderTexturePool(t *testing.T) {
	d := newFakeDisplay(10, 10)
	pool := NewRenderTexturePool(d)

	a, err := pool.GetTemporary(32, 32, TextureFormatRGBA8)
	if err != nil {
		t.Fatal(err)
	}
	b, err := pool.GetTemporary(32, 32, TextureFormatRGBA8)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two live temporaries share a texture")
	}
	pool.ReleaseTemporary(a)
	c, err := pool.GetTemporary(32, 32, TextureFormatRGBA8)
	if err != nil {
		t.Fatal(err)
	}
	if c != a {
		t.Error("released texture not reused")
	}
	other, err := pool.GetTemporary(32, 32, TextureFormatRGBA16F)
	if err != nil {
		t.Fatal(err)
	}
	if other == a || other == b {
		t.Error("format ignored by pool")
	}

	if _, err := pool.GetTemporary(0, 32, TextureFormatRGBA8); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("zero width = %v, want ErrInvalidSize", err)
	}

	pool.Deinit()
	if len(d.textures) != 0 {
		t.Errorf("textures after Deinit = %d, want 0", len(d.textures))
	}
}

func TestRenderTextureResize(t *testing.T) {
	d := newFakeDisplay(10, 10)
	rt, err := NewRenderTexture(d, "rt", 4, 4, TextureFormatRGBA8)
	if err != nil {
		t.Fatal(err)
	}
	h := rt.Handle()
	if err := rt.Resize(4, 4); err != nil || rt.Handle() != h {
		t.Error("same-size resize recreated the texture")
	}
	if err := rt.Resize(8, 2); err != nil {
		t.Fatal(err)
	}
	if rt.Handle() == h || rt.Width() != 8 || rt.Height() != 2 {
		t.Errorf("after resize: handle %d size %dx%d", rt.Handle(), rt.Width(), rt.Height())
	}
	if _, ok := d.textures[h]; ok {
		t.Error("old texture not destroyed")
	}
	rt.Destroy()
	rt.Destroy()
	if rt.Handle() != 0 || len(d.textures) != 0 {
		t.Error("Destroy did not release the texture")
	}
}
