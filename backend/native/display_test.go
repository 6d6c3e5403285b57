// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package native

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/g3d/gpu"
	"github.com/gogpu/g3d/graphics"
	"github.com/gogpu/g3d/shader"
)

// fakeCompiler returns the SPIR-V magic number, which the no-op HAL accepts.
func fakeCompiler(string) ([]byte, error) {
	return []byte{0x03, 0x02, 0x23, 0x07}, nil
}

func newTestDisplay(t *testing.T, w, h int) *Display {
	t.Helper()
	d, err := NewDisplay(newTestDevice(t), "test", w, h)
	if err != nil {
		t.Fatalf("NewDisplay: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func testPass(t *testing.T, state graphics.RenderState) *graphics.ShaderPass {
	t.Helper()
	lib := shader.NewLibrary(shader.WithCompiler(fakeCompiler))
	prog, err := lib.Compile("test", "@vertex fn vs_main() {}")
	if err != nil {
		t.Fatal(err)
	}
	return &graphics.ShaderPass{Name: "test", Program: prog, State: state}
}

func TestDisplayRecordAndSubmit(t *testing.T) {
	d := newTestDisplay(t, 64, 32)
	pass := testPass(t, graphics.DefaultRenderState)

	ubo := gpu.NewBuffer(d.Device())
	if err := ubo.Create(gpu.BufferTypeUniform, 64, true); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ubo.Destroy() }()

	if err := d.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	cb, err := d.BeginCommandBuffer(&graphics.PassDescriptor{
		Label:      "frame",
		Clear:      graphics.ClearFlagsColorAndDepth,
		ClearColor: graphics.Black,
		ClearDepth: 1,
	})
	if err != nil {
		t.Fatalf("BeginCommandBuffer: %v", err)
	}
	cb.SetViewport(0, 0, 64, 32)
	if err := cb.BindPipeline(pass); err != nil {
		t.Fatalf("BindPipeline: %v", err)
	}
	if err := cb.BindPipeline(pass); err != nil {
		t.Fatalf("BindPipeline again: %v", err)
	}
	if err := cb.BindUniform(graphics.GroupCamera, ubo); err != nil {
		t.Fatalf("BindUniform: %v", err)
	}
	if err := cb.BindUniform(graphics.GroupTexture, ubo); err == nil {
		t.Error("uniform bound to the texture group")
	}
	cb.DrawIndexed(0, 3)
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := cb.End(); !errors.Is(err, ErrCommandBufferEnded) {
		t.Errorf("second End = %v, want ErrCommandBufferEnded", err)
	}

	if err := d.SubmitQueue(cb); err != nil {
		t.Fatalf("SubmitQueue: %v", err)
	}
	if n := d.dev.InFlight(); n != 1 {
		t.Errorf("in flight = %d, want 1", n)
	}
	if err := d.SubmitQueue(cb); err == nil {
		t.Error("command buffer submitted twice")
	}
	if err := d.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if err := d.SwapBuffers(); err != nil {
		t.Fatalf("SwapBuffers: %v", err)
	}
	if n := d.dev.InFlight(); n != 0 {
		t.Errorf("in flight after swap = %d, want 0", n)
	}

	if d.Pipelines().Size() != 1 {
		t.Errorf("pipelines = %d, want 1", d.Pipelines().Size())
	}
	hits, misses := d.Pipelines().Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits, %d misses; want 1, 1", hits, misses)
	}
}

func TestDisplayUniformBindGroupForgotten(t *testing.T) {
	d := newTestDisplay(t, 8, 8)
	ubo := gpu.NewBuffer(d.Device())
	if err := ubo.Create(gpu.BufferTypeUniform, 16, false); err != nil {
		t.Fatal(err)
	}
	h := ubo.Handle()
	if _, err := d.bindings.uniformGroup(h); err != nil {
		t.Fatal(err)
	}
	if err := ubo.Destroy(); err != nil {
		t.Fatal(err)
	}
	d.bindings.mu.Lock()
	_, ok := d.bindings.uniforms[h]
	d.bindings.mu.Unlock()
	if ok {
		t.Error("bind group of a destroyed buffer still cached")
	}
}

func TestDisplayRenderTextures(t *testing.T) {
	d := newTestDisplay(t, 8, 8)

	color, err := d.CreateTexture(&graphics.TextureDescriptor{Label: "rt", Width: 16, Height: 16, Format: graphics.TextureFormatRGBA16F})
	if err != nil {
		t.Fatal(err)
	}
	depth, err := d.CreateTexture(&graphics.TextureDescriptor{Label: "rt_depth", Width: 16, Height: 16, Format: graphics.TextureFormatDepth32F})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateTexture(&graphics.TextureDescriptor{Width: 0, Height: 4}); !errors.Is(err, graphics.ErrInvalidSize) {
		t.Errorf("zero width = %v, want ErrInvalidSize", err)
	}

	cb, err := d.BeginCommandBuffer(&graphics.PassDescriptor{Color: color, Depth: depth})
	if err != nil {
		t.Fatalf("BeginCommandBuffer: %v", err)
	}
	c := cb.(*commandBuffer)
	if c.color != gputypes.TextureFormatRGBA16Float || c.depth != gputypes.TextureFormatDepth32Float {
		t.Errorf("formats = %v, %v", c.color, c.depth)
	}
	if err := cb.BindTexture(graphics.GroupTexture, depth); !errors.Is(err, ErrTextureKind) {
		t.Errorf("sampling depth = %v, want ErrTextureKind", err)
	}
	if err := cb.End(); err != nil {
		t.Fatal(err)
	}

	// A render texture without depth gets no depth attachment.
	cb, err = d.BeginCommandBuffer(&graphics.PassDescriptor{Color: color})
	if err != nil {
		t.Fatal(err)
	}
	if c := cb.(*commandBuffer); c.depth != gputypes.TextureFormatUndefined {
		t.Errorf("depth format = %v, want undefined", c.depth)
	}
	_ = cb.End()

	tests := []struct {
		name string
		desc graphics.PassDescriptor
		want error
	}{
		{"unknown color", graphics.PassDescriptor{Color: 99}, ErrUnknownTexture},
		{"unknown depth", graphics.PassDescriptor{Depth: 99}, ErrUnknownTexture},
		{"depth as color", graphics.PassDescriptor{Color: depth}, ErrTextureKind},
		{"color as depth", graphics.PassDescriptor{Color: color, Depth: color}, ErrTextureKind},
	}
	for _, tt := range tests {
		if _, err := d.BeginCommandBuffer(&tt.desc); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}

	d.DestroyTexture(color)
	if _, ok := d.texture(color); ok {
		t.Error("texture kept after DestroyTexture")
	}
	d.DestroyTexture(color)
}

func TestDisplayPauseResizeClose(t *testing.T) {
	d := newTestDisplay(t, 8, 8)

	d.OnPause()
	if err := d.BeginFrame(); !errors.Is(err, ErrPaused) {
		t.Errorf("BeginFrame while paused = %v, want ErrPaused", err)
	}
	d.OnResume()
	if err := d.BeginFrame(); err != nil {
		t.Errorf("BeginFrame after resume = %v", err)
	}

	d.OnResize(0, 10)
	if d.Width() != 8 {
		t.Error("zero-size resize applied")
	}
	d.OnResize(20, 10)
	if d.Width() != 20 || d.Height() != 10 || d.back.width != 20 {
		t.Errorf("size after resize = %dx%d", d.Width(), d.Height())
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.BeginFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("BeginFrame after Close = %v, want ErrClosed", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestPipelineFormats(t *testing.T) {
	d := newTestDisplay(t, 8, 8)
	pass := testPass(t, graphics.DefaultRenderState)

	if err := d.PreparePipeline(pass); err != nil {
		t.Fatalf("PreparePipeline: %v", err)
	}
	if _, err := d.pipelines.GetOrCreate(pass, gputypes.TextureFormatRGBA16Float, gputypes.TextureFormatUndefined); err != nil {
		t.Fatal(err)
	}
	if d.pipelines.Size() != 2 {
		t.Errorf("pipelines = %d, want one per format pair", d.pipelines.Size())
	}
	if _, err := d.pipelines.GetOrCreate(&graphics.ShaderPass{Name: "bare"}, 0, 0); !errors.Is(err, ErrPipelineCacheNoProgram) {
		t.Errorf("pass without program = %v, want ErrPipelineCacheNoProgram", err)
	}
	if _, err := d.pipelines.GetOrCreate(nil, 0, 0); !errors.Is(err, ErrPipelineCacheNilPass) {
		t.Errorf("nil pass = %v, want ErrPipelineCacheNilPass", err)
	}

	d.pipelines.DestroyAll()
	if d.pipelines.Size() != 0 || d.pipelines.HitRate() != 0 {
		t.Error("DestroyAll left state behind")
	}
}

func TestPipelineDescriptorState(t *testing.T) {
	pass := &graphics.ShaderPass{Name: "p", State: graphics.RenderState{
		Blend:      graphics.BlendAdditive,
		Cull:       graphics.CullNone,
		DepthTest:  false,
		DepthWrite: false,
	}}
	desc := pipelineDescriptor(pass, nil, nil, gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatDepth24PlusStencil8)
	if desc.Primitive.CullMode != gputypes.CullModeNone {
		t.Errorf("cull = %v", desc.Primitive.CullMode)
	}
	if desc.DepthStencil == nil || desc.DepthStencil.DepthCompare != gputypes.CompareFunctionAlways {
		t.Error("depth test disabled should compare Always")
	}
	blend := desc.Fragment.Targets[0].Blend
	if blend == nil || blend.Color.DstFactor != gputypes.BlendFactorOne {
		t.Errorf("additive blend = %+v", blend)
	}

	pass.State = graphics.DefaultRenderState
	desc = pipelineDescriptor(pass, nil, nil, gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatUndefined)
	if desc.DepthStencil != nil {
		t.Error("depth state without a depth attachment")
	}
	if desc.Fragment.Targets[0].Blend != nil {
		t.Error("opaque pass has a blend state")
	}
	if desc.Vertex.Buffers[0].ArrayStride != graphics.VertexStride {
		t.Errorf("stride = %d", desc.Vertex.Buffers[0].ArrayStride)
	}
}

// plainProvider is a device provider without HAL access.
type plainProvider struct{}

func (plainProvider) Device() gpucontext.Device             { return nil }
func (plainProvider) Queue() gpucontext.Queue               { return nil }
func (plainProvider) Adapter() gpucontext.Adapter           { return nil }
func (plainProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }
func (plainProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }

type halProviderStub struct {
	plainProvider
	device, queue any
}

func (p halProviderStub) HalDevice() any { return p.device }
func (p halProviderStub) HalQueue() any  { return p.queue }

func TestOpenAndProviders(t *testing.T) {
	d, err := Open(noop.API{}, graphics.DisplayOptions{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if d.BackBufferFormat() != graphics.TextureFormatBGRA8 {
		t.Errorf("back buffer = %s", d.BackBufferFormat())
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if _, err := NewFromProvider(plainProvider{}, graphics.DisplayOptions{Width: 4, Height: 4}); !errors.Is(err, ErrNotHALProvider) {
		t.Errorf("plain provider = %v, want ErrNotHALProvider", err)
	}
	if _, err := NewFromProvider(halProviderStub{device: 1, queue: 2}, graphics.DisplayOptions{Width: 4, Height: 4}); !errors.Is(err, ErrNotHALProvider) {
		t.Errorf("wrong HAL types = %v, want ErrNotHALProvider", err)
	}

	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	shared, err := NewFromProvider(halProviderStub{device: device, queue: queue}, graphics.DisplayOptions{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("NewFromProvider: %v", err)
	}
	if err := shared.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestBackendsRegistered(t *testing.T) {
	names := graphics.BackendNames()
	found := false
	for _, n := range names {
		if n == BackendNoop {
			found = true
		}
	}
	if !found {
		t.Errorf("backends = %v, want %q registered", names, BackendNoop)
	}
	d, err := graphics.NewDisplay(BackendNoop, graphics.DisplayOptions{Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("NewDisplay: %v", err)
	}
	_ = d.Close()
}
