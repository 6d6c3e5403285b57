// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/g3d/gpu"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/world"
)

// memDevice is a host-memory gpu.Device.
type memDevice struct {
	next    uint64
	buffers map[gpu.BufferHandle]uint64
	memory  map[gpu.MemoryHandle][]byte
}

func newMemDevice() *memDevice {
	return &memDevice{
		buffers: make(map[gpu.BufferHandle]uint64),
		memory:  make(map[gpu.MemoryHandle][]byte),
	}
}

func (d *memDevice) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.BufferHandle, error) {
	d.next++
	h := gpu.BufferHandle(d.next)
	d.buffers[h] = desc.Size
	return h, nil
}

func (d *memDevice) DestroyBuffer(h gpu.BufferHandle) { delete(d.buffers, h) }

func (d *memDevice) BufferMemoryRequirements(h gpu.BufferHandle) gpu.MemoryRequirements {
	return gpu.MemoryRequirements{Size: d.buffers[h], Alignment: 4, TypeBits: 1}
}

func (d *memDevice) MemoryTypes() []gpu.MemoryType {
	return []gpu.MemoryType{{Properties: gpu.MemoryPropertyDeviceLocal | gpu.HostMemory}}
}

func (d *memDevice) AllocateMemory(size uint64, _ uint32) (gpu.MemoryHandle, error) {
	d.next++
	h := gpu.MemoryHandle(d.next)
	d.memory[h] = make([]byte, size)
	return h, nil
}

func (d *memDevice) FreeMemory(m gpu.MemoryHandle) { delete(d.memory, m) }

func (d *memDevice) BindBufferMemory(gpu.BufferHandle, gpu.MemoryHandle, uint64) error {
	return nil
}

func (d *memDevice) MapMemory(m gpu.MemoryHandle, offset, size uint64) ([]byte, error) {
	mem, ok := d.memory[m]
	if !ok {
		return nil, gpu.ErrInvalidHandle
	}
	return mem[offset : offset+size], nil
}

func (d *memDevice) UnmapMemory(gpu.MemoryHandle) {}

func (d *memDevice) WaitIdle() error { return nil }

// fakeCommandBuffer records commands as strings.
type fakeCommandBuffer struct {
	desc  PassDescriptor
	ops   []string
	ended bool
}

func (c *fakeCommandBuffer) BindUniform(group int, buf *gpu.Buffer) error {
	if buf == nil {
		return fmt.Errorf("nil uniform at group %d", group)
	}
	c.ops = append(c.ops, fmt.Sprintf("uniform %d", group))
	return nil
}

func (c *fakeCommandBuffer) BindTexture(group int, tex TextureHandle) error {
	c.ops = append(c.ops, fmt.Sprintf("texture %d=%d", group, tex))
	return nil
}

func (c *fakeCommandBuffer) BindPipeline(pass *ShaderPass) error {
	c.ops = append(c.ops, "pipeline "+pass.Name)
	return nil
}

func (c *fakeCommandBuffer) BindVertexBuffer(*gpu.Buffer) { c.ops = append(c.ops, "vertex") }
func (c *fakeCommandBuffer) BindIndexBuffer(*gpu.Buffer)  { c.ops = append(c.ops, "index") }

func (c *fakeCommandBuffer) BindVertexArray(v, i *gpu.Buffer) {
	c.ops = append(c.ops, "vertex-array")
}

func (c *fakeCommandBuffer) SetViewport(x, y, w, h int) {
	c.ops = append(c.ops, fmt.Sprintf("viewport %d %d %d %d", x, y, w, h))
}

func (c *fakeCommandBuffer) DrawIndexed(start, count int) {
	c.ops = append(c.ops, fmt.Sprintf("draw %d %d", start, count))
}

func (c *fakeCommandBuffer) End() error {
	c.ended = true
	return nil
}

// fakeDisplay records frames, submissions and textures.
type fakeDisplay struct {
	dev           *memDevice
	width, height int

	frames    int
	submitted []*fakeCommandBuffer
	prepared  map[uint64]int
	textures  map[TextureHandle]TextureDescriptor
	next      TextureHandle
	resized   int
	paused    int
	closed    bool
	failBegin error
}

func newFakeDisplay(w, h int) *fakeDisplay {
	return &fakeDisplay{
		dev:      newMemDevice(),
		width:    w,
		height:   h,
		prepared: make(map[uint64]int),
		textures: make(map[TextureHandle]TextureDescriptor),
	}
}

func (d *fakeDisplay) Device() gpu.Device              { return d.dev }
func (d *fakeDisplay) Width() int                      { return d.width }
func (d *fakeDisplay) Height() int                     { return d.height }
func (d *fakeDisplay) BackBufferFormat() TextureFormat { return TextureFormatBGRA8 }
func (d *fakeDisplay) BeginFrame() error               { return nil }
func (d *fakeDisplay) EndFrame() error                 { return nil }
func (d *fakeDisplay) WaitQueueIdle() error            { return nil }
func (d *fakeDisplay) OnResume()                       {}

func (d *fakeDisplay) SwapBuffers() error {
	d.frames++
	return nil
}

func (d *fakeDisplay) BeginCommandBuffer(desc *PassDescriptor) (CommandBuffer, error) {
	if d.failBegin != nil {
		return nil, d.failBegin
	}
	return &fakeCommandBuffer{desc: *desc}, nil
}

func (d *fakeDisplay) SubmitQueue(cb CommandBuffer) error {
	fc, ok := cb.(*fakeCommandBuffer)
	if !ok || !fc.ended {
		return errors.New("submit of unfinished command buffer")
	}
	d.submitted = append(d.submitted, fc)
	return nil
}

func (d *fakeDisplay) PreparePipeline(pass *ShaderPass) error {
	d.prepared[pass.Key()]++
	return nil
}

func (d *fakeDisplay) CreateTexture(desc *TextureDescriptor) (TextureHandle, error) {
	d.next++
	d.textures[d.next] = *desc
	return d.next, nil
}

func (d *fakeDisplay) DestroyTexture(h TextureHandle) { delete(d.textures, h) }

func (d *fakeDisplay) OnResize(w, h int) {
	d.width, d.height = w, h
	d.resized++
}

func (d *fakeDisplay) OnPause() { d.paused++ }

func (d *fakeDisplay) Close() error {
	d.closed = true
	return nil
}

func (d *fakeDisplay) draws() int {
	n := 0
	for _, cb := range d.submitted {
		for _, op := range cb.ops {
			if len(op) > 4 && op[:4] == "draw" {
				n++
			}
		}
	}
	return n
}

func fakeCompiler(src string) ([]byte, error) {
	if src == "" {
		return nil, errors.New("empty")
	}
	return []byte{0x03, 0x02, 0x23, 0x07}, nil
}

// testRig is a world, a fake display and a Graphics drawing one into the
// other.
type testRig struct {
	display *fakeDisplay
	world   *world.World
	lib     *shader.Library
	pool    *RenderTexturePool
	gfx     *Graphics
	unlit   *Shader
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	d := newFakeDisplay(320, 240)
	w := world.New()
	if err := w.Init(); err != nil {
		t.Fatal(err)
	}
	lib := shader.NewLibrary(shader.WithCompiler(fakeCompiler))
	pool := NewRenderTexturePool(d)
	g := New(d, w, lib, pool)
	unlit, err := NewUnlitShader(d, lib)
	if err != nil {
		t.Fatalf("NewUnlitShader: %v", err)
	}
	return &testRig{display: d, world: w, lib: lib, pool: pool, gfx: g, unlit: unlit}
}

// addCamera creates a camera object at z=-5 looking at the origin.
func (r *testRig) addCamera(name string, depth int) *Camera {
	obj := world.NewGameObject(name)
	obj.Transform().SetLocalPosition([3]float32{0, 0, -5})
	cam := NewCamera(r.gfx.Pipeline())
	cam.SetDepth(depth)
	obj.AddComponent(cam)
	r.world.AddGameObject(obj)
	return cam
}

// addCube creates a unit cube renderer at pos.
func (r *testRig) addCube(t *testing.T, name string, pos [3]float32) (*world.GameObject, *MeshRenderer) {
	t.Helper()
	mesh, err := NewCubeMesh(r.display.Device(), 1, [6]Color{White, White, White, White, White, White})
	if err != nil {
		t.Fatalf("NewCubeMesh: %v", err)
	}
	obj := world.NewGameObject(name)
	obj.Transform().SetLocalPosition(pos)
	mr := NewMeshRenderer(mesh, NewMaterial(r.display.Device(), r.unlit))
	obj.AddComponent(mr)
	r.world.AddGameObject(obj)
	return obj, mr
}
