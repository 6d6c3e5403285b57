// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package native

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/gpu"
)

// uniformAlignment is the minimum offset alignment of uniform bindings.
const uniformAlignment = 256

// Device implements gpu.Device on a HAL device and queue.
//
// HAL buffers are written through the queue, so device memory is emulated:
// each allocation is a host shadow that buffers are bound into. Unmapping a
// range uploads it to every buffer bound over it, which makes the single
// exposed memory type host coherent.
//
// Thread Safety: Device is safe for concurrent use.
type Device struct {
	mu     sync.Mutex
	device hal.Device
	queue  hal.Queue

	// ID generation; 0 is gpu.InvalidHandle.
	nextID atomic.Uint64

	buffers  map[gpu.BufferHandle]*bufferRecord
	memories map[gpu.MemoryHandle]*memoryRecord
	inflight []submission
	lastSub  uint64

	onDestroyBuffer []func(gpu.BufferHandle)
}

type bufferRecord struct {
	buf    hal.Buffer
	size   uint64
	mem    gpu.MemoryHandle
	offset uint64
}

type memoryRecord struct {
	data    []byte
	bound   []gpu.BufferHandle
	mapped  bool
	mapOff  uint64
	mapSize uint64
}

type submission struct {
	index uint64
	cmd   hal.CommandBuffer
}

var _ gpu.Device = (*Device)(nil)

// NewDevice wraps a HAL device and its queue.
func NewDevice(device hal.Device, queue hal.Queue) *Device {
	d := &Device{
		device:   device,
		queue:    queue,
		buffers:  make(map[gpu.BufferHandle]*bufferRecord),
		memories: make(map[gpu.MemoryHandle]*memoryRecord),
	}
	d.nextID.Store(1)
	return d
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// HAL returns the wrapped device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

func bufferUsage(t gpu.BufferType) gputypes.BufferUsage {
	switch t {
	case gpu.BufferTypeVertex:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	case gpu.BufferTypeIndex:
		return gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
	case gpu.BufferTypeUniform:
		return gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	case gpu.BufferTypeImage:
		return gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageCopyDst
	}
}

func align4(v uint64) uint64 { return (v + 3) &^ 3 }

// CreateBuffer creates a HAL buffer with no memory bound.
func (d *Device) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.BufferHandle, error) {
	size := align4(desc.Size)
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: bufferUsage(desc.Type),
	})
	if err != nil {
		return gpu.InvalidHandle, fmt.Errorf("native: create buffer %q: %w", desc.Label, err)
	}

	h := gpu.BufferHandle(d.newID())
	d.mu.Lock()
	d.buffers[h] = &bufferRecord{buf: buf, size: size}
	d.mu.Unlock()
	return h, nil
}

// DestroyBuffer releases a buffer and its cached bindings.
func (d *Device) DestroyBuffer(h gpu.BufferHandle) {
	d.mu.Lock()
	rec, ok := d.buffers[h]
	if ok {
		delete(d.buffers, h)
		if mem, ok := d.memories[rec.mem]; ok {
			mem.unbind(h)
		}
	}
	hooks := d.onDestroyBuffer
	d.mu.Unlock()

	if !ok {
		return
	}
	for _, fn := range hooks {
		fn(h)
	}
	d.device.DestroyBuffer(rec.buf)
}

// OnDestroyBuffer registers fn to run after a buffer handle is destroyed.
func (d *Device) OnDestroyBuffer(fn func(gpu.BufferHandle)) {
	d.mu.Lock()
	d.onDestroyBuffer = append(d.onDestroyBuffer, fn)
	d.mu.Unlock()
}

// BufferMemoryRequirements reports the aligned size and the single memory
// type.
func (d *Device) BufferMemoryRequirements(h gpu.BufferHandle) gpu.MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.buffers[h]
	if !ok {
		return gpu.MemoryRequirements{}
	}
	return gpu.MemoryRequirements{Size: rec.size, Alignment: uniformAlignment, TypeBits: 1}
}

// MemoryTypes returns one device-local, host-visible, coherent type.
func (d *Device) MemoryTypes() []gpu.MemoryType {
	return []gpu.MemoryType{{
		Properties: gpu.MemoryPropertyDeviceLocal | gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent,
	}}
}

// AllocateMemory allocates a host shadow of size bytes.
func (d *Device) AllocateMemory(size uint64, typeIndex uint32) (gpu.MemoryHandle, error) {
	if typeIndex != 0 {
		return gpu.InvalidHandle, fmt.Errorf("%w: memory type %d", gpu.ErrNoCompatibleMemory, typeIndex)
	}
	h := gpu.MemoryHandle(d.newID())
	d.mu.Lock()
	d.memories[h] = &memoryRecord{data: make([]byte, align4(size))}
	d.mu.Unlock()
	return h, nil
}

// FreeMemory releases an allocation. Buffers bound to it stay valid but
// are no longer written.
func (d *Device) FreeMemory(m gpu.MemoryHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	mem, ok := d.memories[m]
	if !ok {
		return
	}
	for _, b := range mem.bound {
		if rec, ok := d.buffers[b]; ok {
			rec.mem = gpu.InvalidHandle
		}
	}
	delete(d.memories, m)
}

// BindBufferMemory binds b to m at offset.
func (d *Device) BindBufferMemory(b gpu.BufferHandle, m gpu.MemoryHandle, offset uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.buffers[b]
	if !ok {
		return fmt.Errorf("%w: buffer %d", gpu.ErrInvalidHandle, b)
	}
	mem, ok := d.memories[m]
	if !ok {
		return fmt.Errorf("%w: memory %d", gpu.ErrInvalidHandle, m)
	}
	if offset+rec.size > uint64(len(mem.data)) {
		return fmt.Errorf("native: bind buffer %d: %d bytes at %d exceed allocation of %d",
			b, rec.size, offset, len(mem.data))
	}
	rec.mem = m
	rec.offset = offset
	mem.bound = append(mem.bound, b)
	return nil
}

// MapMemory returns the shadow range [offset, offset+size).
func (d *Device) MapMemory(m gpu.MemoryHandle, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	mem, ok := d.memories[m]
	if !ok {
		return nil, fmt.Errorf("%w: memory %d", gpu.ErrInvalidHandle, m)
	}
	if offset+size > uint64(len(mem.data)) {
		return nil, fmt.Errorf("native: map %d bytes at %d of %d", size, offset, len(mem.data))
	}
	mem.mapped = true
	mem.mapOff = offset
	mem.mapSize = size
	return mem.data[offset : offset+size], nil
}

// UnmapMemory uploads the mapped range to every buffer bound over it.
func (d *Device) UnmapMemory(m gpu.MemoryHandle) {
	d.mu.Lock()
	mem, ok := d.memories[m]
	if !ok || !mem.mapped {
		d.mu.Unlock()
		return
	}
	mem.mapped = false
	type upload struct {
		buf    hal.Buffer
		offset uint64
		data   []byte
	}
	var uploads []upload
	for _, b := range mem.bound {
		rec := d.buffers[b]
		start := max(mem.mapOff, rec.offset)
		end := min(mem.mapOff+mem.mapSize, rec.offset+rec.size)
		if start >= end {
			continue
		}
		start = rec.offset + (start-rec.offset)&^3
		end = min(rec.offset+align4(end-rec.offset), rec.offset+rec.size)
		uploads = append(uploads, upload{rec.buf, start - rec.offset, mem.data[start:end]})
	}
	d.mu.Unlock()

	for _, u := range uploads {
		if err := d.queue.WriteBuffer(u.buf, u.offset, u.data); err != nil {
			slogger().Warn("native: write buffer", "offset", u.offset, "size", len(u.data), "err", err)
		}
	}
}

func (m *memoryRecord) unbind(b gpu.BufferHandle) {
	for i, h := range m.bound {
		if h == b {
			m.bound = append(m.bound[:i], m.bound[i+1:]...)
			return
		}
	}
}

// halBuffer returns the HAL buffer of h.
func (d *Device) halBuffer(h gpu.BufferHandle) (hal.Buffer, uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.buffers[h]
	if !ok {
		return nil, 0, false
	}
	return rec.buf, rec.size, true
}

// submit queues cmd and records its submission index. Command buffers of
// submissions the queue reports completed are released first.
func (d *Device) submit(cmd hal.CommandBuffer) error {
	d.reclaim()
	index, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		d.device.FreeCommandBuffer(cmd)
		return fmt.Errorf("native: submit: %w", err)
	}
	d.mu.Lock()
	d.inflight = append(d.inflight, submission{index: index, cmd: cmd})
	d.lastSub = max(d.lastSub, index)
	d.mu.Unlock()
	return nil
}

// reclaim frees the command buffers of completed submissions.
func (d *Device) reclaim() {
	done := d.queue.PollCompleted()
	d.mu.Lock()
	var finished []hal.CommandBuffer
	kept := d.inflight[:0]
	for _, s := range d.inflight {
		if s.index <= done {
			finished = append(finished, s.cmd)
		} else {
			kept = append(kept, s)
		}
	}
	clear(d.inflight[len(kept):])
	d.inflight = kept
	d.mu.Unlock()

	for _, cmd := range finished {
		d.device.FreeCommandBuffer(cmd)
	}
}

// InFlight returns the number of submissions whose command buffers have
// not been released.
func (d *Device) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}

// LastSubmission returns the index of the most recent submission, or 0.
func (d *Device) LastSubmission() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSub
}

// Completed returns the highest submission index the GPU has finished.
func (d *Device) Completed() uint64 { return d.queue.PollCompleted() }

// WaitIdle blocks until the GPU has finished every submission and
// releases their command buffers. It returns at once when nothing is in
// flight.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	pending := d.inflight
	d.inflight = nil
	d.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	err := d.device.WaitIdle()
	for _, s := range pending {
		d.device.FreeCommandBuffer(s.cmd)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", gpu.ErrDeviceLost, err)
	}
	return nil
}

// Destroy waits for the GPU and releases every remaining buffer.
func (d *Device) Destroy() {
	if err := d.WaitIdle(); err != nil {
		slogger().Warn("native: wait idle on destroy", "err", err)
	}
	d.mu.Lock()
	bufs := d.buffers
	d.buffers = make(map[gpu.BufferHandle]*bufferRecord)
	clear(d.memories)
	d.mu.Unlock()

	for _, rec := range bufs {
		d.device.DestroyBuffer(rec.buf)
	}
}
