// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"sync"
)

// Buffer is a host-visible GPU buffer backed by a single allocation.
//
// The zero-size Buffer returned by NewBuffer holds no device resources.
// Create allocates them; Destroy releases them. Size is fixed once created.
//
// Buffer is not safe for concurrent Fill/UpdateRange calls. Destroy may be
// called from any goroutine and is idempotent.
type Buffer struct {
	device Device

	mu        sync.Mutex
	handle    BufferHandle
	memory    MemoryHandle
	size      uint64
	allocSize uint64
	typ       BufferType
	dynamic   bool
	label     string
}

// NewBuffer returns an empty buffer bound to device.
func NewBuffer(device Device) *Buffer {
	return &Buffer{device: device}
}

// SetLabel sets the debug label used when the buffer is created.
func (b *Buffer) SetLabel(label string) {
	b.label = label
}

// Create creates the device buffer with exactly size bytes, allocates
// HostVisible|HostCoherent memory for it and binds the two.
//
// Calling Create on a buffer that already exists does nothing.
func (b *Buffer) Create(typ BufferType, size uint64, dynamic bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handle != InvalidHandle {
		return nil
	}
	if size == 0 {
		return ErrInvalidBufferSize
	}

	h, err := b.device.CreateBuffer(&BufferDescriptor{Label: b.label, Size: size, Type: typ})
	if err != nil {
		return fmt.Errorf("gpu: create %s buffer: %w", typ, err)
	}

	req := b.device.BufferMemoryRequirements(h)
	typeIndex, err := FindMemoryType(b.device.MemoryTypes(), req.TypeBits, HostMemory)
	if err != nil {
		b.device.DestroyBuffer(h)
		return err
	}

	allocSize := req.Size
	if allocSize < size {
		allocSize = size
	}
	mem, err := b.device.AllocateMemory(allocSize, typeIndex)
	if err != nil {
		b.device.DestroyBuffer(h)
		return fmt.Errorf("gpu: allocate %d bytes: %w", allocSize, err)
	}
	if err := b.device.BindBufferMemory(h, mem, 0); err != nil {
		b.device.FreeMemory(mem)
		b.device.DestroyBuffer(h)
		return fmt.Errorf("gpu: bind buffer memory: %w", err)
	}

	b.handle = h
	b.memory = mem
	b.size = size
	b.allocSize = allocSize
	b.typ = typ
	b.dynamic = dynamic

	liveBuffers.Add(1)
	liveBytes.Add(int64(allocSize))

	slogger().Debug("gpu: buffer created",
		"label", b.label,
		"type", typ,
		"size", size,
		"memoryType", typeIndex,
		"dynamic", dynamic,
	)
	return nil
}

// Fill maps the whole buffer and passes the mapped bytes to fn.
// The slice is only valid during fn. The memory is unmapped even if fn panics.
func (b *Buffer) Fill(fn func(data []byte)) error {
	if b.handle == InvalidHandle {
		return ErrBufferNotCreated
	}
	data, err := b.device.MapMemory(b.memory, 0, b.size)
	if err != nil {
		return fmt.Errorf("gpu: map buffer: %w", err)
	}
	defer b.device.UnmapMemory(b.memory)

	fn(data)
	return nil
}

// UpdateRange copies data into the buffer at offset.
// Only the touched range is mapped. offset+len(data) must not exceed Size.
func (b *Buffer) UpdateRange(offset uint64, data []byte) error {
	if b.handle == InvalidHandle {
		return ErrBufferNotCreated
	}
	if len(data) == 0 {
		return nil
	}
	dst, err := b.device.MapMemory(b.memory, offset, uint64(len(data)))
	if err != nil {
		return fmt.Errorf("gpu: map buffer range [%d,+%d): %w", offset, len(data), err)
	}
	defer b.device.UnmapMemory(b.memory)

	copy(dst, data)
	return nil
}

// Destroy waits for the device to become idle, then frees the memory and
// the buffer handle. Subsequent calls do nothing.
//
// The resources are released even if the wait fails; the wait error is
// returned.
func (b *Buffer) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handle == InvalidHandle {
		return nil
	}

	err := b.device.WaitIdle()
	if err != nil {
		err = fmt.Errorf("gpu: wait idle before destroy: %w", err)
	}

	b.device.FreeMemory(b.memory)
	b.device.DestroyBuffer(b.handle)

	liveBuffers.Add(-1)
	liveBytes.Add(-int64(b.allocSize))

	b.handle = InvalidHandle
	b.memory = InvalidHandle
	b.size = 0
	b.allocSize = 0
	return err
}

// Size returns the buffer size in bytes, or zero before Create.
func (b *Buffer) Size() uint64 { return b.size }

// Type returns the buffer type passed to Create.
func (b *Buffer) Type() BufferType { return b.typ }

// Dynamic reports whether the buffer is expected to be rewritten often.
func (b *Buffer) Dynamic() bool { return b.dynamic }

// Handle returns the device buffer handle, or InvalidHandle.
func (b *Buffer) Handle() BufferHandle { return b.handle }

// Memory returns the backing allocation, or InvalidHandle.
func (b *Buffer) Memory() MemoryHandle { return b.memory }

// Created reports whether the device resources exist.
func (b *Buffer) Created() bool { return b.handle != InvalidHandle }

// Device returns the device the buffer belongs to.
func (b *Buffer) Device() Device { return b.device }
