// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"strings"
)

// BufferHandle identifies a device buffer. Zero is never a valid handle.
type BufferHandle uint64

// MemoryHandle identifies a device memory allocation. Zero is never a valid handle.
type MemoryHandle uint64

// InvalidHandle is the zero handle returned alongside errors.
const InvalidHandle = 0

// BufferType selects the usage a buffer is created for.
type BufferType int

const (
	// BufferTypeNone creates a buffer without a usage bit. Only useful in tests.
	BufferTypeNone BufferType = iota
	// BufferTypeVertex holds per-vertex attributes.
	BufferTypeVertex
	// BufferTypeIndex holds 16 or 32 bit indices.
	BufferTypeIndex
	// BufferTypeUniform holds shader uniform blocks.
	BufferTypeUniform
	// BufferTypeImage is a transfer source for texture uploads.
	BufferTypeImage
)

// String returns the string representation of BufferType.
func (t BufferType) String() string {
	switch t {
	case BufferTypeNone:
		return "None"
	case BufferTypeVertex:
		return "Vertex"
	case BufferTypeIndex:
		return "Index"
	case BufferTypeUniform:
		return "Uniform"
	case BufferTypeImage:
		return "Image"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// MemoryProperty is a bitmask describing a memory type.
type MemoryProperty uint32

const (
	// MemoryPropertyDeviceLocal is memory local to the GPU.
	MemoryPropertyDeviceLocal MemoryProperty = 1 << iota
	// MemoryPropertyHostVisible can be mapped into the host address space.
	MemoryPropertyHostVisible
	// MemoryPropertyHostCoherent needs no explicit flush after host writes.
	MemoryPropertyHostCoherent
	// MemoryPropertyHostCached is cached on the host.
	MemoryPropertyHostCached
)

// Contains reports whether all bits of other are set in p.
func (p MemoryProperty) Contains(other MemoryProperty) bool {
	return p&other == other
}

// String returns the set flags joined by '|'.
func (p MemoryProperty) String() string {
	if p == 0 {
		return "None"
	}
	var parts []string
	names := []struct {
		bit  MemoryProperty
		name string
	}{
		{MemoryPropertyDeviceLocal, "DeviceLocal"},
		{MemoryPropertyHostVisible, "HostVisible"},
		{MemoryPropertyHostCoherent, "HostCoherent"},
		{MemoryPropertyHostCached, "HostCached"},
	}
	for _, n := range names {
		if p.Contains(n.bit) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// MemoryType is one entry of the device's memory type table.
type MemoryType struct {
	Properties MemoryProperty
	HeapIndex  uint32
}

// MemoryRequirements is what the device needs to back a buffer.
type MemoryRequirements struct {
	// Size is the allocation size, possibly larger than the buffer size.
	Size uint64

	// Alignment of the allocation offset.
	Alignment uint64

	// TypeBits has bit i set when memory type i may back the buffer.
	TypeBits uint32
}

// BufferDescriptor describes a buffer to create on a Device.
type BufferDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Type selects the usage bits.
	Type BufferType
}

// Device is the low-level graphics device used by Buffer.
//
// The contract follows the explicit-memory model of Vulkan: a buffer handle
// and a memory allocation are created separately and bound together. Memory
// from a HostVisible type can be mapped; HostCoherent memory makes writes
// visible to the GPU on unmap without an explicit flush.
//
// Destroying a handle that is still referenced by in-flight GPU work is
// undefined; callers use WaitIdle first.
type Device interface {
	// CreateBuffer creates a buffer handle without backing memory.
	CreateBuffer(desc *BufferDescriptor) (BufferHandle, error)

	// DestroyBuffer releases a buffer handle.
	DestroyBuffer(h BufferHandle)

	// BufferMemoryRequirements returns the allocation constraints for h.
	BufferMemoryRequirements(h BufferHandle) MemoryRequirements

	// MemoryTypes returns the device memory type table.
	MemoryTypes() []MemoryType

	// AllocateMemory allocates size bytes from the given memory type.
	AllocateMemory(size uint64, typeIndex uint32) (MemoryHandle, error)

	// FreeMemory releases an allocation.
	FreeMemory(m MemoryHandle)

	// BindBufferMemory binds m at offset as the backing store of b.
	BindBufferMemory(b BufferHandle, m MemoryHandle, offset uint64) error

	// MapMemory maps [offset, offset+size) of m into host memory.
	// The returned slice is valid until UnmapMemory.
	MapMemory(m MemoryHandle, offset, size uint64) ([]byte, error)

	// UnmapMemory ends the current mapping of m.
	UnmapMemory(m MemoryHandle)

	// WaitIdle blocks until all submitted GPU work has completed.
	WaitIdle() error
}
