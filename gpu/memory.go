// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"sync/atomic"
)

// HostMemory is the property set every Buffer allocation requires.
const HostMemory = MemoryPropertyHostVisible | MemoryPropertyHostCoherent

// FindMemoryType returns the index of the first memory type allowed by
// typeBits whose properties contain want.
//
// Returns ErrNoCompatibleMemory when no type matches.
func FindMemoryType(types []MemoryType, typeBits uint32, want MemoryProperty) (uint32, error) {
	for i, t := range types {
		if i >= 32 {
			break
		}
		if typeBits&(1<<uint(i)) == 0 {
			continue
		}
		if t.Properties.Contains(want) {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("%w: want %s, type bits %#x", ErrNoCompatibleMemory, want, typeBits)
}

// MemoryStats reports buffer memory held through this package.
type MemoryStats struct {
	// Buffers is the number of live buffers.
	Buffers int64

	// Bytes is the total allocation size of live buffers.
	Bytes int64
}

var (
	liveBuffers atomic.Int64
	liveBytes   atomic.Int64
)

// Stats returns a snapshot of the current buffer memory usage.
func Stats() MemoryStats {
	return MemoryStats{
		Buffers: liveBuffers.Load(),
		Bytes:   liveBytes.Load(),
	}
}
