// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package native

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/graphics"
)

// Pipeline cache errors.
var (
	// ErrPipelineCacheNilPass is returned when a pipeline is requested for a
	// nil shader pass.
	ErrPipelineCacheNilPass = errors.New("native: shader pass is nil")

	// ErrPipelineCacheNoProgram is returned when a pass has no SPIR-V.
	ErrPipelineCacheNoProgram = errors.New("native: shader pass has no SPIR-V")
)

// Shader entry points shared by every program.
const (
	vertexEntry   = "vs_main"
	fragmentEntry = "fs_main"
)

// pipelineKey identifies a pipeline: a shader pass built for a pair of
// attachment formats.
type pipelineKey struct {
	pass  uint64
	color gputypes.TextureFormat
	depth gputypes.TextureFormat
}

func (k pipelineKey) hash() uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:], k.pass)
	binary.LittleEndian.PutUint32(buf[8:], uint32(k.color))
	binary.LittleEndian.PutUint32(buf[12:], uint32(k.depth))
	return xxhash.Sum64(buf[:])
}

// moduleKey identifies a shader module by program and reload version.
type moduleKey struct {
	program uint64
	version uint64
}

// PipelineCache caches render pipelines and shader modules.
//
// Pipeline creation compiles and validates shaders, so pipelines are
// indexed by the pass key and attachment formats. A reloaded program gets
// a new pass key, and the stale pipeline stays cached until DestroyAll.
//
// Thread Safety:
// PipelineCache is safe for concurrent use. It uses RWMutex with
// double-check locking for reads and writes.
type PipelineCache struct {
	device hal.Device
	layout hal.PipelineLayout

	mu        sync.RWMutex
	pipelines map[uint64]hal.RenderPipeline
	modules   map[moduleKey]hal.ShaderModule

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPipelineCache creates an empty cache building pipelines with layout.
func NewPipelineCache(device hal.Device, layout hal.PipelineLayout) *PipelineCache {
	return &PipelineCache{
		device:    device,
		layout:    layout,
		pipelines: make(map[uint64]hal.RenderPipeline),
		modules:   make(map[moduleKey]hal.ShaderModule),
	}
}

// GetOrCreate returns the pipeline of pass for the given attachment
// formats. depth is TextureFormatUndefined for passes without depth.
func (c *PipelineCache) GetOrCreate(pass *graphics.ShaderPass, color, depth gputypes.TextureFormat) (hal.RenderPipeline, error) {
	if pass == nil {
		return nil, ErrPipelineCacheNilPass
	}
	key := pipelineKey{pass: pass.Key(), color: color, depth: depth}.hash()

	// Fast path: read lock
	c.mu.RLock()
	if p, ok := c.pipelines[key]; ok {
		c.mu.RUnlock()
		c.hits.Add(1)
		return p, nil
	}
	c.mu.RUnlock()

	// Slow path: write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pipelines[key]; ok {
		c.hits.Add(1)
		return p, nil
	}

	module, err := c.moduleLocked(pass)
	if err != nil {
		return nil, err
	}
	p, err := c.device.CreateRenderPipeline(pipelineDescriptor(pass, c.layout, module, color, depth))
	if err != nil {
		return nil, fmt.Errorf("native: create pipeline %q: %w", pass.Name, err)
	}
	c.pipelines[key] = p
	c.misses.Add(1)
	slogger().Debug("native: pipeline created", "pass", pass.Name, "color", color, "depth", depth)
	return p, nil
}

func (c *PipelineCache) moduleLocked(pass *graphics.ShaderPass) (hal.ShaderModule, error) {
	if pass.Program == nil || len(pass.Program.SPIRV()) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrPipelineCacheNoProgram, pass.Name)
	}
	key := moduleKey{program: pass.Program.Key(), version: pass.Program.Version()}
	if m, ok := c.modules[key]; ok {
		return m, nil
	}
	m, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  pass.Name,
		Source: hal.ShaderSource{SPIRV: pass.Program.SPIRV()},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create shader module %q: %w", pass.Name, err)
	}
	c.modules[key] = m
	return m, nil
}

// Size returns the number of cached pipelines.
func (c *PipelineCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pipelines)
}

// Stats returns cache hits and misses.
func (c *PipelineCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (c *PipelineCache) HitRate() float64 {
	hits, misses := c.Stats()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// DestroyAll releases every cached pipeline and module and resets stats.
func (c *PipelineCache) DestroyAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, p := range c.pipelines {
		c.device.DestroyRenderPipeline(p)
		delete(c.pipelines, k)
	}
	for k, m := range c.modules {
		c.device.DestroyShaderModule(m)
		delete(c.modules, k)
	}
	c.hits.Store(0)
	c.misses.Store(0)
}

// vertexLayout is the interleaved graphics.Vertex layout.
func vertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{{
		ArrayStride: graphics.VertexStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: graphics.VertexOffsetPosition, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x2, Offset: graphics.VertexOffsetUV, ShaderLocation: 1},
			{Format: gputypes.VertexFormatFloat32x4, Offset: graphics.VertexOffsetColor, ShaderLocation: 2},
			{Format: gputypes.VertexFormatFloat32x3, Offset: graphics.VertexOffsetNormal, ShaderLocation: 3},
		},
	}}
}

func blendState(m graphics.BlendMode) *gputypes.BlendState {
	switch m {
	case graphics.BlendAlpha:
		return &gputypes.BlendState{
			Color: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorSrcAlpha,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
			Alpha: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorOne,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
		}
	case graphics.BlendPremultiplied:
		b := gputypes.BlendStatePremultiplied()
		return &b
	case graphics.BlendAdditive:
		add := gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOne,
			Operation: gputypes.BlendOperationAdd,
		}
		return &gputypes.BlendState{Color: add, Alpha: add}
	default:
		return nil
	}
}

func cullMode(m graphics.CullMode) gputypes.CullMode {
	switch m {
	case graphics.CullFront:
		return gputypes.CullModeFront
	case graphics.CullNone:
		return gputypes.CullModeNone
	default:
		return gputypes.CullModeBack
	}
}

func keepStencil() hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
}

func pipelineDescriptor(
	pass *graphics.ShaderPass,
	layout hal.PipelineLayout,
	module hal.ShaderModule,
	color, depth gputypes.TextureFormat,
) *hal.RenderPipelineDescriptor {
	desc := &hal.RenderPipelineDescriptor{
		Label:  pass.Name,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: vertexEntry,
			Buffers:    vertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: fragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    color,
				Blend:     blendState(pass.State.Blend),
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  cullMode(pass.State.Cull),
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if depth != gputypes.TextureFormatUndefined {
		compare := gputypes.CompareFunctionAlways
		if pass.State.DepthTest {
			compare = gputypes.CompareFunctionLessEqual
		}
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            depth,
			DepthWriteEnabled: pass.State.DepthWrite,
			DepthCompare:      compare,
			StencilFront:      keepStencil(),
			StencilBack:       keepStencil(),
		}
	}
	return desc
}
