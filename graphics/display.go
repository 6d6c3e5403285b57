// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"errors"
	"fmt"

	"github.com/gogpu/g3d/gpu"
)

// Graphics errors.
var (
	// ErrPassNotRecording is returned by RenderPass draw methods outside
	// Begin/End.
	ErrPassNotRecording = errors.New("graphics: render pass is not recording")

	// ErrPassRecording is returned by Begin on a pass that is already recording.
	ErrPassRecording = errors.New("graphics: render pass is already recording")

	// ErrNoDisplay is returned when no display backend is available.
	ErrNoDisplay = errors.New("graphics: no display backend available")

	// ErrUnknownDisplay is returned when a display backend name is not registered.
	ErrUnknownDisplay = errors.New("graphics: unknown display backend")

	// ErrInvalidSize is returned for zero or negative texture sizes.
	ErrInvalidSize = errors.New("graphics: invalid size")

	// ErrPassIndex is returned for a shader pass index out of range.
	ErrPassIndex = errors.New("graphics: shader pass index out of range")

	// ErrNoProgram is returned when a shader pass has no compiled program.
	ErrNoProgram = errors.New("graphics: shader pass has no program")
)

// Bind group slots shared by every shader.
const (
	GroupCamera   = 0
	GroupObject   = 1
	GroupMaterial = 2
	GroupTexture  = 3
)

// TextureHandle identifies a display texture. Zero means the back buffer
// for color attachments and "no attachment" for depth.
type TextureHandle uint64

// TextureFormat is the pixel format of a render texture.
type TextureFormat int

const (
	// TextureFormatRGBA8 is 8-bit normalized RGBA.
	TextureFormatRGBA8 TextureFormat = iota
	// TextureFormatBGRA8 is 8-bit normalized BGRA, the usual swapchain format.
	TextureFormatBGRA8
	// TextureFormatRGBA16F is half-float RGBA for HDR cameras.
	TextureFormatRGBA16F
	// TextureFormatDepth24Stencil8 is a packed depth-stencil format.
	TextureFormatDepth24Stencil8
	// TextureFormatDepth32F is a float depth format.
	TextureFormatDepth32F
)

// String returns the string representation of TextureFormat.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8:
		return "RGBA8"
	case TextureFormatBGRA8:
		return "BGRA8"
	case TextureFormatRGBA16F:
		return "RGBA16F"
	case TextureFormatDepth24Stencil8:
		return "Depth24Stencil8"
	case TextureFormatDepth32F:
		return "Depth32F"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// IsDepth reports whether f is a depth format.
func (f TextureFormat) IsDepth() bool {
	return f == TextureFormatDepth24Stencil8 || f == TextureFormatDepth32F
}

// TextureDescriptor describes a render texture to create.
type TextureDescriptor struct {
	Label  string
	Width  int
	Height int
	Format TextureFormat
}

// ClearFlags selects which attachments a pass clears on Begin.
type ClearFlags int

const (
	// ClearFlagsNone keeps previous contents.
	ClearFlagsNone ClearFlags = 0
	// ClearFlagsColor clears the color attachment.
	ClearFlagsColor ClearFlags = 1 << 0
	// ClearFlagsDepth clears the depth attachment.
	ClearFlagsDepth ClearFlags = 1 << 1
	// ClearFlagsColorAndDepth clears both.
	ClearFlagsColorAndDepth = ClearFlagsColor | ClearFlagsDepth
)

// Has reports whether all bits of o are set.
func (c ClearFlags) Has(o ClearFlags) bool { return c&o == o }

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float32
}

// Common colors.
var (
	Black = Color{0, 0, 0, 1}
	White = Color{1, 1, 1, 1}
	Clear = Color{}
)

// Rect is a normalized viewport rectangle; {0, 0, 1, 1} covers the target.
type Rect struct {
	X, Y, W, H float32
}

// FullRect covers the whole target.
var FullRect = Rect{0, 0, 1, 1}

// Pixels scales r to a width x height target.
func (r Rect) Pixels(width, height int) (x, y, w, h int) {
	x = int(r.X * float32(width))
	y = int(r.Y * float32(height))
	w = int(r.W * float32(width))
	h = int(r.H * float32(height))
	return x, y, w, h
}

// PassDescriptor describes the attachments of a command buffer.
type PassDescriptor struct {
	Label string

	// Color is the color target; zero selects the back buffer.
	Color TextureHandle

	// Depth is the depth target. With a zero Color, a zero Depth selects
	// the back buffer's depth attachment; otherwise it means none.
	Depth TextureHandle

	Clear      ClearFlags
	ClearColor Color
	ClearDepth float32
}

// Binder receives resource bindings. RenderPass and CommandBuffer both
// implement it.
type Binder interface {
	BindUniform(group int, buf *gpu.Buffer) error
	BindTexture(group int, tex TextureHandle) error
}

// CommandBuffer records the commands of one render pass.
type CommandBuffer interface {
	Binder

	// BindPipeline binds the pipeline built from pass for the current
	// attachments, creating it on first use.
	BindPipeline(pass *ShaderPass) error

	// BindVertexBuffer binds interleaved vertex data in the Vertex layout.
	BindVertexBuffer(buf *gpu.Buffer)

	// BindIndexBuffer binds 16-bit indices.
	BindIndexBuffer(buf *gpu.Buffer)

	// BindVertexArray binds vertex and index data together.
	BindVertexArray(vertex, index *gpu.Buffer)

	// SetViewport sets the pixel viewport.
	SetViewport(x, y, width, height int)

	// DrawIndexed draws count indices starting at start.
	DrawIndexed(start, count int)

	// End finishes recording.
	End() error
}

// Display is a presentation target with its device.
//
// The display owns the back buffer and every texture it creates. Command
// buffers are recorded against a PassDescriptor and handed back through
// SubmitQueue, which does not wait for the GPU. SwapBuffers waits for the
// frame's submissions before presenting.
type Display interface {
	// Device returns the device used for buffers.
	Device() gpu.Device

	// Width returns the back buffer width in pixels.
	Width() int

	// Height returns the back buffer height in pixels.
	Height() int

	// BackBufferFormat returns the color format of the back buffer.
	BackBufferFormat() TextureFormat

	BeginFrame() error
	EndFrame() error
	SwapBuffers() error

	// BeginCommandBuffer starts recording a render pass.
	BeginCommandBuffer(desc *PassDescriptor) (CommandBuffer, error)

	// SubmitQueue submits a finished command buffer.
	SubmitQueue(cb CommandBuffer) error

	// WaitQueueIdle blocks until every submission has completed.
	WaitQueueIdle() error

	// PreparePipeline compiles the GPU side of a shader pass ahead of use.
	PreparePipeline(pass *ShaderPass) error

	CreateTexture(desc *TextureDescriptor) (TextureHandle, error)
	DestroyTexture(h TextureHandle)

	OnResize(width, height int)
	OnPause()
	OnResume()

	// Close releases every resource owned by the display.
	Close() error
}
