// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package g3d

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/config"
	"github.com/gogpu/g3d/graphics"
	"github.com/gogpu/g3d/physics"
	"github.com/gogpu/g3d/shader"
)

// Option configures an Engine during creation.
//
// Example:
//
//	// Headless engine without physics
//	e := g3d.New(g3d.WithBackend("noop"), g3d.WithPhysics(false))
//
//	// Engine drawing on a display owned by the host
//	e := g3d.New(g3d.WithDisplay(display))
type Option func(*options)

// options holds the configuration applied by Engine.Init.
type options struct {
	display     graphics.Display
	backend     string
	width       int
	height      int
	label       string
	physics     bool
	physicsOpts []physics.Option
	audio       Audio
	shaderDir   string
	hotReload   bool
	shaders     *shader.Library
	drainLimit  int
	objectCap   int
	resourceCap int
	logger      *slog.Logger
}

func defaultOptions() options {
	return options{
		width:       1280,
		height:      720,
		label:       "g3d",
		physics:     true,
		resourceCap: 256,
	}
}

// WithDisplay renders onto d instead of opening a display in Init.
// The engine does not close a display it did not open.
func WithDisplay(d graphics.Display) Option {
	return func(o *options) { o.display = d }
}

// WithBackend selects the display backend opened by Init.
// An empty name picks the highest-priority available backend.
func WithBackend(name string) Option {
	return func(o *options) { o.backend = name }
}

// WithDisplaySize sets the size of the display opened by Init.
func WithDisplaySize(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithPhysics enables or disables the physics subsystem. The optional
// space options are passed to physics.NewSpace.
func WithPhysics(enabled bool, opts ...physics.Option) Option {
	return func(o *options) {
		o.physics = enabled
		o.physicsOpts = append(o.physicsOpts, opts...)
	}
}

// WithAudio installs the audio subsystem. The default discards every call.
func WithAudio(a Audio) Option {
	return func(o *options) { o.audio = a }
}

// WithShaderDir loads shaders from dir, watching it when hotReload is set.
func WithShaderDir(dir string, hotReload bool) Option {
	return func(o *options) {
		o.shaderDir = dir
		o.hotReload = hotReload
	}
}

// WithShaderLibrary uses lib as the shader subsystem. It overrides
// WithShaderDir.
func WithShaderLibrary(lib *shader.Library) Option {
	return func(o *options) { o.shaders = lib }
}

// WithDrainLimit caps the drain iterations of one World update.
// Zero means no cap.
func WithDrainLimit(n int) Option {
	return func(o *options) { o.drainLimit = n }
}

// WithCacheCapacity sizes the object and resource caches. Zero means
// unlimited.
func WithCacheCapacity(objects, resources int) Option {
	return func(o *options) {
		o.objectCap = objects
		o.resourceCap = resources
	}
}

// WithLogger calls SetLogger with l when the engine is created.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConfig applies a file configuration. Options given after it
// override its values.
func WithConfig(c *config.Config) Option {
	return func(o *options) {
		o.backend = c.Display.Backend
		o.width = c.Display.Width
		o.height = c.Display.Height
		o.drainLimit = c.World.DrainLimit
		o.shaderDir = c.Shaders.Dir
		o.hotReload = c.Shaders.HotReload
		o.objectCap = c.Cache.Objects
		o.resourceCap = c.Cache.Resources
		o.physics = c.Physics.Enabled
		o.physicsOpts = append(o.physicsOpts,
			physics.WithTimestep(c.Physics.Timestep),
			physics.WithGravity(mgl32.Vec2(c.Physics.Gravity)),
		)
	}
}
