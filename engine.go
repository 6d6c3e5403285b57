// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package g3d

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/gogpu/g3d/cache"
	"github.com/gogpu/g3d/font"
	"github.com/gogpu/g3d/graphics"
	"github.com/gogpu/g3d/physics"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/world"
)

// Engine errors.
var (
	// ErrNotInitialized is returned by frame operations before Init.
	ErrNotInitialized = errors.New("g3d: engine not initialized")

	// ErrInitialized is returned by Init on a running engine.
	ErrInitialized = errors.New("g3d: engine already initialized")
)

// Subsystem is a unit of engine state started by Init and stopped by
// Deinit.
type Subsystem interface {
	Name() string
	Init() error
	Deinit()
}

// Audio is the audio subsystem. The World forwards pause and resume to it.
type Audio interface {
	Subsystem
	OnPause()
	OnResume()
}

// Resource is an asset owned by the resource cache. Destroy is called
// when the resource is evicted, replaced or the engine stops.
type Resource interface {
	Destroy()
}

// nopAudio is the default audio subsystem.
type nopAudio struct{}

func (nopAudio) Name() string { return "audio" }
func (nopAudio) Init() error  { return nil }
func (nopAudio) Deinit()      {}
func (nopAudio) OnPause()     {}
func (nopAudio) OnResume()    {}

// displays tracks the displays of running engines for SetLogger.
var (
	displaysMu sync.Mutex
	displays   = make(map[graphics.Display]struct{})
)

// Engine ties the subsystems together and drives frames.
//
// Thread Safety: Engine is driven from one goroutine. AddGameObject is
// safe for concurrent use.
type Engine struct {
	opts options

	fonts     *font.Registry
	shaders   *shader.Library
	objects   *cache.Store[uuid.UUID, *world.GameObject]
	audio     Audio
	space     *physics.Space
	resources *cache.Store[string, Resource]
	world     *world.World

	display     graphics.Display
	ownsDisplay bool
	pool        *graphics.RenderTexturePool
	gfx         *graphics.Graphics

	started []Subsystem
	running bool
	paused  bool
}

// New creates an engine. Nothing touches the GPU until Init.
func New(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		SetLogger(o.logger)
	}

	e := &Engine{opts: o, fonts: font.NewRegistry()}

	e.shaders = o.shaders
	if e.shaders == nil {
		e.shaders = shader.NewLibrary(shader.WithDir(o.shaderDir), shader.WithHotReload(o.hotReload))
	}
	e.objects = cache.New[uuid.UUID, *world.GameObject]("object-cache", o.objectCap, cache.UUIDHasher)
	e.resources = cache.New[string, Resource]("resource", o.resourceCap, cache.StringHasher,
		cache.WithRelease(func(_ string, r Resource) { r.Destroy() }))

	e.audio = o.audio
	if e.audio == nil {
		e.audio = nopAudio{}
	}
	worldOpts := []world.Option{world.WithAudio(e.audio), world.WithDrainLimit(o.drainLimit)}
	if o.physics {
		e.space = physics.NewSpace(o.physicsOpts...)
		worldOpts = append(worldOpts, world.WithPhysics(e.space))
	}
	e.world = world.New(worldOpts...)
	return e
}

// Init opens the display when none was given and starts every subsystem
// in order. On failure the started subsystems are stopped in reverse and
// the error is returned.
func (e *Engine) Init() error {
	if e.running {
		return ErrInitialized
	}
	if err := e.openDisplay(); err != nil {
		return err
	}
	e.pool = graphics.NewRenderTexturePool(e.display)
	e.gfx = graphics.New(e.display, e.world, e.shaders, e.pool)

	for _, s := range e.subsystems() {
		if err := s.Init(); err != nil {
			Logger().Error("g3d: subsystem init failed", "subsystem", s.Name(), "err", err)
			e.teardown()
			return fmt.Errorf("g3d: init %s: %w", s.Name(), err)
		}
		e.started = append(e.started, s)
		Logger().Info("g3d: subsystem started", "subsystem", s.Name())
	}
	e.running = true
	e.paused = false
	return nil
}

// subsystems returns the subsystems in start order.
func (e *Engine) subsystems() []Subsystem {
	list := []Subsystem{
		e.fonts,
		e.shaders,
		e.objects,
		e.gfx.Pipeline(),
		e.pool,
		e.audio,
		e.world.Registry(),
	}
	if e.space != nil {
		list = append(list, e.space)
	}
	return append(list, e.resources, e.world)
}

func (e *Engine) openDisplay() error {
	if e.opts.display != nil {
		e.display = e.opts.display
		e.ownsDisplay = false
	} else {
		d, err := graphics.NewDisplay(e.opts.backend, graphics.DisplayOptions{
			Width:  e.opts.width,
			Height: e.opts.height,
			Label:  e.opts.label,
		})
		if err != nil {
			return fmt.Errorf("g3d: open display: %w", err)
		}
		e.display = d
		e.ownsDisplay = true
	}
	displaysMu.Lock()
	displays[e.display] = struct{}{}
	displaysMu.Unlock()
	propagateLogger(e.display, Logger())
	return nil
}

// Deinit stops the started subsystems in reverse order and closes a
// display opened by Init. It is a no-op before Init.
func (e *Engine) Deinit() {
	if !e.running {
		return
	}
	e.teardown()
}

func (e *Engine) teardown() {
	if e.display != nil {
		if err := e.display.WaitQueueIdle(); err != nil {
			Logger().Warn("g3d: wait queue idle", "err", err)
		}
	}
	for _, s := range slices.Backward(e.started) {
		s.Deinit()
		Logger().Info("g3d: subsystem stopped", "subsystem", s.Name())
	}
	e.started = nil

	if e.display != nil {
		displaysMu.Lock()
		delete(displays, e.display)
		displaysMu.Unlock()
		if e.ownsDisplay {
			if err := e.display.Close(); err != nil {
				Logger().Warn("g3d: close display", "err", err)
			}
		}
	}
	e.display = nil
	e.ownsDisplay = false
	e.pool = nil
	e.gfx = nil
	e.running = false
}

// Running reports whether Init succeeded and Deinit has not run.
func (e *Engine) Running() bool { return e.running }

// Paused reports whether rendering is paused.
func (e *Engine) Paused() bool { return e.paused }

// World returns the scene.
func (e *Engine) World() *world.World { return e.world }

// Graphics returns the renderer, or nil before Init.
func (e *Engine) Graphics() *graphics.Graphics { return e.gfx }

// Display returns the display, or nil before Init.
func (e *Engine) Display() graphics.Display { return e.display }

// Shaders returns the shader library.
func (e *Engine) Shaders() *shader.Library { return e.shaders }

// Fonts returns the font registry.
func (e *Engine) Fonts() *font.Registry { return e.fonts }

// Physics returns the physics space, or nil when physics is disabled.
func (e *Engine) Physics() *physics.Space { return e.space }

// Audio returns the audio subsystem.
func (e *Engine) Audio() Audio { return e.audio }

// Resources returns the resource cache.
func (e *Engine) Resources() *cache.Store[string, Resource] { return e.resources }

// Objects returns the object cache indexed by GUID.
func (e *Engine) Objects() *cache.Store[uuid.UUID, *world.GameObject] { return e.objects }

// AddGameObject adds obj and its descendants to the world and indexes
// them by GUID. Safe to call from any goroutine.
func (e *Engine) AddGameObject(obj *world.GameObject) {
	e.index(obj)
	e.world.AddGameObject(obj)
}

// AddGameObjects adds several objects in one batch.
func (e *Engine) AddGameObjects(objs []*world.GameObject) {
	for _, obj := range objs {
		e.index(obj)
	}
	e.world.AddGameObjects(objs)
}

func (e *Engine) index(obj *world.GameObject) {
	e.objects.Set(obj.GUID(), obj)
	for _, child := range obj.Children() {
		e.index(child)
	}
}

// FindObject returns the object with the given GUID. Destroyed objects
// are dropped from the index and reported absent.
func (e *Engine) FindObject(id uuid.UUID) (*world.GameObject, bool) {
	obj, ok := e.objects.Get(id)
	if !ok {
		return nil, false
	}
	if obj.Deleted() {
		e.objects.Delete(id)
		return nil, false
	}
	return obj, true
}

// Update applies shader reloads and advances the world by one frame.
func (e *Engine) Update() error {
	if !e.running {
		return ErrNotInitialized
	}
	for _, p := range e.shaders.Poll() {
		Logger().Info("g3d: shader reloaded", "shader", p.Name(), "version", p.Version())
	}
	e.world.Update()
	return nil
}

// Render draws and presents one frame. Nothing is drawn while paused.
func (e *Engine) Render() error {
	if !e.running {
		return ErrNotInitialized
	}
	if e.paused {
		return nil
	}
	return e.gfx.Render()
}

// Frame runs Update then Render.
func (e *Engine) Frame() error {
	if err := e.Update(); err != nil {
		return err
	}
	return e.Render()
}

// OnPause pauses audio and rendering. The world keeps updating.
func (e *Engine) OnPause() {
	if !e.running || e.paused {
		return
	}
	e.paused = true
	e.world.OnPause()
	e.gfx.OnPause()
	Logger().Info("g3d: paused")
}

// OnResume resumes rendering and audio.
func (e *Engine) OnResume() {
	if !e.running || !e.paused {
		return
	}
	e.paused = false
	e.gfx.OnResume()
	e.world.OnResume()
	Logger().Info("g3d: resumed")
}

// OnResize forwards a window resize to the renderer and the display.
func (e *Engine) OnResize(width, height int) {
	if !e.running {
		return
	}
	e.gfx.OnResize(width, height)
}
