// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package world implements the scene graph and its per-frame update protocol.
//
// A World holds two disjoint collections: live objects, which are updated
// every frame, and pending objects added since the last drain. Objects
// enter the live list only through the drain at the end of Update, so an
// object added during a frame (even from inside another object's Start or
// Update) still receives Start, Update and LateUpdate in that same frame.
//
// Deletion is deferred. GameObject.Destroy only marks an object; the World
// sweeps marked objects out of the live list during its next update pass.
//
// World.Update and everything it calls run on a single simulation goroutine.
// AddGameObject and AddGameObjects may be called from any goroutine.
package world

import "sync"

// Physics is stepped once at the start of every World.Update.
type Physics interface {
	Step()
}

// Audio receives pause and resume notifications.
type Audio interface {
	OnPause()
	OnResume()
}

// World is the container of all game objects.
type World struct {
	live  []*GameObject
	index map[ObjectID]*GameObject

	mu      sync.Mutex
	pending []*GameObject

	registry   Registry
	physics    Physics
	audio      Audio
	drainLimit int
	frame      uint64
}

// Option configures a World.
type Option func(*World)

// WithPhysics sets the physics hook stepped at the start of Update.
func WithPhysics(p Physics) Option {
	return func(w *World) { w.physics = p }
}

// WithAudio sets the hook receiving OnPause and OnResume.
func WithAudio(a Audio) Option {
	return func(w *World) { w.audio = a }
}

// WithDrainLimit caps the number of drain iterations per Update.
// Objects still pending when the cap is hit are started next frame.
// Zero means no cap.
func WithDrainLimit(n int) Option {
	return func(w *World) { w.drainLimit = n }
}

// New creates an empty world.
func New(opts ...Option) *World {
	w := &World{index: make(map[ObjectID]*GameObject)}
	w.registry.world = w
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name implements the engine subsystem contract.
func (w *World) Name() string { return "world" }

// Init implements the engine subsystem contract.
func (w *World) Init() error {
	w.registry.SetDirty()
	return nil
}

// Deinit releases every live and pending object.
func (w *World) Deinit() {
	w.mu.Lock()
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()

	for _, obj := range w.live {
		obj.release()
	}
	for _, obj := range pending {
		obj.release()
	}
	clear(w.live)
	w.live = w.live[:0]
	clear(w.index)
	w.registry.handles = w.registry.handles[:0]
	w.registry.SetDirty()
	slogger().Info("world: deinit", "frames", w.frame)
}

// Registry returns the renderer registry.
func (w *World) Registry() *Registry { return &w.registry }

// SetPhysics replaces the physics hook.
func (w *World) SetPhysics(p Physics) { w.physics = p }

// SetAudio replaces the audio hook.
func (w *World) SetAudio(a Audio) { w.audio = a }

// Frame returns the number of completed updates.
func (w *World) Frame() uint64 { return w.frame }

// AddGameObject queues obj and its descendants for the next drain.
// Safe to call from any goroutine.
func (w *World) AddGameObject(obj *GameObject) {
	w.AddGameObjects([]*GameObject{obj})
}

// AddGameObjects queues objs and their descendants for the next drain.
// Safe to call from any goroutine.
func (w *World) AddGameObjects(objs []*GameObject) {
	var batch []*GameObject
	for _, obj := range objs {
		batch = w.claim(batch, obj)
	}
	if len(batch) == 0 {
		return
	}
	w.mu.Lock()
	w.pending = append(w.pending, batch...)
	w.mu.Unlock()
}

// claim binds obj and its unclaimed descendants to w. Deleted objects
// have already released their components and are refused.
func (w *World) claim(batch []*GameObject, obj *GameObject) []*GameObject {
	if obj.Deleted() || !obj.world.CompareAndSwap(nil, w) {
		return batch
	}
	batch = append(batch, obj)
	for _, child := range obj.children {
		batch = w.claim(batch, child)
	}
	return batch
}

// Objects returns the live objects in update order. The slice must not be
// modified and is only valid until the next Update.
func (w *World) Objects() []*GameObject { return w.live }

// Object returns the live object with the given ID.
func (w *World) Object(id ObjectID) (*GameObject, bool) {
	obj, ok := w.index[id]
	return obj, ok
}

// PendingCount returns the number of objects waiting for the drain.
func (w *World) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Resolve returns the renderer a handle points to, if its object is live and
// not deleted and the component is still attached.
func (w *World) Resolve(h RendererHandle) (Renderer, bool) {
	obj, ok := w.index[h.Object]
	if !ok || obj.Deleted() {
		return nil, false
	}
	c := obj.componentBySerial(h.Component)
	if c == nil {
		return nil, false
	}
	r, ok := c.(Renderer)
	return r, ok
}

// Update advances the world by one frame:
//
//  1. step physics;
//  2. sweep deleted objects, then Start and Update each active live object;
//  3. sweep again, then LateUpdate each active live object;
//  4. drain pending objects until none are left, running Start, Update and
//     LateUpdate on each batch before appending it to the live list;
//  5. rebuild the renderer registry if it is dirty.
//
// A panic in a component hook propagates to the caller.
func (w *World) Update() {
	if w.physics != nil {
		w.physics.Step()
	}

	w.live = w.sweep(w.live, func(obj *GameObject) {
		obj.start()
		if !obj.Deleted() {
			obj.update()
		}
	})
	w.live = w.sweep(w.live, (*GameObject).lateUpdate)

	w.drain()

	if w.registry.IsDirty() {
		w.registry.Rebuild(w)
	}
	w.frame++
}

// sweep compacts objs in place, releasing deleted objects and calling fn on
// every remaining active one.
func (w *World) sweep(objs []*GameObject, fn func(*GameObject)) []*GameObject {
	n := 0
	for _, obj := range objs {
		if obj.Deleted() {
			w.remove(obj)
			continue
		}
		objs[n] = obj
		n++
		if obj.ActiveInHierarchy() {
			fn(obj)
		}
	}
	clear(objs[n:])
	return objs[:n]
}

func (w *World) remove(obj *GameObject) {
	delete(w.index, obj.id)
	obj.inLive = false
	obj.release()
	w.registry.SetDirty()
}

func (w *World) drain() {
	for iter := 0; ; iter++ {
		w.mu.Lock()
		batch := w.pending
		w.pending = nil
		if len(batch) > 0 && w.drainLimit > 0 && iter >= w.drainLimit {
			w.pending = append(batch, w.pending...)
			w.mu.Unlock()
			slogger().Warn("world: drain limit reached, deferring objects",
				"limit", w.drainLimit, "deferred", len(batch))
			return
		}
		w.mu.Unlock()

		if len(batch) == 0 {
			return
		}

		for _, obj := range batch {
			if obj.Deleted() || !obj.ActiveInHierarchy() {
				continue
			}
			obj.start()
			if !obj.Deleted() {
				obj.update()
			}
		}
		for _, obj := range batch {
			if obj.Deleted() || !obj.ActiveInHierarchy() {
				continue
			}
			obj.lateUpdate()
		}
		for _, obj := range batch {
			if obj.Deleted() {
				obj.release()
				continue
			}
			obj.inLive = true
			w.live = append(w.live, obj)
			w.index[obj.id] = obj
		}
		w.registry.SetDirty()
	}
}

// FindRenderers scans every live object in order and returns the renderers
// accepted by f.
func (w *World) FindRenderers(f Filter) []Renderer {
	var out []Renderer
	w.eachRenderer(f, func(r Renderer) { out = append(out, r) })
	return out
}

func (w *World) eachRenderer(f Filter, fn func(Renderer)) {
	for _, obj := range w.live {
		if obj.Deleted() {
			continue
		}
		for _, c := range obj.components {
			if r, ok := c.(Renderer); ok && f.Accepts(r) {
				fn(r)
			}
		}
	}
}

// OnPause forwards to the audio hook.
func (w *World) OnPause() {
	if w.audio != nil {
		w.audio.OnPause()
	}
}

// OnResume forwards to the audio hook.
func (w *World) OnResume() {
	if w.audio != nil {
		w.audio.OnResume()
	}
}

// Contains reports whether obj is in the live list.
func (w *World) Contains(obj *GameObject) bool {
	return obj.inLive && w.index[obj.id] == obj
}
