// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package world

import (
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
)

// ObjectID identifies a GameObject for the lifetime of the process.
// Zero is never assigned.
type ObjectID uint64

var objectIDs atomic.Uint64

// GameObject is a node of the scene tree.
//
// Objects are created with NewGameObject and handed to a World with
// AddGameObject. Destroy marks an object and its descendants deleted; the
// World removes them at its next sweep and runs the components' OnDestroy
// hooks there. A deleted object never receives Start, Update or LateUpdate.
//
// Apart from AddComponent on an object that has not entered a World yet,
// GameObject methods must be called from the simulation goroutine.
type GameObject struct {
	id   ObjectID
	guid uuid.UUID
	name string

	activeSelf bool
	static     bool
	layer      int
	deleted    atomic.Bool
	world      atomic.Pointer[World]
	inLive     bool

	parent     *GameObject
	children   []*GameObject
	transform  *Transform
	components []Component
}

// NewGameObject returns an active object with a fresh ID and GUID.
func NewGameObject(name string) *GameObject {
	obj := &GameObject{
		id:         ObjectID(objectIDs.Add(1)),
		guid:       uuid.New(),
		name:       name,
		activeSelf: true,
	}
	obj.transform = newTransform(obj)
	return obj
}

// ID returns the process-unique object ID.
func (o *GameObject) ID() ObjectID { return o.id }

// GUID returns the persistent identity of the object.
func (o *GameObject) GUID() uuid.UUID { return o.guid }

// SetGUID replaces the persistent identity, e.g. when loading a scene.
func (o *GameObject) SetGUID(id uuid.UUID) { o.guid = id }

// Name returns the object name.
func (o *GameObject) Name() string { return o.name }

// SetName renames the object.
func (o *GameObject) SetName(name string) { o.name = name }

// Transform returns the object's transform. Never nil.
func (o *GameObject) Transform() *Transform { return o.transform }

// World returns the world the object was added to, or nil.
func (o *GameObject) World() *World { return o.world.Load() }

// IsStatic reports whether the object is flagged for static batching.
func (o *GameObject) IsStatic() bool { return o.static }

// SetStatic flags the object for static batching.
func (o *GameObject) SetStatic(static bool) {
	if o.static == static {
		return
	}
	o.static = static
	o.markRenderersDirty()
}

// Layer returns the culling layer in [0, 31].
func (o *GameObject) Layer() int { return o.layer }

// SetLayer moves the object to a culling layer in [0, 31].
func (o *GameObject) SetLayer(layer int) {
	o.layer = layer & 31
}

// LayerMask returns the single-bit mask of the object's layer.
func (o *GameObject) LayerMask() uint32 { return 1 << uint(o.layer) }

// ActiveSelf returns the object's own active flag.
func (o *GameObject) ActiveSelf() bool { return o.activeSelf }

// ActiveInHierarchy reports whether the object and all its ancestors are active.
func (o *GameObject) ActiveInHierarchy() bool {
	for p := o; p != nil; p = p.parent {
		if !p.activeSelf {
			return false
		}
	}
	return true
}

// SetActive changes the object's own active flag.
func (o *GameObject) SetActive(active bool) {
	if o.activeSelf == active {
		return
	}
	o.activeSelf = active
	o.markRenderersDirty()
}

// Deleted reports whether Destroy was called on the object or an ancestor.
func (o *GameObject) Deleted() bool { return o.deleted.Load() }

// Parent returns the parent object, or nil for a root.
func (o *GameObject) Parent() *GameObject { return o.parent }

// Children returns the child objects. The slice must not be modified.
func (o *GameObject) Children() []*GameObject { return o.children }

// SetParent attaches the object under parent. A nil parent detaches it.
// Attaching an object under one of its own descendants is ignored.
func (o *GameObject) SetParent(parent *GameObject) {
	if o.parent == parent {
		return
	}
	for p := parent; p != nil; p = p.parent {
		if p == o {
			slogger().Warn("world: SetParent would create a cycle", "object", o.name, "parent", parent.name)
			return
		}
	}
	if o.parent != nil {
		o.parent.removeChild(o)
	}
	o.parent = parent
	if parent != nil {
		parent.children = append(parent.children, o)
	}
	o.transform.touch()
	o.markRenderersDirty()
}

func (o *GameObject) removeChild(child *GameObject) {
	if i := slices.Index(o.children, child); i >= 0 {
		o.children = slices.Delete(slices.Clone(o.children), i, i+1)
	}
}

// AddComponent attaches c to the object and returns it.
// A component can belong to one object only; attaching it again panics.
func (o *GameObject) AddComponent(c Component) Component {
	b := c.base()
	if b.obj != nil {
		panic("world: component already attached")
	}
	b.obj = o
	b.serial = componentSerial.Add(1)
	o.components = append(o.components, c)
	if _, ok := c.(Renderer); ok {
		o.markRenderersDirty()
	}
	return c
}

// RemoveComponent detaches c from the object and runs its OnDestroy hook.
func (o *GameObject) RemoveComponent(c Component) {
	i := slices.Index(o.components, c)
	if i < 0 {
		return
	}
	// Copy so that an iteration in progress keeps its view.
	o.components = slices.Delete(slices.Clone(o.components), i, i+1)
	destroyComponent(c)
	c.base().obj = nil
	if _, ok := c.(Renderer); ok {
		o.markRenderersDirty()
	}
}

// Components returns the attached components in attach order.
// The slice must not be modified.
func (o *GameObject) Components() []Component { return o.components }

// componentBySerial returns the attached component with the given serial.
func (o *GameObject) componentBySerial(serial uint64) Component {
	for _, c := range o.components {
		if c.Serial() == serial {
			return c
		}
	}
	return nil
}

// Destroy marks the object and all its descendants deleted and detaches it
// from its parent. Objects never added to a world release their components
// immediately; otherwise the world does it at its next sweep.
func (o *GameObject) Destroy() {
	if o.deleted.Load() {
		return
	}
	if o.parent != nil {
		o.parent.removeChild(o)
		o.parent = nil
	}
	o.markDeleted()
	o.markRenderersDirty()
}

func (o *GameObject) markDeleted() {
	o.deleted.Store(true)
	if o.world.Load() == nil {
		o.release()
	}
	for _, child := range o.children {
		if !child.deleted.Load() {
			child.markDeleted()
		}
	}
}

// release runs the OnDestroy hooks of every component.
func (o *GameObject) release() {
	for _, c := range o.components {
		if c.GameObject() == o {
			destroyComponent(c)
		}
	}
}

func (o *GameObject) markRenderersDirty() {
	if w := o.world.Load(); w != nil {
		w.registry.SetDirty()
	}
}

// start runs Start on every enabled component that has not started.
func (o *GameObject) start() {
	for _, c := range o.components {
		if c.GameObject() == o {
			startComponent(c)
		}
	}
}

func (o *GameObject) update() {
	for _, c := range o.components {
		if c.GameObject() != o || !c.Enabled() {
			continue
		}
		startComponent(c)
		if u, ok := c.(Updater); ok {
			u.Update()
		}
		if o.deleted.Load() {
			return
		}
	}
}

func (o *GameObject) lateUpdate() {
	for _, c := range o.components {
		if c.GameObject() != o || !c.Enabled() {
			continue
		}
		if u, ok := c.(LateUpdater); ok {
			u.LateUpdate()
		}
		if o.deleted.Load() {
			return
		}
	}
}
