// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package world

import "sync/atomic"

// Component is a behaviour attached to a GameObject.
//
// Implementations embed ComponentBase, which provides the back reference to
// the owning object and the enabled flag. Lifecycle hooks are optional and
// discovered through the Starter, Updater, LateUpdater and Destroyer
// interfaces.
type Component interface {
	// GameObject returns the owning object, or nil once removed.
	GameObject() *GameObject

	// Enabled reports the component's own enable flag.
	Enabled() bool

	// SetEnabled changes the enable flag.
	SetEnabled(enabled bool)

	// Serial is the unique component serial assigned by AddComponent.
	Serial() uint64

	base() *ComponentBase
}

// Starter is implemented by components that need one-time setup before
// their first Update.
type Starter interface {
	Start()
}

// Updater is implemented by components updated every frame.
type Updater interface {
	Update()
}

// LateUpdater is implemented by components updated after every Update of
// the frame has run.
type LateUpdater interface {
	LateUpdate()
}

// Destroyer is implemented by components that release resources when the
// owning object is swept or the component is removed.
type Destroyer interface {
	OnDestroy()
}

var componentSerial atomic.Uint64

// ComponentBase implements the bookkeeping part of Component.
// The zero value is an enabled, detached component.
type ComponentBase struct {
	obj      *GameObject
	serial   uint64
	disabled bool
	started  bool
}

func (c *ComponentBase) base() *ComponentBase { return c }

// GameObject returns the owning object, or nil when detached.
func (c *ComponentBase) GameObject() *GameObject { return c.obj }

// Transform returns the owning object's transform, or nil when detached.
func (c *ComponentBase) Transform() *Transform {
	if c.obj == nil {
		return nil
	}
	return c.obj.Transform()
}

// Serial returns the serial assigned when the component was attached.
func (c *ComponentBase) Serial() uint64 { return c.serial }

// Enabled reports whether the component is enabled.
func (c *ComponentBase) Enabled() bool { return !c.disabled }

// SetEnabled enables or disables the component. Changing the flag of a
// renderer marks the world's renderer registry dirty.
func (c *ComponentBase) SetEnabled(enabled bool) {
	if c.disabled == !enabled {
		return
	}
	c.disabled = !enabled
	if c.obj != nil {
		c.obj.markRenderersDirty()
	}
}

// Started reports whether Start has run.
func (c *ComponentBase) Started() bool { return c.started }

// GetComponent returns the first component of type T on obj.
func GetComponent[T Component](obj *GameObject) (T, bool) {
	for _, c := range obj.components {
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// GetComponents returns every component of type T on obj.
func GetComponents[T Component](obj *GameObject) []T {
	var out []T
	for _, c := range obj.components {
		if t, ok := c.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

func startComponent(c Component) {
	b := c.base()
	if b.started || b.disabled {
		return
	}
	b.started = true
	if s, ok := c.(Starter); ok {
		s.Start()
	}
}

func destroyComponent(c Component) {
	if d, ok := c.(Destroyer); ok {
		d.OnDestroy()
	}
}
