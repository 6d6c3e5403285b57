// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"fmt"
	"sort"
	"sync"
)

// DisplayOptions configures a new display.
type DisplayOptions struct {
	Width  int
	Height int
	Label  string
}

// DisplayFactory creates a display.
type DisplayFactory func(opts DisplayOptions) (Display, error)

// BackendEntry is a registered display backend.
type BackendEntry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	//   - 100: GPU backends (Vulkan)
	//   - 10: headless backends
	Priority int

	Factory DisplayFactory

	// Available reports if the backend can run on this system.
	Available func() bool
}

var backends = &Backends{}

// Backends is a set of display backends selectable by name or priority.
//
// Backends register themselves from init:
//
//	func init() {
//	    graphics.RegisterBackend("vulkan", 100, newVulkanDisplay, vulkanAvailable)
//	}
type Backends struct {
	mu      sync.RWMutex
	entries map[string]*BackendEntry
}

// RegisterBackend adds a backend to the global set. A nil available means
// always available. Registering an existing name replaces it.
func RegisterBackend(name string, priority int, factory DisplayFactory, available func() bool) {
	backends.Register(name, priority, factory, available)
}

// UnregisterBackend removes a backend from the global set.
func UnregisterBackend(name string) {
	backends.Unregister(name)
}

// BackendNames returns the available backend names, highest priority first.
func BackendNames() []string {
	return backends.Available()
}

// NewDisplay creates a display with the named backend, or with the best
// available one when name is empty.
func NewDisplay(name string, opts DisplayOptions) (Display, error) {
	if name == "" {
		return backends.NewDisplay(opts)
	}
	return backends.NewDisplayByName(name, opts)
}

// Register adds a backend.
func (b *Backends) Register(name string, priority int, factory DisplayFactory, available func() bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.entries == nil {
		b.entries = make(map[string]*BackendEntry)
	}
	if available == nil {
		available = func() bool { return true }
	}
	b.entries[name] = &BackendEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a backend.
func (b *Backends) Unregister(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, name)
}

// Available returns names of available backends sorted by priority.
func (b *Backends) Available() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := make([]*BackendEntry, 0, len(b.entries))
	for _, e := range b.entries {
		if e.Available() {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// NewDisplay tries every available backend in priority order.
func (b *Backends) NewDisplay(opts DisplayOptions) (Display, error) {
	names := b.Available()
	if len(names) == 0 {
		return nil, ErrNoDisplay
	}
	var lastErr error
	for _, name := range names {
		d, err := b.NewDisplayByName(name, opts)
		if err == nil {
			return d, nil
		}
		slogger().Warn("graphics: display backend failed", "backend", name, "err", err)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %w", ErrNoDisplay, lastErr)
}

// NewDisplayByName creates a display with a specific backend.
func (b *Backends) NewDisplayByName(name string, opts DisplayOptions) (Display, error) {
	b.mu.RLock()
	entry, ok := b.entries[name]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDisplay, name)
	}
	if !entry.Available() {
		return nil, fmt.Errorf("graphics: backend %q not available", name)
	}
	d, err := entry.Factory(opts)
	if err != nil {
		return nil, fmt.Errorf("graphics: create %s display: %w", name, err)
	}
	slogger().Info("graphics: display created", "backend", name, "width", d.Width(), "height", d.Height())
	return d, nil
}
