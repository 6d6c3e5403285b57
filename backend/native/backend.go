// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

// Package native is the HAL display backend of g3d.
//
// It registers two display backends with the graphics package:
//
//   - "vulkan" (priority 100) opens the first discrete or integrated GPU
//     through gogpu/wgpu's Vulkan HAL.
//   - "noop" (priority 10) runs every command against the no-op HAL and
//     is used headless and in tests.
//
// Import it for its side effects:
//
//	import _ "github.com/gogpu/g3d/backend/native"
//
// A display can also share a device owned by a windowing host through
// NewFromProvider.
package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	// Vulkan HAL registration.
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/g3d/graphics"
)

// Backend names.
const (
	BackendVulkan = "vulkan"
	BackendNoop   = "noop"
)

// Backend errors.
var (
	// ErrNoAdapter is returned when an instance exposes no adapter.
	ErrNoAdapter = errors.New("native: no GPU adapter found")

	// ErrNotHALProvider is returned when a device provider does not expose
	// HAL types.
	ErrNotHALProvider = errors.New("native: provider does not expose HAL types")
)

func init() {
	graphics.RegisterBackend(BackendVulkan, 100, openVulkan, vulkanAvailable)
	graphics.RegisterBackend(BackendNoop, 10, openNoop, nil)
}

// instanceCreator is satisfied by hal.Backend and noop.API.
type instanceCreator interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

func vulkanAvailable() bool {
	_, ok := hal.GetBackend(gputypes.BackendVulkan)
	return ok
}

func openVulkan(opts graphics.DisplayOptions) (graphics.Display, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, errors.New("native: vulkan backend not available")
	}
	return Open(backend, opts)
}

func openNoop(opts graphics.DisplayOptions) (graphics.Display, error) {
	return Open(noop.API{}, opts)
}

// Open creates an instance with api, opens its preferred adapter and
// returns a display that owns the device.
func Open(api instanceCreator, opts graphics.DisplayOptions) (*Display, error) {
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open device: %w", err)
	}

	dev := NewDevice(openDev.Device, openDev.Queue)
	d, err := NewDisplay(dev, displayLabel(opts), opts.Width, opts.Height)
	if err != nil {
		dev.Destroy()
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.release = func() {
		dev.Destroy()
		openDev.Device.Destroy()
		instance.Destroy()
	}
	slogger().Info("native: device opened", "adapter", selected.Info.Name, "type", selected.Info.DeviceType)
	return d, nil
}

// NewFromProvider creates a display on a device owned by provider. The
// provider must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue. Close releases only the display's resources.
func NewFromProvider(provider gpucontext.DeviceProvider, opts graphics.DisplayOptions) (*Display, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNotHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNotHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNotHALProvider)
	}
	dev := NewDevice(device, queue)
	d, err := NewDisplay(dev, displayLabel(opts), opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}
	d.release = dev.Destroy
	return d, nil
}

func displayLabel(opts graphics.DisplayOptions) string {
	if opts.Label != "" {
		return opts.Label
	}
	return "g3d"
}
