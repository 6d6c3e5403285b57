// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpu defines the low-level device contract and the host-visible
// buffer resource used for vertex, index, uniform and staging data.
//
// A Buffer owns exactly one device buffer handle and one memory allocation.
// Both are created lazily by Create and released by Destroy, which blocks
// until the device is idle. Uploads go through Fill (whole buffer) or
// UpdateRange (a subrange); neither may be called while the GPU is still
// reading the buffer.
//
// Backends implement Device. The HAL implementation lives in
// github.com/gogpu/g3d/backend/native.
package gpu

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// Device and buffer errors.
var (
	// ErrNoCompatibleMemory is returned when no memory type satisfies both the
	// buffer requirements and the HostVisible|HostCoherent properties.
	ErrNoCompatibleMemory = errors.New("gpu: no compatible memory type")

	// ErrDeviceLost is returned by backends when the device stops responding.
	ErrDeviceLost = errors.New("gpu: device lost")

	// ErrInvalidBufferSize is returned when Create is called with size zero.
	ErrInvalidBufferSize = errors.New("gpu: invalid buffer size")

	// ErrBufferNotCreated is returned by Fill and UpdateRange before Create.
	ErrBufferNotCreated = errors.New("gpu: buffer not created")

	// ErrInvalidHandle is returned by devices for unknown handles.
	ErrInvalidHandle = errors.New("gpu: invalid handle")
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

func slogger() *slog.Logger { return loggerPtr.Load() }

// SetLogger sets the logger for the gpu package.
// Pass nil to disable logging.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}
