// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package shader compiles and caches WGSL programs.
//
// Programs are compiled to SPIR-V with naga and cached by the xxhash of
// their source, so loading the same source under two names compiles once.
// A Library can watch its directory with fsnotify; changed files are
// recompiled when the owner calls Poll, which keeps all program updates on
// the simulation goroutine.
package shader

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// Library errors.
var (
	// ErrNotFound is returned when a program name is unknown.
	ErrNotFound = errors.New("shader: program not found")

	// ErrNoDirectory is returned by Load and Watch when no directory is set.
	ErrNoDirectory = errors.New("shader: no shader directory configured")

	// ErrEmptySource is returned when compiling an empty source.
	ErrEmptySource = errors.New("shader: empty source")
)

// Entry points every program must define.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
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

// SetLogger sets the logger for the shader package.
// Pass nil to disable logging.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}
