// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package g3d

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/g3d/cache"
	"github.com/gogpu/g3d/font"
	"github.com/gogpu/g3d/gpu"
	"github.com/gogpu/g3d/graphics"
	"github.com/gogpu/g3d/physics"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/world"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for g3d and all its sub-packages.
// By default, g3d produces no log output. Pass nil to restore the silent
// default.
//
// Log levels used by g3d:
//   - [slog.LevelDebug]: buffer sizes, registry rebuilds, pass creation
//   - [slog.LevelInfo]: subsystem init and deinit, adapter selection
//   - [slog.LevelWarn]: shader reload failures, unresolvable handles
//
// Example:
//
//	g3d.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	world.SetLogger(l)
	graphics.SetLogger(l)
	gpu.SetLogger(l)
	shader.SetLogger(l)
	cache.SetLogger(l)
	font.SetLogger(l)
	physics.SetLogger(l)

	displaysMu.Lock()
	for d := range displays {
		propagateLogger(d, l)
	}
	displaysMu.Unlock()
}

// Logger returns the current logger used by g3d.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by displays whose backend package logs
// independently, such as backend/native.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(d graphics.Display, l *slog.Logger) {
	if ls, ok := d.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
