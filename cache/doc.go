// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package cache provides the sharded LRU store behind the engine's object
// and resource caches.
//
//	objects := cache.New[uuid.UUID, *world.GameObject]("object-cache", 0, cache.UUIDHasher)
//	objects.Set(obj.GUID(), obj)
//	obj, ok := objects.Get(id)
//
// A release function sees every value that leaves the store, whether by
// eviction, replacement, Delete or Clear, which lets a resource cache
// destroy GPU objects it owns:
//
//	resources := cache.New("resource", 256, cache.StringHasher,
//		cache.WithRelease(func(_ string, r Resource) { r.Destroy() }))
//
// # Thread Safety
//
// Store is safe for concurrent use. It must not be copied after creation.
package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
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

// SetLogger sets the logger of the cache package. nil disables logging.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}
