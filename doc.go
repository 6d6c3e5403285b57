// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package g3d is the runtime core of a 3D engine.
//
// # Overview
//
// An Engine owns a scene-graph World, a camera Pipeline that renders it
// onto a graphics.Display, and the supporting subsystems: fonts, the WGSL
// shader library, an object cache, render textures, audio, physics and
// resources. Each frame the World updates every live object, then the
// Pipeline renders every camera in depth order and presents.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/g3d"
//	    _ "github.com/gogpu/g3d/backend/native"
//	)
//
//	e := g3d.New(g3d.WithDisplaySize(1280, 720))
//	if err := e.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Deinit()
//
//	for {
//	    if err := e.Frame(); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Subsystems
//
// Init starts the subsystems in a fixed order: font, shader, object-cache,
// camera, render-texture, audio, renderer, physics, resource, world.
// Deinit stops them in reverse. A failing Init stops the subsystems that
// already started and returns the error.
//
// # Threading
//
// Frame, Update and Render run on one simulation goroutine. AddGameObject
// may be called from any goroutine; the object is started within the
// current or the next update.
//
// # Errors
//
// Errors returned by Frame come from the GPU: no compatible memory type,
// a lost device, a failed pipeline. Hosts treat them as fatal.
package g3d
