// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command g3ddemo renders a small scene for a number of frames.
//
// The scene has a camera, a cube spinning under a ping-pong tween and a
// box falling onto a static floor through the physics subsystem. With
// -stats the final frame statistics are rasterized into a PNG.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d"
	_ "github.com/gogpu/g3d/backend/native"
	"github.com/gogpu/g3d/config"
	"github.com/gogpu/g3d/font"
	"github.com/gogpu/g3d/graphics"
	"github.com/gogpu/g3d/physics"
	"github.com/gogpu/g3d/tween"
	"github.com/gogpu/g3d/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		backend    = flag.String("backend", "", "display backend (vulkan, noop)")
		frames     = flag.Int("frames", 0, "frames to render (overrides config)")
		stats      = flag.String("stats", "", "write frame statistics to this PNG")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = c
	}
	if *backend != "" {
		cfg.Display.Backend = *backend
	}
	if *frames > 0 {
		cfg.Display.Frames = *frames
	}
	if cfg.Display.Frames == 0 {
		cfg.Display.Frames = 120
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		log.Fatal(err)
	}

	e := g3d.New(g3d.WithConfig(cfg), g3d.WithLogger(logger))
	if err := e.Init(); err != nil {
		log.Fatalf("init: %v", err)
	}
	defer e.Deinit()

	if err := buildScene(e); err != nil {
		log.Fatalf("scene: %v", err)
	}

	start := time.Now()
	if err := run(e, cfg.Display.Frames, cfg.FrameInterval()); err != nil {
		log.Fatalf("frame: %v", err)
	}
	elapsed := time.Since(start)

	summary := fmt.Sprintf("%d frames in %s, %d draw calls per frame",
		e.Graphics().Frames(), elapsed.Round(time.Millisecond), e.Graphics().DrawCalls())
	logger.Info("g3ddemo: done", "frames", e.Graphics().Frames(), "elapsed", elapsed)

	if *stats != "" {
		if err := writeStats(e.Fonts(), *stats, summary); err != nil {
			log.Fatalf("stats: %v", err)
		}
	}
}

func run(e *g3d.Engine, frames int, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for range frames {
		if err := e.Frame(); err != nil {
			return err
		}
		if tick != nil {
			<-tick
		}
	}
	return nil
}

func buildScene(e *g3d.Engine) error {
	d := e.Display()
	dev := d.Device()

	unlit, err := graphics.NewUnlitShader(d, e.Shaders())
	if err != nil {
		return err
	}
	mat := graphics.NewMaterial(dev, unlit)
	e.Resources().Set("unlit", mat)

	faces := [6]graphics.Color{
		{R: 1, G: 0.3, B: 0.3, A: 1}, {R: 0.3, G: 1, B: 0.3, A: 1}, {R: 0.3, G: 0.3, B: 1, A: 1},
		{R: 1, G: 1, B: 0.3, A: 1}, {R: 0.3, G: 1, B: 1, A: 1}, {R: 1, G: 0.3, B: 1, A: 1},
	}
	cube, err := graphics.NewCubeMesh(dev, 1, faces)
	if err != nil {
		return err
	}
	e.Resources().Set("cube", cube)

	camObj := world.NewGameObject("camera")
	camObj.Transform().SetLocalPosition(mgl32.Vec3{0, 1, -8})
	cam := graphics.NewCamera(e.Graphics().Pipeline())
	cam.SetClearColor(graphics.Color{R: 0.1, G: 0.2, B: 0.4, A: 1})
	camObj.AddComponent(cam)

	spinner := world.NewGameObject("spinner")
	spinner.Transform().SetLocalPosition(mgl32.Vec3{-2, 0, 0})
	spinner.AddComponent(graphics.NewMeshRenderer(cube, mat))
	spin := tween.NewRotation(mgl32.QuatIdent(), mgl32.QuatRotate(mgl32.DegToRad(180), mgl32.Vec3{0, 1, 0}))
	spin.Duration = 2 * time.Second
	spin.Style = tween.PingPong
	spin.Curve = tween.EaseInOut
	spinner.AddComponent(spin)

	objs := []*world.GameObject{camObj, spinner}

	if space := e.Physics(); space != nil {
		floor := world.NewGameObject("floor")
		floor.Transform().SetLocalPosition(mgl32.Vec3{0, -2, 0})
		floor.Transform().SetLocalScale(mgl32.Vec3{8, 0.2, 1})
		floor.AddComponent(graphics.NewMeshRenderer(cube, mat))
		ground := physics.NewRigidBody(space)
		ground.Type = physics.Static
		ground.Size = mgl32.Vec2{8, 0.2}
		floor.AddComponent(ground)

		box := world.NewGameObject("box")
		box.Transform().SetLocalPosition(mgl32.Vec3{2, 3, 0})
		box.AddComponent(graphics.NewMeshRenderer(cube, mat))
		box.AddComponent(physics.NewRigidBody(space))

		objs = append(objs, floor, box)
	}

	e.AddGameObjects(objs)
	return nil
}

func writeStats(fonts *font.Registry, path, text string) (err error) {
	f, err := fonts.Get(font.Default)
	if err != nil {
		return err
	}
	img, err := f.Rasterize(text, 16)
	if err != nil {
		return err
	}
	out, err := os.Create(path) // #nosec G304 -- path is provided by the user
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, out.Close()) }()
	return png.Encode(out, img)
}
