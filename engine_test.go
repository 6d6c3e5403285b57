// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package g3d

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/g3d/backend/native"
	"github.com/gogpu/g3d/config"
	"github.com/gogpu/g3d/graphics"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/world"
)

func fakeCompiler(string) ([]byte, error) {
	return []byte{0x03, 0x02, 0x23, 0x07}, nil
}

func testLibrary() *shader.Library {
	return shader.NewLibrary(shader.WithCompiler(fakeCompiler))
}

// recordHandler keeps the subsystem attribute of every record.
type recordHandler struct {
	mu   *sync.Mutex
	msgs *[]string
}

func newRecordHandler() recordHandler {
	return recordHandler{mu: &sync.Mutex{}, msgs: new([]string)}
}

func (h recordHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h recordHandler) WithAttrs([]slog.Attr) slog.Handler       { return h }
func (h recordHandler) WithGroup(string) slog.Handler            { return h }

func (h recordHandler) Handle(_ context.Context, r slog.Record) error {
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "subsystem" {
			h.mu.Lock()
			*h.msgs = append(*h.msgs, r.Message+" "+a.Value.String())
			h.mu.Unlock()
		}
		return true
	})
	return nil
}

func (h recordHandler) lines(prefix string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, m := range *h.msgs {
		if len(m) > len(prefix) && m[:len(prefix)] == prefix {
			out = append(out, m[len(prefix)+1:])
		}
	}
	return out
}

// recordLogs installs a recording logger for the duration of the test.
func recordLogs(t *testing.T) recordHandler {
	t.Helper()
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	h := newRecordHandler()
	SetLogger(slog.New(h))
	return h
}

// testAudio counts calls and can fail Init.
type testAudio struct {
	initErr         error
	inits, deinits  int
	pauses, resumes int
}

func (a *testAudio) Name() string { return "audio" }
func (a *testAudio) Init() error  { a.inits++; return a.initErr }
func (a *testAudio) Deinit()      { a.deinits++ }
func (a *testAudio) OnPause()     { a.pauses++ }
func (a *testAudio) OnResume()    { a.resumes++ }

// testResource counts Destroy calls.
type testResource struct{ destroyed int }

func (r *testResource) Destroy() { r.destroyed++ }

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithBackend(native.BackendNoop),
		WithDisplaySize(320, 240),
		WithShaderLibrary(testLibrary()),
	}
	e := New(append(base, opts...)...)
	if err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(e.Deinit)
	return e
}

// addScene adds a camera and a cube and returns the cube.
func addScene(t *testing.T, e *Engine) *world.GameObject {
	t.Helper()
	d := e.Display()

	camObj := world.NewGameObject("camera")
	camObj.Transform().SetLocalPosition([3]float32{0, 0, -5})
	camObj.AddComponent(graphics.NewCamera(e.Graphics().Pipeline()))
	e.AddGameObject(camObj)

	mesh, err := graphics.NewCubeMesh(d.Device(), 1, [6]graphics.Color{
		graphics.White, graphics.White, graphics.White,
		graphics.White, graphics.White, graphics.White,
	})
	if err != nil {
		t.Fatalf("NewCubeMesh: %v", err)
	}
	unlit, err := graphics.NewUnlitShader(d, e.Shaders())
	if err != nil {
		t.Fatalf("NewUnlitShader: %v", err)
	}
	mat := graphics.NewMaterial(d.Device(), unlit)
	e.Resources().Set("cube-mesh", mesh)
	e.Resources().Set("unlit-material", mat)

	cube := world.NewGameObject("cube")
	cube.AddComponent(graphics.NewMeshRenderer(mesh, mat))
	e.AddGameObject(cube)
	return cube
}

func TestEngineSubsystemOrder(t *testing.T) {
	logs := recordLogs(t)

	e := New(
		WithBackend(native.BackendNoop),
		WithDisplaySize(64, 64),
		WithShaderLibrary(testLibrary()),
	)
	if err := e.Frame(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Frame before Init = %v, want ErrNotInitialized", err)
	}
	if err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := e.Init(); !errors.Is(err, ErrInitialized) {
		t.Errorf("second Init = %v, want ErrInitialized", err)
	}
	if !e.Running() {
		t.Error("Running() = false after Init")
	}
	e.Deinit()
	e.Deinit()

	want := []string{
		"font", "shader", "object-cache", "camera", "render-texture",
		"audio", "renderer", "physics", "resource", "world",
	}
	if got := logs.lines("g3d: subsystem started"); !slices.Equal(got, want) {
		t.Errorf("start order = %v, want %v", got, want)
	}
	reversed := slices.Clone(want)
	slices.Reverse(reversed)
	if got := logs.lines("g3d: subsystem stopped"); !slices.Equal(got, reversed) {
		t.Errorf("stop order = %v, want %v", got, reversed)
	}
	if e.Running() || e.Display() != nil || e.Graphics() != nil {
		t.Error("engine state not cleared by Deinit")
	}
}

func TestEngineInitFailureTearsDown(t *testing.T) {
	logs := recordLogs(t)
	errAudio := errors.New("no audio device")
	audio := &testAudio{initErr: errAudio}

	e := New(
		WithBackend(native.BackendNoop),
		WithDisplaySize(64, 64),
		WithShaderLibrary(testLibrary()),
		WithAudio(audio),
	)
	err := e.Init()
	if !errors.Is(err, errAudio) {
		t.Fatalf("Init = %v, want %v", err, errAudio)
	}
	if audio.deinits != 0 {
		t.Errorf("failed subsystem was deinitialized %d times", audio.deinits)
	}
	want := []string{"render-texture", "camera", "object-cache", "shader", "font"}
	if got := logs.lines("g3d: subsystem stopped"); !slices.Equal(got, want) {
		t.Errorf("stop order = %v, want %v", got, want)
	}
	if e.Running() || e.Display() != nil {
		t.Error("engine still holds state after failed Init")
	}
}

func TestEngineOpenDisplayError(t *testing.T) {
	e := New(WithBackend("no-such-backend"), WithShaderLibrary(testLibrary()))
	err := e.Init()
	if !errors.Is(err, graphics.ErrUnknownDisplay) {
		t.Fatalf("Init = %v, want ErrUnknownDisplay", err)
	}
}

func TestEngineFrame(t *testing.T) {
	e := newTestEngine(t)
	cube := addScene(t, e)

	for range 3 {
		if err := e.Frame(); err != nil {
			t.Fatalf("Frame: %v", err)
		}
	}
	if got := e.Graphics().Frames(); got != 3 {
		t.Errorf("Frames() = %d, want 3", got)
	}
	if e.Graphics().DrawCalls() == 0 {
		t.Error("DrawCalls() = 0, want the cube drawn")
	}
	if got := e.World().Frame(); got != 3 {
		t.Errorf("World().Frame() = %d, want 3", got)
	}
	if got := e.Physics().Steps(); got != 3 {
		t.Errorf("Physics().Steps() = %d, want 3", got)
	}

	obj, ok := e.FindObject(cube.GUID())
	if !ok || obj != cube {
		t.Fatalf("FindObject(cube) = %v, %v", obj, ok)
	}
	cube.Destroy()
	if err := e.Frame(); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if _, ok := e.FindObject(cube.GUID()); ok {
		t.Error("FindObject found a destroyed object")
	}
	if e.Objects().Len() != 1 {
		t.Errorf("Objects().Len() = %d, want 1 (camera)", e.Objects().Len())
	}
}

func TestEngineIndexesDescendants(t *testing.T) {
	e := newTestEngine(t)
	parent := world.NewGameObject("parent")
	child := world.NewGameObject("child")
	child.SetParent(parent)
	e.AddGameObjects([]*world.GameObject{parent})

	if _, ok := e.FindObject(child.GUID()); !ok {
		t.Error("child not indexed")
	}
	if err := e.Update(); err != nil {
		t.Fatal(err)
	}
	if !e.World().Contains(child) {
		t.Error("child not added to the world")
	}
}

func TestEnginePauseSkipsRender(t *testing.T) {
	audio := &testAudio{}
	e := newTestEngine(t, WithAudio(audio))
	addScene(t, e)

	if err := e.Frame(); err != nil {
		t.Fatal(err)
	}
	e.OnPause()
	e.OnPause()
	if !e.Paused() || audio.pauses != 1 {
		t.Fatalf("Paused() = %v, pauses = %d", e.Paused(), audio.pauses)
	}
	if err := e.Frame(); err != nil {
		t.Fatalf("Frame while paused: %v", err)
	}
	if got := e.Graphics().Frames(); got != 1 {
		t.Errorf("Frames() = %d while paused, want 1", got)
	}
	if got := e.World().Frame(); got != 2 {
		t.Errorf("World().Frame() = %d, want the world to keep updating", got)
	}

	e.OnResume()
	if e.Paused() || audio.resumes != 1 {
		t.Fatalf("Paused() = %v, resumes = %d", e.Paused(), audio.resumes)
	}
	if err := e.Frame(); err != nil {
		t.Fatal(err)
	}
	if got := e.Graphics().Frames(); got != 2 {
		t.Errorf("Frames() = %d after resume, want 2", got)
	}
}

func TestEngineResize(t *testing.T) {
	e := newTestEngine(t)
	addScene(t, e)
	e.OnResize(640, 480)
	if e.Display().Width() != 640 || e.Display().Height() != 480 {
		t.Errorf("display size = %dx%d, want 640x480", e.Display().Width(), e.Display().Height())
	}
	if err := e.Frame(); err != nil {
		t.Fatalf("Frame after resize: %v", err)
	}
}

func TestEngineReleasesResources(t *testing.T) {
	e := newTestEngine(t, WithCacheCapacity(0, 0))
	a, b := &testResource{}, &testResource{}
	e.Resources().Set("a", a)
	e.Resources().Set("a", b)
	if a.destroyed != 1 {
		t.Errorf("replaced resource destroyed %d times, want 1", a.destroyed)
	}
	e.Deinit()
	if b.destroyed != 1 {
		t.Errorf("resource destroyed %d times by Deinit, want 1", b.destroyed)
	}
}

func TestEngineBorrowedDisplay(t *testing.T) {
	d, err := native.Open(noop.API{}, graphics.DisplayOptions{Width: 32, Height: 32})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = d.Close() }()

	e := New(WithDisplay(d), WithShaderLibrary(testLibrary()), WithPhysics(false))
	if err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if e.Physics() != nil {
		t.Error("Physics() != nil with physics disabled")
	}
	if err := e.Frame(); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	e.Deinit()
	if err := d.BeginFrame(); err != nil {
		t.Errorf("borrowed display closed by Deinit: %v", err)
	}
}

func TestWithConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Display.Backend = native.BackendNoop
	cfg.Display.Width, cfg.Display.Height = 100, 50
	cfg.World.DrainLimit = 4
	cfg.Shaders.Dir = "assets/shaders"
	cfg.Physics.Enabled = false
	cfg.Cache.Objects = 32

	e := New(WithConfig(cfg), WithDisplaySize(200, 100))
	o := e.opts
	if o.backend != native.BackendNoop || o.drainLimit != 4 || o.objectCap != 32 {
		t.Errorf("options = %+v", o)
	}
	if o.width != 200 || o.height != 100 {
		t.Errorf("later option did not override config: %dx%d", o.width, o.height)
	}
	if e.Physics() != nil {
		t.Error("physics created although disabled by config")
	}
	if e.Shaders().Dir() != "assets/shaders" {
		t.Errorf("shader dir = %q", e.Shaders().Dir())
	}
}
