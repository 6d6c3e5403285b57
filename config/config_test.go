// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.FrameInterval() != time.Second/60 {
		t.Errorf("FrameInterval = %v", cfg.FrameInterval())
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
display:
  width: 640
  backend: noop
  frames: 3
world:
  drain_limit: 8
shaders:
  dir: assets/shaders
  hot_reload: true
physics:
  timestep: 10ms
  gravity: [0, -1]
logging:
  level: debug
  format: json
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Display.Width != 640 || cfg.Display.Height != 720 {
		t.Errorf("display = %+v, want width override and default height", cfg.Display)
	}
	if cfg.Display.Backend != "noop" || cfg.Display.Frames != 3 {
		t.Errorf("display = %+v", cfg.Display)
	}
	if cfg.World.DrainLimit != 8 || !cfg.Shaders.HotReload || cfg.Shaders.Dir != "assets/shaders" {
		t.Errorf("world/shaders = %+v %+v", cfg.World, cfg.Shaders)
	}
	if cfg.Physics.Timestep != 10*time.Millisecond || cfg.Physics.Gravity != [2]float32{0, -1} {
		t.Errorf("physics = %+v", cfg.Physics)
	}
	if lv, _ := cfg.Logging.SlogLevel(); lv != slog.LevelDebug {
		t.Errorf("level = %v", lv)
	}
	if cfg.Cache.Resources != 256 {
		t.Errorf("cache default lost: %+v", cfg.Cache)
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) = %v", err)
	}
	if cfg.Display.Width != Default().Display.Width {
		t.Error("empty document changed defaults")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "display:\n  depth: 3\n"},
		{"bad size", "display:\n  width: 0\n"},
		{"negative drain", "world:\n  drain_limit: -1\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"zero timestep", "physics:\n  timestep: 0s\n"},
		{"not yaml", "display: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Error("Parse succeeded")
			}
		})
	}

	_, err := Parse([]byte("display:\n  width: -1\n  fps: -2\n"))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g3d.yaml")
	if err := os.WriteFile(path, []byte("display:\n  height: 200\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Display.Height != 200 {
		t.Errorf("height = %d", cfg.Display.Height)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestNewLogger(t *testing.T) {
	l, err := LoggingConfig{Level: "warn", Format: "json"}.NewLogger()
	if err != nil {
		t.Fatal(err)
	}
	if l.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("warn logger enabled at info")
	}
	if _, err := (LoggingConfig{Level: "nope"}).NewLogger(); err == nil {
		t.Error("bad level accepted")
	}
}
