// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package config loads the engine configuration from YAML.
//
// Missing keys keep their Default values:
//
//	display:
//	  width: 1280
//	  height: 720
//	  backend: vulkan
//	shaders:
//	  dir: assets/shaders
//	  hot_reload: true
//	logging:
//	  level: debug
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate error.
var ErrInvalid = errors.New("config: invalid")

// Config is the engine configuration.
type Config struct {
	Display DisplayConfig `yaml:"display"`
	World   WorldConfig   `yaml:"world"`
	Shaders ShaderConfig  `yaml:"shaders"`
	Physics PhysicsConfig `yaml:"physics"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

type DisplayConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
	// Backend names a registered display backend; empty picks the best.
	Backend string `yaml:"backend"`
	// Frames stops the host after this many frames; 0 runs until closed.
	Frames int `yaml:"frames"`
}

type WorldConfig struct {
	// DrainLimit caps start iterations per update; 0 is unbounded.
	DrainLimit int `yaml:"drain_limit"`
}

type ShaderConfig struct {
	Dir       string `yaml:"dir"`
	HotReload bool   `yaml:"hot_reload"`
}

type PhysicsConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Timestep time.Duration `yaml:"timestep"`
	Gravity  [2]float32    `yaml:"gravity"`
}

type CacheConfig struct {
	Objects   int `yaml:"objects"`
	Resources int `yaml:"resources"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			Width:  1280,
			Height: 720,
			FPS:    60,
		},
		Physics: PhysicsConfig{
			Enabled:  true,
			Timestep: time.Second / 60,
			Gravity:  [2]float32{0, -9.81},
		},
		Cache: CacheConfig{
			Objects:   0,
			Resources: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	var errs []error
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		errs = append(errs, fmt.Errorf("%w: display size %dx%d", ErrInvalid, c.Display.Width, c.Display.Height))
	}
	if c.Display.FPS < 0 {
		errs = append(errs, fmt.Errorf("%w: fps %d", ErrInvalid, c.Display.FPS))
	}
	if c.Display.Frames < 0 {
		errs = append(errs, fmt.Errorf("%w: frames %d", ErrInvalid, c.Display.Frames))
	}
	if c.World.DrainLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: drain_limit %d", ErrInvalid, c.World.DrainLimit))
	}
	if c.Physics.Enabled && c.Physics.Timestep <= 0 {
		errs = append(errs, fmt.Errorf("%w: physics timestep %s", ErrInvalid, c.Physics.Timestep))
	}
	if c.Cache.Objects < 0 || c.Cache.Resources < 0 {
		errs = append(errs, fmt.Errorf("%w: negative cache capacity", ErrInvalid))
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log format %q", ErrInvalid, c.Logging.Format))
	}
	return errors.Join(errs...)
}

// FrameInterval returns the target time per frame, or 0 when unlimited.
func (c *Config) FrameInterval() time.Duration {
	if c.Display.FPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.Display.FPS)
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, l.Level)
	}
	return lv, nil
}

// NewLogger builds a stderr logger with the configured format and level.
func (l LoggingConfig) NewLogger() (*slog.Logger, error) {
	lv, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lv}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}
