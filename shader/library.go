// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/gogpu/naga"
)

//go:embed shaders/*.wgsl
var builtinFS embed.FS

// Builtin program names.
const (
	Unlit = "unlit"
	Blit  = "blit"
)

// Compiler turns WGSL source into little-endian SPIR-V bytes.
type Compiler func(source string) ([]byte, error)

// Program is a compiled shader program.
//
// A hot reload replaces the source and code of an existing Program in place
// and bumps its Version, so holders of the pointer observe the new code.
type Program struct {
	name    string
	path    string
	source  string
	spirv   []uint32
	key     uint64
	version uint64
}

// Name returns the program name.
func (p *Program) Name() string { return p.name }

// Path returns the file the program was loaded from, or "" for in-memory
// and builtin programs.
func (p *Program) Path() string { return p.path }

// Source returns the WGSL source.
func (p *Program) Source() string { return p.source }

// SPIRV returns the compiled code as 32-bit words.
func (p *Program) SPIRV() []uint32 { return p.spirv }

// Key returns the xxhash of the source.
func (p *Program) Key() uint64 { return p.key }

// Version starts at 1 and increases on every successful reload.
func (p *Program) Version() uint64 { return p.version }

// Option configures a Library.
type Option func(*Library)

// WithDir sets the directory Load reads "<name>.wgsl" files from.
func WithDir(dir string) Option {
	return func(l *Library) { l.dir = dir }
}

// WithCompiler replaces the naga compiler.
func WithCompiler(c Compiler) Option {
	return func(l *Library) { l.compile = c }
}

// WithHotReload makes Init watch the shader directory.
func WithHotReload(enabled bool) Option {
	return func(l *Library) { l.hotReload = enabled }
}

// Library owns every compiled program of the engine.
type Library struct {
	dir       string
	compile   Compiler
	hotReload bool

	mu        sync.Mutex
	programs  map[string]*Program
	compiled  map[uint64][]uint32
	watcher   *Watcher
	listeners []func(*Program)
}

// NewLibrary creates an empty library.
func NewLibrary(opts ...Option) *Library {
	l := &Library{
		compile:  naga.Compile,
		programs: make(map[string]*Program),
		compiled: make(map[uint64][]uint32),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements the engine subsystem contract.
func (l *Library) Name() string { return "shader" }

// Init compiles the builtin programs and starts the watcher when hot reload
// is enabled.
func (l *Library) Init() error {
	for _, name := range []string{Unlit, Blit} {
		if _, err := l.Builtin(name); err != nil {
			return err
		}
	}
	if l.hotReload && l.dir != "" {
		if err := l.Watch(); err != nil {
			return err
		}
	}
	return nil
}

// Deinit stops the watcher and drops every program.
func (l *Library) Deinit() {
	l.mu.Lock()
	w := l.watcher
	l.watcher = nil
	l.programs = make(map[string]*Program)
	l.compiled = make(map[uint64][]uint32)
	l.mu.Unlock()

	if w != nil {
		if err := w.Close(); err != nil {
			slogger().Warn("shader: close watcher", "err", err)
		}
	}
}

// Dir returns the shader directory.
func (l *Library) Dir() string { return l.dir }

// Get returns a loaded program.
func (l *Library) Get(name string) (*Program, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.programs[name]
	return p, ok
}

// Compile compiles source and registers it under name, replacing any
// program with the same name.
func (l *Library) Compile(name, source string) (*Program, error) {
	return l.add(name, "", source)
}

// Load returns the program called name. Already loaded programs are
// returned as is; otherwise "<dir>/<name>.wgsl" is read, and finally the
// builtin programs are tried.
func (l *Library) Load(name string) (*Program, error) {
	if p, ok := l.Get(name); ok {
		return p, nil
	}
	if l.dir != "" {
		path := filepath.Join(l.dir, name+".wgsl")
		src, err := os.ReadFile(path)
		if err == nil {
			return l.add(name, path, string(src))
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("shader: read %s: %w", path, err)
		}
	}
	return l.Builtin(name)
}

// Builtin compiles one of the programs shipped with the engine.
func (l *Library) Builtin(name string) (*Program, error) {
	if p, ok := l.Get(name); ok {
		return p, nil
	}
	src, err := builtinFS.ReadFile("shaders/" + name + ".wgsl")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return l.add(name, "", string(src))
}

func (l *Library) add(name, path, source string) (*Program, error) {
	key, code, err := l.build(source)
	if err != nil {
		return nil, fmt.Errorf("shader: compile %s: %w", name, err)
	}
	p := &Program{
		name:    name,
		path:    path,
		source:  source,
		spirv:   code,
		key:     key,
		version: 1,
	}
	l.mu.Lock()
	l.programs[name] = p
	l.mu.Unlock()

	slogger().Debug("shader: program loaded", "name", name, "words", len(code))
	return p, nil
}

// build compiles source unless the same source was compiled before.
func (l *Library) build(source string) (uint64, []uint32, error) {
	if strings.TrimSpace(source) == "" {
		return 0, nil, ErrEmptySource
	}
	key := xxhash.Sum64String(source)

	l.mu.Lock()
	code, ok := l.compiled[key]
	l.mu.Unlock()
	if ok {
		return key, code, nil
	}

	raw, err := l.compile(source)
	if err != nil {
		return 0, nil, err
	}
	code = toWords(raw)

	l.mu.Lock()
	l.compiled[key] = code
	l.mu.Unlock()
	return key, code, nil
}

// OnReload registers fn to be called from Poll after a program is reloaded.
func (l *Library) OnReload(fn func(*Program)) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// Watch starts watching the shader directory for changes.
func (l *Library) Watch() error {
	if l.dir == "" {
		return ErrNoDirectory
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		return nil
	}
	w, err := NewWatcher(l.dir)
	if err != nil {
		return fmt.Errorf("shader: watch %s: %w", l.dir, err)
	}
	l.watcher = w
	slogger().Info("shader: watching for changes", "dir", l.dir)
	return nil
}

// Poll applies pending file changes without blocking and returns the
// programs that were reloaded. A file that fails to compile keeps the
// previous code.
func (l *Library) Poll() []*Program {
	l.mu.Lock()
	w := l.watcher
	l.mu.Unlock()
	if w == nil {
		return nil
	}

	var reloaded []*Program
	for {
		select {
		case path, ok := <-w.Events:
			if !ok {
				return reloaded
			}
			if p := l.reload(path); p != nil {
				reloaded = append(reloaded, p)
			}
		case err, ok := <-w.Errors:
			if ok {
				slogger().Warn("shader: watcher error", "err", err)
			}
		default:
			return reloaded
		}
	}
}

// reload recompiles the program loaded from path.
func (l *Library) reload(path string) *Program {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	p, ok := l.Get(name)
	if !ok || p.path == "" {
		return nil
	}
	src, err := os.ReadFile(p.path)
	if err != nil {
		slogger().Warn("shader: reload read failed", "name", name, "err", err)
		return nil
	}
	if xxhash.Sum64(src) == p.key {
		return nil
	}
	key, code, err := l.build(string(src))
	if err != nil {
		slogger().Warn("shader: reload compile failed, keeping previous code", "name", name, "err", err)
		return nil
	}

	p.source = string(src)
	p.spirv = code
	p.key = key
	p.version++

	l.mu.Lock()
	listeners := slices.Clone(l.listeners)
	l.mu.Unlock()
	for _, fn := range listeners {
		fn(p)
	}
	slogger().Info("shader: program reloaded", "name", name, "version", p.version)
	return p
}

// toWords converts little-endian SPIR-V bytes to 32-bit words.
func toWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}
