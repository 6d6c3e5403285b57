// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package font is the engine's font subsystem. It parses TrueType and
// OpenType data with golang.org/x/image, caches faces per size and
// rasterizes text into alpha masks that can be uploaded as textures.
//
// The Go Regular font is registered as Default when the subsystem starts.
package font

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"sync"
	"sync/atomic"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Default is the name of the builtin font.
const Default = "default"

// dpi makes one point one pixel.
const dpi = 72

// Font errors.
var (
	// ErrEmptyFontData is returned for zero-length font data.
	ErrEmptyFontData = errors.New("font: empty font data")

	// ErrNotFound is returned for an unregistered font name.
	ErrNotFound = errors.New("font: not found")

	// ErrInvalidSize is returned for non-positive sizes.
	ErrInvalidSize = errors.New("font: invalid size")
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

// SetLogger sets the logger of the font package. nil disables logging.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Font is a parsed font file. Faces of any size are created from it.
//
// Font is safe for concurrent use.
type Font struct {
	name   string
	family string
	parsed *opentype.Font

	mu    sync.Mutex
	faces map[float64]xfont.Face
}

// Parse parses TrueType or OpenType data. The data is not retained.
func Parse(name string, data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFontData
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("font: parse %s: %w", name, err)
	}
	family, err := parsed.Name(nil, sfnt.NameIDFamily)
	if err != nil {
		family = ""
	}
	return &Font{
		name:   name,
		family: family,
		parsed: parsed,
		faces:  make(map[float64]xfont.Face),
	}, nil
}

// Name returns the registered name.
func (f *Font) Name() string { return f.name }

// Family returns the family name stored in the font, if any.
func (f *Font) Family() string { return f.family }

// NumGlyphs returns the number of glyphs in the font.
func (f *Font) NumGlyphs() int { return f.parsed.NumGlyphs() }

// Face returns the cached face of size points.
func (f *Font) Face(size float64) (xfont.Face, error) {
	if size <= 0 || math.IsNaN(size) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if face, ok := f.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font: face %s@%v: %w", f.name, size, err)
	}
	f.faces[size] = face
	return face, nil
}

// Metrics describes a face's vertical layout in pixels.
type Metrics struct {
	Height  float32
	Ascent  float32
	Descent float32
}

// Metrics returns the metrics of the face of size points.
func (f *Font) Metrics(size float64) (Metrics, error) {
	face, err := f.Face(size)
	if err != nil {
		return Metrics{}, err
	}
	m := face.Metrics()
	return Metrics{
		Height:  toFloat(m.Height),
		Ascent:  toFloat(m.Ascent),
		Descent: toFloat(m.Descent),
	}, nil
}

// Measure returns the advance width of s in pixels.
func (f *Font) Measure(s string, size float64) (float32, error) {
	face, err := f.Face(size)
	if err != nil {
		return 0, err
	}
	return toFloat(xfont.MeasureString(face, s)), nil
}

// Rasterize draws s on one line into an alpha mask sized to fit it.
func (f *Font) Rasterize(s string, size float64) (*image.Alpha, error) {
	face, err := f.Face(size)
	if err != nil {
		return nil, err
	}
	m := face.Metrics()
	width := xfont.MeasureString(face, s).Ceil()
	height := (m.Ascent + m.Descent).Ceil()
	dst := image.NewAlpha(image.Rect(0, 0, max(width, 1), max(height, 1)))

	d := &xfont.Drawer{
		Dst:  dst,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.Point26_6{Y: m.Ascent},
	}
	// Face methods are not safe for concurrent use.
	f.mu.Lock()
	d.DrawString(s)
	f.mu.Unlock()
	return dst, nil
}

func (f *Font) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for size, face := range f.faces {
		if err := face.Close(); err != nil {
			slogger().Warn("font: close face", "font", f.name, "size", size, "err", err)
		}
		delete(f.faces, size)
	}
}

func toFloat(v fixed.Int26_6) float32 { return float32(v) / 64 }

// Registry is the font subsystem: a set of named fonts.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	fonts map[string]*Font
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{fonts: make(map[string]*Font)}
}

// Name implements the engine subsystem contract.
func (r *Registry) Name() string { return "font" }

// Init registers the builtin Go Regular font as Default.
func (r *Registry) Init() error {
	if _, err := r.Load(Default, goregular.TTF); err != nil {
		return err
	}
	slogger().Info("font: init", "default", r.fonts[Default].Family())
	return nil
}

// Deinit closes every face and forgets every font.
func (r *Registry) Deinit() {
	r.mu.Lock()
	fonts := r.fonts
	r.fonts = make(map[string]*Font)
	r.mu.Unlock()
	for _, f := range fonts {
		f.close()
	}
	slogger().Info("font: deinit", "fonts", len(fonts))
}

// Load parses data and registers it as name, replacing any font with the
// same name.
func (r *Registry) Load(name string, data []byte) (*Font, error) {
	f, err := Parse(name, data)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	old := r.fonts[name]
	r.fonts[name] = f
	r.mu.Unlock()
	if old != nil {
		old.close()
	}
	slogger().Debug("font: loaded", "name", name, "family", f.Family(), "glyphs", f.NumGlyphs())
	return f, nil
}

// LoadFile reads a font file and registers it as name.
func (r *Registry) LoadFile(name, path string) (*Font, error) {
	// #nosec G304 -- font path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("font: read %s: %w", path, err)
	}
	return r.Load(name, data)
}

// Get returns the font registered as name.
func (r *Registry) Get(name string) (*Font, error) {
	r.mu.RLock()
	f, ok := r.fonts[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return f, nil
}

// Names returns the registered font names in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.fonts))
	for n := range r.fonts {
		names = append(names, n)
	}
	return names
}
