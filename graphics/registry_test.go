// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graphics

import (
	"errors"
	"slices"
	"testing"
)

func TestBackendsAvailableOrder(t *testing.T) {
	var b Backends
	factory := func(DisplayOptions) (Display, error) { return newFakeDisplay(1, 1), nil }
	b.Register("low", 10, factory, nil)
	b.Register("high", 100, factory, nil)
	b.Register("also-low", 10, factory, nil)
	b.Register("missing", 200, factory, func() bool { return false })

	got := b.Available()
	want := []string{"high", "also-low", "low"}
	if !slices.Equal(got, want) {
		t.Errorf("Available = %v, want %v", got, want)
	}

	b.Unregister("high")
	if got := b.Available(); got[0] != "also-low" {
		t.Errorf("after Unregister, first = %q", got[0])
	}
}

func TestBackendsNewDisplayFallsBack(t *testing.T) {
	var b Backends
	boom := errors.New("no adapter")
	b.Register("broken", 100, func(DisplayOptions) (Display, error) { return nil, boom }, nil)
	b.Register("ok", 10, func(o DisplayOptions) (Display, error) {
		return newFakeDisplay(o.Width, o.Height), nil
	}, nil)

	d, err := b.NewDisplay(DisplayOptions{Width: 8, Height: 4})
	if err != nil {
		t.Fatalf("NewDisplay: %v", err)
	}
	if d.Width() != 8 || d.Height() != 4 {
		t.Errorf("size = %dx%d, want 8x4", d.Width(), d.Height())
	}

	if _, err := b.NewDisplayByName("broken", DisplayOptions{}); !errors.Is(err, boom) {
		t.Errorf("NewDisplayByName(broken) = %v, want %v", err, boom)
	}
	if _, err := b.NewDisplayByName("nope", DisplayOptions{}); !errors.Is(err, ErrUnknownDisplay) {
		t.Errorf("NewDisplayByName(nope) = %v, want ErrUnknownDisplay", err)
	}
}

func TestBackendsNoneAvailable(t *testing.T) {
	var b Backends
	if _, err := b.NewDisplay(DisplayOptions{}); !errors.Is(err, ErrNoDisplay) {
		t.Errorf("NewDisplay = %v, want ErrNoDisplay", err)
	}
	boom := errors.New("boom")
	b.Register("only", 1, func(DisplayOptions) (Display, error) { return nil, boom }, nil)
	_, err := b.NewDisplay(DisplayOptions{})
	if !errors.Is(err, ErrNoDisplay) || !errors.Is(err, boom) {
		t.Errorf("NewDisplay = %v, want ErrNoDisplay wrapping %v", err, boom)
	}
}
