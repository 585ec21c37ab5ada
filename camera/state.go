// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camera

import (
	"time"

	"github.com/maruel/go-thermcam/palette"
	"github.com/maruel/go-thermcam/render"
	"github.com/maruel/go-thermcam/thermal"
)

// Phase tells if the cached image reflects the cached raw frame.
type Phase int

// Valid values for Phase.
const (
	// RawOnly means a new raw frame or new settings were not rendered yet.
	RawOnly Phase = 0
	// Rendered means the cached image is up to date and can be reused.
	Rendered Phase = 1
)

func (p Phase) String() string {
	if p == Rendered {
		return "Rendered"
	}
	return "RawOnly"
}

// State is the presentation state. It is only modified by the control
// operations and by the frame pipeline.
type State struct {
	Palette       int          // Index in the palette table.
	Interpolation int          // Index in render.Interpolations.
	Filter        bool         // Bilateral filter enabled.
	Unit          thermal.Unit // Unit used in the status line.
	Phase         Phase        // RawOnly when dirty.
	LastFrame     time.Time    // When the previous frame was annotated.
	SavedUntil    time.Time    // Snapshot confirmation is shown until then.
}

// DefaultState returns the startup state.
func DefaultState() State {
	return State{
		Palette:       0,
		Interpolation: render.DefaultInterpolation,
		Unit:          thermal.Fahrenheit,
	}
}

// PaletteName returns the name of the selected palette.
func (s State) PaletteName() string {
	return palette.At(s.Palette).Name
}

// InterpolationName returns the name of the selected upscaling method.
func (s State) InterpolationName() string {
	return render.Interpolations[s.Interpolation].Name
}

// options converts the state to rendering options.
func (s State) options() render.Options {
	return render.Options{Palette: s.Palette, Interpolation: s.Interpolation, Filter: s.Filter}
}

// cycle moves i by one step in [0, n), wrapping around.
func cycle(i, n int, forward bool) int {
	if forward {
		i++
		if i >= n {
			i = 0
		}
	} else {
		i--
		if i < 0 {
			i = n - 1
		}
	}
	return i
}

// Control operations.

// CyclePalette selects the next or previous palette.
func (c *Camera) CyclePalette(forward bool) {
	c.state.Palette = cycle(c.state.Palette, palette.Len(), forward)
	c.state.Phase = RawOnly
}

// CycleInterpolation selects the next or previous upscaling method.
func (c *Camera) CycleInterpolation(forward bool) {
	c.state.Interpolation = cycle(c.state.Interpolation, len(render.Interpolations), forward)
	c.state.Phase = RawOnly
}

// ToggleFilter enables or disables noise smoothing.
func (c *Camera) ToggleFilter() {
	c.state.Filter = !c.state.Filter
	c.state.Phase = RawOnly
}

// ToggleUnit switches between °F and °C in the status line.
func (c *Camera) ToggleUnit() {
	if c.state.Unit == thermal.Fahrenheit {
		c.state.Unit = thermal.Celsius
	} else {
		c.state.Unit = thermal.Fahrenheit
	}
	c.state.Phase = RawOnly
}

// SetMessage shows a centered message on every frame until it is called
// with an empty string. It is hidden while the snapshot confirmation is shown.
func (c *Camera) SetMessage(msg string) {
	c.message = msg
	c.state.Phase = RawOnly
}

// RequestQuit asks the render loop to stop after the current frame.
func (c *Camera) RequestQuit() {
	c.quit = true
}

// Running returns false once RequestQuit was called or Options.Stop returned
// true.
func (c *Camera) Running() bool {
	if !c.quit && c.stop != nil && c.stop() {
		c.quit = true
	}
	return !c.quit
}

// State returns a copy of the presentation state.
func (c *Camera) State() State {
	return c.state
}
