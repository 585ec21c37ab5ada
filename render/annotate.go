// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/maruel/go-thermcam/thermal"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Fixed overlay positions, as baseline origin.
var (
	StatusOrigin  = image.Point{30, 18}
	MessageOrigin = image.Point{300, 300}
)

// SavedMessage is shown for a short while after a snapshot is written.
const SavedMessage = "Snapshot Saved!"

// Status is the content of the status line.
type Status struct {
	Range         thermal.Range
	Unit          thermal.Unit
	FPS           float64
	Interpolation string
	Palette       string
	Filtered      bool
}

func (s *Status) String() string {
	return fmt.Sprintf("Tmin=%s - Tmax=%s - FPS=%.1f - Interpolation: %s - Colormap: %s - Filtered: %t",
		s.Unit.Format(s.Range.Min), s.Unit.Format(s.Range.Max), s.FPS, s.Interpolation, s.Palette, s.Filtered)
}

// Text is a string drawn at a fixed position.
type Text struct {
	S      string
	Origin image.Point
	Bold   bool
}

// Annotate draws the texts in black over img.
func Annotate(img *image.RGBA, texts []Text) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	for _, t := range texts {
		d.Dot = fixed.P(t.Origin.X, t.Origin.Y)
		d.DrawString(t.S)
		if t.Bold {
			d.Dot = fixed.P(t.Origin.X+1, t.Origin.Y)
			d.DrawString(t.S)
		}
	}
}
