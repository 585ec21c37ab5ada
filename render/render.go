// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/gift"
	"github.com/maruel/go-thermcam/palette"
)

// Default display resolution.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Options selects how an intensity image is turned into a color image.
type Options struct {
	Palette       int
	Interpolation int
	Filter        bool
}

// Renderer converts intensity images to display resolution color images.
//
// It keeps scratch buffers between calls and is not safe for concurrent use.
type Renderer struct {
	Width  int
	Height int

	mirror    *gift.GIFT
	bilateral *Bilateral
	scaled    *image.RGBA
	s         scratch
}

// New returns a Renderer producing images of w×h pixels.
func New(w, h int) (*Renderer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: invalid display size %dx%d", w, h)
	}
	return &Renderer{
		Width:     w,
		Height:    h,
		mirror:    gift.New(gift.FlipHorizontal()),
		bilateral: NewBilateral(),
	}, nil
}

// Render returns a newly allocated color image of the display size.
//
// The steps are: palette lookup, upscale, horizontal mirror, R/B swap and
// optionally the bilateral filter. The returned image never aliases the
// Renderer's buffers.
func (r *Renderer) Render(src *image.Gray, o Options) (*image.RGBA, error) {
	if o.Palette < 0 || o.Palette >= palette.Len() {
		return nil, fmt.Errorf("render: palette %d out of range", o.Palette)
	}
	if o.Interpolation < 0 || o.Interpolation >= len(Interpolations) {
		return nil, fmt.Errorf("render: interpolation %d out of range", o.Interpolation)
	}
	if src == nil {
		return nil, errors.New("render: no intensity image")
	}
	dr := image.Rect(0, 0, r.Width, r.Height)
	scaled := r.s.rgba(&r.scaled, dr)
	if err := Interpolations[o.Interpolation].scale(scaled, src, palette.At(o.Palette), &r.s); err != nil {
		return nil, err
	}
	out := image.NewRGBA(r.mirror.Bounds(dr))
	r.mirror.Draw(out, scaled)
	SwapRB(out)
	if o.Filter {
		out = r.bilateral.Apply(out)
	}
	return out, nil
}
