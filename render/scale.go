// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package render turns an intensity image into the displayed color image:
// colorize, upscale, mirror, fix channel order, smooth and annotate.
package render

import (
	"image"
	"math"

	"github.com/maruel/go-thermcam/palette"
	"golang.org/x/image/draw"
)

// Interpolation is a named upscaling method.
type Interpolation struct {
	Name string
	// Legacy modes zoom the intensity image by this factor before
	// colorizing. 0 means colorize at sensor resolution then resize.
	zoom   int
	kernel draw.Interpolator
}

// Interpolations is the read-only table of upscaling methods, in cycling
// order. The last two are slower legacy modes which zoom the intensity image
// before applying the palette.
var Interpolations = []*Interpolation{
	{Name: "Nearest", kernel: draw.NearestNeighbor},
	{Name: "Inter Linear", kernel: draw.BiLinear},
	// Area averaging degenerates into a linear blend when enlarging.
	{Name: "Inter Area", kernel: draw.ApproxBiLinear},
	{Name: "Inter Cubic", kernel: draw.CatmullRom},
	{Name: "Inter Lanczos4", kernel: lanczos4Kernel},
	{Name: "Pure Zoom", zoom: 25, kernel: draw.NearestNeighbor},
	{Name: "Zoom/Cubic Mixed", zoom: 10, kernel: draw.CatmullRom},
}

// DefaultInterpolation is the index of "Inter Cubic".
const DefaultInterpolation = 3

// InterpolationIndex returns the index of the method with this name.
func InterpolationIndex(name string) (int, bool) {
	for i, m := range Interpolations {
		if m.Name == name {
			return i, true
		}
	}
	return 0, false
}

// scale colorizes src with p into dst, covering dst.Rect.
//
// small and zoomed are scratch buffers, reallocated when too small.
func (m *Interpolation) scale(dst *image.RGBA, src *image.Gray, p *palette.Palette, s *scratch) error {
	if m.zoom == 0 {
		small := s.rgba(&s.small, src.Rect)
		if err := palette.Colorize(small, src, p); err != nil {
			return err
		}
		m.kernel.Scale(dst, dst.Rect, small, small.Rect, draw.Src, nil)
		return nil
	}
	// Spline zoom of the raw intensity, then colorize the large image.
	zr := image.Rect(0, 0, src.Rect.Dx()*m.zoom, src.Rect.Dy()*m.zoom)
	zoomed := s.gray(&s.zoomed, zr)
	draw.CatmullRom.Scale(zoomed, zr, src, src.Rect, draw.Src, nil)
	if zr.Eq(dst.Rect) {
		return palette.Colorize(dst, zoomed, p)
	}
	large := s.rgba(&s.large, zr)
	if err := palette.Colorize(large, zoomed, p); err != nil {
		return err
	}
	m.kernel.Scale(dst, dst.Rect, large, large.Rect, draw.Src, nil)
	return nil
}

type scratch struct {
	small  *image.RGBA
	large  *image.RGBA
	zoomed *image.Gray
}

func (s *scratch) rgba(p **image.RGBA, r image.Rectangle) *image.RGBA {
	if *p == nil || !(*p).Rect.Eq(r) {
		*p = image.NewRGBA(r)
	}
	return *p
}

func (s *scratch) gray(p **image.Gray, r image.Rectangle) *image.Gray {
	if *p == nil || !(*p).Rect.Eq(r) {
		*p = image.NewGray(r)
	}
	return *p
}

// lanczos4Kernel is a windowed sinc over 8×8 source pixels.
var lanczos4Kernel = &draw.Kernel{
	Support: 4,
	At: func(t float64) float64 {
		if t == 0 {
			return 1
		}
		if t < 0 {
			t = -t
		}
		if t >= 4 {
			return 0
		}
		x := math.Pi * t
		return 4 * math.Sin(x) * math.Sin(x/4) / (x * x)
	},
}

// SwapRB swaps the R and B channels in place.
func SwapRB(img *image.RGBA) {
	w := img.Rect.Dx()
	for y := 0; y < img.Rect.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+4*w]
		for x := 0; x < len(row); x += 4 {
			row[x], row[x+2] = row[x+2], row[x]
		}
	}
}
