// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package palette maps 8 bits intensity to false colors.
//
// The palettes are matplotlib colormaps sampled into 256 entries lookup
// tables. Like OpenCV colormaps, entries are stored in B, G, R order; the
// image produced by Colorize must go through a fixed R/B swap before being
// displayed.
package palette

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"
)

// Palette is a named intensity to color lookup table.
type Palette struct {
	Name string
	lut  [256][3]uint8 // B, G, R
}

// BGR returns the color for the intensity, in B, G, R order.
func (p *Palette) BGR(v uint8) [3]uint8 {
	return p.lut[v]
}

// RGB returns the color for the intensity as it is meant to be seen.
func (p *Palette) RGB(v uint8) color.RGBA {
	e := p.lut[v]
	return color.RGBA{R: e[2], G: e[1], B: e[0], A: 255}
}

// Colorize maps each intensity of src through p into dst.
//
// dst must have the same bounds as src. Channels are written in the table's
// B, G, R order in the R, G, B slots.
func Colorize(dst *image.RGBA, src *image.Gray, p *Palette) error {
	if !dst.Rect.Eq(src.Rect) {
		return fmt.Errorf("palette: bounds mismatch %s != %s", dst.Rect, src.Rect)
	}
	w := src.Rect.Dx()
	h := src.Rect.Dy()
	for y := 0; y < h; y++ {
		s := src.Pix[y*src.Stride : y*src.Stride+w]
		d := dst.Pix[y*dst.Stride : y*dst.Stride+4*w]
		for x, v := range s {
			e := p.lut[v]
			d[4*x] = e[0]
			d[4*x+1] = e[1]
			d[4*x+2] = e[2]
			d[4*x+3] = 255
		}
	}
	return nil
}

// Len returns the number of palettes.
func Len() int {
	return len(all)
}

// At returns the palette at index i. It panics if i is out of range.
func At(i int) *Palette {
	return all[i]
}

// Names returns the palette names, in cycling order.
func Names() []string {
	out := make([]string, len(all))
	for i, p := range all {
		out[i] = p.Name
	}
	return out
}

// Index returns the index of the palette with this name.
func Index(name string) (int, bool) {
	for i, p := range all {
		if p.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Private details.

// all is the read-only palette table, in cycling order.
var all = []*Palette{
	fromFunc("rainbow", rainbow),
	fromFunc("jet", segments(jetR, jetG, jetB)),
	fromFunc("bwr", listed(false, bwr)),
	fromFunc("seismic", listed(false, seismic)),
	fromColorMap("coolwarm"),
	fromBrewer("PiYG_r", "PiYG", 11, true),
	fromFunc("tab10", listed(true, tab10)),
	fromFunc("tab20", listed(true, tab20)),
	fromFunc("gnuplot2", gnuplot2),
	fromFunc("brg", listed(false, brg)),
}

type rgbFunc func(x float64) (r, g, b float64)

func fromFunc(name string, f rgbFunc) *Palette {
	p := &Palette{Name: name}
	for i := range p.lut {
		r, g, b := f(float64(i) / 255)
		p.lut[i] = [3]uint8{unit8(b), unit8(g), unit8(r)}
	}
	return p
}

func fromColorMap(name string) *Palette {
	cm := moreland.SmoothBlueRed()
	cm.SetMin(0)
	cm.SetMax(1)
	p := &Palette{Name: name}
	for i := range p.lut {
		c, err := cm.At(float64(i) / 255)
		if err != nil {
			panic(fmt.Sprintf("palette %s: %s", name, err))
		}
		p.lut[i] = bgr(c)
	}
	return p
}

func fromBrewer(name, scheme string, n int, reverse bool) *Palette {
	b, err := brewer.GetPalette(brewer.TypeAny, scheme, n)
	if err != nil {
		panic(fmt.Sprintf("palette %s: %s", name, err))
	}
	colors := b.Colors()
	stops := make([][3]float64, len(colors))
	for i, c := range colors {
		e := bgr(c)
		j := i
		if reverse {
			j = len(colors) - 1 - i
		}
		stops[j] = [3]float64{float64(e[2]) / 255, float64(e[1]) / 255, float64(e[0]) / 255}
	}
	return fromFunc(name, listed(false, stops))
}

func bgr(c color.Color) [3]uint8 {
	r, g, b, _ := color.NRGBAModel.Convert(c).RGBA()
	return [3]uint8{uint8(b >> 8), uint8(g >> 8), uint8(r >> 8)}
}

func unit8(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}

// listed returns evenly spaced color stops. When discrete is true, each stop
// covers an equal share of the range; otherwise stops are linearly
// interpolated.
func listed(discrete bool, stops [][3]float64) rgbFunc {
	n := len(stops)
	if discrete {
		return func(x float64) (float64, float64, float64) {
			i := int(x * float64(n))
			if i >= n {
				i = n - 1
			}
			return stops[i][0], stops[i][1], stops[i][2]
		}
	}
	return func(x float64) (float64, float64, float64) {
		pos := x * float64(n-1)
		i := int(pos)
		if i >= n-1 {
			i = n - 2
		}
		t := pos - float64(i)
		a, b := stops[i], stops[i+1]
		return lerp(a[0], b[0], t), lerp(a[1], b[1], t), lerp(a[2], b[2], t)
	}
}

// point is a matplotlib segment data control point.
type point struct {
	x float64
	v float64
}

func segments(r, g, b []point) rgbFunc {
	return func(x float64) (float64, float64, float64) {
		return segment(r, x), segment(g, x), segment(b, x)
	}
}

func segment(pts []point, x float64) float64 {
	for i := 1; i < len(pts); i++ {
		if x <= pts[i].x {
			a, b := pts[i-1], pts[i]
			return lerp(a.v, b.v, (x-a.x)/(b.x-a.x))
		}
	}
	return pts[len(pts)-1].v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
